package mealplan

import (
	"fmt"
	"strings"
)

/* =================================================================================
						PROMPT ENGINEERING & OUTPUT CONTRACT
=================================================================================*/

// SystemPromptTemplate sets the model's persona. %s is the region.
const SystemPromptTemplate = `You are a nutrition expert specializing in traditional %s cuisine from India. Provide authentic, healthy meal recommendations.`

// userPromptTemplate is filled by Build with, in order: region, city clause,
// calorie limit, diet phrasing, region, diet phrasing, the calorie split
// block, the exclusion block and the output template.
const userPromptTemplate = `
Provide a complete daily meal plan from %s state cuisine (India)%s that would fit within a %d calorie daily diet.
IMPORTANT: The meal plan should be %s.
Give me 3 traditional dishes: one for Breakfast, one for Lunch, and one for Dinner from %s.

For each meal recommendation, include:
1. The name of the traditional dish (ensure it matches the %s requirement)
2. Approximate calorie count for the meal, following this split:
%s
3. Brief description with regional context
4. Nutritional benefits of the ingredients used
%s
Format the response as HTML organized by meal times. Reproduce this structure exactly,
keep the three sections in Breakfast, Lunch, Dinner order, and return nothing else:
%s`

var dietPhrases = map[DietPreference]string{
	Vegetarian:    "strictly vegetarian (no meat, poultry, fish or seafood)",
	NonVegetarian: "non-vegetarian (can include meat, poultry, fish and seafood)",
	Eggetarian:    "eggetarian (vegetarian diet with eggs allowed)",
	Mixed:         "mixed diet (combination of vegetarian and non-vegetarian options)",
}

// Calorie shares per slot, in percent of the daily limit.
const (
	breakfastShare = 25
	lunchShare     = 40
	dinnerShare    = 35
)

// Split is the per-slot calorie target derived from a daily limit.
type Split struct {
	Breakfast int `json:"breakfast"`
	Lunch     int `json:"lunch"`
	Dinner    int `json:"dinner"`
}

// For returns the share assigned to slot.
func (s Split) For(slot Slot) int {
	switch slot {
	case Breakfast:
		return s.Breakfast
	case Lunch:
		return s.Lunch
	case Dinner:
		return s.Dinner
	}
	return 0
}

// Total is the sum of the three shares; truncation keeps it at or below
// the limit the split came from.
func (s Split) Total() int {
	return s.Breakfast + s.Lunch + s.Dinner
}

// SplitCalories distributes a daily limit 25/40/35 across the slots,
// truncating each share.
func SplitCalories(calorieLimit int) Split {
	return Split{
		Breakfast: calorieLimit * breakfastShare / 100,
		Lunch:     calorieLimit * lunchShare / 100,
		Dinner:    calorieLimit * dinnerShare / 100,
	}
}

// DietPhrase maps a preference to the constraint sentence used in the
// prompt. Unknown values get the mixed-diet phrasing.
func DietPhrase(pref DietPreference) string {
	if phrase, ok := dietPhrases[pref]; ok {
		return phrase
	}
	return dietPhrases[Mixed]
}

// Prompt is everything sent to the model for one request.
type Prompt struct {
	System      string
	Instruction string
	// Template is the HTML skeleton embedded in Instruction. Parse relies
	// on its markers.
	Template string
	Split    Split
}

// Build composes the prompt for req.
func Build(req Request) Prompt {
	region := strings.TrimSpace(req.Region)
	diet := DietPhrase(req.DietPreference)
	split := SplitCalories(req.CalorieLimit)
	tmpl := OutputTemplate()

	cityClause := ""
	if city := strings.TrimSpace(req.City); city != "" {
		cityClause = fmt.Sprintf(", favouring dishes popular in and around %s", city)
	}

	instruction := fmt.Sprintf(
		userPromptTemplate,
		region,
		cityClause,
		req.CalorieLimit,
		diet,
		region,
		diet,
		splitBlock(split),
		exclusionBlock(req.ExcludedMeals),
		tmpl,
	)

	return Prompt{
		System:      fmt.Sprintf(SystemPromptTemplate, region),
		Instruction: instruction,
		Template:    tmpl,
		Split:       split,
	}
}

func splitBlock(split Split) string {
	var b strings.Builder
	for _, slot := range Slots {
		fmt.Fprintf(&b, "   - %s: about %d calories\n", slot.Title(), split.For(slot))
	}
	return strings.TrimRight(b.String(), "\n")
}

// exclusionBlock lists recently served dishes the model must not repeat.
// At most MaxExcludedMeals entries are used.
func exclusionBlock(excluded []string) string {
	var items []string
	for _, meal := range excluded {
		meal = strings.Join(strings.Fields(meal), " ")
		if meal == "" {
			continue
		}
		items = append(items, meal)
		if len(items) == MaxExcludedMeals {
			break
		}
	}
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nIMPORTANT: The user was recently served the dishes below. Do NOT suggest any of them again;\n")
	b.WriteString("provide new and different choices for every meal:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}
