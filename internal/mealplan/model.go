/*
Package mealplan owns the meal-plan contract with the text-generation
service: the request model, the prompt and output template sent to the
model, the tolerant parser that reads the reply back, and the renderer that
produces the same template from a parsed plan.
*/
package mealplan

import "strings"

// Slot is one of the three daily meals.
type Slot string

const (
	Breakfast Slot = "breakfast"
	Lunch     Slot = "lunch"
	Dinner    Slot = "dinner"
)

// Slots lists the meal slots in template order. Parsed segments are
// assigned to slots by their position in this list.
var Slots = []Slot{Breakfast, Lunch, Dinner}

// Title returns the capitalised slot name ("Breakfast").
func (s Slot) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// DietPreference constrains the dishes the model may suggest.
type DietPreference string

const (
	Vegetarian    DietPreference = "vegetarian"
	NonVegetarian DietPreference = "non-vegetarian"
	Eggetarian    DietPreference = "eggetarian"
	Mixed         DietPreference = "mixed"
)

// Valid reports whether d is one of the supported preferences.
func (d DietPreference) Valid() bool {
	switch d {
	case Vegetarian, NonVegetarian, Eggetarian, Mixed:
		return true
	}
	return false
}

// MaxExcludedMeals bounds Request.ExcludedMeals.
const MaxExcludedMeals = 10

// Request is built fresh for every recommendation call.
type Request struct {
	Region         string
	City           string
	CalorieLimit   int
	DietPreference DietPreference
	ExcludedMeals  []string
}

// Record is one extracted meal. Description already carries the dish name
// as a prefix ("<Name>. <Description>").
type Record struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Calories    int    `json:"calories"`
}

// Plan maps the successfully extracted slots to their records. A nil Plan
// means "no plan"; a Plan is never empty when returned by Parse.
type Plan map[Slot]Record

// Descriptions flattens the plan's descriptions in slot order.
func (p Plan) Descriptions() []string {
	var out []string
	for _, slot := range Slots {
		if rec, ok := p[slot]; ok {
			out = append(out, rec.Description)
		}
	}
	return out
}

// TotalCalories sums calories over the present slots.
func (p Plan) TotalCalories() int {
	total := 0
	for _, rec := range p {
		total += rec.Calories
	}
	return total
}

// PresentSlots returns the populated slots in template order.
func (p Plan) PresentSlots() []Slot {
	var out []Slot
	for _, slot := range Slots {
		if _, ok := p[slot]; ok {
			out = append(out, slot)
		}
	}
	return out
}
