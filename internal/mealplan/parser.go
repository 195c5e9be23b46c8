package mealplan

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Raw is the text returned by the recommendation service. ErrorPayload is
// set when the text is an error message rather than a model reply.
type Raw struct {
	Text         string
	ErrorPayload bool
}

// Fallback values used when a field cannot be recovered from a segment.
const (
	DefaultCalories    = 300
	minPlausibleMeal   = 100
	maxPlausibleMeal   = 800
	errorMarker        = "error-message"
	configErrorMarker  = ErrorTitleUnconfigured
	maxSegmentsPerPlan = 3
)

var (
	mealSectionOpen = regexp.MustCompile(`(?i)<div\b[^>]*\bclass\s*=\s*["'](?:[^"']*\s)?meal-section(?:\s[^"']*)?["'][^>]*>`)
	foodCardOpen    = regexp.MustCompile(`(?i)<div\b[^>]*\bclass\s*=\s*["'](?:[^"']*\s)?food-card(?:\s[^"']*)?["'][^>]*>`)

	h4Heading  = regexp.MustCompile(`(?is)<h4\b[^>]*>(.*?)</h4\s*>`)
	anyHeading = regexp.MustCompile(`(?is)<h[1-6]\b[^>]*>(.*?)</h[1-6]\s*>`)

	divTag = regexp.MustCompile(`(?i)<(/?)div\b[^>]*>`)

	foodCalories    = regexp.MustCompile(`(?is)<p\b[^>]*\bclass\s*=\s*["'](?:[^"']*\s)?food-calories(?:\s[^"']*)?["'][^>]*>(.*?)</p\s*>`)
	foodDescription = regexp.MustCompile(`(?is)<p\b[^>]*\bclass\s*=\s*["'](?:[^"']*\s)?food-description(?:\s[^"']*)?["'][^>]*>(.*?)(?:</p\s*>|</div\b|\z)`)
	anyParagraph    = regexp.MustCompile(`(?is)<p\b([^>]*)>(.*?)</p\s*>`)

	caloriesWithUnit = regexp.MustCompile(`(?i)\b(\d{1,2},\d{3}|\d{1,5})\s*-?\s*(?:kcal|calories|calorie|cals|cal)\b`)
	calorieLineOnly  = regexp.MustCompile(`(?i)^~?\s*(?:\d{1,2},\d{3}|\d{1,5})\s*(?:kcal|calories|calorie|cals|cal)\.?$`)
	shortNumber      = regexp.MustCompile(`\b(\d{2,3})\b`)

	markupTag = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Each field is recovered by an ordered chain; a stage runs only when the
// previous ones found nothing.
type (
	segmenter         func(doc string) []string
	textExtractor     func(segment string) (string, bool)
	caloriesExtractor func(text string) (int, bool)
)

var (
	segmenters = []segmenter{
		splitAt(mealSectionOpen),
		splitAt(foodCardOpen),
	}
	nameExtractors = []textExtractor{
		firstMatchText(h4Heading),
		firstMatchText(anyHeading),
	}
	caloriesExtractors = []caloriesExtractor{
		caloriesNearUnit,
		plausibleMealNumber,
	}
	descriptionExtractors = []textExtractor{
		firstMatchText(foodDescription),
		firstGenericParagraph,
	}
)

// IsErrorPayload reports whether text carries an error marker instead of
// a meal plan.
func IsErrorPayload(text string) bool {
	return strings.Contains(text, errorMarker) || strings.Contains(text, configErrorMarker)
}

// Parse extracts up to three meal records from raw. It returns nil when the
// input is an error payload or no segment yields a record; it never returns
// an empty non-nil Plan.
func Parse(raw Raw) Plan {
	if raw.ErrorPayload || IsErrorPayload(raw.Text) {
		return nil
	}

	segments := Segments(raw.Text)
	plan := make(Plan, len(segments))
	for i, segment := range segments {
		slot := Slots[i]
		if rec, ok := ExtractRecord(segment, slot); ok {
			plan[slot] = rec
		}
	}

	if len(plan) == 0 {
		return nil
	}
	return plan
}

// ParseText is Parse for text that is not known to be an error payload.
func ParseText(text string) Plan {
	return Parse(Raw{Text: text})
}

// Segments splits doc into candidate meal sections in document order,
// keeping at most three.
func Segments(doc string) []string {
	for _, split := range segmenters {
		if segments := split(doc); len(segments) > 0 {
			if len(segments) > maxSegmentsPerPlan {
				segments = segments[:maxSegmentsPerPlan]
			}
			return segments
		}
	}
	return nil
}

// ExtractRecord reads one segment. The boolean is false when nothing at
// all could be recovered, so the record would consist only of defaults.
func ExtractRecord(segment string, slot Slot) (Record, bool) {
	name, nameFound := ExtractName(segment)
	calories, caloriesFound := ExtractCalories(segment)
	description, descFound := ExtractDescription(segment)

	if !nameFound {
		name = "Traditional " + slot.Title()
	}
	if !caloriesFound {
		calories = DefaultCalories
	}
	if !descFound {
		description = "Authentic " + string(slot) + " dish with traditional ingredients and regional flavors"
	}

	rec := Record{
		Name:        name,
		Description: name + ". " + description,
		Calories:    calories,
	}
	return rec, nameFound || caloriesFound || descFound
}

// ExtractName returns the first heading's text.
func ExtractName(segment string) (string, bool) {
	return runText(nameExtractors, segment)
}

// ExtractDescription returns the description paragraph's text.
func ExtractDescription(segment string) (string, bool) {
	return runText(descriptionExtractors, segment)
}

// ExtractCalories returns the meal's calorie count. The food-calories
// paragraph is read first; the whole segment only when it has no count.
func ExtractCalories(segment string) (int, bool) {
	var scopes []string
	if m := foodCalories.FindStringSubmatch(segment); m != nil {
		scopes = append(scopes, StripMarkup(m[1]))
	}
	scopes = append(scopes, StripMarkup(segment))

	for _, text := range scopes {
		for _, extract := range caloriesExtractors {
			if n, ok := extract(text); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// StripMarkup removes tags, decodes entities and collapses whitespace.
func StripMarkup(s string) string {
	s = markupTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func runText(chain []textExtractor, segment string) (string, bool) {
	for _, extract := range chain {
		if text, ok := extract(segment); ok {
			return text, true
		}
	}
	return "", false
}

// splitAt cuts a segment at each marker. A segment ends where its opening
// div is closed, or at the next marker when the markup never closes it.
func splitAt(marker *regexp.Regexp) segmenter {
	return func(doc string) []string {
		locs := marker.FindAllStringIndex(doc, -1)
		if len(locs) == 0 {
			return nil
		}
		segments := make([]string, 0, len(locs))
		for i, loc := range locs {
			limit := len(doc)
			if i+1 < len(locs) {
				limit = locs[i+1][0]
			}
			segments = append(segments, doc[loc[1]:closingDiv(doc, loc[1], limit)])
		}
		return segments
	}
}

// closingDiv returns the offset of the </div> that closes a div opened just
// before start, searching no further than limit.
func closingDiv(doc string, start, limit int) int {
	depth := 1
	for _, m := range divTag.FindAllStringSubmatchIndex(doc[start:limit], -1) {
		if m[3] > m[2] {
			depth--
			if depth == 0 {
				return start + m[0]
			}
			continue
		}
		depth++
	}
	return limit
}

// firstMatchText uses the first match of re whose first capture group is
// non-empty once markup is stripped.
func firstMatchText(re *regexp.Regexp) textExtractor {
	return func(segment string) (string, bool) {
		for _, m := range re.FindAllStringSubmatch(segment, -1) {
			if text := StripMarkup(m[1]); text != "" {
				return text, true
			}
		}
		return "", false
	}
}

// firstGenericParagraph skips the calorie line so it is not mistaken for
// the description.
func firstGenericParagraph(segment string) (string, bool) {
	for _, m := range anyParagraph.FindAllStringSubmatch(segment, -1) {
		if strings.Contains(strings.ToLower(m[1]), "calories") {
			continue
		}
		text := StripMarkup(m[2])
		if text == "" || calorieLineOnly.MatchString(text) {
			continue
		}
		return text, true
	}
	return "", false
}

func caloriesNearUnit(text string) (int, bool) {
	for _, m := range caloriesWithUnit.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// plausibleMealNumber accepts the first two or three digit number within
// the single-meal range [100, 800].
func plausibleMealNumber(text string) (int, bool) {
	for _, m := range shortNumber.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= minPlausibleMeal && n <= maxPlausibleMeal {
			return n, true
		}
	}
	return 0, false
}
