// Package calorie turns body metrics into a basal metabolic rate and a
// daily calorie target.
package calorie

import "strings"

// DefaultActivityFactor applies to any activity level not in the table.
const DefaultActivityFactor = 1.2

var activityFactors = map[string]float64{
	"sedentary": 1.2,
	"light":     1.375,
	"moderate":  1.55,
	"very":      1.725,
	"active":    1.725,
	"extra":     1.9,
}

// Target is a derived, per-request calorie result.
type Target struct {
	BMR           float64 `json:"bmr"`
	DailyCalories float64 `json:"daily_calories"`
}

// ComputeBMR applies the Mifflin-St Jeor equation. Only "male" selects the
// male constant; inputs are not validated here.
func ComputeBMR(gender string, weightKg, heightCm, ageYears float64) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*ageYears
	if strings.EqualFold(strings.TrimSpace(gender), "male") {
		return base + 5
	}
	return base - 161
}

// ActivityFactor looks up the multiplier for an activity level by exact
// match, falling back to DefaultActivityFactor.
func ActivityFactor(activityLevel string) float64 {
	if f, ok := activityFactors[activityLevel]; ok {
		return f
	}
	return DefaultActivityFactor
}

// ComputeDailyCalories scales a BMR by the activity factor.
func ComputeDailyCalories(bmr float64, activityLevel string) float64 {
	return bmr * ActivityFactor(activityLevel)
}

// Compute runs both steps.
func Compute(gender string, weightKg, heightCm, ageYears float64, activityLevel string) Target {
	bmr := ComputeBMR(gender, weightKg, heightCm, ageYears)
	return Target{
		BMR:           bmr,
		DailyCalories: ComputeDailyCalories(bmr, activityLevel),
	}
}

// KnownActivityLevels lists the levels with an explicit factor.
func KnownActivityLevels() []string {
	return []string{"sedentary", "light", "moderate", "very", "active", "extra"}
}
