package planner

import (
	"fmt"
	"strings"
)

// ValidationError rejects caller input before any work is done.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const (
	msgRequired = "All fields are required"
	msgPositive = "Weight, height, and age must be positive values"
)

// Validate checks that every required field is present and the body metrics
// are positive. Unknown activity levels and diets are accepted; they fall
// back to the sedentary factor and mixed-diet phrasing.
func Validate(p Profile, prefs Preferences) error {
	required := []struct {
		field, value string
	}{
		{"gender", p.Gender},
		{"activity", p.ActivityLevel},
		{"state", prefs.Region},
		{"food_preference", string(prefs.Diet)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: msgRequired}
		}
	}

	switch {
	case p.WeightKg <= 0:
		return &ValidationError{Field: "weight", Message: msgPositive}
	case p.HeightCm <= 0:
		return &ValidationError{Field: "height", Message: msgPositive}
	case p.Age <= 0:
		return &ValidationError{Field: "age", Message: msgPositive}
	}
	return nil
}
