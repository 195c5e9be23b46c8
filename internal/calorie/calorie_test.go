package calorie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBMR(t *testing.T) {
	assert.Equal(t, 1648.75, ComputeBMR("male", 70, 175, 30))
	assert.Equal(t, 1482.75, ComputeBMR("female", 70, 175, 30))
	assert.Equal(t, 1482.75, ComputeBMR("other", 70, 175, 30))
	assert.Equal(t, 1648.75, ComputeBMR("Male", 70, 175, 30))
}

func TestComputeBMRPropagatesOddInputs(t *testing.T) {
	assert.Equal(t, 5.0, ComputeBMR("male", 0, 0, 0))
	assert.Equal(t, -161.0, ComputeBMR("female", 0, 0, 0))
	assert.Less(t, ComputeBMR("male", -10, 0, 90), 0.0)
}

func TestComputeDailyCalories(t *testing.T) {
	assert.InDelta(t, 2555.5625, ComputeDailyCalories(1648.75, "moderate"), 1e-9)

	cases := map[string]float64{
		"sedentary": 1.2,
		"light":     1.375,
		"moderate":  1.55,
		"very":      1.725,
		"active":    1.725,
		"extra":     1.9,
		"":          1.2,
		"Moderate":  1.2,
		"athlete":   1.2,
	}
	for level, factor := range cases {
		assert.InDelta(t, 1000*factor, ComputeDailyCalories(1000, level), 1e-9, level)
	}
}

func TestCompute(t *testing.T) {
	got := Compute("male", 70, 175, 30, "moderate")
	assert.Equal(t, 1648.75, got.BMR)
	assert.InDelta(t, 2555.5625, got.DailyCalories, 1e-9)
}
