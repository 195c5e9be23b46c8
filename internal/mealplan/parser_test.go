package mealplan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handWrittenPlan = `Here is your plan!
<div class="meal-plan">
    <div class="meal-section">
        <div class="meal-title">
            <span class="meal-icon">🌅</span>
            Breakfast
        </div>
        <div class="food-card">
            <h4>%s</h4>
            <p class="food-calories">%d calories</p>
            <p class="food-description">%s</p>
        </div>
    </div>
    <div class="meal-section">
        <div class="meal-title">
            <span class="meal-icon">☀️</span>
            Lunch
        </div>
        <div class="food-card">
            <h4>%s</h4>
            <p class="food-calories">%d calories</p>
            <p class="food-description">%s</p>
        </div>
    </div>
    <div class="meal-section">
        <div class="meal-title">
            <span class="meal-icon">🌙</span>
            Dinner
        </div>
        <div class="food-card">
            <h4>%s</h4>
            <p class="food-calories">%d calories</p>
            <p class="food-description">%s</p>
        </div>
    </div>
</div>`

func section(inner string) string {
	return `<div class="meal-section">` + inner + `</div></div>`
}

func TestParseRecoversTemplateTriples(t *testing.T) {
	doc := fmt.Sprintf(handWrittenPlan,
		"Appam with Stew", 420, "Fermented rice hoppers with a mild coconut vegetable stew.",
		"Kerala Sadya", 780, "A banana-leaf feast of rice, sambar, avial and thoran.",
		"Kappa and Meen Curry", 690, "Tapioca with tangy red fish curry cooked in a clay pot.",
	)

	plan := ParseText(doc)
	require.NotNil(t, plan)
	assert.Equal(t, Plan{
		Breakfast: {Name: "Appam with Stew", Calories: 420, Description: "Appam with Stew. Fermented rice hoppers with a mild coconut vegetable stew."},
		Lunch:     {Name: "Kerala Sadya", Calories: 780, Description: "Kerala Sadya. A banana-leaf feast of rice, sambar, avial and thoran."},
		Dinner:    {Name: "Kappa and Meen Curry", Calories: 690, Description: "Kappa and Meen Curry. Tapioca with tangy red fish curry cooked in a clay pot."},
	}, plan)
}

func TestParseRoundTripsRender(t *testing.T) {
	want := Plan{
		Breakfast: {Name: "Puttu & Kadala", Calories: 450, Description: "Puttu & Kadala. Steamed rice cylinders with black chickpea curry."},
		Lunch:     {Name: "Chef's Thali", Calories: 800, Description: "Chef's Thali. Rice with \"parippu\" and olan."},
		Dinner:    {Name: "Idiyappam", Calories: 350, Description: "Idiyappam. String hoppers with egg roast."},
	}

	out, err := Render(want)
	require.NoError(t, err)
	assert.Equal(t, want, ParseText(out))
}

func TestParseCaloriesFallbacks(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"unit calories", `<h4>Poha</h4><p>Light flattened rice, 350 calories</p>`, 350},
		{"unit kcal", `<h4>Poha</h4><p class="food-calories">520 kcal</p>`, 520},
		{"unit cal", `<h4>Poha</h4><p>approx 380 Cal</p>`, 380},
		{"hyphenated", `<h4>Poha</h4><p>A 610-calorie dish</p>`, 610},
		{"unit split by markup", `<h4>Poha</h4><p><b>275</b> <i>calories</i></p>`, 275},
		{"plausible number", `<h4>Lemon Rice</h4><p class="food-description">serves with 450 of rice-based goodness</p>`, 450},
		{"skips out of range", `<h4>Lemon Rice</h4><p>serves 4 people in 30 minutes, then 650 of joy</p>`, 650},
		{"no plausible number", `<h4>Lemon Rice</h4><p>A 5000 year old recipe, serves 4 in 30 minutes</p>`, DefaultCalories},
		{"zero with unit", `<h4>Water</h4><p>0 calories but 120 of flavour</p>`, 120},
		{"thousands separator", `<h4>Thali</h4><p class="food-calories">1,050 calories</p>`, 1050},
		{"calorie line before name digits", `<h4>100 Calorie Upma</h4><p class="food-calories">300 calories</p>`, 300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := ParseText(section(tc.body))
			require.NotNil(t, plan)
			assert.Equal(t, tc.want, plan[Breakfast].Calories)
		})
	}
}

func TestParseIgnoresTextAfterLastSection(t *testing.T) {
	doc := `<div class="meal-plan">` +
		section(`<h4>Idli</h4><p class="food-calories">350 calories</p><p class="food-description">Steamed cakes.</p>`) +
		section(`<h4>Thali</h4><p class="food-calories">700 calories</p><p class="food-description">Rice and dal.</p>`) +
		section(`<h4>Dosa</h4><p class="food-description">Crisp crepe.</p>`) +
		`</div>
<p>Total: 1800 calories for the day.</p>
<p>Enjoy your meals and stay hydrated!</p>`

	plan := ParseText(doc)
	require.Len(t, plan, 3)
	assert.Equal(t, Record{Name: "Dosa", Description: "Dosa. Crisp crepe.", Calories: DefaultCalories}, plan[Dinner])

	noDescription := section(`<h4>Idli</h4><p class="food-calories">350 calories</p>`) +
		"\n<p>Enjoy your meals and stay hydrated!</p>"
	plan = ParseText(noDescription)
	require.Len(t, plan, 1)
	assert.Equal(t, "Idli. Authentic breakfast dish with traditional ingredients and regional flavors", plan[Breakfast].Description)
}

func TestParseRoundTripsDigitsInName(t *testing.T) {
	want := Plan{
		Breakfast: {Name: "100 Calorie Upma", Calories: 300, Description: "100 Calorie Upma. Light semolina."},
		Lunch:     {Name: "Thali", Calories: 1050, Description: "Thali. Full plate with 2 rotis."},
		Dinner:    {Name: "Khichdi", Calories: 450, Description: "Khichdi. Rice and moong, 600 years old recipe."},
	}

	out, err := Render(want)
	require.NoError(t, err)
	assert.Equal(t, want, ParseText(out))
}

func TestParseNameFallbacks(t *testing.T) {
	plan := ParseText(section(`<h3>Pesarattu</h3><p class="food-description">Green gram crepe.</p>`) +
		section(`<p class="food-calories">600 calories</p><p class="food-description">Rice and curry.</p>`) +
		section(`<h4>   </h4><h2>Dal <em>Makhani</em></h2><p class="food-description">Slow cooked lentils.</p>`))

	require.Len(t, plan, 3)
	assert.Equal(t, "Pesarattu", plan[Breakfast].Name)
	assert.Equal(t, "Traditional Lunch", plan[Lunch].Name)
	assert.Equal(t, "Traditional Lunch. Rice and curry.", plan[Lunch].Description)
	assert.Equal(t, "Dal Makhani", plan[Dinner].Name)
}

func TestParseDescriptionFallbacks(t *testing.T) {
	plan := ParseText(
		section(`<h4>Upma</h4><p class="food-calories">300 calories</p><p>Semolina   cooked with <b>curry</b>
			leaves &amp; mustard.</p>`) +
			section(`<h4>Bisi Bele Bath</h4><p class="food-calories">650 calories</p>`) +
			section(`<h4>Ragi Mudde</h4><p>400 kcal</p><p class="food-description">Finger millet balls served with
			saaru`))

	require.Len(t, plan, 3)
	assert.Equal(t, "Upma. Semolina cooked with curry leaves & mustard.", plan[Breakfast].Description)
	assert.Equal(t, "Bisi Bele Bath. Authentic lunch dish with traditional ingredients and regional flavors", plan[Lunch].Description)
	assert.Equal(t, "Ragi Mudde. Finger millet balls served with saaru", plan[Dinner].Description)
	assert.Equal(t, 400, plan[Dinner].Calories)
}

func TestParseErrorPayload(t *testing.T) {
	valid := section(`<h4>Idli</h4><p class="food-calories">300 calories</p>`)

	assert.Nil(t, Parse(Raw{Text: valid, ErrorPayload: true}))
	assert.Nil(t, ParseText(RenderError(ErrorTitleService, "Unable to get food recommendations at this time.", "Error: timeout")))
	assert.Nil(t, ParseText(RenderError(ErrorTitleUnconfigured)))
	assert.Nil(t, ParseText("API Configuration Required "+valid))
	assert.Nil(t, ParseText(""))
	assert.Nil(t, ParseText("Sorry, I cannot help with that."))
}

func TestParseSegmentCount(t *testing.T) {
	one := section(`<h4>Idli</h4><p>300 calories</p>`)
	two := one + section(`<h4>Thali</h4><p>700 calories</p>`)
	four := two + section(`<h4>Dosa</h4><p>500 calories</p>`) + section(`<h4>Payasam</h4><p>250 calories</p>`)

	p1 := ParseText(one)
	assert.Equal(t, []Slot{Breakfast}, p1.PresentSlots())

	p2 := ParseText(two)
	assert.Equal(t, []Slot{Breakfast, Lunch}, p2.PresentSlots())
	assert.Equal(t, "Thali", p2[Lunch].Name)

	p4 := ParseText(four)
	require.Len(t, p4, 3)
	assert.Equal(t, "Dosa", p4[Dinner].Name)
	assert.Equal(t, 1500, p4.TotalCalories())
}

func TestParseAssignsSlotsByPosition(t *testing.T) {
	doc := section(`<div class="meal-title">Lunch</div><h4>Thali</h4><p>700 calories</p>`) +
		section(`<div class="meal-title">Breakfast</div><h4>Idli</h4><p>300 calories</p>`)

	plan := ParseText(doc)
	assert.Equal(t, "Thali", plan[Breakfast].Name)
	assert.Equal(t, "Idli", plan[Lunch].Name)
}

func TestParseDropsEmptySegments(t *testing.T) {
	doc := `<div class="meal-section">   </div>` + section(`<h4>Thali</h4><p>700 calories</p>`)

	plan := ParseText(doc)
	assert.Equal(t, []Slot{Lunch}, plan.PresentSlots())

	assert.Nil(t, ParseText(`<div class="meal-section"></div><div class="meal-section"><span></span></div>`))
}

func TestParseFoodCardSegments(t *testing.T) {
	doc := `<div class='food-card highlight'><h4>Misal Pav</h4><p>450 calories</p></div>
<div class="food-card"><h4>Varan Bhaat</h4><p>600 calories</p></div>`

	plan := ParseText(doc)
	require.Len(t, plan, 2)
	assert.Equal(t, "Misal Pav", plan[Breakfast].Name)
	assert.Equal(t, 600, plan[Lunch].Calories)
}

func TestPlanHelpers(t *testing.T) {
	plan := Plan{
		Dinner:    {Name: "C", Description: "C. c", Calories: 300},
		Breakfast: {Name: "A", Description: "A. a", Calories: 200},
	}
	assert.Equal(t, []string{"A. a", "C. c"}, plan.Descriptions())
	assert.Equal(t, 500, plan.TotalCalories())
	assert.Equal(t, "c", plan[Dinner].Detail())
	assert.True(t, Lunch.Valid())
	assert.False(t, Slot("snack").Valid())
	assert.Equal(t, "Dinner", Dinner.Title())
}
