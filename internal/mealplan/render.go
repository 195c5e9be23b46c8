package mealplan

import (
	"html/template"
	"strconv"
	"strings"
)

// planLayout is the HTML contract shared by the prompt (as the template the
// model must reproduce) and Render. The parser reads the meal-section,
// h4, food-calories and food-description markers.
var planLayout = template.Must(template.New("plan").Parse(`<div class="meal-plan">
{{- range .}}
    <div class="meal-section">
        <div class="meal-title">
            <span class="meal-icon">{{.Icon}}</span>
            {{.Title}}
        </div>
        <div class="food-card">
            <h4>{{.Name}}</h4>
            <p class="food-calories">{{.Calories}} calories</p>
            <p class="food-description">{{.Description}}</p>
        </div>
    </div>
{{- end}}
</div>`))

var errorLayout = template.Must(template.New("error").Parse(`<div class="error-message">
    <h4>⚠️ {{.Title}}</h4>
{{- range .Lines}}
    <p>{{.}}</p>
{{- end}}
</div>`))

// Titles used for error payloads. The parser treats the error-message
// container, and the configuration title, as "no plan".
const (
	ErrorTitleUnconfigured = "API Configuration Required"
	ErrorTitleService      = "API Error"
)

var slotIcons = map[Slot]string{
	Breakfast: "🌅",
	Lunch:     "☀️",
	Dinner:    "🌙",
}

type sectionView struct {
	Icon        string
	Title       string
	Name        string
	Calories    string
	Description string
}

var outputTemplate = mustRender(placeholderSections())

// OutputTemplate returns the skeleton the model is asked to fill in.
func OutputTemplate() string {
	return outputTemplate
}

func placeholderSections() []sectionView {
	views := make([]sectionView, 0, len(Slots))
	for _, slot := range Slots {
		views = append(views, sectionView{
			Icon:        slotIcons[slot],
			Title:       slot.Title(),
			Name:        "Traditional " + slot.Title() + " Dish Name",
			Calories:    "XXX",
			Description: "Traditional description",
		})
	}
	return views
}

// Detail returns the description without the "<Name>. " prefix.
func (r Record) Detail() string {
	if r.Name == "" {
		return r.Description
	}
	return strings.TrimPrefix(r.Description, r.Name+". ")
}

// Render produces the template HTML for the slots present in p, in
// breakfast, lunch, dinner order. Parse(Render(p)) returns p when the
// present slots are a prefix of that order; a plan missing breakfast but
// holding lunch would be read back positionally.
func Render(p Plan) (string, error) {
	views := make([]sectionView, 0, len(p))
	for _, slot := range p.PresentSlots() {
		rec := p[slot]
		views = append(views, sectionView{
			Icon:        slotIcons[slot],
			Title:       slot.Title(),
			Name:        rec.Name,
			Calories:    strconv.Itoa(rec.Calories),
			Description: rec.Detail(),
		})
	}
	var b strings.Builder
	if err := planLayout.Execute(&b, views); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderError produces an error payload for direct display.
func RenderError(title string, lines ...string) string {
	var b strings.Builder
	data := struct {
		Title string
		Lines []string
	}{title, lines}
	if err := errorLayout.Execute(&b, data); err != nil {
		return `<div class="error-message"><h4>⚠️ ` + template.HTMLEscapeString(title) + `</h4></div>`
	}
	return b.String()
}

func mustRender(views []sectionView) string {
	var b strings.Builder
	if err := planLayout.Execute(&b, views); err != nil {
		panic(err)
	}
	return b.String()
}
