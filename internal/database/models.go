package database

import "time"

// DateLayout is the calendar-date format used for every dated record.
const DateLayout = "2006-01-02"

// History caps. Appending past a cap evicts the oldest entries first.
const (
	MaxBMRHistory  = 30
	MaxMealHistory = 30
	MaxProgress    = 90
)

// State is the whole store document.
type State struct {
	Users map[string]*UserRecord `json:"users"`
}

// UserRecord is everything kept about one account, keyed by username.
type UserRecord struct {
	UserID          string              `json:"user_id"`
	Username        string              `json:"username"`
	Email           string              `json:"email,omitempty"`
	PasswordHash    string              `json:"password_hash"`
	CreatedAt       time.Time           `json:"created_at"`
	Profile         Profile             `json:"profile"`
	BMRHistory      []BMRSnapshot       `json:"bmr_history"`
	MealHistory     []HistoryEntry      `json:"meal_history"`
	Goals           Goals               `json:"goals"`
	Progress        []ProgressEntry     `json:"progress"`
	Settings        Settings            `json:"settings"`
	MealCompletions map[string][]string `json:"meal_completions"`
}

// Profile holds the body metrics and preferences last used for a calculation.
type Profile struct {
	Gender         string  `json:"gender,omitempty"`
	Age            int     `json:"age,omitempty"`
	WeightKg       float64 `json:"weight_kg,omitempty"`
	HeightCm       float64 `json:"height_cm,omitempty"`
	ActivityLevel  string  `json:"activity_level,omitempty"`
	Region         string  `json:"region,omitempty"`
	City           string  `json:"city,omitempty"`
	DietPreference string  `json:"diet_preference,omitempty"`
}

type BMRSnapshot struct {
	Date          string  `json:"date"`
	BMR           float64 `json:"bmr"`
	DailyCalories float64 `json:"daily_calories"`
	WeightKg      float64 `json:"weight_kg"`
}

// HistoryEntry is one served meal plan.
type HistoryEntry struct {
	Date          string   `json:"date"`
	Descriptions  []string `json:"descriptions"`
	TotalCalories int      `json:"total_calories"`
}

type Goals struct {
	TargetWeightKg     float64 `json:"target_weight_kg,omitempty"`
	DailyCalorieTarget int     `json:"daily_calorie_target,omitempty"`
	WeeklyGoal         string  `json:"weekly_goal,omitempty"`
}

type ProgressEntry struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weight_kg"`
	Note     string  `json:"note,omitempty"`
}

type Settings struct {
	DefaultRegion   string `json:"default_region,omitempty"`
	DefaultCity     string `json:"default_city,omitempty"`
	DefaultDiet     string `json:"default_diet,omitempty"`
	DefaultActivity string `json:"default_activity,omitempty"`
	Units           string `json:"units,omitempty"`
}

// AppendBMR archives a calculation, keeping the newest MaxBMRHistory.
func (u *UserRecord) AppendBMR(s BMRSnapshot) {
	u.BMRHistory = capTail(append(u.BMRHistory, s), MaxBMRHistory)
}

// AppendMealHistory records a served plan, keeping the newest MaxMealHistory.
func (u *UserRecord) AppendMealHistory(e HistoryEntry) {
	u.MealHistory = capTail(append(u.MealHistory, e), MaxMealHistory)
}

// AppendProgress logs a weigh-in, keeping the newest MaxProgress.
func (u *UserRecord) AppendProgress(p ProgressEntry) {
	u.Progress = capTail(append(u.Progress, p), MaxProgress)
}

// ToggleCompletion marks slot done on date, or undoes it if already done.
// It reports whether the slot is completed afterwards.
func (u *UserRecord) ToggleCompletion(date, slot string) bool {
	if u.MealCompletions == nil {
		u.MealCompletions = make(map[string][]string)
	}
	done := u.MealCompletions[date]
	for i, s := range done {
		if s == slot {
			done = append(done[:i:i], done[i+1:]...)
			if len(done) == 0 {
				delete(u.MealCompletions, date)
			} else {
				u.MealCompletions[date] = done
			}
			return false
		}
	}
	u.MealCompletions[date] = append(done, slot)
	return true
}

// Completions returns the slots completed on date.
func (u *UserRecord) Completions(date string) []string {
	done := u.MealCompletions[date]
	if done == nil {
		return []string{}
	}
	return append([]string(nil), done...)
}

func capTail[T any](s []T, max int) []T {
	if len(s) <= max {
		return s
	}
	return append([]T(nil), s[len(s)-max:]...)
}
