package user

import (
	"math"
	"net/http"

	"BMRCalculator/internal/database"
	"BMRCalculator/internal/mealplan"

	"github.com/labstack/echo/v4"
)

// DashboardResponse is the single payload the home screen loads.
type DashboardResponse struct {
	Account       AccountResponse          `json:"account"`
	Profile       database.Profile         `json:"profile"`
	Goals         database.Goals           `json:"goals"`
	LatestBMR     *database.BMRSnapshot    `json:"latest_bmr"`
	LatestMeal    *database.HistoryEntry   `json:"latest_meal_plan"`
	Today         TodaySummary             `json:"today"`
	Weight        WeightSummary            `json:"weight"`
	WeekSummary   []DaySummary             `json:"week_summary"`
	RecentWeights []database.ProgressEntry `json:"recent_weights"`
}

type TodaySummary struct {
	Date        string   `json:"date"`
	Completions []string `json:"completions"`
	Remaining   int      `json:"remaining"`
}

// WeightSummary compares the weight log against the goal. Change and
// ToGoal are nil when there is not enough data.
type WeightSummary struct {
	Current *float64 `json:"current_kg"`
	Change  *float64 `json:"change_kg"`
	ToGoal  *float64 `json:"to_goal_kg"`
}

const recentWeightCount = 5

// DashboardHandler loads the user once and summarises the record.
func (s *Service) DashboardHandler(c echo.Context) error {
	rec, err := s.currentUser(c)
	if rec == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"dashboard": s.buildDashboard(rec),
	})
}

func (s *Service) buildDashboard(rec *database.UserRecord) *DashboardResponse {
	today := s.today()
	done := rec.Completions(today)

	res := &DashboardResponse{
		Account:     toAccountResponse(rec),
		Profile:     rec.Profile,
		Goals:       rec.Goals,
		Today:       TodaySummary{Date: today, Completions: done, Remaining: len(mealplan.Slots) - len(done)},
		Weight:      summarizeWeight(rec.Progress, rec.Profile.WeightKg, rec.Goals.TargetWeightKg),
		WeekSummary: s.completionSummary(rec, summaryDays),
	}

	if n := len(rec.BMRHistory); n > 0 {
		snap := rec.BMRHistory[n-1]
		res.LatestBMR = &snap
	}
	if n := len(rec.MealHistory); n > 0 {
		entry := rec.MealHistory[n-1]
		res.LatestMeal = &entry
	}

	recent := rec.Progress
	if len(recent) > recentWeightCount {
		recent = recent[len(recent)-recentWeightCount:]
	}
	res.RecentWeights = append([]database.ProgressEntry{}, recent...)
	return res
}

func summarizeWeight(progress []database.ProgressEntry, profileWeight, target float64) WeightSummary {
	var sum WeightSummary

	current := profileWeight
	if n := len(progress); n > 0 {
		current = progress[n-1].WeightKg
		if n > 1 {
			change := round1(current - progress[0].WeightKg)
			sum.Change = &change
		}
	}
	if current <= 0 {
		return sum
	}
	sum.Current = &current
	if target > 0 {
		toGoal := round1(target - current)
		sum.ToGoal = &toGoal
	}
	return sum
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
