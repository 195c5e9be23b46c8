package user

import (
	"net/http"
	"strings"
	"time"

	"BMRCalculator/internal/database"
	"BMRCalculator/internal/mealplan"
	"BMRCalculator/internal/utility"

	"github.com/labstack/echo/v4"
)

// summaryDays is how many days GET /progress summarises completions for.
const summaryDays = 7

type ToggleCompletionRequest struct {
	Date string `json:"date" form:"date"`
	Slot string `json:"slot" form:"slot"`
}

type AddProgressRequest struct {
	Date     string  `json:"date" form:"date"`
	WeightKg float64 `json:"weight_kg" form:"weight_kg"`
	Note     string  `json:"note" form:"note"`
}

// DaySummary counts the meals completed on one day.
type DaySummary struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

/* =================================================================================
								HISTORY HANDLERS
=================================================================================*/

// GetBMRHistoryHandler returns archived calculations, oldest first.
func (s *Service) GetBMRHistoryHandler(c echo.Context) error {
	rec, err := s.currentUser(c)
	if rec == nil {
		return err
	}
	history := rec.BMRHistory
	if history == nil {
		history = []database.BMRSnapshot{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"history": history,
	})
}

// GetMealHistoryHandler returns served meal plans, oldest first.
func (s *Service) GetMealHistoryHandler(c echo.Context) error {
	rec, err := s.currentUser(c)
	if rec == nil {
		return err
	}
	history := rec.MealHistory
	if history == nil {
		history = []database.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"history": history,
	})
}

/* =================================================================================
								MEAL COMPLETIONS
=================================================================================*/

// ToggleMealCompletionHandler marks a slot done for a day, or undoes it.
// The date defaults to today.
func (s *Service) ToggleMealCompletionHandler(c echo.Context) error {
	var req ToggleCompletionRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	slot := mealplan.Slot(strings.ToLower(strings.TrimSpace(req.Slot)))
	if !slot.Valid() {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Slot must be breakfast, lunch or dinner")
	}
	date, ok := s.resolveDate(req.Date)
	if !ok {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Date must be YYYY-MM-DD")
	}

	var completed bool
	rec, err := s.update(c, func(u *database.UserRecord) error {
		completed = u.ToggleCompletion(date, string(slot))
		return nil
	})
	if rec == nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"date":        date,
		"slot":        slot,
		"completed":   completed,
		"completions": rec.Completions(date),
	})
}

// GetMealCompletionsHandler lists the slots completed on ?date= (today by
// default).
func (s *Service) GetMealCompletionsHandler(c echo.Context) error {
	date, ok := s.resolveDate(c.QueryParam("date"))
	if !ok {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Date must be YYYY-MM-DD")
	}
	rec, err := s.currentUser(c)
	if rec == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"date":        date,
		"completions": rec.Completions(date),
	})
}

/* =================================================================================
								PROGRESS
=================================================================================*/

// AddProgressHandler logs a weigh-in and makes it the profile's weight.
func (s *Service) AddProgressHandler(c echo.Context) error {
	var req AddProgressRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.WeightKg <= 0 {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Weight must be a positive value")
	}
	date, ok := s.resolveDate(req.Date)
	if !ok {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Date must be YYYY-MM-DD")
	}

	entry := database.ProgressEntry{Date: date, WeightKg: req.WeightKg, Note: strings.TrimSpace(req.Note)}
	rec, err := s.update(c, func(u *database.UserRecord) error {
		u.AppendProgress(entry)
		u.Profile.WeightKg = req.WeightKg
		return nil
	})
	if rec == nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"entry":   entry,
	})
}

// GetProgressHandler returns the weight log and the last week's meal
// completion counts.
func (s *Service) GetProgressHandler(c echo.Context) error {
	rec, err := s.currentUser(c)
	if rec == nil {
		return err
	}
	progress := rec.Progress
	if progress == nil {
		progress = []database.ProgressEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":            true,
		"progress":           progress,
		"completion_summary": s.completionSummary(rec, summaryDays),
	})
}

// completionSummary covers the days ending today, oldest first.
func (s *Service) completionSummary(rec *database.UserRecord, days int) []DaySummary {
	now := s.now()
	out := make([]DaySummary, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(database.DateLayout)
		out = append(out, DaySummary{
			Date:      date,
			Completed: len(rec.MealCompletions[date]),
			Total:     len(mealplan.Slots),
		})
	}
	return out
}

// resolveDate defaults an empty date to today and rejects malformed ones.
func (s *Service) resolveDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.today(), true
	}
	if _, err := time.Parse(database.DateLayout, raw); err != nil {
		return "", false
	}
	return raw, true
}
