/*
Package history remembers which dishes a user was recently served so the
next prompt can ask the model for something different.
*/
package history

import (
	"fmt"
	"time"

	"BMRCalculator/internal/database"
	"BMRCalculator/internal/mealplan"

	"github.com/rs/zerolog/log"
)

// DefaultWindowDays is how far back RecentDescriptions looks by default.
const DefaultWindowDays = 7

// Store is the part of the user store the gate needs.
type Store interface {
	GetUser(username string) (*database.UserRecord, error)
	UpdateUser(username string, fn func(*database.UserRecord) error) error
}

// Gate reads and writes a user's meal history.
type Gate struct {
	store Store
	now   func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{store: store, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Today returns the gate's current calendar date.
func (g *Gate) Today() string {
	return g.now().Format(database.DateLayout)
}

// RecentDescriptions returns, oldest first, the descriptions of every entry
// dated on or after today minus windowDays. A non-positive window means
// DefaultWindowDays. Entries with unreadable dates are skipped.
func (g *Gate) RecentDescriptions(username string, windowDays int) ([]string, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	rec, err := g.store.GetUser(username)
	if err != nil {
		return nil, fmt.Errorf("load meal history: %w", err)
	}

	now := g.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -windowDays)

	var out []string
	for _, entry := range rec.MealHistory {
		date, err := time.Parse(database.DateLayout, entry.Date)
		if err != nil {
			log.Warn().Str("username", username).Str("date", entry.Date).Msg("Skipping meal history entry with bad date")
			continue
		}
		if date.Before(cutoff) {
			continue
		}
		out = append(out, entry.Descriptions...)
	}
	return out, nil
}

// Exclusions is RecentDescriptions over the default window, trimmed to the
// mealplan.MaxExcludedMeals most recent descriptions.
func (g *Gate) Exclusions(username string) ([]string, error) {
	recent, err := g.RecentDescriptions(username, DefaultWindowDays)
	if err != nil {
		return nil, err
	}
	if len(recent) > mealplan.MaxExcludedMeals {
		recent = recent[len(recent)-mealplan.MaxExcludedMeals:]
	}
	return recent, nil
}

// Record appends plan to the user's meal history under today's date. An
// empty plan records nothing.
func (g *Gate) Record(username string, plan mealplan.Plan) error {
	if len(plan) == 0 {
		return nil
	}
	entry := database.HistoryEntry{
		Date:          g.Today(),
		Descriptions:  plan.Descriptions(),
		TotalCalories: plan.TotalCalories(),
	}
	err := g.store.UpdateUser(username, func(u *database.UserRecord) error {
		u.AppendMealHistory(entry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record meal history: %w", err)
	}
	log.Debug().Str("username", username).Int("meals", len(entry.Descriptions)).Msg("Meal plan recorded")
	return nil
}
