/*
Package user implements the logged-in user's account data: profile, goals,
settings, calculation and meal history, meal completion tracking, weight
progress and the dashboard aggregate.
*/
package user

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"BMRCalculator/internal/database"
	"BMRCalculator/internal/mealplan"
	"BMRCalculator/internal/utility"

	"github.com/labstack/echo/v4"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// UpdateProfileRequest is a partial update; zero values leave fields as they are.
type UpdateProfileRequest struct {
	Gender         string  `json:"gender" form:"gender"`
	Age            int     `json:"age" form:"age"`
	WeightKg       float64 `json:"weight_kg" form:"weight_kg"`
	HeightCm       float64 `json:"height_cm" form:"height_cm"`
	ActivityLevel  string  `json:"activity_level" form:"activity_level"`
	Region         string  `json:"region" form:"region"`
	City           string  `json:"city" form:"city"`
	DietPreference string  `json:"diet_preference" form:"diet_preference"`
}

type UpdateGoalsRequest struct {
	TargetWeightKg     float64 `json:"target_weight_kg" form:"target_weight_kg"`
	DailyCalorieTarget int     `json:"daily_calorie_target" form:"daily_calorie_target"`
	WeeklyGoal         string  `json:"weekly_goal" form:"weekly_goal"`
}

type UpdateSettingsRequest struct {
	DefaultRegion   string `json:"default_region" form:"default_region"`
	DefaultCity     string `json:"default_city" form:"default_city"`
	DefaultDiet     string `json:"default_diet" form:"default_diet"`
	DefaultActivity string `json:"default_activity" form:"default_activity"`
	Units           string `json:"units" form:"units"`
}

// AccountResponse is the identity part of a user record.
type AccountResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

/* =================================================================================
								INITIALIZATION
=================================================================================*/

// Service serves the account data handlers.
type Service struct {
	store database.Service
	now   func() time.Time
}

func NewService(store database.Service) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) today() string {
	return s.now().Format(database.DateLayout)
}

// currentUser loads the session's record, answering the request itself when
// that fails. A nil record means the response has been written.
func (s *Service) currentUser(c echo.Context) (*database.UserRecord, error) {
	username := utility.GetUsernameFromContext(c)
	if username == "" {
		return nil, utility.ErrorJSON(c, http.StatusUnauthorized, "Unauthorized")
	}
	rec, err := s.store.GetUser(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, utility.ErrorJSON(c, http.StatusNotFound, "User not found")
		}
		return nil, utility.InternalError(c, err, "Failed to load user")
	}
	return rec, nil
}

// update applies fn to the session's record. A validation failure from fn
// should be a *requestError so it reaches the caller as a 400.
func (s *Service) update(c echo.Context, fn func(*database.UserRecord) error) (*database.UserRecord, error) {
	username := utility.GetUsernameFromContext(c)
	if username == "" {
		return nil, utility.ErrorJSON(c, http.StatusUnauthorized, "Unauthorized")
	}

	var updated database.UserRecord
	err := s.store.UpdateUser(username, func(u *database.UserRecord) error {
		if err := fn(u); err != nil {
			return err
		}
		updated = *u
		return nil
	})
	if err != nil {
		var reqErr *requestError
		switch {
		case errors.As(err, &reqErr):
			return nil, utility.ErrorJSON(c, http.StatusBadRequest, reqErr.msg)
		case errors.Is(err, database.ErrUserNotFound):
			return nil, utility.ErrorJSON(c, http.StatusNotFound, "User not found")
		default:
			return nil, utility.InternalError(c, err, "Failed to update user")
		}
	}
	return &updated, nil
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

/* =================================================================================
								PROFILE HANDLERS
=================================================================================*/

// GetProfileHandler returns the account, profile, goals and settings.
func (s *Service) GetProfileHandler(c echo.Context) error {
	rec, err := s.currentUser(c)
	if rec == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"account":  toAccountResponse(rec),
		"profile":  rec.Profile,
		"goals":    rec.Goals,
		"settings": rec.Settings,
	})
}

// UpdateProfileHandler changes the fields present in the request.
func (s *Service) UpdateProfileHandler(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Age < 0 || req.WeightKg < 0 || req.HeightCm < 0 {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Weight, height, and age must be positive values")
	}
	if req.DietPreference != "" && !mealplan.DietPreference(req.DietPreference).Valid() {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Unsupported diet preference")
	}

	rec, err := s.update(c, func(u *database.UserRecord) error {
		p := &u.Profile
		setString(&p.Gender, req.Gender)
		setString(&p.ActivityLevel, req.ActivityLevel)
		setString(&p.Region, req.Region)
		setString(&p.City, req.City)
		setString(&p.DietPreference, req.DietPreference)
		if req.Age > 0 {
			p.Age = req.Age
		}
		if req.WeightKg > 0 {
			p.WeightKg = req.WeightKg
		}
		if req.HeightCm > 0 {
			p.HeightCm = req.HeightCm
		}
		return nil
	})
	if rec == nil {
		return err
	}

	utility.LoggerFromContext(c).Info().Str("user_id", rec.UserID).Msg("Profile updated")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated",
		"profile": rec.Profile,
	})
}

// UpdateGoalsHandler replaces the user's goals.
func (s *Service) UpdateGoalsHandler(c echo.Context) error {
	var req UpdateGoalsRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.TargetWeightKg < 0 || req.DailyCalorieTarget < 0 {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Goals cannot be negative")
	}

	rec, err := s.update(c, func(u *database.UserRecord) error {
		u.Goals = database.Goals{
			TargetWeightKg:     req.TargetWeightKg,
			DailyCalorieTarget: req.DailyCalorieTarget,
			WeeklyGoal:         strings.TrimSpace(req.WeeklyGoal),
		}
		return nil
	})
	if rec == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Goals updated",
		"goals":   rec.Goals,
	})
}

// UpdateSettingsHandler replaces the user's form defaults.
func (s *Service) UpdateSettingsHandler(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	switch req.Units {
	case "", "metric", "imperial":
	default:
		return utility.ErrorJSON(c, http.StatusBadRequest, "Units must be metric or imperial")
	}
	if req.DefaultDiet != "" && !mealplan.DietPreference(req.DefaultDiet).Valid() {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Unsupported diet preference")
	}

	rec, err := s.update(c, func(u *database.UserRecord) error {
		u.Settings = database.Settings(req)
		return nil
	})
	if rec == nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Settings updated",
		"settings": rec.Settings,
	})
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func toAccountResponse(u *database.UserRecord) AccountResponse {
	return AccountResponse{UserID: u.UserID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}
