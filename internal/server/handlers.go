package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"BMRCalculator/internal/mealplan"
	"BMRCalculator/internal/planner"
	"BMRCalculator/internal/recommendation"
	"BMRCalculator/internal/utility"

	"github.com/labstack/echo/v4"
)

const (
	probeRegion    = "Karnataka"
	probeMaxTokens = 100
)

// CalculateRequest is the calculator form. It binds from form fields or JSON.
type CalculateRequest struct {
	Gender         string  `json:"gender" form:"gender"`
	Age            int     `json:"age" form:"age"`
	Weight         float64 `json:"weight" form:"weight"`
	Height         float64 `json:"height" form:"height"`
	Activity       string  `json:"activity" form:"activity"`
	State          string  `json:"state" form:"state"`
	City           string  `json:"city" form:"city"`
	FoodPreference string  `json:"food_preference" form:"food_preference"`
}

// calculateHandler returns the BMR and calorie target, plus a meal plan
// when one could be produced. A recommendation failure is reported
// alongside a successful calculation, never instead of it.
func (s *Server) calculateHandler(c echo.Context) error {
	var req CalculateRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid input: age, weight and height must be numbers")
	}

	profile := planner.Profile{
		Gender:        strings.TrimSpace(req.Gender),
		Age:           req.Age,
		WeightKg:      req.Weight,
		HeightCm:      req.Height,
		ActivityLevel: strings.TrimSpace(req.Activity),
	}
	prefs := planner.Preferences{
		Region: strings.TrimSpace(req.State),
		City:   strings.TrimSpace(req.City),
		Diet:   mealplan.DietPreference(strings.TrimSpace(req.FoodPreference)),
	}

	res, err := s.planner.ComputeAndRecommend(c.Request().Context(), utility.GetUsernameFromContext(c), profile, prefs)
	if err != nil {
		var vErr *planner.ValidationError
		if errors.As(err, &vErr) {
			return utility.ErrorJSON(c, http.StatusBadRequest, vErr.Message)
		}
		return utility.InternalError(c, err, "Calculation failed")
	}

	resp := map[string]interface{}{
		"success":         true,
		"bmr":             math.Round(res.Target.BMR),
		"calorie_needs":   math.Round(res.Target.DailyCalories),
		"meal_plan":       res.Plan,
		"recommendations": res.Recommendations,
	}
	if msg := res.ErrorMessage(); msg != "" {
		resp["recommendation_error"] = msg
	}
	return c.JSON(http.StatusOK, resp)
}

// testAPIHandler makes one short call to check the credential and model.
// ?state= picks the cuisine.
func (s *Server) testAPIHandler(c echo.Context) error {
	if !s.client.Configured() {
		return c.JSON(http.StatusOK, map[string]string{"error": "No API key found", "status": "failed"})
	}

	region := strings.TrimSpace(c.QueryParam("state"))
	if region == "" {
		region = probeRegion
	}
	prompt := fmt.Sprintf("Generate one simple %s breakfast dish with calories. Format: Dish Name - 300 calories - Description", region)

	text, err := s.client.Probe(c.Request().Context(), prompt, probeMaxTokens)
	if err != nil {
		msg := err.Error()
		var svcErr *recommendation.ServiceError
		if errors.As(err, &svcErr) {
			msg = svcErr.Message
		}
		utility.LoggerFromContext(c).Error().Err(err).Msg("API probe failed")
		return c.JSON(http.StatusOK, map[string]string{"status": "error", "error": msg})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":       "success",
		"api_response": text,
		"model":        s.client.Model(),
	})
}
