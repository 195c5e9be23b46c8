/*
Package planner runs the whole calculation: body metrics to a calorie
target, then a meal plan from the recommendation service. The calorie half
never depends on the meal-plan half.
*/
package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"BMRCalculator/internal/calorie"
	"BMRCalculator/internal/database"
	"BMRCalculator/internal/mealplan"
	"BMRCalculator/internal/recommendation"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UnavailableMessage is reported when no recommendation credential exists.
const UnavailableMessage = "recommendations unavailable"

// Generator produces raw meal-plan text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p mealplan.Prompt) (string, error)
}

// History supplies recent dishes and remembers served plans.
type History interface {
	Today() string
	Exclusions(username string) ([]string, error)
	Record(username string, plan mealplan.Plan) error
}

// Store is the part of the user store used to archive calculations.
type Store interface {
	UpdateUser(username string, fn func(*database.UserRecord) error) error
}

// Profile is the caller's body metrics.
type Profile struct {
	Gender        string
	Age           int
	WeightKg      float64
	HeightCm      float64
	ActivityLevel string
}

// Preferences steer the meal plan.
type Preferences struct {
	Region string
	City   string
	Diet   mealplan.DietPreference
}

// Result always carries Target. Plan is nil when no plan could be read;
// Err is the recommendation failure, if any.
type Result struct {
	Target          calorie.Target
	Plan            mealplan.Plan
	Recommendations string
	Err             error
}

// ErrorMessage is the caller-facing text for Err, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	if errors.Is(r.Err, recommendation.ErrUnconfigured) {
		return UnavailableMessage
	}
	var svcErr *recommendation.ServiceError
	if errors.As(r.Err, &svcErr) {
		return svcErr.Message
	}
	return r.Err.Error()
}

type Service struct {
	gen     Generator
	history History
	store   Store
}

// NewService wires the pipeline. history and store may be nil, in which
// case nothing is personalised or archived.
func NewService(gen Generator, history History, store Store) *Service {
	return &Service{gen: gen, history: history, store: store}
}

// ComputeAndRecommend validates the input, computes the calorie target and
// asks for a meal plan. The returned error is only ever a *ValidationError;
// recommendation failures are reported in Result.Err. username may be empty
// for anonymous callers.
func (s *Service) ComputeAndRecommend(ctx context.Context, username string, p Profile, prefs Preferences) (Result, error) {
	if err := Validate(p, prefs); err != nil {
		return Result{}, err
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		l := log.Logger
		logger = &l
	}

	target := calorie.Compute(p.Gender, p.WeightKg, p.HeightCm, float64(p.Age), p.ActivityLevel)
	res := Result{Target: target}

	if username != "" {
		s.archive(logger, username, p, prefs, target)
	}

	req := mealplan.Request{
		Region:         prefs.Region,
		City:           prefs.City,
		CalorieLimit:   int(target.DailyCalories),
		DietPreference: prefs.Diet,
		ExcludedMeals:  s.exclusions(logger, username),
	}
	prompt := mealplan.Build(req)

	logger.Info().
		Str("region", req.Region).
		Int("calorie_limit", req.CalorieLimit).
		Str("diet", mealplan.DietPhrase(req.DietPreference)).
		Int("excluded", len(req.ExcludedMeals)).
		Msg("Requesting meal plan")

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		res.Err = err
		res.Recommendations = errorHTML(err)
		if errors.Is(err, recommendation.ErrUnconfigured) {
			logger.Warn().Msg("Recommendations unavailable: no API key configured")
		} else {
			logger.Error().Err(err).Msg("Meal plan request failed")
		}
		return res, nil
	}

	res.Plan = mealplan.Parse(mealplan.Raw{Text: text})
	if res.Plan == nil {
		logger.Warn().Int("length", len(text)).Msg("Could not read a meal plan from the response")
		res.Recommendations = text
		return res, nil
	}

	if html, err := mealplan.Render(res.Plan); err == nil {
		res.Recommendations = html
	} else {
		logger.Error().Err(err).Msg("Failed to render meal plan")
		res.Recommendations = text
	}

	if username != "" && s.history != nil {
		if err := s.history.Record(username, res.Plan); err != nil {
			logger.Error().Err(err).Str("username", username).Msg("Failed to record meal history")
		}
	}
	return res, nil
}

func (s *Service) exclusions(logger *zerolog.Logger, username string) []string {
	if username == "" || s.history == nil {
		return nil
	}
	excluded, err := s.history.Exclusions(username)
	if err != nil {
		logger.Warn().Err(err).Str("username", username).Msg("Could not load recent meals")
		return nil
	}
	return excluded
}

// archive stores the calculation on the user's record. Failures are logged;
// the calculation itself still succeeds.
func (s *Service) archive(logger *zerolog.Logger, username string, p Profile, prefs Preferences, target calorie.Target) {
	if s.store == nil {
		return
	}
	date := time.Now().Format(database.DateLayout)
	if s.history != nil {
		date = s.history.Today()
	}
	err := s.store.UpdateUser(username, func(u *database.UserRecord) error {
		u.Profile = database.Profile{
			Gender:         p.Gender,
			Age:            p.Age,
			WeightKg:       p.WeightKg,
			HeightCm:       p.HeightCm,
			ActivityLevel:  p.ActivityLevel,
			Region:         prefs.Region,
			City:           prefs.City,
			DietPreference: string(prefs.Diet),
		}
		u.AppendBMR(database.BMRSnapshot{
			Date:          date,
			BMR:           target.BMR,
			DailyCalories: target.DailyCalories,
			WeightKg:      p.WeightKg,
		})
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("username", username).Msg("Failed to archive calculation")
	}
}

func errorHTML(err error) string {
	if errors.Is(err, recommendation.ErrUnconfigured) {
		return mealplan.RenderError(mealplan.ErrorTitleUnconfigured,
			"To get personalized food recommendations, please configure your OpenRouter API key in the environment variables.",
			"Visit https://openrouter.ai/keys to get your free API key.")
	}
	msg := Result{Err: err}.ErrorMessage()
	return mealplan.RenderError(mealplan.ErrorTitleService,
		"Unable to get food recommendations at this time.",
		"Error: "+strings.TrimSpace(msg),
		"Please check your API key or try again later.")
}
