package server

import (
	"errors"
	"net/http"

	"BMRCalculator/internal/utility"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Use(LoggerMiddleware)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:     true,
		LogURI:        true,
		LogStatus:     true,
		LogLatency:    true,
		LogRemoteIP:   true,
		LogError:      true,
		HandleError:   true,
		LogValuesFunc: logRequest,
	}))
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", s.healthHandler)
	e.GET("/test-api", s.testAPIHandler)

	// Traditional Auth Routes
	e.POST("/signup", s.auth.SignupHandler)
	e.POST("/login", s.auth.LoginHandler)
	e.GET("/logout", s.auth.LogoutHandler)
	e.POST("/logout", s.auth.LogoutHandler)

	// Anonymous callers get a plan; logged-in callers also get history.
	e.POST("/calculate", s.calculateHandler, s.auth.OptionalSession)

	// Protected routes
	protected := e.Group("")
	protected.Use(s.auth.RequireSession)

	protected.GET("/profile", s.users.GetProfileHandler)
	protected.PUT("/profile", s.users.UpdateProfileHandler)
	protected.PUT("/goals", s.users.UpdateGoalsHandler)
	protected.PUT("/settings", s.users.UpdateSettingsHandler)

	protected.GET("/history/bmr", s.users.GetBMRHistoryHandler)
	protected.GET("/history/meals", s.users.GetMealHistoryHandler)

	protected.POST("/meals/complete", s.users.ToggleMealCompletionHandler)
	protected.GET("/meals/completions", s.users.GetMealCompletionsHandler)
	protected.POST("/progress", s.users.AddProgressHandler)
	protected.GET("/progress", s.users.GetProgressHandler)
	protected.GET("/dashboard", s.users.DashboardHandler)

	return e
}

// LoggerMiddleware assigns a request ID and a request-scoped logger, both on
// the echo context and on the request's context.Context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		c.Set(utility.ContextLogger, &logger)

		req := c.Request()
		c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

		return next(c)
	}
}

func logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	logger := utility.LoggerFromContext(c)

	var event *zerolog.Event
	switch {
	case v.Error != nil || v.Status >= http.StatusInternalServerError:
		event = logger.Error().Err(v.Error)
	case v.Status >= http.StatusBadRequest:
		event = logger.Warn()
	default:
		event = logger.Info()
	}
	event.
		Str("method", v.Method).
		Str("uri", v.URI).
		Int("status", v.Status).
		Dur("latency", v.Latency).
		Str("remote_ip", v.RemoteIP).
		Msg("request")
	return nil
}

// jsonErrorHandler keeps every error response JSON, including the router's
// own 404 and 405.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		utility.LoggerFromContext(c).Error().Err(err).Msg("Unhandled error")
	}

	var body map[string]interface{}
	switch code {
	case http.StatusNotFound:
		body = map[string]interface{}{"error": "Route not found"}
	case http.StatusMethodNotAllowed:
		body = map[string]interface{}{"error": "Method not allowed for this route"}
	default:
		body = map[string]interface{}{"success": false, "error": message}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}
