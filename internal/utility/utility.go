package utility

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Context keys shared by the session middleware and handlers.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextLogger   = "logger"
)

var ErrRateLimited = errors.New("too many attempts, please try again later")

// GetRealIP is a helper function to get the user's real IP address
// It checks proxy headers first.
func GetRealIP(c echo.Context) string {
	// This header can be a list: "client, proxy1, proxy2"
	if xForwardedFor := c.Request().Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	if xRealIP := c.Request().Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	return c.RealIP()
}

// GetUserIDFromContext safely retrieves user ID from Echo context
func GetUserIDFromContext(c echo.Context) (string, error) {
	userID, ok := c.Get(ContextUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext returns the logged-in username, or "" for anonymous
// requests.
func GetUsernameFromContext(c echo.Context) string {
	username, _ := c.Get(ContextUsername).(string)
	return username
}

// LoggerFromContext returns the request-scoped logger set by the request
// middleware, falling back to the global logger.
func LoggerFromContext(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get(ContextLogger).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return &log.Logger
}

// ErrorJSON writes the standard failure body.
func ErrorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// InternalError logs err and hides it from the caller.
func InternalError(c echo.Context, err error, msg string) error {
	LoggerFromContext(c).Error().Err(err).Msg(msg)
	return ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
}

// AddRandomDelay sleeps 50-100ms so failed logins take a similar time
// whatever the cause.
func AddRandomDelay() {
	const baseDelay = 50 * time.Millisecond

	jitter, err := rand.Int(rand.Reader, big.NewInt(51))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand failed, using base delay")
		time.Sleep(baseDelay)
		return
	}
	time.Sleep(baseDelay + time.Duration(jitter.Int64())*time.Millisecond)
}

/* =================================================================================
								RATE LIMITING
=================================================================================*/

// RateLimiter allows at most maxAttempts per key within window. Keys live
// in a bounded LRU whose entries expire after window.
type RateLimiter struct {
	mu          sync.Mutex
	attempts    *expirable.LRU[string, []time.Time]
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewRateLimiter(maxAttempts int, window time.Duration, capacity int) *RateLimiter {
	return &RateLimiter{
		attempts:    expirable.NewLRU[string, []time.Time](capacity, nil, window),
		window:      window,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Allow records an attempt for key, or returns ErrRateLimited without
// recording one when the key is over its budget.
func (r *RateLimiter) Allow(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	previous, _ := r.attempts.Get(key)

	recent := make([]time.Time, 0, len(previous)+1)
	for _, t := range previous {
		if now.Sub(t) < r.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.maxAttempts {
		r.attempts.Add(key, recent)
		return ErrRateLimited
	}

	r.attempts.Add(key, append(recent, now))
	return nil
}

// Login budget per client address.
const (
	LoginMaxAttempts = 10
	LoginWindow      = 15 * time.Minute
	loginCapacity    = 10_000
)

// NewLoginLimiter returns the limiter applied to login attempts.
func NewLoginLimiter() *RateLimiter {
	return NewRateLimiter(LoginMaxAttempts, LoginWindow, loginCapacity)
}
