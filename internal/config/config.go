/*
Package config builds the process configuration once at start-up.
Values come from a local .env file (when present) and the environment.
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultPort       = 8080
	defaultStorePath  = "users.json"
	defaultBaseURL    = "https://openrouter.ai/api/v1"
	defaultModel      = "deepseek/deepseek-chat"
	defaultMaxTokens  = 800
	defaultTimeout    = 60 * time.Second
	defaultReferer    = "https://bmr-calculator.up.railway.app"
	defaultAppTitle   = "BMI Calculator App"
	productionEnvName = "production"
)

// Config holds every setting the service reads from its environment.
type Config struct {
	Port          int
	AppEnv        string
	LogLevel      string
	SessionSecret string
	StorePath     string

	Recommendation RecommendationConfig
}

// RecommendationConfig describes the external text-generation service.
// An empty APIKey means recommendations are unavailable for the lifetime
// of the process.
type RecommendationConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
	Referer     string
	Title       string
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == productionEnvName
}

// Load reads .env (if any) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, reading from environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Load uses os.Getenv;
// tests pass a map-backed lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:      defaultPort,
		AppEnv:    strings.TrimSpace(getenv("APP_ENV")),
		LogLevel:  strings.TrimSpace(getenv("LOG_LEVEL")),
		StorePath: strings.TrimSpace(getenv("USER_STORE_PATH")),
		Recommendation: RecommendationConfig{
			APIKey:    strings.TrimSpace(getenv("OPENAI_API_KEY")),
			BaseURL:   strings.TrimSpace(getenv("OPENROUTER_BASE_URL")),
			Model:     strings.TrimSpace(getenv("OPENROUTER_MODEL")),
			MaxTokens: defaultMaxTokens,
			Timeout:   defaultTimeout,
			Referer:   strings.TrimSpace(getenv("APP_REFERER")),
			Title:     strings.TrimSpace(getenv("APP_TITLE")),
		},
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = defaultStorePath
	}

	if raw := getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid PORT %q", raw)
		}
		cfg.Port = port
	}

	rc := &cfg.Recommendation
	if rc.BaseURL == "" {
		rc.BaseURL = defaultBaseURL
	}
	rc.BaseURL = strings.TrimRight(rc.BaseURL, "/")
	if rc.Model == "" {
		rc.Model = defaultModel
	}
	if rc.Referer == "" {
		rc.Referer = defaultReferer
	}
	if rc.Title == "" {
		rc.Title = defaultAppTitle
	}
	if raw := getenv("RECOMMENDATION_MAX_TOKENS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RECOMMENDATION_MAX_TOKENS %q", raw)
		}
		rc.MaxTokens = n
	}
	if raw := getenv("RECOMMENDATION_TEMPERATURE"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 2 {
			return nil, fmt.Errorf("invalid RECOMMENDATION_TEMPERATURE %q", raw)
		}
		rc.Temperature = &t
	}
	if raw := getenv("RECOMMENDATION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RECOMMENDATION_TIMEOUT %q", raw)
		}
		rc.Timeout = d
	}

	cfg.SessionSecret = getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SESSION_SECRET environment variable is not set")
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn().Msg("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
		cfg.SessionSecret = secret
	}

	return cfg, nil
}

// SetupLogger configures the global zerolog logger for this Config.
func (c *Config) SetupLogger() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !c.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// MaskedKey returns a short preview of the API key safe for logs.
func (r RecommendationConfig) MaskedKey() string {
	if len(r.APIKey) < 12 {
		return "****"
	}
	return r.APIKey[:6] + "..." + r.APIKey[len(r.APIKey)-4:]
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
