// Package recommendation calls the external text-generation service that
// writes meal plans.
package recommendation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BMRCalculator/internal/config"
	"BMRCalculator/internal/mealplan"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// --- Chat Completions API Configuration ---
const (
	completionsPath = "/chat/completions"
	jsonMimeType    = "application/json"
	previewLength   = 150
	maxErrorBody    = 512
)

var (
	// ErrUnconfigured is returned without any network call when the client
	// was built without a credential.
	ErrUnconfigured = errors.New("recommendation service is not configured")

	// ErrEmptyResponse means the service answered but produced no text.
	ErrEmptyResponse = errors.New("recommendation service returned an empty response")
)

// ServiceError wraps a transport or API failure. Message is safe to show
// to the caller verbatim.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("recommendation service error (%d): %s", e.StatusCode, e.Message)
	}
	return "recommendation service error: " + e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// --- Structs for Chat Completions Request/Response ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default). It makes exactly one attempt per call.
type Client struct {
	cfg        config.RecommendationConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient builds a Client from cfg. A nil httpClient gets one with
// cfg.Timeout.
func NewClient(cfg config.RecommendationConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log.With().Str("component", "recommendation").Logger(),
	}
}

// Configured reports whether a credential was supplied at construction.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Model returns the model identifier sent with each request.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate sends a meal-plan prompt and returns the model's raw text.
func (c *Client) Generate(ctx context.Context, p mealplan.Prompt) (string, error) {
	return c.complete(ctx, p.System, p.Instruction, c.cfg.MaxTokens)
}

// Probe sends a short diagnostic prompt without a system role.
func (c *Client) Probe(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.complete(ctx, "", prompt, maxTokens)
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !c.Configured() {
		c.logger.Warn().Msg("No API key configured, skipping recommendation call")
		return "", ErrUnconfigured
	}

	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	payload := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionsPath, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", jsonMimeType)
	req.Header.Set("Accept", jsonMimeType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	start := time.Now()
	c.logger.Info().Str("model", c.cfg.Model).Int("max_tokens", maxTokens).Msg("Calling recommendation API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Recommendation request failed")
		return "", &ServiceError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		msg := apiErrorMessage(body)
		c.logger.Error().Int("status", resp.StatusCode).Str("body", msg).Msg("Recommendation API returned non-200 status")
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	// Some gateways report failures inside a 200 body.
	if chatResp.Error != nil && chatResp.Error.Message != "" {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: chatResp.Error.Message}
	}

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	content := chatResp.Choices[0].Message.Content
	c.logger.Info().
		Dur("latency", time.Since(start)).
		Int("length", len(content)).
		Str("preview", preview(content)).
		Msg("Recommendation API call successful")
	return content, nil
}

// apiErrorMessage prefers {"error":{"message":...}} and falls back to the
// raw body, truncated.
func apiErrorMessage(body []byte) string {
	var parsed chatResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = "empty error body"
	}
	return msg
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= previewLength {
		return s
	}
	return s[:previewLength] + "..."
}
