package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"BMRCalculator/internal/auth"
	"BMRCalculator/internal/config"
	"BMRCalculator/internal/database"
	"BMRCalculator/internal/mealplan"
	"BMRCalculator/internal/recommendation"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	handler http.Handler
	store   database.Service
	path    string
}

func newTestApp(t *testing.T, apiURL string) *testApp {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	cfg := &config.Config{
		Port:          8080,
		AppEnv:        "development",
		SessionSecret: "test-secret-0123456789abcdef0123",
		StorePath:     path,
		Recommendation: config.RecommendationConfig{
			BaseURL:   apiURL,
			Model:     "deepseek/deepseek-chat",
			MaxTokens: 800,
			Timeout:   5 * time.Second,
		},
	}
	if apiURL != "" {
		cfg.Recommendation.APIKey = "sk-test-0123456789"
	}

	store := database.NewService(path)
	app := New(cfg, store, recommendation.NewClient(cfg.Recommendation, nil))
	return &testApp{handler: app.RegisterRoutes(), store: store, path: path}
}

func (a *testApp) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// fakeCompletions serves a chat-completions endpoint that always answers
// with content.
func fakeCompletions(t *testing.T, content string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func renderedPlan(t *testing.T) string {
	t.Helper()
	out, err := mealplan.Render(mealplan.Plan{
		mealplan.Breakfast: {Name: "Idli", Description: "Idli. Steamed rice cakes.", Calories: 500},
		mealplan.Lunch:     {Name: "Bisi Bele Bath", Description: "Bisi Bele Bath. Lentil rice.", Calories: 1000},
		mealplan.Dinner:    {Name: "Ragi Mudde", Description: "Ragi Mudde. Millet balls.", Calories: 800},
	})
	require.NoError(t, err)
	return out
}

const calculateBody = `{"gender":"male","age":30,"weight":70,"height":175,"activity":"moderate","state":"Karnataka","city":"Mysuru","food_preference":"vegetarian"}`

func TestUnknownRouteAndMethod(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decode(t, rec)["error"])

	rec = app.do(http.MethodDelete, "/calculate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed for this route", decode(t, rec)["error"])
}

func TestRequestIDIsEchoedOrAssigned(t *testing.T) {
	app := newTestApp(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = app.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCalculateWithoutAPIKey(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(http.MethodPost, "/calculate", calculateBody)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1649), body["bmr"])
	assert.Equal(t, float64(2556), body["calorie_needs"])
	assert.Nil(t, body["meal_plan"])
	assert.Equal(t, "recommendations unavailable", body["recommendation_error"])
	assert.Contains(t, body["recommendations"], "<")
}

func TestCalculateFormEncoded(t *testing.T) {
	app := newTestApp(t, "")

	form := "gender=female&age=25&weight=60&height=165&activity=sedentary&state=Kerala&food_preference=vegan"
	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	// 10*60 + 6.25*165 - 5*25 - 161 = 1345.25
	assert.Equal(t, float64(1345), body["bmr"])
	assert.Equal(t, float64(1614), body["calorie_needs"])
}

func TestCalculateValidation(t *testing.T) {
	app := newTestApp(t, "")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing state", `{"gender":"male","age":30,"weight":70,"height":175,"activity":"moderate","food_preference":"vegetarian"}`, "All fields are required"},
		{"zero weight", `{"gender":"male","age":30,"weight":0,"height":175,"activity":"moderate","state":"Goa","food_preference":"mixed"}`, "Weight, height, and age must be positive values"},
		{"negative age", `{"gender":"male","age":-4,"weight":70,"height":175,"activity":"moderate","state":"Goa","food_preference":"mixed"}`, "Weight, height, and age must be positive values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/calculate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.want, body["error"])
		})
	}

	rec := app.do(http.MethodPost, "/calculate", `{"age":"thirty"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateLoggedInRecordsHistory(t *testing.T) {
	api, calls := fakeCompletions(t, "Here you go:\n"+renderedPlan(t))
	app := newTestApp(t, api.URL)

	rec := app.do(http.MethodPost, "/signup", `{"username":"ravi","password":"correct-horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	rec = app.do(http.MethodPost, "/calculate", calculateBody, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body, "recommendation_error")
	plan, ok := body["meal_plan"].(map[string]interface{})
	require.True(t, ok, "meal_plan should be an object")
	assert.Len(t, plan, 3)
	assert.Contains(t, body["recommendations"], "Bisi Bele Bath")
	assert.EqualValues(t, 1, calls.Load())

	userRec, err := app.store.GetUser("ravi")
	require.NoError(t, err)
	require.Len(t, userRec.BMRHistory, 1)
	require.Len(t, userRec.MealHistory, 1)
	assert.Equal(t, []string{"Idli. Steamed rice cakes.", "Bisi Bele Bath. Lentil rice.", "Ragi Mudde. Millet balls."}, userRec.MealHistory[0].Descriptions)
	assert.Equal(t, 2300, userRec.MealHistory[0].TotalCalories)

	rec = app.do(http.MethodGet, "/history/bmr", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["history"], 1)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t, "")

	for _, path := range []string{"/profile", "/dashboard", "/history/meals", "/progress"} {
		rec := app.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Authentication required", decode(t, rec)["error"], path)
	}
}

func TestTestAPIWithoutKey(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(http.MethodGet, "/test-api", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "No API key found", body["error"])
}

func TestTestAPIProbe(t *testing.T) {
	api, calls := fakeCompletions(t, "Neer Dosa - 300 calories - Thin rice crepes")
	app := newTestApp(t, api.URL)

	rec := app.do(http.MethodGet, "/test-api?state=Goa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Neer Dosa - 300 calories - Thin rice crepes", body["api_response"])
	assert.Equal(t, "deepseek/deepseek-chat", body["model"])
	assert.EqualValues(t, 1, calls.Load())
}

func TestTestAPIServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
	}))
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	rec := app.do(http.MethodGet, "/test-api", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "Invalid API key")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "up", body["status"])
	store, ok := body["store"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "0", store["users"])
	assert.Contains(t, body, "runtime")
	assert.Contains(t, body, "system")

	require.NoError(t, os.WriteFile(app.path, []byte("{broken"), 0o600))
	rec = app.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", decode(t, rec)["status"])
}
