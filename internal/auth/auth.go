/*
Package auth implements local username/password accounts with cookie
sessions: signup, login, logout and the middleware that exposes the
session's user to handlers.
*/
package auth

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"BMRCalculator/internal/config"
	"BMRCalculator/internal/database"
	"BMRCalculator/internal/utility"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionName       = "bmr_session"
	sessionMaxAge     = 7 * 24 * 60 * 60
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// SignupRequest for local registration. Email is optional.
type SignupRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Email    string `json:"email" form:"email"`
}

// LoginRequest for local login
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// UserResponse for API responses
type UserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Service holds the session store and account dependencies.
type Service struct {
	users    database.Service
	store    sessions.Store
	verifier *emailverifier.Verifier
	limiter  *utility.RateLimiter
}

// NewService builds the cookie store from cfg. Cookies are Secure only in
// production.
func NewService(users database.Service, cfg *config.Config) *Service {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	log.Info().Str("env", cfg.AppEnv).Bool("secure_cookies", cfg.IsProduction()).Msg("Auth initialized")

	return &Service{
		users:    users,
		store:    store,
		verifier: emailverifier.NewVerifier(),
		limiter:  utility.NewLoginLimiter(),
	}
}

/* =================================================================================
								HANDLERS
=================================================================================*/

// SignupHandler creates an account and logs it in.
func (s *Service) SignupHandler(c echo.Context) error {
	logger := utility.LoggerFromContext(c)

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Password == "" {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Username and password are required")
	}
	if n := utf8.RuneCountInString(req.Username); n < minUsernameLength || n > maxUsernameLength {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Username must be between 3 and 50 characters")
	}
	if len(req.Password) < minPasswordLength {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Password must be at least 8 characters")
	}
	if req.Email != "" {
		if msg := s.checkEmail(req.Email); msg != "" {
			return utility.ErrorJSON(c, http.StatusBadRequest, msg)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utility.InternalError(c, err, "Error hashing password")
	}

	user := &database.UserRecord{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return utility.ErrorJSON(c, http.StatusConflict, "Username already exists")
		}
		return utility.InternalError(c, err, "Error creating user")
	}

	if err := s.login(c, user); err != nil {
		return utility.InternalError(c, err, "Error saving session")
	}

	logger.Info().Str("user_id", user.UserID).Str("username", user.Username).Msg("New user registered")
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful",
		"user":    toUserResponse(user),
	})
}

// LoginHandler checks credentials and starts a session. Attempts are
// limited per client address.
func (s *Service) LoginHandler(c echo.Context) error {
	logger := utility.LoggerFromContext(c)

	ip := utility.GetRealIP(c)
	if err := s.limiter.Allow(ip); err != nil {
		logger.Warn().Str("ip", ip).Msg("Login rate limit exceeded")
		return utility.ErrorJSON(c, http.StatusTooManyRequests, "Too many login attempts, please try again later")
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return utility.ErrorJSON(c, http.StatusBadRequest, "Username and password are required")
	}

	user, err := s.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Info().Str("username", req.Username).Msg("Failed login attempt")
			utility.AddRandomDelay()
			return utility.ErrorJSON(c, http.StatusUnauthorized, "Invalid username or password")
		}
		return utility.InternalError(c, err, "Error loading user")
	}

	if err := s.login(c, user); err != nil {
		return utility.InternalError(c, err, "Error saving session")
	}

	logger.Info().Str("user_id", user.UserID).Msg("User logged in")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    toUserResponse(user),
	})
}

// LogoutHandler clears the session cookie.
func (s *Service) LogoutHandler(c echo.Context) error {
	sess, err := s.store.Get(c.Request(), SessionName)
	if err != nil {
		// An undecodable cookie is replaced below either way.
		utility.LoggerFromContext(c).Debug().Err(err).Msg("Discarding unreadable session")
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return utility.InternalError(c, err, "Error clearing session")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

/* =================================================================================
								MIDDLEWARE
=================================================================================*/

// RequireSession rejects requests without a logged-in user.
func (s *Service) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.loadSession(c) {
			return utility.ErrorJSON(c, http.StatusUnauthorized, "Authentication required")
		}
		return next(c)
	}
}

// OptionalSession exposes the session's user when there is one and lets
// anonymous requests through.
func (s *Service) OptionalSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.loadSession(c)
		return next(c)
	}
}

func (s *Service) loadSession(c echo.Context) bool {
	sess, err := s.store.Get(c.Request(), SessionName)
	if err != nil {
		return false
	}
	userID, _ := sess.Values[utility.ContextUserID].(string)
	username, _ := sess.Values[utility.ContextUsername].(string)
	if userID == "" || username == "" {
		return false
	}
	c.Set(utility.ContextUserID, userID)
	c.Set(utility.ContextUsername, username)
	return true
}

/* =================================================================================
								HELPERS
=================================================================================*/

// Authenticate returns the user when password matches, and
// ErrInvalidCredentials when the user is unknown or the password is wrong.
func (s *Service) Authenticate(username, password string) (*database.UserRecord, error) {
	user, err := s.users.GetUser(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) login(c echo.Context, user *database.UserRecord) error {
	sess, _ := s.store.Get(c.Request(), SessionName)
	sess.Values[utility.ContextUserID] = user.UserID
	sess.Values[utility.ContextUsername] = user.Username
	return sess.Save(c.Request(), c.Response())
}

// checkEmail runs the offline syntax and disposable-domain checks and
// returns a message for the caller, or "" when the address is acceptable.
func (s *Service) checkEmail(email string) string {
	syntax := s.verifier.ParseAddress(email)
	if !syntax.Valid {
		return "Invalid email address format"
	}
	if s.verifier.IsDisposable(syntax.Domain) {
		return "Disposable email addresses are not allowed"
	}
	if s.verifier.IsRoleAccount(syntax.Username) {
		log.Warn().Str("email", email).Msg("Role account used at signup")
	}
	return ""
}

func toUserResponse(u *database.UserRecord) UserResponse {
	return UserResponse{UserID: u.UserID, Username: u.Username, Email: u.Email}
}
