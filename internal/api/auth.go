package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marcus/sutra/internal/serverdb"
)

const (
	defaultBcryptCost = bcrypt.DefaultCost
	apiKeyLifetime    = 365 * 24 * time.Hour
)

// credentialsRequest is the JSON body for POST /v1/auth/signup and /v1/auth/login.
type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// authResponse is returned on successful signup or login.
type authResponse struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// meResponse is the JSON response for GET /v1/auth/me.
type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// handleSignup handles POST /v1/auth/signup.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.config.AllowSignup {
		writeError(w, http.StatusForbidden, ErrCodeSignupDisabled, "signup is disabled")
		return
	}
	var req credentialsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		logFor(r.Context()).Error("hash password", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create user")
		return
	}

	user, err := s.store.CreateUser(email, string(hash))
	if errors.Is(err, serverdb.ErrEmailTaken) {
		writeError(w, http.StatusConflict, ErrCodeEmailTaken, "email already registered")
		return
	}
	if err != nil {
		logFor(r.Context()).Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create user")
		return
	}

	resp, ok := s.issueKey(w, r, user, "signup")
	if !ok {
		return
	}
	s.logAuthEvent(r, user.ID, email, serverdb.AuthEventSignup, nil)
	writeJSON(w, http.StatusCreated, resp)
}

// handleLogin handles POST /v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		logFor(r.Context()).Error("get user", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to log in")
		return
	}
	if user == nil {
		s.logAuthEvent(r, "", email, serverdb.AuthEventLoginFailed, map[string]string{"reason": "unknown_email"})
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logAuthEvent(r, user.ID, email, serverdb.AuthEventLoginFailed, map[string]string{"reason": "bad_password"})
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		return
	}

	resp, ok := s.issueKey(w, r, user, "login")
	if !ok {
		return
	}
	s.logAuthEvent(r, user.ID, email, serverdb.AuthEventLogin, nil)
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout handles POST /v1/auth/logout by revoking the calling key.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	if err := s.store.RevokeAPIKey(user.KeyID, user.UserID); err != nil {
		logFor(r.Context()).Error("revoke api key", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to revoke key")
		return
	}
	s.logAuthEvent(r, user.UserID, user.Email, serverdb.AuthEventLogout, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleMe handles GET /v1/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{UserID: user.UserID, Email: user.Email})
}

func (s *Server) issueKey(w http.ResponseWriter, r *http.Request, user *serverdb.User, name string) (authResponse, bool) {
	expiresAt := s.now().UTC().Add(apiKeyLifetime)
	plaintext, _, err := s.store.GenerateAPIKey(user.ID, name, &expiresAt)
	if err != nil {
		logFor(r.Context()).Error("generate api key", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to issue api key")
		return authResponse{}, false
	}
	return authResponse{
		APIKey:    plaintext,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, true
}

// logAuthEvent records an auth event. Failures are logged and otherwise ignored.
func (s *Server) logAuthEvent(r *http.Request, userID, email, eventType string, meta map[string]string) {
	metadata := ""
	if len(meta) > 0 {
		b, _ := json.Marshal(meta)
		metadata = string(b)
	}
	if err := s.store.InsertAuthEvent(userID, email, eventType, metadata); err != nil {
		logFor(r.Context()).Error("log auth event", "event", eventType, "err", err)
	}
}
