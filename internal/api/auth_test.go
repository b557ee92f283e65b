package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/marcus/sutra/internal/serverdb"
)

func TestSignupLoginLogoutFlow(t *testing.T) {
	srv, store := newTestServer(t)

	// Signup
	w := doRequest(srv, "POST", "/v1/auth/signup", "", credentialsRequest{
		Email:    "Seeker@Example.com",
		Password: testPassword,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var signup authResponse
	json.NewDecoder(w.Body).Decode(&signup)
	if !strings.HasPrefix(signup.APIKey, "sutra_") {
		t.Fatalf("expected sutra_ api key, got %q", signup.APIKey)
	}
	if signup.Email != "seeker@example.com" {
		t.Fatalf("expected normalized email, got %q", signup.Email)
	}
	if _, err := time.Parse(time.RFC3339, signup.ExpiresAt); err != nil {
		t.Fatalf("expires_at not RFC3339: %q", signup.ExpiresAt)
	}

	// Me
	w = doRequest(srv, "GET", "/v1/auth/me", signup.APIKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	var me meResponse
	json.NewDecoder(w.Body).Decode(&me)
	if me.UserID != signup.UserID || me.Email != "seeker@example.com" {
		t.Fatalf("unexpected me response: %+v", me)
	}

	// Login issues a second key
	w = doRequest(srv, "POST", "/v1/auth/login", "", credentialsRequest{
		Email:    "seeker@example.com",
		Password: testPassword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var login authResponse
	json.NewDecoder(w.Body).Decode(&login)
	if login.APIKey == signup.APIKey || login.UserID != signup.UserID {
		t.Fatalf("unexpected login response: %+v", login)
	}

	// Logout revokes only the calling key
	w = doRequest(srv, "POST", "/v1/auth/logout", login.APIKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	w = doRequest(srv, "GET", "/v1/auth/me", login.APIKey, nil)
	assertRecorderError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
	w = doRequest(srv, "GET", "/v1/auth/me", signup.APIKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup key should survive logout of another key, got %d", w.Code)
	}

	events, err := store.RecentAuthEvents("seeker@example.com", 10)
	if err != nil {
		t.Fatalf("recent auth events: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range events {
		seen[e.EventType] = true
	}
	for _, want := range []string{serverdb.AuthEventSignup, serverdb.AuthEventLogin, serverdb.AuthEventLogout} {
		if !seen[want] {
			t.Errorf("missing auth event %q", want)
		}
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv, store := newTestServer(t)
	createTestUser(t, store, "taken@example.com")

	w := doRequest(srv, "POST", "/v1/auth/signup", "", credentialsRequest{
		Email:    "taken@example.com",
		Password: testPassword,
	})
	assertRecorderError(t, w, http.StatusConflict, ErrCodeEmailTaken)
}

func TestSignupDisabled(t *testing.T) {
	srv, _ := newTestServerWithConfig(t, func(cfg *Config) {
		cfg.AllowSignup = false
	})

	w := doRequest(srv, "POST", "/v1/auth/signup", "", credentialsRequest{
		Email:    "new@example.com",
		Password: testPassword,
	})
	assertRecorderError(t, w, http.StatusForbidden, ErrCodeSignupDisabled)
}

func TestSignupValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing email", map[string]string{"password": testPassword}},
		{"bad email", credentialsRequest{Email: "not-an-email", Password: testPassword}},
		{"short password", credentialsRequest{Email: "a@example.com", Password: "short"}},
		{"not json", "just a string"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(srv, "POST", "/v1/auth/signup", "", tc.body)
			assertRecorderError(t, w, http.StatusBadRequest, ErrCodeBadRequest)
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv, store := newTestServer(t)
	createTestUser(t, store, "user@example.com")

	w := doRequest(srv, "POST", "/v1/auth/login", "", credentialsRequest{
		Email:    "user@example.com",
		Password: "wrong password",
	})
	assertRecorderError(t, w, http.StatusUnauthorized, ErrCodeInvalidCredentials)

	w = doRequest(srv, "POST", "/v1/auth/login", "", credentialsRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	})
	assertRecorderError(t, w, http.StatusUnauthorized, ErrCodeInvalidCredentials)

	n, err := store.CountRecentLoginFailures("user@example.com", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("count failures: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recorded login failure, got %d", n)
	}
}

func TestAuthRateLimitByIP(t *testing.T) {
	srv, _ := newTestServerWithConfig(t, func(cfg *Config) {
		cfg.RateLimitAuth = 3
	})

	for i := 1; i <= 4; i++ {
		w := doRequest(srv, "POST", "/v1/auth/login", "", credentialsRequest{
			Email:    "nobody@example.com",
			Password: testPassword,
		})
		if i <= 3 && w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, w.Code)
		}
		if i == 4 {
			assertRecorderError(t, w, http.StatusTooManyRequests, ErrCodeRateLimited)
		}
	}
}
