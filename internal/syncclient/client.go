// Package syncclient is the HTTP client for sutra-server.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/subscription"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
)

// Client is an HTTP client for the sutra-server API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a new client. A zero timeout means no per-request timeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// --- Auth types (mirrors internal/api/auth.go, independently defined) ---

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// MeResponse identifies the owner of the current API key.
type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// --- Document types (mirrors internal/api/journey.go and subscription.go) ---

// JourneyDocument is the remote journey document.
type JourneyDocument struct {
	DayRecords     map[int]progress.DayRecord  `json:"dayRecords"`
	WeekRecords    map[int]progress.WeekRecord `json:"weekRecords"`
	Settings       progress.Settings           `json:"settings"`
	ProgramKey     string                      `json:"programKey"`
	ProgramVersion string                      `json:"programVersion"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// State returns the document's progress state.
func (d *JourneyDocument) State() progress.State {
	return progress.State{
		DayRecords:  d.DayRecords,
		WeekRecords: d.WeekRecords,
		Settings:    d.Settings,
	}.Clone()
}

// JourneyPatch is a merge-write. Nil fields are left untouched on the server.
// The record maps are sent as null when nil and as {} when empty, so an
// empty map clears every stored record.
type JourneyPatch struct {
	DayRecords     map[int]progress.DayRecord  `json:"dayRecords"`
	WeekRecords    map[int]progress.WeekRecord `json:"weekRecords"`
	Settings       *progress.Settings          `json:"settings,omitempty"`
	ProgramKey     *string                     `json:"programKey,omitempty"`
	ProgramVersion *string                     `json:"programVersion,omitempty"`
}

// FullPatch returns a patch that overwrites every field of the document with st.
func FullPatch(st progress.State) JourneyPatch {
	st = st.Clone() // never nil maps
	key, version := progress.JourneyKey, progress.ProgramVersion
	return JourneyPatch{
		DayRecords:     st.DayRecords,
		WeekRecords:    st.WeekRecords,
		Settings:       &st.Settings,
		ProgramKey:     &key,
		ProgramVersion: &version,
	}
}

// SubscriptionResponse carries the stored record and the server-derived view.
type SubscriptionResponse struct {
	Record       subscription.Record `json:"record"`
	View         subscription.View   `json:"view"`
	TrialCreated bool                `json:"trialCreated,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// --- Checkout types ---

// VerifyResponse reports whether a checkout session was paid.
type VerifyResponse struct {
	Verified      bool   `json:"verified"`
	FirebaseUID   string `json:"firebaseUid,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doNoAuth(ctx, "GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Auth methods ---

// Signup creates an account and returns its first API key.
func (c *Client) Signup(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doNoAuth(ctx, "POST", "/v1/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a new API key.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doNoAuth(ctx, "POST", "/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the client's API key on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "POST", "/v1/auth/logout", nil, nil)
}

// Me returns the identity behind the client's API key.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var resp MeResponse
	if err := c.do(ctx, "GET", "/v1/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Journey methods ---

// GetJourney fetches the caller's journey document. It returns nil, nil when
// the document does not exist yet.
func (c *Client) GetJourney(ctx context.Context) (*JourneyDocument, error) {
	var doc JourneyDocument
	err := c.do(ctx, "GET", "/v1/journey", nil, &doc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// PutJourney merge-writes patch and returns the stored document.
func (c *Client) PutJourney(ctx context.Context, patch JourneyPatch) (*JourneyDocument, error) {
	var doc JourneyDocument
	if err := c.do(ctx, "PUT", "/v1/journey", patch, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// --- Subscription methods ---

// GetSubscription fetches the caller's subscription, starting the trial on
// the first call for a user.
func (c *Client) GetSubscription(ctx context.Context) (*SubscriptionResponse, error) {
	var resp SubscriptionResponse
	if err := c.do(ctx, "GET", "/v1/subscription", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Checkout methods ---

// CreateCheckoutSession starts a hosted checkout for uid and returns the
// URL to send the user to.
func (c *Client) CreateCheckoutSession(ctx context.Context, uid, email string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	body := map[string]string{"uid": uid, "email": email}
	if err := c.doNoAuth(ctx, "POST", "/v1/checkout/sessions", body, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("checkout session returned no url")
	}
	return resp.URL, nil
}

// VerifyCheckoutSession asks the server whether sessionID was paid. An
// unpaid session is reported as an *APIError.
func (c *Client) VerifyCheckoutSession(ctx context.Context, sessionID string) (*VerifyResponse, error) {
	var resp VerifyResponse
	body := map[string]string{"sessionId": sessionID}
	if err := c.doNoAuth(ctx, "POST", "/v1/checkout/verify", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- HTTP helpers ---

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// Unwrap maps the HTTP status to the matching sentinel error.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// errorEnvelope is the server's {"error":{...}} body.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeError turns an error response into an *APIError.
func decodeError(status int, body []byte) error {
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Code != "" {
		return &APIError{Status: status, Code: env.Error.Code, Message: env.Error.Message}
	}
	return &APIError{Status: status, Code: fmt.Sprintf("http_%d", status), Message: string(bytes.TrimSpace(body))}
}

// do executes an authenticated HTTP request.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, true)
}

// doNoAuth executes an unauthenticated HTTP request.
func (c *Client) doNoAuth(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, false)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, auth bool) error {
	if auth && c.APIKey == "" {
		return fmt.Errorf("%w: not logged in", ErrUnauthorized)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// wsURL converts the client's base URL to the websocket URL for path.
func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	return u.String(), nil
}
