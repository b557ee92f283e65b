package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcus/sutra/internal/payment/paymenttest"
	"github.com/marcus/sutra/internal/serverdb"
)

const (
	testWebhookSecret = "whsec_test_secret"
	testPassword      = "correct horse battery"
)

// testConfig returns a valid config with limits high enough to never trip.
func testConfig(dbPath string) Config {
	cfg := DefaultConfig()
	cfg.ListenAddr = ":0"
	cfg.ServerDBPath = dbPath
	cfg.AppURL = "https://app.example.test"
	cfg.RateLimitAuth = 100000
	cfg.RateLimitOther = 100000
	cfg.StripeSecretKey = "sk_test_123"
	cfg.StripePriceID = "price_test_123"
	cfg.StripeWebhookSecret = testWebhookSecret
	return cfg
}

// TestHarness wraps a full Server with a real HTTP listener for integration tests.
type TestHarness struct {
	t        *testing.T
	Server   *Server
	Store    *serverdb.ServerDB
	Payments *paymenttest.Provider
	BaseURL  string
	client   *http.Client
	httpSrv  *httptest.Server
}

// newTestHarness creates a TestHarness with a real HTTP server on a random port.
func newTestHarness(t *testing.T, opts ...func(*Config)) *TestHarness {
	t.Helper()

	srv, store := newTestServerWithConfig(t, func(cfg *Config) {
		for _, opt := range opts {
			opt(cfg)
		}
	})
	httpSrv := httptest.NewServer(srv.routes())
	t.Cleanup(httpSrv.Close)

	return &TestHarness{
		t:        t,
		Server:   srv,
		Store:    store,
		Payments: srv.payments.(*paymenttest.Provider),
		BaseURL:  httpSrv.URL,
		client:   &http.Client{Timeout: 10 * time.Second},
		httpSrv:  httpSrv,
	}
}

// Do sends an HTTP request and returns the response.
// Caller must close resp.Body unless using assertion helpers (AssertStatus,
// AssertErrorResponse, ReadJSON) which close it automatically.
func (h *TestHarness) Do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		rdr = &buf
	}

	req, err := http.NewRequest(method, h.BaseURL+path, rdr)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("do request %s %s: %v", method, path, err)
	}
	return resp
}

// CreateUser creates a user with an API key.
func (h *TestHarness) CreateUser(email string) (userID, token string) {
	h.t.Helper()
	return createTestUser(h.t, h.Store, email)
}

// DialWatch opens a watch stream at path with the given token.
func (h *TestHarness) DialWatch(path, token string) *websocket.Conn {
	h.t.Helper()

	u := "ws" + strings.TrimPrefix(h.BaseURL, "http") + path
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		h.t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	h.t.Cleanup(func() { conn.Close() })
	return conn
}

// ReadFrame reads the next watch frame, failing after a timeout.
func ReadFrame(t *testing.T, conn *websocket.Conn) WatchFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f WatchFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// newTestServer creates a Server backed by a temp sqlite store and a fake
// payment provider.
func newTestServer(t *testing.T) (*Server, *serverdb.ServerDB) {
	t.Helper()
	return newTestServerWithConfig(t, nil)
}

// newTestServerWithConfig creates a test server with a custom config modifier.
func newTestServerWithConfig(t *testing.T, modCfg func(*Config)) (*Server, *serverdb.ServerDB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "server.db")
	store, err := serverdb.Open(dbPath)
	if err != nil {
		t.Fatalf("open server db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := testConfig(dbPath)
	if modCfg != nil {
		modCfg(&cfg)
	}

	srv, err := NewServer(cfg, store, paymenttest.NewProvider())
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	srv.bcryptCost = bcrypt.MinCost
	return srv, store
}

// fakePayments returns the fake provider a test server was built with.
func fakePayments(srv *Server) *paymenttest.Provider {
	return srv.payments.(*paymenttest.Provider)
}

// createTestUser creates a user and API key, returning the user id and bearer token.
func createTestUser(t *testing.T, store *serverdb.ServerDB, email string) (string, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := store.CreateUser(email, string(hash))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := store.GenerateAPIKey(user.ID, "test", nil)
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}
	return user.ID, token
}

// doRequest runs a request through the full middleware chain.
func doRequest(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	return w
}

// --- Response assertion helpers ---

// AssertStatus checks the HTTP status code matches expected. Reads and closes the body on failure.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

// AssertErrorResponse checks the response has the expected status and error code.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedCode string) {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != expectedStatus {
		t.Fatalf("expected status %d, got %d: %s", expectedStatus, resp.StatusCode, string(body))
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error.Code != expectedCode {
		t.Fatalf("expected error code %q, got %q: %s", expectedCode, errResp.Error.Code, errResp.Error.Message)
	}
}

// assertRecorderError is AssertErrorResponse for a ResponseRecorder.
func assertRecorderError(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertErrorResponse(t, w.Result(), expectedStatus, expectedCode)
}

// ReadJSON decodes a JSON response body into the given type.
func ReadJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode json response: %v", err)
	}
	return out
}

// AssertCORSHeaders checks the response has the expected CORS origin header.
func AssertCORSHeaders(t *testing.T, resp *http.Response, expectedOrigin string) {
	t.Helper()
	origin := resp.Header.Get("Access-Control-Allow-Origin")
	if origin != expectedOrigin {
		t.Fatalf("expected Access-Control-Allow-Origin %q, got %q", expectedOrigin, origin)
	}
}
