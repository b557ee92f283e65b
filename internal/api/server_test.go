package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/marcus/sutra/internal/payment/paymenttest"
	"github.com/marcus/sutra/internal/progress"
)

func TestNewServerRequiresDependencies(t *testing.T) {
	_, store := newTestServer(t)

	if _, err := NewServer(testConfig(":memory:"), nil, paymenttest.NewProvider()); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewServer(testConfig(":memory:"), store, nil); err == nil {
		t.Fatal("expected error for nil payment provider")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
}

func TestHealthEndpointDBClosed(t *testing.T) {
	srv, store := newTestServer(t)
	store.Close()

	w := doRequest(srv, "GET", "/healthz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, "GET", "/healthz", "", nil)
	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("expected generated uuid request id, got %q", w.Header().Get("X-Request-ID"))
	}

	h := newTestHarness(t)
	req, _ := http.NewRequest("GET", h.BaseURL+"/healthz", nil)
	inbound := uuid.NewString()
	req.Header.Set("X-Request-ID", inbound)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != inbound {
		t.Fatalf("expected inbound request id %q echoed, got %q", inbound, got)
	}
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/v1/journey"},
		{"PUT", "/v1/journey"},
		{"GET", "/v1/journey/watch"},
		{"GET", "/v1/subscription"},
		{"GET", "/v1/subscription/watch"},
		{"GET", "/v1/auth/me"},
		{"POST", "/v1/auth/logout"},
	} {
		w := doRequest(srv, tc.method, tc.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}

	w := doRequest(srv, "GET", "/v1/journey", "sutra_not_a_real_key", nil)
	assertRecorderError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestMetricsEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := createTestUser(t, store, "metrics@test.com")

	w := doRequest(srv, "PUT", "/v1/journey", token, map[string]any{
		"dayRecords": map[string]any{"1": progress.DayRecord{DayNumber: 1, DidPractice: true}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put journey: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	doRequest(srv, "GET", "/v1/journey", "", nil)

	w = doRequest(srv, "GET", "/metricz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metricz: expected 200, got %d", w.Code)
	}
	var snap MetricsSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.JourneyWrites != 1 {
		t.Errorf("journey writes: got %d, want 1", snap.JourneyWrites)
	}
	if snap.ClientErrors < 1 {
		t.Errorf("expected the unauthenticated request counted as a client error, got %d", snap.ClientErrors)
	}

	w = doRequest(srv, "GET", "/metrics", "", nil)
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "sutra_journey_writes_total 1") {
		t.Fatalf("prometheus output missing journey counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("prometheus output missing go collector")
	}
}

func TestUnknownRoute404(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, "GET", "/v1/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
