package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/marcus/sutra/internal/progress"
)

func decodeJourney(t *testing.T, body []byte) journeyDocument {
	t.Helper()
	var doc journeyDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode journey: %v: %s", err, body)
	}
	return doc
}

func TestGetJourneyMissing404(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := createTestUser(t, store, "new@test.com")

	w := doRequest(srv, "GET", "/v1/journey", token, nil)
	assertRecorderError(t, w, http.StatusNotFound, ErrCodeNotFound)
}

func TestPutJourneyMergeWrite(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := createTestUser(t, store, "merge@test.com")

	// First write: day records only
	w := doRequest(srv, "PUT", "/v1/journey", token, map[string]any{
		"dayRecords": map[string]progress.DayRecord{
			"1": {DayNumber: 1, DidPractice: true, Note: "steady"},
			"2": {DayNumber: 2},
		},
		"programKey":     progress.JourneyKey,
		"programVersion": progress.ProgramVersion,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put days: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	first := decodeJourney(t, w.Body.Bytes())
	if first.UpdatedAt.IsZero() {
		t.Fatal("expected server to stamp updatedAt")
	}

	// Second write: settings and weeks only; days must survive
	w = doRequest(srv, "PUT", "/v1/journey", token, map[string]any{
		"weekRecords": map[string]progress.WeekRecord{
			"1": {Week: 1, Completed: true, Enjoyed: true, Bookmarked: true},
		},
		"settings": progress.Settings{StartDate: "2025-01-06"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put settings: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, "GET", "/v1/journey", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	doc := decodeJourney(t, w.Body.Bytes())
	if got := doc.DayRecords[1]; !got.DidPractice || got.Note != "steady" {
		t.Fatalf("day 1 lost in merge: %+v", got)
	}
	if len(doc.DayRecords) != 2 {
		t.Fatalf("expected 2 day records, got %d", len(doc.DayRecords))
	}
	if !doc.WeekRecords[1].Enjoyed {
		t.Fatalf("week 1 not stored: %+v", doc.WeekRecords[1])
	}
	if doc.Settings.StartDate != "2025-01-06" {
		t.Fatalf("start date: got %q", doc.Settings.StartDate)
	}
	if doc.ProgramKey != progress.JourneyKey || doc.ProgramVersion != progress.ProgramVersion {
		t.Fatalf("program fields lost: %q %q", doc.ProgramKey, doc.ProgramVersion)
	}
}

func TestPutJourneyLastWriterWins(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := createTestUser(t, store, "lww@test.com")

	for _, note := range []string{"device A", "device B"} {
		w := doRequest(srv, "PUT", "/v1/journey", token, map[string]any{
			"dayRecords": map[string]progress.DayRecord{"3": {DayNumber: 3, Note: note}},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("put %q: expected 200, got %d", note, w.Code)
		}
	}

	w := doRequest(srv, "GET", "/v1/journey", token, nil)
	doc := decodeJourney(t, w.Body.Bytes())
	if doc.DayRecords[3].Note != "device B" {
		t.Fatalf("expected last write to win, got %q", doc.DayRecords[3].Note)
	}
}

func TestPutJourneyValidation(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := createTestUser(t, store, "invalid@test.com")

	tests := []struct {
		name string
		body any
	}{
		{"day out of range", map[string]any{
			"dayRecords": map[string]progress.DayRecord{"365": {DayNumber: 365}},
		}},
		{"day zero", map[string]any{
			"dayRecords": map[string]progress.DayRecord{"0": {DayNumber: 0}},
		}},
		{"day number mismatch", map[string]any{
			"dayRecords": map[string]progress.DayRecord{"4": {DayNumber: 5}},
		}},
		{"week out of range", map[string]any{
			"weekRecords": map[string]progress.WeekRecord{"53": {Week: 53}},
		}},
		{"bad start date", map[string]any{
			"settings": progress.Settings{StartDate: "06/01/2025"},
		}},
		{"long program key", map[string]any{
			"programKey": string(make([]byte, 65)),
		}},
		{"not json", "nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(srv, "PUT", "/v1/journey", token, tc.body)
			assertRecorderError(t, w, http.StatusBadRequest, ErrCodeBadRequest)
		})
	}

	w := doRequest(srv, "GET", "/v1/journey", token, nil)
	assertRecorderError(t, w, http.StatusNotFound, ErrCodeNotFound)
}

func TestJourneyKeyedDocuments(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := createTestUser(t, store, "keys@test.com")

	w := doRequest(srv, "PUT", "/v1/journey?key=other-program", token, map[string]any{
		"settings": progress.Settings{StartDate: "2025-02-03"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put keyed: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, "GET", "/v1/journey", token, nil)
	assertRecorderError(t, w, http.StatusNotFound, ErrCodeNotFound)

	w = doRequest(srv, "GET", "/v1/journey?key=other-program", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get keyed: expected 200, got %d", w.Code)
	}

	w = doRequest(srv, "GET", "/v1/journey?key=a/b", token, nil)
	assertRecorderError(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestJourneyIsolatedPerUser(t *testing.T) {
	srv, store := newTestServer(t)
	_, tokenA := createTestUser(t, store, "a@test.com")
	_, tokenB := createTestUser(t, store, "b@test.com")

	w := doRequest(srv, "PUT", "/v1/journey", tokenA, map[string]any{
		"dayRecords": map[string]progress.DayRecord{"1": {DayNumber: 1, DidPractice: true}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", w.Code)
	}

	w = doRequest(srv, "GET", "/v1/journey", tokenB, nil)
	assertRecorderError(t, w, http.StatusNotFound, ErrCodeNotFound)
}
