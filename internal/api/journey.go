package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/serverdb"
)

// journeyDocument is the wire form of a remote journey document.
type journeyDocument struct {
	DayRecords     map[int]progress.DayRecord  `json:"dayRecords"`
	WeekRecords    map[int]progress.WeekRecord `json:"weekRecords"`
	Settings       progress.Settings           `json:"settings"`
	ProgramKey     string                      `json:"programKey"`
	ProgramVersion string                      `json:"programVersion"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// putJourneyRequest is a merge-write: omitted fields keep their stored value.
type putJourneyRequest struct {
	DayRecords     map[int]progress.DayRecord  `json:"dayRecords,omitempty"`
	WeekRecords    map[int]progress.WeekRecord `json:"weekRecords,omitempty"`
	Settings       *progress.Settings          `json:"settings,omitempty"`
	ProgramKey     *string                     `json:"programKey,omitempty" validate:"omitempty,max=64"`
	ProgramVersion *string                     `json:"programVersion,omitempty" validate:"omitempty,max=16"`
}

func toJourneyDocument(j *serverdb.Journey) journeyDocument {
	st := j.State.Clone()
	return journeyDocument{
		DayRecords:     st.DayRecords,
		WeekRecords:    st.WeekRecords,
		Settings:       st.Settings,
		ProgramKey:     j.ProgramKey,
		ProgramVersion: j.ProgramVersion,
		UpdatedAt:      j.UpdatedAt,
	}
}

// journeyKeyFrom returns the ?key= query parameter or the canonical journey key.
func journeyKeyFrom(r *http.Request) (string, error) {
	key := r.URL.Query().Get("key")
	if key == "" {
		return progress.JourneyKey, nil
	}
	if err := requestValidator.Var(key, "max=64,printascii,excludesall=/ "); err != nil {
		return "", fmt.Errorf("invalid journey key")
	}
	return key, nil
}

// validateJourneyWrite checks record keys are in range and agree with the
// numbers embedded in each record.
func validateJourneyWrite(req *putJourneyRequest) error {
	for k, rec := range req.DayRecords {
		if k < 1 || k > progress.TotalDays {
			return fmt.Errorf("day %d out of range", k)
		}
		if rec.DayNumber != k {
			return fmt.Errorf("day record %d has dayNumber %d", k, rec.DayNumber)
		}
	}
	for k, rec := range req.WeekRecords {
		if k < 1 || k > progress.TotalWeeks {
			return fmt.Errorf("week %d out of range", k)
		}
		if rec.Week != k {
			return fmt.Errorf("week record %d has week %d", k, rec.Week)
		}
	}
	if req.Settings != nil && req.Settings.StartDate != "" {
		if _, err := progress.ParseStartDate(req.Settings.StartDate); err != nil {
			return fmt.Errorf("invalid startDate %q", req.Settings.StartDate)
		}
	}
	return nil
}

// handleGetJourney handles GET /v1/journey.
func (s *Server) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	key, err := journeyKeyFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	j, err := s.store.GetJourney(user.UserID, key)
	if err != nil {
		logFor(r.Context()).Error("get journey", "key", key, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load journey")
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "journey not found")
		return
	}
	writeJSON(w, http.StatusOK, toJourneyDocument(j))
}

// handlePutJourney handles PUT /v1/journey.
func (s *Server) handlePutJourney(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	key, err := journeyKeyFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	var req putJourneyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := validateJourneyWrite(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	j, err := s.store.PutJourney(user.UserID, key, serverdb.JourneyWrite{
		DayRecords:     req.DayRecords,
		WeekRecords:    req.WeekRecords,
		Settings:       req.Settings,
		ProgramKey:     req.ProgramKey,
		ProgramVersion: req.ProgramVersion,
	})
	if err != nil {
		logFor(r.Context()).Error("put journey", "key", key, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to save journey")
		return
	}
	s.metrics.RecordJourneyWrite()
	writeJSON(w, http.StatusOK, toJourneyDocument(j))
}

// handleWatchJourney handles GET /v1/journey/watch (websocket).
func (s *Server) handleWatchJourney(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	key, err := journeyKeyFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	s.streamDocument(w, r, serverdb.JourneyDocKey(user.UserID, key), "journey", func() (any, bool, error) {
		j, err := s.store.GetJourney(user.UserID, key)
		if err != nil || j == nil {
			return nil, false, err
		}
		return toJourneyDocument(j), true, nil
	})
}
