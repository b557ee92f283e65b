package api

import (
	"net/http"
	"time"

	"github.com/marcus/sutra/internal/serverdb"
	"github.com/marcus/sutra/internal/subscription"
)

// subscriptionResponse carries the raw document and the gate derived from it
// at the server's clock.
type subscriptionResponse struct {
	Record       subscription.Record `json:"record"`
	View         subscription.View   `json:"view"`
	TrialCreated bool                `json:"trialCreated,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func (s *Server) subscriptionResponse(sub *serverdb.Subscription, created bool) subscriptionResponse {
	return subscriptionResponse{
		Record:       sub.Record,
		View:         subscription.Derive(sub.Record, s.now()),
		TrialCreated: created,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

// ensureSubscription loads the caller's document, creating the trial on first load.
func (s *Server) ensureSubscription(userID string) (*serverdb.Subscription, bool, error) {
	sub, created, err := s.store.EnsureSubscription(userID, s.now())
	if err != nil {
		return nil, false, err
	}
	if created {
		s.metrics.RecordTrialCreated()
	}
	return sub, created, nil
}

// handleGetSubscription handles GET /v1/subscription.
func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	sub, created, err := s.ensureSubscription(user.UserID)
	if err != nil {
		logFor(r.Context()).Error("ensure subscription", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load subscription")
		return
	}
	if created {
		logFor(r.Context()).Info("trial started", "ends_at", sub.TrialEndsAt)
	}
	writeJSON(w, http.StatusOK, s.subscriptionResponse(sub, created))
}

// handleWatchSubscription handles GET /v1/subscription/watch (websocket).
func (s *Server) handleWatchSubscription(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	first := true
	s.streamDocument(w, r, serverdb.SubscriptionDocKey(user.UserID), "subscription", func() (any, bool, error) {
		var (
			sub     *serverdb.Subscription
			created bool
			err     error
		)
		if first {
			first = false
			sub, created, err = s.ensureSubscription(user.UserID)
		} else {
			sub, err = s.store.GetSubscription(user.UserID)
		}
		if err != nil || sub == nil {
			return nil, false, err
		}
		return s.subscriptionResponse(sub, created), true, nil
	})
}
