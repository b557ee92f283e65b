package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/marcus/sutra/internal/payment"
)

type createCheckoutRequest struct {
	UID   string `json:"uid" validate:"required"`
	Email string `json:"email" validate:"required"`
}

type createCheckoutResponse struct {
	URL string `json:"url"`
}

type verifyCheckoutRequest struct {
	SessionID string `json:"sessionId"`
}

// verifyCheckoutResponse reports whether a checkout session was paid. Error is
// set whenever Verified is false.
type verifyCheckoutResponse struct {
	Verified      bool      `json:"verified"`
	FirebaseUID   string    `json:"firebaseUid,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Error         *APIError `json:"error,omitempty"`
}

type webhookAck struct {
	Received bool `json:"received"`
}

// checkoutOrigin is the base URL the provider redirects back to.
func (s *Server) checkoutOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return s.config.AppURL
}

// handleCreateCheckoutSession handles POST /v1/checkout/sessions.
func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if !decodeRequest(w, r, &req) {
		s.metrics.RecordCheckout("invalid")
		return
	}

	sess, err := s.payments.CreateCheckoutSession(r.Context(), payment.CheckoutRequest{
		UserID: req.UID,
		Email:  req.Email,
		Origin: s.checkoutOrigin(r),
	})
	if err == nil && sess.URL == "" {
		err = payment.ErrNoCheckoutURL
	}
	if err != nil {
		logFor(r.Context()).Error("create checkout session", "uid", req.UID, "err", err)
		s.metrics.RecordCheckout("failed")
		msg := "failed to create checkout session"
		if errors.Is(err, payment.ErrNoCheckoutURL) {
			msg = "checkout session has no redirect url"
		}
		writeError(w, http.StatusInternalServerError, ErrCodeCheckoutFailed, msg)
		return
	}

	logFor(r.Context()).Info("checkout session created", "uid", req.UID, "session_id", sess.ID)
	s.metrics.RecordCheckout("created")
	writeJSON(w, http.StatusOK, createCheckoutResponse{URL: sess.URL})
}

// handleVerifyCheckoutSession handles POST /v1/checkout/verify. It reports
// payment state only; the subscription upgrade belongs to the webhook.
func (s *Server) handleVerifyCheckoutSession(w http.ResponseWriter, r *http.Request) {
	unverified := func(status int, code, msg string) {
		writeJSON(w, status, verifyCheckoutResponse{Error: &APIError{Code: code, Message: msg}})
	}

	var req verifyCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		unverified(http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		unverified(http.StatusBadRequest, ErrCodeBadRequest, "sessionId is required")
		return
	}

	sess, err := s.payments.GetCheckoutSession(r.Context(), req.SessionID)
	if err != nil {
		logFor(r.Context()).Error("retrieve checkout session", "session_id", req.SessionID, "err", err)
		unverified(http.StatusInternalServerError, ErrCodeVerifyFailed, "failed to verify checkout session")
		return
	}
	if !sess.Paid() {
		unverified(http.StatusBadRequest, ErrCodePaymentIncomplete, "payment not completed")
		return
	}
	uid := sess.UserID()
	if uid == "" {
		unverified(http.StatusBadRequest, ErrCodeMissingMetadata, "session has no user id")
		return
	}

	writeJSON(w, http.StatusOK, verifyCheckoutResponse{
		Verified:      true,
		FirebaseUID:   uid,
		PaymentStatus: sess.PaymentStatus,
	})
}

// handleStripeWebhook handles POST /v1/webhooks/stripe. A completed, paid
// checkout marks the subscription active; everything else is acknowledged
// without side effects.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		s.metrics.RecordWebhook("", "missing_signature")
		writeError(w, http.StatusBadRequest, ErrCodeMissingSignature, "missing Stripe-Signature header")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.RecordWebhook("", "unreadable")
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "failed to read body")
		return
	}

	ev, err := payment.ParseWebhook(payload, sig, s.config.StripeWebhookSecret)
	if err != nil {
		logFor(r.Context()).Warn("webhook rejected", "err", err)
		if errors.Is(err, payment.ErrSignature) {
			s.metrics.RecordWebhook("", "invalid_signature")
			writeError(w, http.StatusBadRequest, ErrCodeInvalidSignature, "webhook signature verification failed")
			return
		}
		s.metrics.RecordWebhook("", "malformed")
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "malformed event")
		return
	}

	log := logFor(r.Context()).With("event_id", ev.ID, "event_type", ev.Type)

	if ev.Type != payment.EventCheckoutCompleted {
		s.metrics.RecordWebhook(ev.Type, "ignored")
		writeJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	if !ev.Session.Paid() {
		log.Info("checkout completed without payment")
		s.metrics.RecordWebhook(ev.Type, "unpaid")
		writeJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	uid := ev.Session.UserID()
	if uid == "" {
		log.Warn("checkout session missing user metadata")
		s.metrics.RecordWebhook(ev.Type, "missing_metadata")
		writeError(w, http.StatusBadRequest, ErrCodeMissingMetadata, "session has no user id")
		return
	}

	if err := s.upgrades.MarkSubscriptionActive(uid, s.now()); err != nil {
		log.Error("mark subscription active", "uid", uid, "err", err)
		s.metrics.RecordWebhook(ev.Type, "failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to update subscription")
		return
	}

	log.Info("subscription upgraded", "uid", uid)
	s.metrics.RecordWebhook(ev.Type, "upgraded")
	writeJSON(w, http.StatusOK, webhookAck{Received: true})
}
