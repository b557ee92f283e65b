// Package paymenttest provides an in-memory payment.Provider and webhook
// signing helpers for tests.
package paymenttest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/marcus/sutra/internal/payment"
)

// Provider is a fake payment.Provider. Sessions created through it are kept
// in memory and can be marked paid with MarkPaid.
type Provider struct {
	mu       sync.Mutex
	sessions map[string]*payment.Session
	next     int

	// CreateErr and GetErr, when set, are returned by the matching call.
	CreateErr error
	GetErr    error
	// OmitURL makes created sessions come back without a redirect URL.
	OmitURL bool

	Requests []payment.CheckoutRequest
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{sessions: make(map[string]*payment.Session)}
}

// CreateCheckoutSession records req and returns an unpaid session.
func (p *Provider) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.Requests = append(p.Requests, req)
	p.next++
	id := fmt.Sprintf("cs_test_%d", p.next)
	s := &payment.Session{
		ID:            id,
		Status:        "open",
		PaymentStatus: "unpaid",
		CustomerEmail: req.Email,
		Metadata:      map[string]string{payment.MetadataUserKey: req.UserID},
	}
	if !p.OmitURL {
		s.URL = "https://checkout.example.test/" + id
	}
	p.sessions[id] = s
	if s.URL == "" {
		return copySession(s), payment.ErrNoCheckoutURL
	}
	return copySession(s), nil
}

// GetCheckoutSession returns a stored session.
func (p *Provider) GetCheckoutSession(_ context.Context, id string) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GetErr != nil {
		return nil, p.GetErr
	}
	s, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout session: %s", id)
	}
	return copySession(s), nil
}

// Put stores s directly, replacing any session with the same id.
func (p *Provider) Put(s *payment.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s.ID] = copySession(s)
}

// MarkPaid flips a stored session to complete/paid.
func (p *Provider) MarkPaid(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[id]; ok {
		s.Status = "complete"
		s.PaymentStatus = payment.PaymentStatusPaid
	}
}

func copySession(s *payment.Session) *payment.Session {
	c := *s
	c.Metadata = maps.Clone(s.Metadata)
	return &c
}

// SignatureHeader returns a Stripe-Signature header value for payload signed
// with secret at t.
func SignatureHeader(payload []byte, secret string, t time.Time) string {
	ts := t.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// CheckoutEvent builds a webhook payload for a checkout.session.* event.
func CheckoutEvent(eventType, sessionID, paymentStatus string, metadata map[string]string) []byte {
	if metadata == nil {
		metadata = map[string]string{}
	}
	body, err := json.Marshal(map[string]any{
		"id":          "evt_" + sessionID,
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"created":     time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"object":         "checkout.session",
				"mode":           "subscription",
				"status":         "complete",
				"payment_status": paymentStatus,
				"metadata":       metadata,
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return body
}
