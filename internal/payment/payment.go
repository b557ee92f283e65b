// Package payment wraps the hosted checkout provider: creating checkout
// sessions, reading them back, and verifying webhook deliveries.
package payment

import (
	"context"
	"errors"
	"strings"
)

// MetadataUserKey is the checkout session metadata key carrying the user id.
const MetadataUserKey = "firebaseUid"

// PaymentStatusPaid is the only payment status that upgrades a subscription.
const PaymentStatusPaid = "paid"

// EventCheckoutCompleted is the webhook event type that can upgrade a user.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	// ErrSignature is returned when a webhook delivery fails signature verification.
	ErrSignature = errors.New("payment: invalid webhook signature")
	// ErrNoCheckoutURL is returned when the provider created a session without a redirect URL.
	ErrNoCheckoutURL = errors.New("payment: checkout session has no url")
)

// CheckoutRequest describes a subscription checkout for one user.
type CheckoutRequest struct {
	UserID string
	Email  string
	// Origin is the app base URL the provider redirects back to.
	Origin string
}

// Session is the subset of a checkout session the app cares about.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	CustomerEmail string
	Metadata      map[string]string
}

// UserID returns the user id stored in the session metadata, or "".
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Metadata[MetadataUserKey]
}

// Paid reports whether the session's payment completed.
func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

// Provider creates and retrieves checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*Session, error)
}

// SuccessURL is where the provider sends the user after paying.
// {CHECKOUT_SESSION_ID} is substituted by the provider.
func SuccessURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where the provider sends the user after abandoning checkout.
func CancelURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/settings"
}
