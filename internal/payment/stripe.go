package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe is the Provider backed by Stripe Checkout in subscription mode.
type Stripe struct {
	api     *client.API
	priceID string
}

// StripeOption customizes a Stripe provider.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	baseURL string
	logger  *slog.Logger
}

// WithBaseURL points the client at a different API host (used by tests).
func WithBaseURL(u string) StripeOption {
	return func(o *stripeOptions) { o.baseURL = u }
}

// WithLogger routes client diagnostics through logger.
func WithLogger(l *slog.Logger) StripeOption {
	return func(o *stripeOptions) { o.logger = l }
}

// NewStripe returns a provider for secretKey selling priceID.
func NewStripe(secretKey, priceID string, opts ...StripeOption) *Stripe {
	var o stripeOptions
	for _, opt := range opts {
		opt(&o)
	}

	api := &client.API{}
	var backends *stripe.Backends
	if o.baseURL != "" || o.logger != nil {
		cfg := &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &slogLeveledLogger{l: o.logger},
		}
		if o.baseURL != "" {
			cfg.URL = stripe.String(o.baseURL)
		}
		b := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
		backends = &stripe.Backends{API: b, Connect: b, Uploads: b}
	}
	api.Init(secretKey, backends)

	return &Stripe{api: api, priceID: priceID}
}

// CreateCheckoutSession starts a subscription checkout for req.UserID.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := buildCheckoutParams(s.priceID, req)
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	sess := fromStripe(cs)
	if sess.URL == "" {
		return sess, ErrNoCheckoutURL
	}
	return sess, nil
}

// GetCheckoutSession retrieves a session by id.
func (s *Stripe) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return fromStripe(cs), nil
}

func buildCheckoutParams(priceID string, req CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(SuccessURL(req.Origin)),
		CancelURL:     stripe.String(CancelURL(req.Origin)),
	}
	params.AddMetadata(MetadataUserKey, req.UserID)
	return params
}

func fromStripe(cs *stripe.CheckoutSession) *Session {
	if cs == nil {
		return nil
	}
	return &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		CustomerEmail: cs.CustomerEmail,
		Metadata:      cs.Metadata,
	}
}

// Event is a verified webhook delivery.
type Event struct {
	ID   string
	Type string
	// Session is set for checkout.session.* events.
	Session *Session
}

// ParseWebhook verifies the Stripe-Signature header against secret and
// decodes the event. Signature failures wrap ErrSignature.
func ParseWebhook(payload []byte, signatureHeader, secret string) (*Event, error) {
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = fromStripe(&cs)
	}
	return out, nil
}

// slogLeveledLogger adapts slog to stripe's LeveledLoggerInterface.
type slogLeveledLogger struct {
	l *slog.Logger
}

func (s *slogLeveledLogger) logger() *slog.Logger {
	if s.l == nil {
		return slog.Default()
	}
	return s.l
}

func (s *slogLeveledLogger) Debugf(format string, v ...interface{}) {
	s.logger().Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (s *slogLeveledLogger) Infof(format string, v ...interface{}) {
	s.logger().Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (s *slogLeveledLogger) Warnf(format string, v ...interface{}) {
	s.logger().Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (s *slogLeveledLogger) Errorf(format string, v ...interface{}) {
	s.logger().Error(fmt.Sprintf(format, v...), "component", "stripe")
}
