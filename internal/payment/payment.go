// Package payment verifies card payments with the payment processor.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Intent statuses the ledger acts on. Anything else (processing,
// requires_action, requires_capture, requires_confirmation) may still end in
// a charge and leaves the checkout pending.
const (
	// StatusSucceeded is the only intent status that entitles a checkout.
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
	StatusRequiresPaymentMethod = "requires_payment_method"
)

// EventIntentSucceeded is the webhook event type for a captured payment.
const EventIntentSucceeded = "payment_intent.succeeded"

var (
	// ErrNotConfigured is returned when no processor key is set.
	ErrNotConfigured = errors.New("payment processor is not configured")
	// ErrBadSignature is returned for webhook payloads that fail verification.
	ErrBadSignature = errors.New("webhook signature verification failed")
)

// Intent is the processor's view of a payment intent.
type Intent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Succeeded reports whether the money was captured.
func (i Intent) Succeeded() bool { return i.Status == StatusSucceeded }

// Declined reports whether the attempt to pay is over without a charge.
// A declined card returns the intent to requires_payment_method; the same
// intent can still be confirmed again with another card.
func (i Intent) Declined() bool {
	return i.Status == StatusCanceled || i.Status == StatusRequiresPaymentMethod
}

// WebhookEvent is a verified processor notification.
type WebhookEvent struct {
	ID     string
	Type   string
	Intent *Intent
}

// Stripe talks to the Stripe API.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

// NewStripe creates a Stripe verifier. An empty secretKey yields a verifier
// that fails every lookup with ErrNotConfigured.
func NewStripe(secretKey, webhookSecret string) *Stripe {
	s := &Stripe{webhookSecret: webhookSecret}
	if secretKey != "" {
		s.api = client.New(secretKey, nil)
	}
	return s
}

// Intent fetches a payment intent's current status.
func (s *Stripe) Intent(ctx context.Context, id string) (*Intent, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", id, err)
	}
	return fromStripe(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Intent is set only for payment_intent.* events.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := &WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}
	if obj, _ := ev.Data.Object["object"].(string); obj != "payment_intent" {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	out.Intent = fromStripe(&pi)
	return out, nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
	}
}
