package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckoutKind is the entitlement change a checkout pays for.
type CheckoutKind string

const (
	CheckoutKindSubscribe  CheckoutKind = "subscribe"
	CheckoutKindChangePlan CheckoutKind = "change_plan"
	CheckoutKindAddSeats   CheckoutKind = "add_seats"
)

// CheckoutStatus tracks a checkout through payment and entitlement.
//
//	pending -> paid -> applying -> applied
//	pending -> failed -> paid (a later payment on the same intent)
//	pending -> needs_manual (charged the wrong amount)
//	applying -> apply_failed -> applying (retry) ... -> needs_manual -> resolved
type CheckoutStatus string

const (
	CheckoutStatusPending     CheckoutStatus = "pending"
	CheckoutStatusPaid        CheckoutStatus = "paid"
	CheckoutStatusApplying    CheckoutStatus = "applying"
	CheckoutStatusApplied     CheckoutStatus = "applied"
	CheckoutStatusFailed      CheckoutStatus = "failed"
	CheckoutStatusApplyFailed CheckoutStatus = "apply_failed"
	CheckoutStatusNeedsManual CheckoutStatus = "needs_manual"
	CheckoutStatusResolved    CheckoutStatus = "resolved"
)

// Terminal reports whether no further automatic transition will happen.
// A failed checkout only moves again if the user pays the same intent later.
func (s CheckoutStatus) Terminal() bool {
	switch s {
	case CheckoutStatusApplied, CheckoutStatusFailed, CheckoutStatusNeedsManual, CheckoutStatusResolved:
		return true
	}
	return false
}

// Unreconciled reports whether the user was charged without the entitlement applied.
func (s CheckoutStatus) Unreconciled() bool {
	return s == CheckoutStatusApplyFailed || s == CheckoutStatusNeedsManual
}

// Checkout is one row of the checkout ledger.
type Checkout struct {
	ID              uuid.UUID      `json:"id"`
	IdempotencyKey  string         `json:"idempotencyKey"`
	UserID          string         `json:"userId"`
	Kind            CheckoutKind   `json:"kind"`
	PlanID          string         `json:"planId"`
	TeamSize        int            `json:"teamSize,omitempty"`
	AmountCents     int64          `json:"amountCents"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	ClientSecret    string         `json:"-"`
	SessionID       string         `json:"-"`
	Status          CheckoutStatus `json:"status"`
	Attempts        int            `json:"attempts"`
	LastError       string         `json:"lastError,omitempty"`
	ResolutionNote  string         `json:"resolutionNote,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// CreateCheckoutRequest starts a checkout.
type CreateCheckoutRequest struct {
	Kind     CheckoutKind `json:"kind" binding:"required,oneof=subscribe change_plan add_seats"`
	PlanID   string       `json:"planId" binding:"required,max=64"`
	TeamSize int          `json:"teamSize" binding:"omitempty,min=1,max=10000"`
}

// CheckoutIntent is returned to the browser so it can confirm the card payment.
type CheckoutIntent struct {
	Checkout     *Checkout `json:"checkout"`
	ClientSecret string    `json:"clientSecret,omitempty"`
}

// ConfirmCheckoutRequest reports the payment intent the widget confirmed.
type ConfirmCheckoutRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required,max=255"`
}

// ResolveCheckoutRequest closes an unreconciled checkout by hand.
type ResolveCheckoutRequest struct {
	Note string `json:"note" binding:"required,min=3,max=2000"`
}

// CheckoutEvent is published on every status change.
type CheckoutEvent struct {
	CheckoutID uuid.UUID      `json:"checkoutId"`
	Status     CheckoutStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	At         time.Time      `json:"at"`
}

// PaymentIntentRequest is the body of /payment/create-payment-intent.
type PaymentIntentRequest struct {
	Amount int64 `json:"amount"`
}

// PaymentIntentResponse carries the widget secret.
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
}

// IntentID returns the payment intent id, deriving it from the client secret
// ("pi_..._secret_...") when the backend does not return it separately.
func (r PaymentIntentResponse) IntentID() string {
	if r.PaymentIntentID != "" {
		return r.PaymentIntentID
	}
	if i := strings.Index(r.ClientSecret, "_secret_"); i > 0 {
		return r.ClientSecret[:i]
	}
	return ""
}

// EntitlementRequest is the body of the subscribe/update-plan/add-team-members calls.
type EntitlementRequest struct {
	SubscriptionPlanID string `json:"subscriptionPlanId,omitempty"`
	TeamSize           int    `json:"teamSize,omitempty"`
}
