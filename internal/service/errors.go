package service

import "errors"

// Workflow errors surfaced to handlers.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionInvalidated   = errors.New("session is no longer active")
	ErrSubscriptionRequired = errors.New("an active subscription is required")

	ErrQuizNotFound     = errors.New("quiz not found")
	ErrResultNotFound   = errors.New("result not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrSubmitInFlight   = errors.New("submission already in flight")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptNotReady  = errors.New("attempt is not accepting answers")

	ErrCheckoutNotFound    = errors.New("checkout not found")
	ErrPlanNotFound        = errors.New("subscription plan not found")
	ErrIdempotencyKeyReuse = errors.New("idempotency key reused with a different request")
	ErrPaymentMismatch     = errors.New("payment intent does not belong to checkout")
	ErrPaymentNotSucceeded = errors.New("payment did not succeed")
	ErrPaymentPending      = errors.New("payment has not settled yet")
	ErrEntitlementPending  = errors.New("payment captured but entitlement not yet applied")
	ErrCheckoutState       = errors.New("checkout is not in a state that allows this action")
)
