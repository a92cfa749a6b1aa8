package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrUnauthorized       ErrCode = "UNAUTHORIZED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrPermissionDenied     ErrCode = "PERMISSION_DENIED"
	ErrSubscriptionRequired ErrCode = "SUBSCRIPTION_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation             ErrCode = "VALIDATION_ERROR"
	ErrInvalidID              ErrCode = "INVALID_ID"
	ErrInvalidPayload         ErrCode = "INVALID_PAYLOAD"
	ErrIdempotencyKeyRequired ErrCode = "IDEMPOTENCY_KEY_REQUIRED"
	ErrIdempotencyKeyReused   ErrCode = "IDEMPOTENCY_KEY_REUSED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz attempts ─────────────────────────────────────────────────
	ErrSubmitInFlight   ErrCode = "SUBMIT_IN_FLIGHT"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrAttemptNotReady  ErrCode = "ATTEMPT_NOT_READY"

	// ─── Billing ───────────────────────────────────────────────────────
	ErrPaymentFailed      ErrCode = "PAYMENT_FAILED"
	ErrPaymentPending     ErrCode = "PAYMENT_PENDING"
	ErrEntitlementPending ErrCode = "ENTITLEMENT_PENDING"
	ErrCheckoutState      ErrCode = "CHECKOUT_STATE"
	ErrPaymentUnavailable ErrCode = "PAYMENT_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrBackend ErrCode = "BACKEND_ERROR"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrUnauthorized:
		return "You are not signed in."

	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrSubscriptionRequired:
		return "An active subscription is required for this action."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrIdempotencyKeyRequired:
		return "An Idempotency-Key header with a UUID is required."
	case ErrIdempotencyKeyReused:
		return "This Idempotency-Key was already used for a different request."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	case ErrSubmitInFlight:
		return "Your answers are already being submitted."
	case ErrAlreadySubmitted:
		return "This quiz attempt has already been submitted."
	case ErrAttemptNotReady:
		return "This quiz attempt is not accepting answers."

	case ErrPaymentFailed:
		return "Payment failed. Please try again."
	case ErrPaymentPending:
		return "Payment is still processing. We will update your plan once it clears."
	case ErrEntitlementPending:
		return "Payment received. Your plan will be updated shortly."
	case ErrCheckoutState:
		return "This checkout cannot be changed in its current state."
	case ErrPaymentUnavailable:
		return "Payments are not available right now."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrBackend:
		return "Failed to reach the quiz service. Please try again."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
