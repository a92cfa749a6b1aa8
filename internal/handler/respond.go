package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/middleware"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/payment"
	"github.com/stemsi/quizdesk-portal/internal/pricing"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
	"github.com/stemsi/quizdesk-portal/internal/session"
	"github.com/stemsi/quizdesk-portal/internal/validator"
)

type errMapping struct {
	target error
	status int
	code   response.ErrCode
}

var errMappings = []errMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrSubscriptionRequired, http.StatusForbidden, response.ErrSubscriptionRequired},

	{service.ErrQuizNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrResultNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrAttemptNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrSubmitInFlight, http.StatusConflict, response.ErrSubmitInFlight},
	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{service.ErrAttemptNotReady, http.StatusConflict, response.ErrAttemptNotReady},
	{model.ErrUnknownQuestion, http.StatusBadRequest, response.ErrInvalidPayload},
	{model.ErrInvalidOption, http.StatusBadRequest, response.ErrInvalidPayload},

	{service.ErrCheckoutNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrPlanNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrIdempotencyKeyReuse, http.StatusConflict, response.ErrIdempotencyKeyReused},
	{service.ErrPaymentMismatch, http.StatusBadRequest, response.ErrInvalidPayload},
	{service.ErrPaymentNotSucceeded, http.StatusPaymentRequired, response.ErrPaymentFailed},
	{service.ErrEntitlementPending, http.StatusAccepted, response.ErrEntitlementPending},
	{service.ErrPaymentPending, http.StatusAccepted, response.ErrPaymentPending},
	{service.ErrCheckoutState, http.StatusConflict, response.ErrCheckoutState},
	{service.ErrInvalidPrice, http.StatusBadRequest, response.ErrValidation},
	{pricing.ErrTeamSize, http.StatusBadRequest, response.ErrValidation},
	{pricing.ErrNotTeamPlan, http.StatusBadRequest, response.ErrValidation},
	{pricing.ErrNegativeCost, http.StatusBadRequest, response.ErrValidation},

	{payment.ErrNotConfigured, http.StatusServiceUnavailable, response.ErrPaymentUnavailable},
	{payment.ErrBadSignature, http.StatusBadRequest, response.ErrInvalidPayload},

	{session.ErrNotFound, http.StatusUnauthorized, response.ErrSessionInvalidated},
}

// failWith maps a service error onto the response envelope.
func failWith(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

// classify picks the status and code for err.
// Anything unrecognised is a 500; backend failures keep the generic wording.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}

	var se *backend.StatusError
	if errors.As(err, &se) {
		switch {
		case backend.IsNotFound(err):
			return http.StatusNotFound, response.ErrNotFound
		case backend.IsUnauthorized(err):
			return http.StatusUnauthorized, response.ErrUnauthorized
		default:
			return http.StatusBadGateway, response.ErrBackend
		}
	}
	if errors.Is(err, backend.ErrTransport) {
		return http.StatusBadGateway, response.ErrBackend
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// bind decodes the JSON body and writes the validation failure if any.
func bind(c *gin.Context, dst interface{}) bool {
	if fields := validator.Bind(c, dst); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return false
	}
	return true
}

// currentSession returns the session loaded by middleware, failing the request if absent.
func currentSession(c *gin.Context) (*session.Record, bool) {
	rec := middleware.GetSession(c)
	if rec == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return rec, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// backendIDParam validates an opaque backend id path segment.
func backendIDParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if id == "" || len(id) > 64 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id, true
}
