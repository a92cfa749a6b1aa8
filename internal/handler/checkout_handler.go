package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/middleware"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

const keepAliveInterval = 30 * time.Second

// CheckoutHandler handles the checkout ledger endpoints.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	log             zerolog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *service.CheckoutService, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		log:             log.With().Str("component", "checkout_handler").Logger(),
	}
}

// CreateCheckout godoc
// POST /api/v1/checkouts
// Requires an Idempotency-Key header. Repeating the key returns the same checkout.
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.CreateCheckoutRequest
	if !bind(c, &req) {
		return
	}

	intent, err := h.checkoutService.Create(c.Request.Context(), rec, middleware.GetIdempotencyKey(c), req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, intent)
}

// GetCheckout godoc
// GET /api/v1/checkouts/:id
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	checkout, err := h.checkoutService.Get(c.Request.Context(), rec, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, checkout)
}

// ConfirmCheckout godoc
// POST /api/v1/checkouts/:id/confirm
// Called after the payment widget succeeds. The intent is verified with the processor.
func (h *CheckoutHandler) ConfirmCheckout(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.ConfirmCheckoutRequest
	if !bind(c, &req) {
		return
	}

	checkout, err := h.checkoutService.Confirm(c.Request.Context(), rec, id, req.PaymentIntentID)
	h.respondSettled(c, checkout, err)
}

// respondSettled reports a checkout that moved through settlement.
// Charged-but-not-entitled, still-processing and declined payments still
// return the ledger row.
func (h *CheckoutHandler) respondSettled(c *gin.Context, checkout *model.Checkout, err error) {
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, checkout)
	case errors.Is(err, service.ErrEntitlementPending) && checkout != nil:
		response.FailWithData(c, http.StatusAccepted, response.ErrEntitlementPending, checkout)
	case errors.Is(err, service.ErrPaymentPending) && checkout != nil:
		response.FailWithData(c, http.StatusAccepted, response.ErrPaymentPending, checkout)
	case errors.Is(err, service.ErrPaymentNotSucceeded) && checkout != nil:
		response.FailWithData(c, http.StatusPaymentRequired, response.ErrPaymentFailed, checkout)
	default:
		failWith(c, err)
	}
}

// StreamCheckoutEvents godoc
// GET /api/v1/checkouts/:id/events
// Server-sent stream of status changes. The current status is sent first.
func (h *CheckoutHandler) StreamCheckoutEvents(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	// Subscribe before reading the row so no transition slips between them.
	pubsub := h.checkoutService.Subscribe(reqCtx, id)
	defer pubsub.Close()

	checkout, err := h.checkoutService.Get(reqCtx, rec, id)
	if err != nil {
		failWith(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	initial, _ := json.Marshal(model.CheckoutEvent{
		CheckoutID: checkout.ID,
		Status:     checkout.Status,
		Error:      checkout.LastError,
		At:         checkout.UpdatedAt,
	})
	writeSSE(c, initial)
	if checkout.Status.Terminal() {
		return
	}

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Debug().Str("checkout_id", id.String()).Msg("Client attached to checkout events")

	for {
		select {
		case <-reqCtx.Done():
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			writeSSE(c, []byte(msg.Payload))

			var ev model.CheckoutEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err == nil && ev.Status.Terminal() {
				return
			}

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

func writeSSE(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

// ListUnreconciled godoc
// GET /api/v1/admin/checkouts/unreconciled
// Checkouts that were charged but whose entitlement never landed.
func (h *CheckoutHandler) ListUnreconciled(c *gin.Context) {
	checkouts, err := h.checkoutService.Unreconciled(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	if checkouts == nil {
		checkouts = []model.Checkout{}
	}

	response.Success(c, http.StatusOK, gin.H{"checkouts": checkouts})
}

// RetryCheckout godoc
// POST /api/v1/admin/checkouts/:id/retry
func (h *CheckoutHandler) RetryCheckout(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	checkout, err := h.checkoutService.Retry(c.Request.Context(), rec, id)
	h.respondSettled(c, checkout, err)
}

// ResolveCheckout godoc
// POST /api/v1/admin/checkouts/:id/resolve
func (h *CheckoutHandler) ResolveCheckout(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.ResolveCheckoutRequest
	if !bind(c, &req) {
		return
	}

	checkout, err := h.checkoutService.Resolve(c.Request.Context(), rec, id, req.Note)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, checkout)
}
