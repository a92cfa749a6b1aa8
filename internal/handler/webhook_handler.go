package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/payment"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// maxWebhookBody caps processor payloads. Stripe events are well under this.
const maxWebhookBody = 64 << 10

// WebhookParser verifies and decodes processor callbacks.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// WebhookHandler receives payment processor callbacks.
type WebhookHandler struct {
	parser          WebhookParser
	checkoutService *service.CheckoutService
	log             zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(parser WebhookParser, checkoutService *service.CheckoutService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		parser:          parser,
		checkoutService: checkoutService,
		log:             log.With().Str("component", "webhook_handler").Logger(),
	}
}

// PaymentWebhook godoc
// POST /webhooks/payments
// Settles checkouts whose intent succeeded even if the browser never confirmed.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	event, err := h.parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.Warn().Err(err).Msg("Rejected payment webhook")
		failWith(c, err)
		return
	}

	if event.Type != payment.EventIntentSucceeded || event.Intent == nil {
		response.Success(c, http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.checkoutService.HandleIntentSucceeded(c.Request.Context(), event.Intent.ID); err != nil {
		// A non-2xx makes the processor redeliver.
		if errors.Is(err, service.ErrPaymentPending) {
			h.log.Info().Str("event_id", event.ID).Str("payment_intent_id", event.Intent.ID).Msg("Payment not settled yet, asking for redelivery")
			response.Fail(c, http.StatusConflict, response.ErrPaymentPending)
			return
		}
		h.log.Error().Err(err).Str("event_id", event.ID).Str("payment_intent_id", event.Intent.ID).Msg("Payment webhook handling failed")
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"received": true})
}
