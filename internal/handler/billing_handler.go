package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// BillingHandler serves the billing page and subscription status.
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// GetOverview godoc
// GET /api/v1/billing
// Returns billing details, invoices and the plan catalog in one payload.
func (h *BillingHandler) GetOverview(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	overview, err := h.billingService.Overview(c.Request.Context(), rec.Token)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, overview)
}

// GetSubscription godoc
// GET /api/v1/billing/subscription
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	status, err := h.billingService.Subscription(c.Request.Context(), rec)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// CancelSubscription godoc
// POST /api/v1/billing/cancel
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	if err := h.billingService.Cancel(c.Request.Context(), rec); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
