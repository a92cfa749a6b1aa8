package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// PlanHandler handles subscription plan management.
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// ListPlans godoc
// GET /api/v1/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	plans, err := h.planService.List(c.Request.Context(), rec.Token)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"plans": plans})
}

// CreatePlan godoc
// POST /api/v1/admin/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.CreatePlanRequest
	if !bind(c, &req) {
		return
	}

	plan, err := h.planService.Create(c.Request.Context(), rec.Token, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, plan)
}

// UpdatePlan godoc
// PUT /api/v1/admin/plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}
	var req model.UpdatePlanRequest
	if !bind(c, &req) {
		return
	}

	plan, err := h.planService.Update(c.Request.Context(), rec.Token, id, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, plan)
}

// DeletePlan godoc
// DELETE /api/v1/admin/plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	plans, err := h.planService.Delete(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"plans": plans})
}
