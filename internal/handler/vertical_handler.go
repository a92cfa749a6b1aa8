package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// VerticalHandler handles industry vertical management.
type VerticalHandler struct {
	verticalService *service.VerticalService
}

// NewVerticalHandler creates a new VerticalHandler.
func NewVerticalHandler(verticalService *service.VerticalService) *VerticalHandler {
	return &VerticalHandler{verticalService: verticalService}
}

// ListVerticals godoc
// GET /api/v1/verticals
func (h *VerticalHandler) ListVerticals(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	verticals, err := h.verticalService.List(c.Request.Context(), rec.Token)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verticals": verticals})
}

// CreateVertical godoc
// POST /api/v1/admin/verticals
func (h *VerticalHandler) CreateVertical(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.VerticalRequest
	if !bind(c, &req) {
		return
	}

	vertical, err := h.verticalService.Create(c.Request.Context(), rec.Token, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, vertical)
}

// UpdateVertical godoc
// PUT /api/v1/admin/verticals/:id
func (h *VerticalHandler) UpdateVertical(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}
	var req model.VerticalRequest
	if !bind(c, &req) {
		return
	}

	vertical, err := h.verticalService.Update(c.Request.Context(), rec.Token, id, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, vertical)
}

// DeleteVertical godoc
// DELETE /api/v1/admin/verticals/:id
func (h *VerticalHandler) DeleteVertical(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	verticals, err := h.verticalService.Delete(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verticals": verticals})
}
