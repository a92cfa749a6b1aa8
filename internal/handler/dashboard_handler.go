package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/middleware"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// DashboardHandler serves the dashboard home and the sidebar menu.
type DashboardHandler struct {
	dashboardService  *service.DashboardService
	navigationService *service.NavigationService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, navigationService *service.NavigationService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService:  dashboardService,
		navigationService: navigationService,
	}
}

// GetDashboard godoc
// GET /api/v1/dashboard
// Admins get platform stats, everyone else gets their own.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	dash, err := h.dashboardService.Get(c.Request.Context(), rec.Token, rec.Role)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, dash)
}

// GetNavigation godoc
// GET /api/v1/navigation
func (h *DashboardHandler) GetNavigation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, h.navigationService.For(claims))
}
