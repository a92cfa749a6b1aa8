package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// UserHandler handles user administration and team membership.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers godoc
// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	users, err := h.userService.List(c.Request.Context(), rec.Token)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// DeleteUser godoc
// DELETE /api/v1/admin/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	users, err := h.userService.Delete(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// ListTeam godoc
// GET /api/v1/team
func (h *UserHandler) ListTeam(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	members, err := h.userService.Team(c.Request.Context(), rec)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}

// AddTeamMember godoc
// POST /api/v1/team/members
func (h *UserHandler) AddTeamMember(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.AddTeamMemberRequest
	if !bind(c, &req) {
		return
	}

	members, err := h.userService.AddMember(c.Request.Context(), rec, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"members": members})
}

// RemoveTeamMember godoc
// DELETE /api/v1/team/members/:member_id
func (h *UserHandler) RemoveTeamMember(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	memberID, ok := backendIDParam(c, "member_id")
	if !ok {
		return
	}

	members, err := h.userService.RemoveMember(c.Request.Context(), rec, memberID)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}
