package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// AttemptHandler handles the quiz-taking endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttempt godoc
// POST /api/v1/quizzes/:id/attempts
// Loads the quiz and opens a fresh attempt. Earlier attempts are not resumed.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	quizID, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.attemptService.Start(c.Request.Context(), rec, quizID)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.attemptService.Get(c.Request.Context(), rec.User.UserID, attemptID.String())
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// RecordAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answers/:question_id
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := backendIDParam(c, "question_id")
	if !ok {
		return
	}
	var req model.RecordAnswerRequest
	if !bind(c, &req) {
		return
	}

	view, err := h.attemptService.Answer(c.Request.Context(), rec.User.UserID, attemptID.String(), questionID, string(req.Answer))
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Sends the answers to the backend for grading. Only one submission may be in flight.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.attemptService.Submit(c.Request.Context(), rec, attemptID.String())
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
