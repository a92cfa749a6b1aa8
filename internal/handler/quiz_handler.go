package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// QuizHandler handles quiz authoring, listing and results.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// ListQuizzes godoc
// GET /api/v1/quizzes
// Returns the caller's quizzes.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	quizzes, err := h.quizService.List(c.Request.Context(), rec.Token)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// ListAllQuizzes godoc
// GET /api/v1/admin/quizzes
func (h *QuizHandler) ListAllQuizzes(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	quizzes, err := h.quizService.ListAll(c.Request.Context(), rec.Token)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// GetQuiz godoc
// GET /api/v1/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

// DeleteQuiz godoc
// DELETE /api/v1/quizzes/:id
// Returns the caller's quizzes without the deleted one.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	quizzes, err := h.quizService.Delete(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// DeleteAnyQuiz godoc
// DELETE /api/v1/admin/quizzes/:id
func (h *QuizHandler) DeleteAnyQuiz(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	quizzes, err := h.quizService.DeleteAny(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// GenerateQuiz godoc
// POST /api/v1/quizzes/generate
// Asks the backend to draft questions from a job description. Nothing is saved.
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.GenerateQuizRequest
	if !bind(c, &req) {
		return
	}

	generated, err := h.quizService.Generate(c.Request.Context(), rec, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, generated)
}

// SaveQuiz godoc
// POST /api/v1/quizzes
func (h *QuizHandler) SaveQuiz(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.SaveQuizRequest
	if !bind(c, &req) {
		return
	}

	quiz, err := h.quizService.Save(c.Request.Context(), rec.Token, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, quiz)
}

// ShareQuiz godoc
// GET /api/v1/quizzes/:id/share
func (h *QuizHandler) ShareQuiz(c *gin.Context) {
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, h.quizService.Share(id))
}

// ListResults godoc
// GET /api/v1/results
// Returns the candidate results for quizzes the caller owns.
func (h *QuizHandler) ListResults(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	results, err := h.quizService.Results(c.Request.Context(), rec)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// GetResult godoc
// GET /api/v1/results/:id
func (h *QuizHandler) GetResult(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := backendIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.quizService.Result(c.Request.Context(), rec.Token, id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
