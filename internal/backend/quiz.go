package backend

import (
	"context"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

// ListQuizzes returns the caller's quizzes.
func (c *Client) ListQuizzes(ctx context.Context, token string) ([]model.QuizSummary, error) {
	return c.listQuizzes(ctx, token, "/quiz")
}

// ListAllQuizzes returns every quiz (admin).
func (c *Client) ListAllQuizzes(ctx context.Context, token string) ([]model.QuizSummary, error) {
	return c.listQuizzes(ctx, token, "/quiz/all")
}

func (c *Client) listQuizzes(ctx context.Context, token, endpoint string) ([]model.QuizSummary, error) {
	var quizzes []model.QuizSummary
	if err := c.Request(ctx, token, http.MethodGet, endpoint, nil, &quizzes); err != nil {
		return nil, err
	}
	for i := range quizzes {
		quizzes[i].Normalize()
	}
	return quizzes, nil
}

// GetQuiz loads a quiz with its questions.
func (c *Client) GetQuiz(ctx context.Context, token, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := c.Request(ctx, token, http.MethodGet, "/quiz/"+seg(id), nil, &quiz); err != nil {
		return nil, err
	}
	quiz.Normalize()
	return &quiz, nil
}

// DeleteQuiz removes a quiz.
func (c *Client) DeleteQuiz(ctx context.Context, token, id string) error {
	return c.Request(ctx, token, http.MethodDelete, "/quiz/"+seg(id), nil, nil)
}

type generateBody struct {
	JobDescription string `json:"jobDescription"`
	NumQuestions   int    `json:"numQuestions"`
}

// GenerateQuiz drafts questions. mcq and q&a use different endpoints.
func (c *Client) GenerateQuiz(ctx context.Context, token string, qt model.QuestionType, jobDescription string, numQuestions int) (*model.GeneratedQuiz, error) {
	endpoint := "/quiz/generate"
	if qt == model.QuestionTypeQnA {
		endpoint = "/quiz/generate-qna"
	}
	var out model.GeneratedQuiz
	body := generateBody{JobDescription: jobDescription, NumQuestions: numQuestions}
	if err := c.Request(ctx, token, http.MethodPost, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveQuiz persists a quiz. body is the wire form prepared by the caller.
func (c *Client) SaveQuiz(ctx context.Context, token string, body interface{}) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := c.Request(ctx, token, http.MethodPost, "/quiz/save", body, &quiz); err != nil {
		return nil, err
	}
	quiz.Normalize()
	return &quiz, nil
}

// SubmitQuiz sends an answer batch for scoring.
func (c *Client) SubmitQuiz(ctx context.Context, token string, req model.SubmitQuizRequest) (*model.SubmitQuizResponse, error) {
	var out model.SubmitQuizResponse
	if err := c.Request(ctx, token, http.MethodPost, "/quiz/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResults returns a user's submitted results.
func (c *Client) ListResults(ctx context.Context, token, userID string) ([]model.ResultSummary, error) {
	var results []model.ResultSummary
	if err := c.Request(ctx, token, http.MethodGet, "/quiz/results/user/"+seg(userID), nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetResult returns the per-question breakdown of one result.
func (c *Client) GetResult(ctx context.Context, token, resultID string) (*model.ResultDetail, error) {
	var out model.ResultDetail
	if err := c.Request(ctx, token, http.MethodGet, "/quiz/results/result/"+seg(resultID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
