package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// QuestionType enumerates how a question is answered.
type QuestionType string

const (
	QuestionTypeMCQ QuestionType = "mcq"
	QuestionTypeQnA QuestionType = "q&a"
)

// AnswerValue holds an answer that the backend may encode either as a JSON
// number (mcq option index) or a JSON string (free text).
type AnswerValue string

// UnmarshalJSON accepts both numbers and strings.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AnswerValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = AnswerValue(n.String())
	return nil
}

// Index returns the answer as an option index.
func (a AnswerValue) Index() (int, bool) {
	n, err := strconv.Atoi(string(a))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FlexID is an id the backend sends as a number on generated drafts and as a
// string everywhere else.
type FlexID string

// UnmarshalJSON accepts both numbers and strings.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var v AnswerValue
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = FlexID(v)
	return nil
}

// Question is one quiz question.
type Question struct {
	ID            FlexID       `json:"id,omitempty"`
	MongoID       string       `json:"_id,omitempty"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer AnswerValue  `json:"correctAnswer,omitempty"`
	Type          QuestionType `json:"type,omitempty"`
}

// Identity returns whichever id form the backend populated.
func (q Question) Identity() string {
	if q.MongoID != "" {
		return q.MongoID
	}
	return string(q.ID)
}

// Kind resolves the question type, treating option-bearing untyped questions as mcq.
func (q Question) Kind() QuestionType {
	if q.Type != "" {
		return q.Type
	}
	if len(q.Options) > 0 {
		return QuestionTypeMCQ
	}
	return QuestionTypeQnA
}

// Public strips the correct answer before a question is shown to a quiz taker.
func (q Question) Public() Question {
	q.ID = FlexID(q.Identity())
	q.Type = q.Kind()
	q.CorrectAnswer = ""
	return q
}

// Quiz is a saved quiz with its questions.
type Quiz struct {
	ID        string     `json:"id,omitempty"`
	MongoID   string     `json:"_id,omitempty"`
	Title     string     `json:"title"`
	JobArea   string     `json:"jobArea,omitempty"`
	Vertical  string     `json:"vertical,omitempty"`
	CreatedBy string     `json:"createdBy,omitempty"`
	Questions []Question `json:"questions"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Identity returns whichever id form the backend populated.
func (q Quiz) Identity() string {
	if q.ID != "" {
		return q.ID
	}
	return q.MongoID
}

// Normalize copies the backend's id into ID.
func (q *Quiz) Normalize() { q.ID = q.Identity() }

// QuizSummary is a row of the quiz list views.
type QuizSummary struct {
	ID            string     `json:"id,omitempty"`
	MongoID       string     `json:"_id,omitempty"`
	Title         string     `json:"title,omitempty"`
	Name          string     `json:"name,omitempty"`
	QuestionCount int        `json:"questionCount"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

// Identity returns whichever id form the backend populated.
func (q QuizSummary) Identity() string {
	if q.ID != "" {
		return q.ID
	}
	return q.MongoID
}

// Normalize copies the backend's id into ID.
func (q *QuizSummary) Normalize() { q.ID = q.Identity() }

// GenerateQuizRequest asks the backend to draft questions for a job description.
type GenerateQuizRequest struct {
	JobDescription string       `json:"jobDescription" binding:"required,min=10,max=5000"`
	NumQuestions   int          `json:"numQuestions" binding:"required,min=1,max=50"`
	Type           QuestionType `json:"type" binding:"omitempty,oneof=mcq q&a"`
}

// GeneratedQuiz is the backend's generation response.
type GeneratedQuiz struct {
	Questions []Question `json:"questions"`
}

// SaveQuizRequest persists a (possibly edited) generated quiz.
type SaveQuizRequest struct {
	Title     string     `json:"title" binding:"required,min=2,max=200"`
	JobArea   string     `json:"jobArea" binding:"omitempty,max=200"`
	Vertical  string     `json:"vertical" binding:"omitempty,max=64"`
	Questions []Question `json:"questions" binding:"required,min=1,dive"`
}

// AnswerEntry is one element of a submission batch. Answer is always a string.
type AnswerEntry struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// SubmitQuizRequest is the body of POST /quiz/submit.
type SubmitQuizRequest struct {
	QuizID  string        `json:"quizId"`
	Answers []AnswerEntry `json:"answers"`
}

// SubmitQuizResponse carries the backend's score.
type SubmitQuizResponse struct {
	Score    float64 `json:"score"`
	ResultID string  `json:"resultId,omitempty"`
}

// ResultQuizRef is the populated quiz reference on a result row.
type ResultQuizRef struct {
	ID    string `json:"_id,omitempty"`
	Title string `json:"title"`
}

// ResultSummary is a row of /quiz/results/user/:id.
type ResultSummary struct {
	ID        string        `json:"_id"`
	Quiz      ResultQuizRef `json:"quizId"`
	Score     float64       `json:"score"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
}

// CandidateResult is the portal's flattened result row.
type CandidateResult struct {
	ID            string     `json:"id"`
	TestName      string     `json:"testName"`
	CandidateName string     `json:"candidateName"`
	Email         string     `json:"email"`
	Score         float64    `json:"score"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// QuestionResult is one row of a precomputed per-question breakdown.
type QuestionResult struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer string   `json:"selectedAnswer"`
	CorrectAnswer  string   `json:"correctAnswer"`
	IsCorrect      bool     `json:"isCorrect"`
}

// ResultDetail is /quiz/results/result/:id.
type ResultDetail struct {
	ID              string           `json:"_id,omitempty"`
	Score           float64          `json:"score"`
	DetailedResults []QuestionResult `json:"detailedResults"`
}
