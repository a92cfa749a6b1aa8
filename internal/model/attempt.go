package model

import (
	"errors"
	"strconv"
	"time"
)

// AttemptState enumerates the quiz-taking workflow states.
//
//	loading -> ready -> submitting -> completed
//	loading -> not_found
//
// submitting falls back to ready when the backend rejects a submission.
type AttemptState string

const (
	AttemptStateLoading    AttemptState = "loading"
	AttemptStateNotFound   AttemptState = "not_found"
	AttemptStateReady      AttemptState = "ready"
	AttemptStateSubmitting AttemptState = "submitting"
	AttemptStateCompleted  AttemptState = "completed"
)

// Answer validation errors.
var (
	ErrUnknownQuestion = errors.New("question is not part of this quiz")
	ErrInvalidOption   = errors.New("option index out of range")
)

// Attempt is one in-progress or finished run through a quiz.
type Attempt struct {
	ID          string       `json:"id"`
	QuizID      string       `json:"quizId"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Questions   []Question   `json:"questions"`
	State       AttemptState `json:"state"`
	Score       *float64     `json:"score,omitempty"`
	Total       int          `json:"total"`
	ResultID    string       `json:"resultId,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// AttemptView is what the taker sees: the attempt plus its answers so far.
type AttemptView struct {
	*Attempt
	Answers map[string]string `json:"answers"`
}

// NewAttempt builds a ready attempt from a loaded quiz. Correct answers are
// stripped from the copy held by the attempt.
func NewAttempt(id, userID string, quiz *Quiz, now time.Time) *Attempt {
	questions := make([]Question, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, q.Public())
	}
	return &Attempt{
		ID:        id,
		QuizID:    quiz.Identity(),
		UserID:    userID,
		Title:     quiz.Title,
		Questions: questions,
		State:     AttemptStateReady,
		Total:     len(questions),
		StartedAt: now,
	}
}

// Question looks up a question by id.
func (a *Attempt) Question(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.Identity() == id {
			return q, true
		}
	}
	return Question{}, false
}

// NormalizeAnswer converts a raw answer into the string form that is submitted:
// the decimal option index for mcq, the raw text for q&a.
func (a *Attempt) NormalizeAnswer(questionID, raw string) (string, error) {
	q, ok := a.Question(questionID)
	if !ok {
		return "", ErrUnknownQuestion
	}
	if q.Kind() != QuestionTypeMCQ {
		return raw, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= len(q.Options) {
		return "", ErrInvalidOption
	}
	return strconv.Itoa(idx), nil
}

// BuildSubmission turns the answer map into the submission batch. Only answered
// questions are included, in question order.
func (a *Attempt) BuildSubmission(answers map[string]string) SubmitQuizRequest {
	req := SubmitQuizRequest{QuizID: a.QuizID, Answers: make([]AnswerEntry, 0, len(answers))}
	for _, q := range a.Questions {
		id := q.Identity()
		ans, ok := answers[id]
		if !ok {
			continue
		}
		req.Answers = append(req.Answers, AnswerEntry{QuestionID: id, Answer: ans})
	}
	return req
}

// RecordAnswerRequest is the payload for answering one question.
type RecordAnswerRequest struct {
	Answer AnswerValue `json:"answer" binding:"max=10000"`
}
