package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/listing"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// defaultJobArea is what the create-test flow has always saved when no job area is given.
const defaultJobArea = "Job Role"

// ShareLink is the public take-test URL for a quiz.
type ShareLink struct {
	QuizID string `json:"quizId"`
	URL    string `json:"url"`
}

// QuizService handles quiz authoring, listing and results.
type QuizService struct {
	api          *backend.Client
	shareBaseURL string
	log          zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(api *backend.Client, shareBaseURL string, log zerolog.Logger) *QuizService {
	return &QuizService{
		api:          api,
		shareBaseURL: shareBaseURL,
		log:          log.With().Str("component", "quiz_service").Logger(),
	}
}

// List returns the caller's quizzes.
func (s *QuizService) List(ctx context.Context, token string) ([]model.QuizSummary, error) {
	quizzes, err := s.api.ListQuizzes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// ListAll returns every user's quizzes (admin).
func (s *QuizService) ListAll(ctx context.Context, token string) ([]model.QuizSummary, error) {
	quizzes, err := s.api.ListAllQuizzes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list all quizzes: %w", err)
	}
	return quizzes, nil
}

// Get returns a quiz with its answer key, for the author's preview.
func (s *QuizService) Get(ctx context.Context, token, id string) (*model.Quiz, error) {
	quiz, err := s.api.GetQuiz(ctx, token, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

// Delete removes one of the caller's quizzes and returns the remaining ones.
func (s *QuizService) Delete(ctx context.Context, token, id string) ([]model.QuizSummary, error) {
	quizzes, err := s.List(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.delete(ctx, token, quizzes, id)
}

// DeleteAny removes any user's quiz (admin) and returns the remaining ones.
func (s *QuizService) DeleteAny(ctx context.Context, token, id string) ([]model.QuizSummary, error) {
	quizzes, err := s.ListAll(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.delete(ctx, token, quizzes, id)
}

func (s *QuizService) delete(ctx context.Context, token string, quizzes []model.QuizSummary, id string) ([]model.QuizSummary, error) {
	remaining, err := listing.Delete(ctx, quizzes, id, func(ctx context.Context, id string) error {
		return s.api.DeleteQuiz(ctx, token, id)
	})
	if err != nil {
		return remaining, fmt.Errorf("delete quiz: %w", err)
	}
	s.log.Info().Str("quiz_id", id).Msg("Quiz deleted")
	return remaining, nil
}

// Generate drafts questions for a job description. Only subscribed users may
// generate. mcq answer keys come back 1-based and are shifted to 0-based here.
func (s *QuizService) Generate(ctx context.Context, rec *session.Record, req model.GenerateQuizRequest) (*model.GeneratedQuiz, error) {
	if rec.Role != model.RoleAdmin {
		status, err := s.api.SubscriptionStatus(ctx, rec.Token, rec.User.UserID)
		if err != nil {
			return nil, fmt.Errorf("subscription status: %w", err)
		}
		if !status.IsSubscribed {
			return nil, ErrSubscriptionRequired
		}
	}

	qt := req.Type
	if qt == "" {
		qt = model.QuestionTypeMCQ
	}
	draft, err := s.api.GenerateQuiz(ctx, rec.Token, qt, req.JobDescription, req.NumQuestions)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	for i := range draft.Questions {
		q := &draft.Questions[i]
		q.Type = qt
		if qt != model.QuestionTypeMCQ {
			continue
		}
		if idx, ok := q.CorrectAnswer.Index(); ok {
			q.CorrectAnswer = model.AnswerValue(fmt.Sprint(idx - 1))
		}
	}

	s.log.Info().Str("user_id", rec.User.UserID).Str("type", string(qt)).Int("questions", len(draft.Questions)).Msg("Quiz drafted")
	return draft, nil
}

type savedQuestion struct {
	ID            model.FlexID       `json:"id,omitempty"`
	Text          string             `json:"text"`
	Options       []string           `json:"options,omitempty"`
	CorrectAnswer interface{}        `json:"correctAnswer"`
	Type          model.QuestionType `json:"type"`
}

type saveQuizBody struct {
	Title     string          `json:"title"`
	JobArea   string          `json:"jobArea"`
	Vertical  string          `json:"vertical,omitempty"`
	Questions []savedQuestion `json:"questions"`
}

// Save persists a drafted quiz. mcq answer keys are sent as numbers, q&a as text.
func (s *QuizService) Save(ctx context.Context, token string, req model.SaveQuizRequest) (*model.Quiz, error) {
	body := saveQuizBody{
		Title:     req.Title,
		JobArea:   req.JobArea,
		Vertical:  req.Vertical,
		Questions: make([]savedQuestion, 0, len(req.Questions)),
	}
	if body.JobArea == "" {
		body.JobArea = defaultJobArea
	}

	for i, q := range req.Questions {
		sq := savedQuestion{ID: q.ID, Text: q.Text, Options: q.Options, Type: q.Kind()}
		if sq.Type == model.QuestionTypeMCQ {
			idx, ok := q.CorrectAnswer.Index()
			if !ok || idx < 0 || idx >= len(q.Options) {
				return nil, fmt.Errorf("question %d: %w", i+1, model.ErrInvalidOption)
			}
			sq.CorrectAnswer = idx
		} else {
			sq.CorrectAnswer = string(q.CorrectAnswer)
		}
		body.Questions = append(body.Questions, sq)
	}

	quiz, err := s.api.SaveQuiz(ctx, token, body)
	if err != nil {
		return nil, fmt.Errorf("save quiz: %w", err)
	}
	s.log.Info().Str("quiz_id", quiz.Identity()).Int("questions", len(body.Questions)).Msg("Quiz saved")
	return quiz, nil
}

// Share builds the public link a candidate opens to take the quiz.
func (s *QuizService) Share(quizID string) ShareLink {
	return ShareLink{QuizID: quizID, URL: s.shareBaseURL + "/take-test/" + url.PathEscape(quizID)}
}

// Results returns the caller's submitted results flattened for the results table.
func (s *QuizService) Results(ctx context.Context, rec *session.Record) ([]model.CandidateResult, error) {
	rows, err := s.api.ListResults(ctx, rec.Token, rec.User.UserID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]model.CandidateResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CandidateResult{
			ID:            r.ID,
			TestName:      r.Quiz.Title,
			CandidateName: orUnknown(rec.User.Name),
			Email:         orUnknown(rec.User.Email),
			Score:         r.Score,
			CompletedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

// Result returns the per-question breakdown of one result.
func (s *QuizService) Result(ctx context.Context, token, resultID string) (*model.ResultDetail, error) {
	detail, err := s.api.GetResult(ctx, token, resultID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if detail.DetailedResults == nil {
		detail.DetailedResults = []model.QuestionResult{}
	}
	return detail, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
