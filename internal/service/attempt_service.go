package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// answerWriteRetries bounds how often Answer re-runs after a submission
// touched the attempt mid-write.
const answerWriteRetries = 3

// AttemptService runs the quiz-taking workflow. Attempt state and answers live
// in Redis; the backend only sees the final submission.
type AttemptService struct {
	api *backend.Client
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
	now func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(api *backend.Client, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		api: api,
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "attempt_service").Logger(),
		now: time.Now,
	}
}

// Start loads a quiz and opens a fresh attempt with no answers.
func (s *AttemptService) Start(ctx context.Context, rec *session.Record, quizID string) (*model.AttemptView, error) {
	quiz, err := s.api.GetQuiz(ctx, rec.Token, quizID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if quiz == nil || (quiz.Identity() == "" && quiz.Title == "" && len(quiz.Questions) == 0) {
		return nil, ErrQuizNotFound
	}
	if quiz.Identity() == "" {
		quiz.ID = quizID
	}

	attempt := model.NewAttempt(uuid.New().String(), rec.User.UserID, quiz, s.now().UTC())
	if err := s.save(ctx, attempt, s.ttl); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("attempt_id", attempt.ID).
		Str("quiz_id", attempt.QuizID).
		Str("user_id", attempt.UserID).
		Int("questions", attempt.Total).
		Msg("Attempt started")

	return &model.AttemptView{Attempt: attempt, Answers: map[string]string{}}, nil
}

// Get returns the attempt with its answers so far.
func (s *AttemptService) Get(ctx context.Context, userID, attemptID string) (*model.AttemptView, error) {
	attempt, err := s.load(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return &model.AttemptView{Attempt: attempt, Answers: answers}, nil
}

// Answer records (or replaces) the answer to one question.
//
// The write runs under WATCH on the attempt and its submit guard, so an answer
// either lands before a submission reads the answers or is rejected.
func (s *AttemptService) Answer(ctx context.Context, userID, attemptID, questionID, raw string) (*model.AttemptView, error) {
	attemptKey := config.CacheKey.AttemptKey(attemptID)
	lockKey := config.CacheKey.AttemptSubmitLockKey(attemptID)
	answersKey := config.CacheKey.AttemptAnswersKey(attemptID)

	write := func(tx *redis.Tx) error {
		attempt, err := s.loadFrom(ctx, tx, userID, attemptID)
		if err != nil {
			return err
		}
		if err := s.acceptingAnswers(ctx, tx, attempt); err != nil {
			return err
		}
		value, err := attempt.NormalizeAnswer(questionID, raw)
		if err != nil {
			return err
		}
		ttl := s.remainingTTL(ctx, tx, attemptID)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, answersKey, questionID, value)
			pipe.Expire(ctx, answersKey, ttl)
			return nil
		})
		if err != nil {
			return fmt.Errorf("store answer: %w", err)
		}
		return nil
	}

	for i := 0; i < answerWriteRetries; i++ {
		err := s.rdb.Watch(ctx, write, attemptKey, lockKey)
		if err == nil {
			return s.Get(ctx, userID, attemptID)
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		// A submission touched the attempt; the next pass sees its state.
	}
	return nil, ErrSubmitInFlight
}

// Submit sends the answered questions to the backend exactly once.
//
// The ready -> submitting transition is guarded by SETNX so concurrent submits
// race for a single backend call. A backend failure returns the attempt to
// ready so the taker can retry.
func (s *AttemptService) Submit(ctx context.Context, rec *session.Record, attemptID string) (*model.AttemptView, error) {
	attempt, err := s.load(ctx, rec.User.UserID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.State == model.AttemptStateCompleted {
		return nil, ErrAlreadySubmitted
	}

	lockKey := config.CacheKey.AttemptSubmitLockKey(attemptID)
	acquired, err := s.rdb.SetNX(ctx, lockKey, rec.ID, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit guard: %w", err)
	}
	if !acquired {
		return nil, ErrSubmitInFlight
	}
	keepGuard := false
	defer func() {
		if !keepGuard {
			s.rdb.Del(context.WithoutCancel(ctx), lockKey)
		}
	}()

	// Re-read under the guard: a previous holder may have completed it.
	attempt, err = s.load(ctx, rec.User.UserID, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.State {
	case model.AttemptStateCompleted:
		return nil, ErrAlreadySubmitted
	case model.AttemptStateSubmitting:
		// An earlier submission reached the backend without its outcome being recorded.
		return nil, ErrSubmitInFlight
	}

	attempt.State = model.AttemptStateSubmitting
	if err := s.save(ctx, attempt, redis.KeepTTL); err != nil {
		return nil, err
	}

	answers, err := s.answers(ctx, attemptID)
	if err != nil {
		s.rollback(attempt)
		return nil, err
	}

	result, err := s.api.SubmitQuiz(ctx, rec.Token, attempt.BuildSubmission(answers))
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID).Int("status", backend.StatusOf(err)).Msg("Submission rejected, attempt back to ready")
		s.rollback(attempt)
		return nil, fmt.Errorf("submit quiz: %w", err)
	}

	completedAt := s.now().UTC()
	score := result.Score
	attempt.State = model.AttemptStateCompleted
	attempt.Score = &score
	attempt.ResultID = result.ResultID
	attempt.CompletedAt = &completedAt
	if err := s.save(context.WithoutCancel(ctx), attempt, redis.KeepTTL); err != nil {
		// The backend has scored it. Holding the guard stops a second submission.
		keepGuard = true
		s.log.Error().Err(err).Str("attempt_id", attemptID).Str("result_id", result.ResultID).Msg("Submission scored but not recorded")
		return nil, err
	}

	s.log.Info().
		Str("attempt_id", attemptID).
		Str("quiz_id", attempt.QuizID).
		Float64("score", score).
		Int("answered", len(answers)).
		Int("total", attempt.Total).
		Msg("Attempt completed")

	return &model.AttemptView{Attempt: attempt, Answers: answers}, nil
}

func (s *AttemptService) acceptingAnswers(ctx context.Context, rdb redis.Cmdable, attempt *model.Attempt) error {
	switch attempt.State {
	case model.AttemptStateCompleted:
		return ErrAlreadySubmitted
	case model.AttemptStateSubmitting:
		return ErrSubmitInFlight
	case model.AttemptStateReady:
	default:
		return ErrAttemptNotReady
	}
	n, err := rdb.Exists(ctx, config.CacheKey.AttemptSubmitLockKey(attempt.ID)).Result()
	if err != nil {
		return fmt.Errorf("check submit guard: %w", err)
	}
	if n > 0 {
		return ErrSubmitInFlight
	}
	return nil
}

func (s *AttemptService) rollback(attempt *model.Attempt) {
	attempt.State = model.AttemptStateReady
	if err := s.save(context.Background(), attempt, redis.KeepTTL); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID).Msg("Failed to return attempt to ready")
	}
}

func (s *AttemptService) load(ctx context.Context, userID, attemptID string) (*model.Attempt, error) {
	return s.loadFrom(ctx, s.rdb, userID, attemptID)
}

func (s *AttemptService) loadFrom(ctx context.Context, rdb redis.Cmdable, userID, attemptID string) (*model.Attempt, error) {
	raw, err := rdb.Get(ctx, config.CacheKey.AttemptKey(attemptID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	var attempt model.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return &attempt, nil
}

func (s *AttemptService) save(ctx context.Context, attempt *model.Attempt, ttl time.Duration) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AttemptKey(attempt.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store attempt: %w", err)
	}
	return nil
}

func (s *AttemptService) answers(ctx context.Context, attemptID string) (map[string]string, error) {
	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return answers, nil
}

// remainingTTL keeps the answers hash expiring together with its attempt.
func (s *AttemptService) remainingTTL(ctx context.Context, rdb redis.Cmdable, attemptID string) time.Duration {
	ttl, err := rdb.TTL(ctx, config.CacheKey.AttemptKey(attemptID)).Result()
	if err != nil || ttl <= 0 {
		return s.ttl
	}
	return ttl
}
