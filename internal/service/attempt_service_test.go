package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

const sampleQuiz = `{
  "_id": "q1",
  "title": "Go basics",
  "questions": [
    {"_id": "a", "text": "Pick one", "options": ["x", "y", "z"], "correctAnswer": 1, "type": "mcq"},
    {"_id": "b", "text": "Explain channels", "correctAnswer": "they pass values", "type": "q&a"},
    {"_id": "c", "text": "Untyped", "options": ["yes", "no"], "correctAnswer": 0}
  ]
}`

func newAttemptService(t *testing.T) (*AttemptService, *fakeBackend) {
	t.Helper()
	svc, fb, _ := newAttemptServiceWithRedis(t)
	return svc, fb
}

func newAttemptServiceWithRedis(t *testing.T) (*AttemptService, *fakeBackend, *miniredis.Miniredis) {
	t.Helper()
	fb, api := newFakeBackend(t)
	rdb, mr := newRedis(t)
	fb.handle("GET /quiz/q1", jsonHandler(http.StatusOK, sampleQuiz))
	return NewAttemptService(api, rdb, time.Hour, zerolog.Nop()), fb, mr
}

func TestAttemptStart_NotFound(t *testing.T) {
	svc, _ := newAttemptService(t)
	_, err := svc.Start(context.Background(), userRecord("u1"), "missing")
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestAttemptStart_ReadyWithoutAnswerKey(t *testing.T) {
	svc, _ := newAttemptService(t)

	view, err := svc.Start(context.Background(), userRecord("u1"), "q1")
	require.NoError(t, err)

	assert.Equal(t, model.AttemptStateReady, view.State)
	assert.Equal(t, 3, view.Total)
	assert.Empty(t, view.Answers)
	for _, q := range view.Questions {
		assert.Empty(t, q.CorrectAnswer, "question %s leaks its answer", q.Identity())
	}
	assert.Equal(t, model.QuestionTypeMCQ, view.Questions[2].Type)
}

func TestAttemptStart_FreshEachTime(t *testing.T) {
	svc, _ := newAttemptService(t)
	ctx := context.Background()
	rec := userRecord("u1")

	first, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)
	_, err = svc.Answer(ctx, "u1", first.ID, "a", "2")
	require.NoError(t, err)

	second, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, second.Answers)
}

func TestAttemptAnswer_Validation(t *testing.T) {
	svc, _ := newAttemptService(t)
	ctx := context.Background()
	view, err := svc.Start(ctx, userRecord("u1"), "q1")
	require.NoError(t, err)

	_, err = svc.Answer(ctx, "u1", view.ID, "a", "3")
	assert.ErrorIs(t, err, model.ErrInvalidOption)

	_, err = svc.Answer(ctx, "u1", view.ID, "a", "one")
	assert.ErrorIs(t, err, model.ErrInvalidOption)

	_, err = svc.Answer(ctx, "u1", view.ID, "zzz", "0")
	assert.ErrorIs(t, err, model.ErrUnknownQuestion)

	got, err := svc.Answer(ctx, "u1", view.ID, "b", "free text")
	require.NoError(t, err)
	assert.Equal(t, "free text", got.Answers["b"])

	got, err = svc.Answer(ctx, "u1", view.ID, "a", "02")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Answers["a"])
}

func TestAttempt_OtherUserCannotSee(t *testing.T) {
	svc, _ := newAttemptService(t)
	ctx := context.Background()
	view, err := svc.Start(ctx, userRecord("u1"), "q1")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", view.ID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestAttemptSubmit_SendsAnsweredInQuestionOrder(t *testing.T) {
	svc, fb := newAttemptService(t)
	ctx := context.Background()
	rec := userRecord("u1")

	var got model.SubmitQuizRequest
	fb.handle("POST /quiz/submit", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		jsonHandler(http.StatusOK, `{"score": 50, "resultId": "r1"}`)(w, r)
	})

	view, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)
	_, err = svc.Answer(ctx, "u1", view.ID, "c", "1")
	require.NoError(t, err)
	_, err = svc.Answer(ctx, "u1", view.ID, "a", "0")
	require.NoError(t, err)

	done, err := svc.Submit(ctx, rec, view.ID)
	require.NoError(t, err)

	assert.Equal(t, "q1", got.QuizID)
	assert.Equal(t, []model.AnswerEntry{{QuestionID: "a", Answer: "0"}, {QuestionID: "c", Answer: "1"}}, got.Answers)
	assert.Equal(t, model.AttemptStateCompleted, done.State)
	require.NotNil(t, done.Score)
	assert.Equal(t, 50.0, *done.Score)
	assert.Equal(t, 3, done.Total)
	assert.Equal(t, "r1", done.ResultID)

	_, err = svc.Submit(ctx, rec, view.ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = svc.Answer(ctx, "u1", view.ID, "a", "1")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, 1, fb.count("POST /quiz/submit"))
}

func TestAttemptSubmit_FailureReturnsToReady(t *testing.T) {
	svc, fb := newAttemptService(t)
	ctx := context.Background()
	rec := userRecord("u1")
	fb.handle("POST /quiz/submit", jsonHandler(http.StatusInternalServerError, `{"message":"db down"}`))

	view, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, rec, view.ID)
	require.Error(t, err)

	after, err := svc.Get(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStateReady, after.State)

	fb.handle("POST /quiz/submit", jsonHandler(http.StatusOK, `{"score": 0}`))
	done, err := svc.Submit(ctx, rec, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStateCompleted, done.State)
}

func TestAttemptSubmit_ConcurrentSubmitIsRejected(t *testing.T) {
	svc, fb := newAttemptService(t)
	ctx := context.Background()
	rec := userRecord("u1")

	release := make(chan struct{})
	fb.handle("POST /quiz/submit", func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonHandler(http.StatusOK, `{"score": 10}`)(w, r)
	})

	view, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Submit(ctx, rec, view.ID)
	}()

	require.Eventually(t, func() bool { return fb.count("POST /quiz/submit") == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = svc.Submit(ctx, rec, view.ID)
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	_, err = svc.Answer(ctx, "u1", view.ID, "a", "1")
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, fb.count("POST /quiz/submit"))
}

func TestAttemptSubmit_UnrecordedScoreIsNotResubmitted(t *testing.T) {
	svc, fb, mr := newAttemptServiceWithRedis(t)
	ctx := context.Background()
	rec := userRecord("u1")

	view, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)

	// Redis goes away while the backend is scoring the attempt.
	fb.handle("POST /quiz/submit", func(w http.ResponseWriter, r *http.Request) {
		mr.SetError("LOADING Redis is loading the dataset in memory")
		jsonHandler(http.StatusOK, `{"score": 80, "resultId": "r1"}`)(w, r)
	})
	_, err = svc.Submit(ctx, rec, view.ID)
	require.Error(t, err)
	mr.SetError("")

	after, err := svc.Get(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStateSubmitting, after.State)

	_, err = svc.Submit(ctx, rec, view.ID)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	// Even once the guard is gone the attempt is not sent again.
	mr.Del(config.CacheKey.AttemptSubmitLockKey(view.ID))
	_, err = svc.Submit(ctx, rec, view.ID)
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Equal(t, 1, fb.count("POST /quiz/submit"))
	assert.False(t, mr.Exists(config.CacheKey.AttemptSubmitLockKey(view.ID)),
		"a rejected submit must not take over the guard")
}

func TestAttemptAnswer_RejectedWhileSubmitGuardHeld(t *testing.T) {
	svc, _, mr := newAttemptServiceWithRedis(t)
	ctx := context.Background()

	view, err := svc.Start(ctx, userRecord("u1"), "q1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(config.CacheKey.AttemptSubmitLockKey(view.ID), "other-session"))

	_, err = svc.Answer(ctx, "u1", view.ID, "b", "late answer")
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.False(t, mr.Exists(config.CacheKey.AttemptAnswersKey(view.ID)))
}

func TestAttemptAnswer_RacingSubmitNeverLosesAnAnswer(t *testing.T) {
	svc, fb := newAttemptService(t)
	ctx := context.Background()
	rec := userRecord("u1")

	var mu sync.Mutex
	var submitted []model.AnswerEntry
	fb.handle("POST /quiz/submit", func(w http.ResponseWriter, r *http.Request) {
		var body model.SubmitQuizRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		submitted = body.Answers
		mu.Unlock()
		jsonHandler(http.StatusOK, `{"score": 10}`)(w, r)
	})

	view, err := svc.Start(ctx, rec, "q1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Answer(ctx, "u1", view.ID, "b", fmt.Sprintf("answer %d", i))
		}(i)
	}
	_, submitErr := svc.Submit(ctx, rec, view.ID)
	wg.Wait()
	require.NoError(t, submitErr)

	// Whatever is stored is exactly what the backend received.
	stored, err := svc.Get(ctx, "u1", view.ID)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	got := map[string]string{}
	for _, a := range submitted {
		got[a.QuestionID] = a.Answer
	}
	assert.Equal(t, stored.Answers, got)
}
