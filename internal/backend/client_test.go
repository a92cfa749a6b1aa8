package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, zerolog.Nop())
}

func TestRequest_AttachesTokenAndEncodesBody(t *testing.T) {
	var gotAuth, gotType string
	var gotBody map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Request(context.Background(), "tok-123", http.MethodPost, "/thing", map[string]string{"a": "b"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "b", gotBody["a"])
}

func TestRequest_NoTokenNoAuthHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Request(context.Background(), "", http.MethodGet, "/x", nil, nil))
}

func TestRequest_Non2xxIsStatusError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		})
		err := c.Request(context.Background(), "", http.MethodGet, "/x", nil, nil)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, status, se.Status)
		assert.Contains(t, se.Body, "nope")
		assert.Equal(t, status == http.StatusNotFound, IsNotFound(err))
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, zerolog.Nop())
	err := c.Request(context.Background(), "", http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Zero(t, StatusOf(err))
}

func TestRequest_EmptyBodyWith2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	var out map[string]interface{}
	assert.NoError(t, c.Request(context.Background(), "", http.MethodPost, "/x", nil, &out))
}

func TestGetQuiz_NormalizesMongoIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quiz/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"abc","title":"Go","questions":[
			{"_id":"q1","text":"Pick","options":["A","B"],"correctAnswer":1,"type":"mcq"},
			{"_id":"q2","text":"Explain","correctAnswer":"because","type":"q&a"}]}`))
	})

	quiz, err := c.GetQuiz(context.Background(), "t", "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", quiz.ID)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, model.AnswerValue("1"), quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, model.AnswerValue("because"), quiz.Questions[1].CorrectAnswer)
}

func TestApplyEntitlement_RoutesByKind(t *testing.T) {
	cases := map[model.CheckoutKind]string{
		model.CheckoutKindSubscribe:  "/user/u1/subscribe",
		model.CheckoutKindChangePlan: "/user/u1/update-plan",
		model.CheckoutKindAddSeats:   "/user/u1/add-team-members",
	}
	for kind, path := range cases {
		var got string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Path
			w.WriteHeader(http.StatusOK)
		})
		require.NoError(t, c.ApplyEntitlement(context.Background(), "t", "u1", kind, model.EntitlementRequest{SubscriptionPlanID: "p"}))
		assert.Equal(t, path, got, kind)
	}
}

func TestGenerateQuiz_EndpointByType(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Path
		_, _ = w.Write([]byte(`{"questions":[]}`))
	})
	_, err := c.GenerateQuiz(context.Background(), "t", model.QuestionTypeQnA, "backend engineer", 3)
	require.NoError(t, err)
	assert.Equal(t, "/quiz/generate-qna", got)

	_, err = c.GenerateQuiz(context.Background(), "t", model.QuestionTypeMCQ, "backend engineer", 3)
	require.NoError(t, err)
	assert.Equal(t, "/quiz/generate", got)
}

func TestListTeam_UnwrapsTeamKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"team":[{"_id":"m1","name":"Ann","email":"ann@x.io"}]}`))
	})
	members, err := c.ListTeam(context.Background(), "t", "admin1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "m1", members[0].ID)
}
