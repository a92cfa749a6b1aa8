package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

func newAuthService(t *testing.T) (*AuthService, *fakeBackend, *session.Store) {
	t.Helper()
	fb, api := newFakeBackend(t)
	rdb, _ := newRedis(t)
	sessions := newSessionStore(t, rdb)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}
	return NewAuthService(cfg, api, sessions, zerolog.Nop()), fb, sessions
}

func TestLogin_TeamAdminGetsTeamCapability(t *testing.T) {
	svc, fb, sessions := newAuthService(t)
	ctx := context.Background()
	fb.handle("POST /auth/login", jsonHandler(http.StatusOK,
		`{"access_token": "bk", "user": {"userId": "u1", "name": "Ada", "email": "ada@example.com", "role": "user"}}`))
	fb.handle("GET /user/subscription-details/u1", jsonHandler(http.StatusOK, `{"isSubscribed": true, "isTeamAdmin": true}`))

	res, err := svc.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeamAdmin, res.Role)
	assert.Contains(t, res.Capabilities, string(model.CapTeamManage))

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.Can(model.CapTeamManage))
	assert.False(t, claims.Can(model.CapPlansManage))

	rec, err := svc.Session(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "bk", rec.Token)

	require.NoError(t, svc.Logout(ctx, claims.SessionID))
	_, err = svc.Session(ctx, claims)
	assert.ErrorIs(t, err, ErrSessionInvalidated)

	_, err = sessions.Get(ctx, claims.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLogin_AdminSkipsSubscriptionLookup(t *testing.T) {
	svc, fb, _ := newAuthService(t)
	fb.handle("POST /auth/login", jsonHandler(http.StatusOK,
		`{"access_token": "bk", "user": {"_id": "a1", "name": "Root", "role": "admin"}}`))

	res, err := svc.Login(context.Background(), model.LoginRequest{Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, res.Role)
	assert.Equal(t, 0, fb.count("GET /user/subscription-details/a1"))
}

func TestLogin_SubscriptionLookupFailureFallsBackToUser(t *testing.T) {
	svc, fb, _ := newAuthService(t)
	fb.handle("POST /auth/login", jsonHandler(http.StatusOK,
		`{"access_token": "bk", "user": {"userId": "u1", "role": "user"}}`))
	fb.handle("GET /user/subscription-details/u1", jsonHandler(http.StatusInternalServerError, `{}`))

	res, err := svc.Login(context.Background(), model.LoginRequest{Email: "u@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, res.Role)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, fb, _ := newAuthService(t)
	fb.handle("POST /auth/login", jsonHandler(http.StatusUnauthorized, `{"message": "nope"}`))

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "u@example.com", Password: "bad"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	svc, fb, _ := newAuthService(t)
	fb.handle("POST /auth/login", jsonHandler(http.StatusOK, `{"access_token": "bk", "user": {"_id": "a1", "role": "admin"}}`))
	res, err := svc.Login(context.Background(), model.LoginRequest{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil, nil, zerolog.Nop())
	_, err = other.ValidateToken(res.AccessToken)
	assert.Error(t, err)
}

func TestSettings_UpdateNameRefreshesSnapshot(t *testing.T) {
	fb, api := newFakeBackend(t)
	rdb, _ := newRedis(t)
	sessions := newSessionStore(t, rdb)
	rec := userRecord("u1")
	require.NoError(t, sessions.Save(context.Background(), rec))
	fb.handle("PATCH /auth/update-name/u1", jsonHandler(http.StatusOK, `{}`))

	svc := NewSettingsService(api, sessions, zerolog.Nop())
	snap, err := svc.UpdateName(context.Background(), rec, model.UpdateNameRequest{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", snap.Name)
	assert.Equal(t, rec.User.Email, snap.Email)

	stored, err := sessions.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.User.Name)
}
