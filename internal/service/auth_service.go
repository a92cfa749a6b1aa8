package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// Claims extends JWT standard claims with the portal session.
// Capabilities are evaluated once at login and never re-derived per request.
type Claims struct {
	jwt.RegisteredClaims
	SessionID    string     `json:"sid"`
	UserID       string     `json:"user_id"`
	Role         model.Role `json:"role"`
	Capabilities []string   `json:"capabilities"`
}

// Can reports whether the token grants capability c.
func (c *Claims) Can(want model.Capability) bool {
	for _, have := range c.Capabilities {
		if have == string(want) {
			return true
		}
	}
	return false
}

// LoginResult is returned to the browser after a successful sign in.
type LoginResult struct {
	AccessToken  string           `json:"access_token"`
	ExpiresAt    time.Time        `json:"expires_at"`
	User         session.Snapshot `json:"user"`
	Role         model.Role       `json:"role"`
	Capabilities []string         `json:"capabilities"`
}

// AuthService signs users in against the backend and manages portal sessions.
type AuthService struct {
	cfg      *config.Config
	api      *backend.Client
	sessions *session.Store
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, api *backend.Client, sessions *session.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		api:      api,
		sessions: sessions,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// Login authenticates with the backend, resolves the portal role and opens a session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*LoginResult, error) {
	auth, err := s.api.Login(ctx, req)
	if err != nil {
		switch backend.StatusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("backend login: %w", err)
	}
	if auth.AccessToken == "" {
		return nil, ErrInvalidCredentials
	}
	auth.User.Normalize()

	isTeamAdmin := false
	if auth.User.Role != model.BackendRoleAdmin {
		status, err := s.api.SubscriptionStatus(ctx, auth.AccessToken, auth.User.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", auth.User.ID).Msg("Subscription details unavailable, continuing as plain user")
		} else {
			isTeamAdmin = status.IsTeamAdmin
		}
	}

	snap, err := session.SnapshotOf(auth.User)
	if err != nil {
		return nil, err
	}
	role := model.ResolveRole(auth.User.Role, isTeamAdmin)
	now := time.Now()
	rec := &session.Record{
		ID:           uuid.New().String(),
		Token:        auth.AccessToken,
		User:         snap,
		Role:         role,
		Capabilities: model.CapabilitiesFor(role),
		CreatedAt:    now.UTC(),
	}
	if err := s.sessions.Save(ctx, rec); err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.issueToken(rec, now)
	if err != nil {
		_ = s.sessions.Delete(ctx, rec.ID)
		return nil, err
	}

	s.log.Info().Str("user_id", snap.UserID).Str("role", string(role)).Str("session_id", rec.ID).Msg("User signed in")

	return &LoginResult{
		AccessToken:  signed,
		ExpiresAt:    expiresAt,
		User:         snap,
		Role:         role,
		Capabilities: rec.Capabilities,
	}, nil
}

// Register creates an account on the backend. The user signs in afterwards.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) error {
	if err := s.api.Register(ctx, req); err != nil {
		return fmt.Errorf("backend register: %w", err)
	}
	s.log.Info().Str("email", req.Email).Msg("Account registered")
	return nil
}

// Logout ends the session for every tab sharing it.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Session loads the live session behind a validated token.
func (s *AuthService) Session(ctx context.Context, claims *Claims) (*session.Record, error) {
	rec, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionInvalidated
		}
		return nil, err
	}
	return rec, nil
}

// ValidateToken parses and validates a portal JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) issueToken(rec *session.Record, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.cfg.JWTExpiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rec.ID,
			Subject:   rec.User.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID:    rec.ID,
		UserID:       rec.User.UserID,
		Role:         rec.Role,
		Capabilities: rec.Capabilities,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
