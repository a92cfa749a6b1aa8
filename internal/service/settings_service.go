package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// SettingsService updates the signed-in user's profile and keeps the session
// snapshot in step.
type SettingsService struct {
	api      *backend.Client
	sessions *session.Store
	log      zerolog.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(api *backend.Client, sessions *session.Store, log zerolog.Logger) *SettingsService {
	return &SettingsService{api: api, sessions: sessions, log: log.With().Str("component", "settings_service").Logger()}
}

// UpdateName renames the user.
func (s *SettingsService) UpdateName(ctx context.Context, rec *session.Record, req model.UpdateNameRequest) (*session.Snapshot, error) {
	if err := s.api.UpdateName(ctx, rec.Token, rec.User.UserID, req); err != nil {
		return nil, fmt.Errorf("update name: %w", err)
	}
	return s.refresh(ctx, rec, model.User{Name: req.Name})
}

// UpdateEmail changes the user's email.
func (s *SettingsService) UpdateEmail(ctx context.Context, rec *session.Record, req model.UpdateEmailRequest) (*session.Snapshot, error) {
	if err := s.api.UpdateEmail(ctx, rec.Token, rec.User.UserID, req); err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	return s.refresh(ctx, rec, model.User{Email: req.Email})
}

// UpdatePassword changes the user's password. The session snapshot is unaffected.
func (s *SettingsService) UpdatePassword(ctx context.Context, rec *session.Record, req model.UpdatePasswordRequest) error {
	if err := s.api.UpdatePassword(ctx, rec.Token, rec.User.UserID, req); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.Info().Str("user_id", rec.User.UserID).Msg("Password changed")
	return nil
}

func (s *SettingsService) refresh(ctx context.Context, rec *session.Record, patch model.User) (*session.Snapshot, error) {
	updated, err := s.sessions.UpdateUser(ctx, rec.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return &updated.User, nil
}
