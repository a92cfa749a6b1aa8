package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/listing"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// UserService covers admin user management and team administration.
type UserService struct {
	api *backend.Client
	log zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(api *backend.Client, log zerolog.Logger) *UserService {
	return &UserService{api: api, log: log.With().Str("component", "user_service").Logger()}
}

// List returns every user.
func (s *UserService) List(ctx context.Context, token string) ([]model.User, error) {
	users, err := s.api.ListUsers(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Delete removes a user and returns the remaining ones.
func (s *UserService) Delete(ctx context.Context, token, id string) ([]model.User, error) {
	users, err := s.List(ctx, token)
	if err != nil {
		return nil, err
	}
	remaining, err := listing.Delete(ctx, users, id, func(ctx context.Context, id string) error {
		return s.api.DeleteUser(ctx, token, id)
	})
	if err != nil {
		return remaining, fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("user_id", id).Msg("User deleted")
	return remaining, nil
}

// Team returns the team owned by the signed-in team admin.
func (s *UserService) Team(ctx context.Context, rec *session.Record) ([]model.TeamMember, error) {
	members, err := s.api.ListTeam(ctx, rec.Token, rec.User.UserID)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	if members == nil {
		members = []model.TeamMember{}
	}
	return members, nil
}

// AddMember invites a member and returns the refreshed team.
func (s *UserService) AddMember(ctx context.Context, rec *session.Record, req model.AddTeamMemberRequest) ([]model.TeamMember, error) {
	if err := s.api.AddTeamMember(ctx, rec.Token, rec.User.UserID, req); err != nil {
		return nil, fmt.Errorf("add team member: %w", err)
	}
	s.log.Info().Str("team_admin_id", rec.User.UserID).Str("email", req.Email).Msg("Team member added")
	return s.Team(ctx, rec)
}

// RemoveMember removes a member and returns the remaining team.
func (s *UserService) RemoveMember(ctx context.Context, rec *session.Record, memberID string) ([]model.TeamMember, error) {
	members, err := s.Team(ctx, rec)
	if err != nil {
		return nil, err
	}
	remaining, err := listing.Delete(ctx, members, memberID, func(ctx context.Context, id string) error {
		return s.api.RemoveTeamMember(ctx, rec.Token, rec.User.UserID, id)
	})
	if err != nil {
		return remaining, fmt.Errorf("remove team member: %w", err)
	}
	return remaining, nil
}
