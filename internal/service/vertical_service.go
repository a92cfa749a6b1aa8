package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/listing"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

// VerticalService manages industry verticals.
type VerticalService struct {
	api *backend.Client
	log zerolog.Logger
}

// NewVerticalService creates a new VerticalService.
func NewVerticalService(api *backend.Client, log zerolog.Logger) *VerticalService {
	return &VerticalService{api: api, log: log.With().Str("component", "vertical_service").Logger()}
}

func (s *VerticalService) List(ctx context.Context, token string) ([]model.Vertical, error) {
	verticals, err := s.api.ListVerticals(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list verticals: %w", err)
	}
	return verticals, nil
}

func (s *VerticalService) Create(ctx context.Context, token string, req model.VerticalRequest) (*model.Vertical, error) {
	v, err := s.api.CreateVertical(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("create vertical: %w", err)
	}
	return v, nil
}

func (s *VerticalService) Update(ctx context.Context, token, id string, req model.VerticalRequest) (*model.Vertical, error) {
	v, err := s.api.UpdateVertical(ctx, token, id, req)
	if err != nil {
		return nil, fmt.Errorf("update vertical: %w", err)
	}
	return v, nil
}

// Delete removes a vertical and returns the remaining ones.
func (s *VerticalService) Delete(ctx context.Context, token, id string) ([]model.Vertical, error) {
	verticals, err := s.List(ctx, token)
	if err != nil {
		return nil, err
	}
	remaining, err := listing.Delete(ctx, verticals, id, func(ctx context.Context, id string) error {
		return s.api.DeleteVertical(ctx, token, id)
	})
	if err != nil {
		return remaining, fmt.Errorf("delete vertical: %w", err)
	}
	s.log.Info().Str("vertical_id", id).Msg("Vertical deleted")
	return remaining, nil
}
