package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/listing"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

// ErrInvalidPrice is returned for plans with a negative price.
var ErrInvalidPrice = errors.New("plan prices must not be negative")

// PlanService manages the subscription plan catalog.
type PlanService struct {
	api *backend.Client
	log zerolog.Logger
}

// NewPlanService creates a new PlanService.
func NewPlanService(api *backend.Client, log zerolog.Logger) *PlanService {
	return &PlanService{api: api, log: log.With().Str("component", "plan_service").Logger()}
}

// List returns the catalog.
func (s *PlanService) List(ctx context.Context, token string) ([]model.SubscriptionPlan, error) {
	plans, err := s.api.ListPlans(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// Find returns one plan from the catalog.
func (s *PlanService) Find(ctx context.Context, token, id string) (*model.SubscriptionPlan, error) {
	plans, err := s.List(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].Identity() == id {
			return &plans[i], nil
		}
	}
	return nil, ErrPlanNotFound
}

// Create adds a plan.
func (s *PlanService) Create(ctx context.Context, token string, req model.CreatePlanRequest) (*model.SubscriptionPlan, error) {
	if !req.Valid() {
		return nil, ErrInvalidPrice
	}
	plan, err := s.api.CreatePlan(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	s.log.Info().Str("plan_id", plan.Identity()).Str("name", plan.Name).Msg("Plan created")
	return plan, nil
}

// Update replaces a plan.
func (s *PlanService) Update(ctx context.Context, token, id string, req model.UpdatePlanRequest) (*model.SubscriptionPlan, error) {
	if !req.Valid() {
		return nil, ErrInvalidPrice
	}
	plan, err := s.api.UpdatePlan(ctx, token, id, req)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return plan, nil
}

// Delete removes a plan and returns the remaining catalog.
func (s *PlanService) Delete(ctx context.Context, token, id string) ([]model.SubscriptionPlan, error) {
	plans, err := s.List(ctx, token)
	if err != nil {
		return nil, err
	}
	remaining, err := listing.Delete(ctx, plans, id, func(ctx context.Context, id string) error {
		return s.api.DeletePlan(ctx, token, id)
	})
	if err != nil {
		return remaining, fmt.Errorf("delete plan: %w", err)
	}
	s.log.Info().Str("plan_id", id).Msg("Plan deleted")
	return remaining, nil
}
