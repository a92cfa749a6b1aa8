package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// BillingService serves the read side of billing.
type BillingService struct {
	api *backend.Client
	log zerolog.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(api *backend.Client, log zerolog.Logger) *BillingService {
	return &BillingService{api: api, log: log.With().Str("component", "billing_service").Logger()}
}

// Overview fetches billing details and the plan catalog concurrently.
func (s *BillingService) Overview(ctx context.Context, token string) (*model.BillingOverview, error) {
	var (
		detail *model.BillingDetail
		plans  []model.SubscriptionPlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.api.BillingDetails(gctx, token)
		if err != nil {
			return fmt.Errorf("billing details: %w", err)
		}
		detail = d
		return nil
	})
	g.Go(func() error {
		p, err := s.api.ListPlans(gctx, token)
		if err != nil {
			return fmt.Errorf("list plans: %w", err)
		}
		plans = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if detail.Invoices == nil {
		detail.Invoices = []model.Invoice{}
	}
	if plans == nil {
		plans = []model.SubscriptionPlan{}
	}
	return &model.BillingOverview{BillingDetail: *detail, Plans: plans}, nil
}

// Subscription returns the subscription status used by the sidebar and create-test gate.
func (s *BillingService) Subscription(ctx context.Context, rec *session.Record) (*model.SubscriptionStatus, error) {
	status, err := s.api.SubscriptionStatus(ctx, rec.Token, rec.User.UserID)
	if err != nil {
		return nil, fmt.Errorf("subscription status: %w", err)
	}
	return status, nil
}

// Cancel cancels the current subscription.
func (s *BillingService) Cancel(ctx context.Context, rec *session.Record) error {
	if err := s.api.CancelSubscription(ctx, rec.Token); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	s.log.Info().Str("user_id", rec.User.UserID).Msg("Subscription cancelled")
	return nil
}
