package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

// DashboardService composes the role-specific dashboard.
type DashboardService struct {
	api *backend.Client
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(api *backend.Client) *DashboardService {
	return &DashboardService{api: api}
}

// Get fetches stats and recent activity concurrently. Either failure fails the view.
func (s *DashboardService) Get(ctx context.Context, token string, role model.Role) (*model.Dashboard, error) {
	out := &model.Dashboard{Role: role}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.api.DashboardStats(gctx, token, role)
		if err != nil {
			return fmt.Errorf("dashboard stats: %w", err)
		}
		out.Stats = stats
		return nil
	})
	g.Go(func() error {
		recent, err := s.api.DashboardRecent(gctx, token, role)
		if err != nil {
			return fmt.Errorf("dashboard recent: %w", err)
		}
		out.Recent = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
