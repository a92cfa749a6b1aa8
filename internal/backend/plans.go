package backend

import (
	"context"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

// ListPlans returns the subscription plan catalog.
func (c *Client) ListPlans(ctx context.Context, token string) ([]model.SubscriptionPlan, error) {
	var plans []model.SubscriptionPlan
	if err := c.Request(ctx, token, http.MethodGet, "/admin/subscription-plans", nil, &plans); err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].Normalize()
	}
	return plans, nil
}

// CreatePlan adds a plan.
func (c *Client) CreatePlan(ctx context.Context, token string, req model.CreatePlanRequest) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	if err := c.Request(ctx, token, http.MethodPost, "/admin/subscription-plans", req, &plan); err != nil {
		return nil, err
	}
	plan.Normalize()
	return &plan, nil
}

// UpdatePlan edits a plan.
func (c *Client) UpdatePlan(ctx context.Context, token, id string, req model.UpdatePlanRequest) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	if err := c.Request(ctx, token, http.MethodPut, "/admin/subscription-plans/"+seg(id), req, &plan); err != nil {
		return nil, err
	}
	plan.Normalize()
	return &plan, nil
}

// DeletePlan removes a plan.
func (c *Client) DeletePlan(ctx context.Context, token, id string) error {
	return c.Request(ctx, token, http.MethodDelete, "/admin/subscription-plans/"+seg(id), nil, nil)
}
