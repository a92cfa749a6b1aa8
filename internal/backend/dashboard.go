package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

func dashboardPrefix(role model.Role) string {
	if role == model.RoleAdmin {
		return "/dashboard/admin"
	}
	return "/dashboard/user"
}

// DashboardStats returns the role's headline numbers.
func (c *Client) DashboardStats(ctx context.Context, token string, role model.Role) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Request(ctx, token, http.MethodGet, dashboardPrefix(role)+"/stats", nil, &raw)
	return raw, err
}

// DashboardRecent returns the role's recent quizzes and results.
func (c *Client) DashboardRecent(ctx context.Context, token string, role model.Role) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.Request(ctx, token, http.MethodGet, dashboardPrefix(role)+"/recent", nil, &raw)
	return raw, err
}
