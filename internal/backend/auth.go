package backend

import (
	"context"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

// Login exchanges credentials for a backend access token.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.Request(ctx, "", http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	resp.User.Normalize()
	return &resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) error {
	return c.Request(ctx, "", http.MethodPost, "/auth/register", req, nil)
}

// UpdateName renames a user.
func (c *Client) UpdateName(ctx context.Context, token, userID string, req model.UpdateNameRequest) error {
	return c.Request(ctx, token, http.MethodPatch, "/auth/update-name/"+seg(userID), req, nil)
}

// UpdateEmail changes a user's email.
func (c *Client) UpdateEmail(ctx context.Context, token, userID string, req model.UpdateEmailRequest) error {
	return c.Request(ctx, token, http.MethodPatch, "/auth/update-email/"+seg(userID), req, nil)
}

// UpdatePassword changes a user's password.
func (c *Client) UpdatePassword(ctx context.Context, token, userID string, req model.UpdatePasswordRequest) error {
	return c.Request(ctx, token, http.MethodPatch, "/auth/update-password/"+seg(userID), req, nil)
}
