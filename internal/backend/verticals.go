package backend

import (
	"context"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

// ListVerticals returns every vertical.
func (c *Client) ListVerticals(ctx context.Context, token string) ([]model.Vertical, error) {
	var verticals []model.Vertical
	if err := c.Request(ctx, token, http.MethodGet, "/vertical", nil, &verticals); err != nil {
		return nil, err
	}
	for i := range verticals {
		verticals[i].Normalize()
	}
	return verticals, nil
}

// CreateVertical adds a vertical.
func (c *Client) CreateVertical(ctx context.Context, token string, req model.VerticalRequest) (*model.Vertical, error) {
	var v model.Vertical
	if err := c.Request(ctx, token, http.MethodPost, "/vertical", req, &v); err != nil {
		return nil, err
	}
	v.Normalize()
	return &v, nil
}

// UpdateVertical edits a vertical.
func (c *Client) UpdateVertical(ctx context.Context, token, id string, req model.VerticalRequest) (*model.Vertical, error) {
	var v model.Vertical
	if err := c.Request(ctx, token, http.MethodPut, "/vertical/"+seg(id), req, &v); err != nil {
		return nil, err
	}
	v.Normalize()
	return &v, nil
}

// DeleteVertical removes a vertical.
func (c *Client) DeleteVertical(ctx context.Context, token, id string) error {
	return c.Request(ctx, token, http.MethodDelete, "/vertical/"+seg(id), nil, nil)
}
