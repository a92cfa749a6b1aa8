package backend

import (
	"context"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

// ListUsers returns every user (admin).
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	var users []model.User
	if err := c.Request(ctx, token, http.MethodGet, "/user", nil, &users); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.Request(ctx, token, http.MethodDelete, "/user/"+seg(id), nil, nil)
}

// ListTeam returns a team admin's members.
func (c *Client) ListTeam(ctx context.Context, token, adminID string) ([]model.TeamMember, error) {
	var resp model.TeamResponse
	if err := c.Request(ctx, token, http.MethodGet, "/user/"+seg(adminID)+"/team", nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Members {
		resp.Members[i].Normalize()
	}
	return resp.Members, nil
}

// AddTeamMember invites a member onto the admin's team.
func (c *Client) AddTeamMember(ctx context.Context, token, adminID string, req model.AddTeamMemberRequest) error {
	return c.Request(ctx, token, http.MethodPost, "/user/"+seg(adminID)+"/team-members", req, nil)
}

// RemoveTeamMember removes a member from the admin's team.
func (c *Client) RemoveTeamMember(ctx context.Context, token, adminID, memberID string) error {
	return c.Request(ctx, token, http.MethodDelete, "/user/"+seg(adminID)+"/team-members/"+seg(memberID), nil, nil)
}
