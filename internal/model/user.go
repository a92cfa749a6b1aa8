package model

import "time"

// BackendRole is the role string the quiz backend stores on a user.
type BackendRole string

const (
	BackendRoleAdmin BackendRole = "admin"
	BackendRoleUser  BackendRole = "user"
)

// User is the backend's user record as returned by /auth/login and /user.
type User struct {
	ID               string      `json:"id,omitempty"`
	MongoID          string      `json:"_id,omitempty"`
	UserID           string      `json:"userId,omitempty"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             BackendRole `json:"role"`
	SubscriptionType PlanType    `json:"subscriptionType,omitempty"`
	IsSubscribed     bool        `json:"isSubscribed"`
	TeamName         string      `json:"teamName,omitempty"`
	CreatedAt        *time.Time  `json:"createdAt,omitempty"`
	LastLogin        *time.Time  `json:"lastLogin,omitempty"`
}

// Identity returns whichever id form the backend populated.
func (u User) Identity() string {
	switch {
	case u.ID != "":
		return u.ID
	case u.UserID != "":
		return u.UserID
	default:
		return u.MongoID
	}
}

// Normalize copies the backend's id into ID.
func (u *User) Normalize() { u.ID = u.Identity() }

// SubscriptionStatus is /user/subscription-details/:id.
type SubscriptionStatus struct {
	IsSubscribed          bool       `json:"isSubscribed"`
	IsTeamAdmin           bool       `json:"isTeamAdmin"`
	SubscriptionPlanID    string     `json:"subscriptionPlanId,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt,omitempty"`
}

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AuthResponse is the backend's login response.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// UpdateNameRequest is the payload for renaming the signed-in user.
type UpdateNameRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// UpdateEmailRequest is the payload for changing the signed-in user's email.
type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// UpdatePasswordRequest is the payload for changing the signed-in user's password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=128,nefield=CurrentPassword"`
}
