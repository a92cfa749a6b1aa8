package model

// TeamMember is a seat on a team admin's plan.
type TeamMember struct {
	ID      string `json:"id,omitempty"`
	MongoID string `json:"_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
}

// Identity returns whichever id form the backend populated.
func (m TeamMember) Identity() string {
	if m.ID != "" {
		return m.ID
	}
	return m.MongoID
}

// Normalize copies the backend's id into ID.
func (m *TeamMember) Normalize() { m.ID = m.Identity() }

// AddTeamMemberRequest is the payload for inviting a member.
type AddTeamMemberRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Email string `json:"email" binding:"required,email,max=255"`
}

// TeamResponse is how the backend wraps /user/:id/team.
type TeamResponse struct {
	Members []TeamMember `json:"team"`
}
