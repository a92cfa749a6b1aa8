package model

// Vertical is an industry/job-area grouping quizzes are filed under.
type Vertical struct {
	ID          string `json:"id,omitempty"`
	MongoID     string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Identity returns whichever id form the backend populated.
func (v Vertical) Identity() string {
	if v.ID != "" {
		return v.ID
	}
	return v.MongoID
}

// Normalize copies the backend's id into ID.
func (v *Vertical) Normalize() { v.ID = v.Identity() }

// VerticalRequest is the payload for creating or updating a vertical.
type VerticalRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=1000"`
}
