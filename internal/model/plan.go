package model

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers in both directions.
	decimal.MarshalJSONWithoutQuotes = true
}

// PlanType distinguishes flat plans from per-seat team plans.
type PlanType string

const (
	PlanTypeIndividual PlanType = "individual"
	PlanTypeTeam       PlanType = "team"
)

// SubscriptionPlan is an entry of the plan catalog.
type SubscriptionPlan struct {
	ID             string           `json:"id,omitempty"`
	MongoID        string           `json:"_id,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Type           PlanType         `json:"type"`
	Price          decimal.Decimal  `json:"price"`
	PricePerMember *decimal.Decimal `json:"pricePerMember,omitempty"`
}

// Identity returns whichever id form the backend populated.
func (p SubscriptionPlan) Identity() string {
	if p.ID != "" {
		return p.ID
	}
	return p.MongoID
}

// Normalize copies the backend's id into ID.
func (p *SubscriptionPlan) Normalize() { p.ID = p.Identity() }

// CreatePlanRequest is the payload for adding a plan to the catalog.
type CreatePlanRequest struct {
	Name           string           `json:"name" binding:"required,min=2,max=100"`
	Description    string           `json:"description" binding:"max=1000"`
	Type           PlanType         `json:"type" binding:"required,oneof=individual team"`
	Price          decimal.Decimal  `json:"price" binding:"gte=0"`
	PricePerMember *decimal.Decimal `json:"pricePerMember,omitempty" binding:"required_if=Type team,omitempty,gte=0"`
}

// Valid reports whether the prices are non-negative.
func (r CreatePlanRequest) Valid() bool {
	if r.Price.IsNegative() {
		return false
	}
	return r.PricePerMember == nil || !r.PricePerMember.IsNegative()
}

// UpdatePlanRequest is the payload for editing a catalog plan.
type UpdatePlanRequest = CreatePlanRequest
