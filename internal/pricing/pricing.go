// Package pricing computes checkout amounts for subscription plans.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

var (
	ErrTeamSize     = errors.New("team size must be at least 1")
	ErrNotTeamPlan  = errors.New("seats can only be added to a team plan")
	ErrNegativeCost = errors.New("plan price is negative")
)

var hundred = decimal.NewFromInt(100)

// Total is the price of plan for teamSize seats: price + pricePerMember × teamSize
// for team plans, the flat price otherwise.
func Total(plan model.SubscriptionPlan, teamSize int) (decimal.Decimal, error) {
	if plan.Price.IsNegative() {
		return decimal.Zero, ErrNegativeCost
	}
	if plan.Type != model.PlanTypeTeam {
		return plan.Price, nil
	}
	perSeat, err := seatPrice(plan, teamSize)
	if err != nil {
		return decimal.Zero, err
	}
	return plan.Price.Add(perSeat), nil
}

// Seats is the price of adding seats to an existing team plan (no base fee).
func Seats(plan model.SubscriptionPlan, seats int) (decimal.Decimal, error) {
	if plan.Type != model.PlanTypeTeam {
		return decimal.Zero, ErrNotTeamPlan
	}
	return seatPrice(plan, seats)
}

func seatPrice(plan model.SubscriptionPlan, n int) (decimal.Decimal, error) {
	if n < 1 {
		return decimal.Zero, ErrTeamSize
	}
	per := decimal.Zero
	if plan.PricePerMember != nil {
		per = *plan.PricePerMember
	}
	if per.IsNegative() {
		return decimal.Zero, ErrNegativeCost
	}
	return per.Mul(decimal.NewFromInt(int64(n))), nil
}

// Cents converts a currency amount to integer cents, rounding half away from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Quote prices a checkout of kind against plan and returns integer cents.
func Quote(kind model.CheckoutKind, plan model.SubscriptionPlan, teamSize int) (int64, error) {
	var (
		amount decimal.Decimal
		err    error
	)
	if kind == model.CheckoutKindAddSeats {
		amount, err = Seats(plan, teamSize)
	} else {
		amount, err = Total(plan, teamSize)
	}
	if err != nil {
		return 0, err
	}
	return Cents(amount), nil
}
