package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func teamPlan(base, per string) model.SubscriptionPlan {
	p := dec(per)
	return model.SubscriptionPlan{ID: "team", Type: model.PlanTypeTeam, Price: dec(base), PricePerMember: &p}
}

func TestTotal_TeamPlanScalesLinearly(t *testing.T) {
	plan := teamPlan("49.99", "9.99")
	for size := 1; size <= 25; size++ {
		got, err := Total(plan, size)
		require.NoError(t, err)
		want := dec("49.99").Add(dec("9.99").Mul(decimal.NewFromInt(int64(size))))
		assert.True(t, want.Equal(got), "size %d: want %s got %s", size, want, got)
	}
}

func TestTotal_TeamSizeBelowOne(t *testing.T) {
	_, err := Total(teamPlan("10", "1"), 0)
	assert.ErrorIs(t, err, ErrTeamSize)
}

func TestTotal_IndividualIgnoresTeamSize(t *testing.T) {
	plan := model.SubscriptionPlan{Type: model.PlanTypeIndividual, Price: dec("19.50")}
	got, err := Total(plan, 0)
	require.NoError(t, err)
	assert.True(t, dec("19.50").Equal(got))
}

func TestCents_Rounds(t *testing.T) {
	cases := map[string]int64{
		"49.99":   4999,
		"0.005":   1,
		"10.004":  1000,
		"10.005":  1001,
		"1234.5":  123450,
		"0":       0,
		"3.14159": 314,
	}
	for in, want := range cases {
		assert.Equal(t, want, Cents(dec(in)), in)
	}
}

func TestQuote_TeamExample(t *testing.T) {
	// B + M × S converted to cents: 29.99 + 4.333 × 3 = 42.989 -> 4299
	cents, err := Quote(model.CheckoutKindSubscribe, teamPlan("29.99", "4.333"), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4299), cents)
}

func TestQuote_AddSeatsChargesSeatsOnly(t *testing.T) {
	cents, err := Quote(model.CheckoutKindAddSeats, teamPlan("100", "12.5"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cents)

	_, err = Quote(model.CheckoutKindAddSeats, model.SubscriptionPlan{Type: model.PlanTypeIndividual, Price: dec("5")}, 2)
	assert.ErrorIs(t, err, ErrNotTeamPlan)
}
