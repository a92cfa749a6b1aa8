package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

func TestBillingOverview_Combines(t *testing.T) {
	fb, api := newFakeBackend(t)
	fb.handle("GET /billing/details", jsonHandler(http.StatusOK,
		`{"isSubscribed": true, "subscriptionDetail": {"currentPlan": "Team", "price": 29.99}}`))
	fb.handle("GET /admin/subscription-plans", jsonHandler(http.StatusOK, teamPlans))
	svc := NewBillingService(api, zerolog.Nop())

	ov, err := svc.Overview(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ov.IsSubscribed)
	assert.Len(t, ov.Plans, 2)
	assert.NotNil(t, ov.Invoices)
	assert.True(t, decimal.RequireFromString("29.99").Equal(ov.SubscriptionDetail.Price))
}

func TestBillingOverview_AnyFailureFails(t *testing.T) {
	fb, api := newFakeBackend(t)
	fb.handle("GET /billing/details", jsonHandler(http.StatusOK, `{}`))
	svc := NewBillingService(api, zerolog.Nop())

	_, err := svc.Overview(context.Background(), "tok")
	assert.Error(t, err)
}

func TestDashboard_RoleSpecificEndpoints(t *testing.T) {
	fb, api := newFakeBackend(t)
	fb.handle("GET /dashboard/admin/stats", jsonHandler(http.StatusOK, `{"users": 3}`))
	fb.handle("GET /dashboard/admin/recent", jsonHandler(http.StatusOK, `[]`))
	svc := NewDashboardService(api)

	d, err := svc.Get(context.Background(), "tok", model.RoleAdmin)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users": 3}`, string(d.Stats))
	assert.Equal(t, 0, fb.count("GET /dashboard/user/stats"))

	_, err = svc.Get(context.Background(), "tok", model.RoleUser)
	assert.Error(t, err)
}

func TestNavigation_FiltersByCapability(t *testing.T) {
	nav := NewNavigationService()

	user := nav.For(&Claims{Role: model.RoleUser, Capabilities: model.CapabilitiesFor(model.RoleUser)})
	teamAdmin := nav.For(&Claims{Role: model.RoleTeamAdmin, Capabilities: model.CapabilitiesFor(model.RoleTeamAdmin)})
	admin := nav.For(&Claims{Role: model.RoleAdmin, Capabilities: model.CapabilitiesFor(model.RoleAdmin)})

	titles := func(n Navigation) []string {
		out := make([]string, 0, len(n.Items))
		for _, it := range n.Items {
			out = append(out, it.Title)
		}
		return out
	}

	assert.NotContains(t, titles(user), "View Team Members")
	assert.Contains(t, titles(teamAdmin), "View Team Members")
	assert.Contains(t, titles(admin), "Manage Subscriptions")
	assert.NotContains(t, titles(user), "Manage Subscriptions")
	assert.Equal(t, len(user.Items)+2, len(teamAdmin.Items))
}

func TestPlanDelete_ReturnsRemainingCatalog(t *testing.T) {
	fb, api := newFakeBackend(t)
	fb.handle("GET /admin/subscription-plans", jsonHandler(http.StatusOK, teamPlans))
	fb.handle("DELETE /admin/subscription-plans/solo", jsonHandler(http.StatusOK, `{}`))
	svc := NewPlanService(api, zerolog.Nop())

	remaining, err := svc.Delete(context.Background(), "tok", "solo")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "team", remaining[0].Identity())
}

func TestPlanCreate_RejectsNegativePrice(t *testing.T) {
	_, api := newFakeBackend(t)
	svc := NewPlanService(api, zerolog.Nop())

	_, err := svc.Create(context.Background(), "tok", model.CreatePlanRequest{
		Name: "Bad", Type: model.PlanTypeIndividual, Price: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestTeamRemoveMember(t *testing.T) {
	fb, api := newFakeBackend(t)
	fb.handle("GET /user/u1/team", jsonHandler(http.StatusOK, `{"team": [{"_id": "m1", "name": "A"}, {"_id": "m2", "name": "B"}]}`))
	fb.handle("DELETE /user/u1/team-members/m1", jsonHandler(http.StatusOK, `{}`))
	svc := NewUserService(api, zerolog.Nop())

	remaining, err := svc.RemoveMember(context.Background(), userRecord("u1"), "m1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "m2", remaining[0].ID)
}
