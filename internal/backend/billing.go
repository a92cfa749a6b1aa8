package backend

import (
	"context"
	"net/http"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

// BillingDetails returns the caller's subscription and invoices.
func (c *Client) BillingDetails(ctx context.Context, token string) (*model.BillingDetail, error) {
	var out model.BillingDetail
	if err := c.Request(ctx, token, http.MethodGet, "/billing/details", nil, &out); err != nil {
		return nil, err
	}
	if out.Invoices == nil {
		out.Invoices = []model.Invoice{}
	}
	return &out, nil
}

// CancelSubscription cancels the caller's subscription.
func (c *Client) CancelSubscription(ctx context.Context, token string) error {
	return c.Request(ctx, token, http.MethodPost, "/billing/cancel-subscription", nil, nil)
}

// CreatePaymentIntent asks the backend for a processor intent for amountCents.
func (c *Client) CreatePaymentIntent(ctx context.Context, token string, amountCents int64) (*model.PaymentIntentResponse, error) {
	var out model.PaymentIntentResponse
	body := model.PaymentIntentRequest{Amount: amountCents}
	if err := c.Request(ctx, token, http.MethodPost, "/payment/create-payment-intent", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubscriptionStatus returns /user/subscription-details/:id.
func (c *Client) SubscriptionStatus(ctx context.Context, token, userID string) (*model.SubscriptionStatus, error) {
	var out model.SubscriptionStatus
	if err := c.Request(ctx, token, http.MethodGet, "/user/subscription-details/"+seg(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyEntitlement calls the endpoint matching kind to grant what was paid for.
func (c *Client) ApplyEntitlement(ctx context.Context, token, userID string, kind model.CheckoutKind, req model.EntitlementRequest) error {
	endpoint := "/user/" + seg(userID)
	switch kind {
	case model.CheckoutKindChangePlan:
		endpoint += "/update-plan"
	case model.CheckoutKindAddSeats:
		endpoint += "/add-team-members"
	default:
		endpoint += "/subscribe"
	}
	return c.Request(ctx, token, http.MethodPost, endpoint, req, nil)
}
