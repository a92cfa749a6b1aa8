package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionDetail describes the plan currently held.
type SubscriptionDetail struct {
	CurrentPlan string          `json:"currentPlan"`
	Price       decimal.Decimal `json:"price"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
}

// Invoice is a past charge.
type Invoice struct {
	InvoiceID string          `json:"invoiceId"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
}

// BillingDetail is the read-only projection returned by /billing/details.
type BillingDetail struct {
	IsSubscribed       bool                `json:"isSubscribed"`
	SubscriptionPlanID string              `json:"subscriptionPlanId,omitempty"`
	SubscriptionDetail *SubscriptionDetail `json:"subscriptionDetail,omitempty"`
	Invoices           []Invoice           `json:"invoices"`
}

// BillingOverview is the billing view: current state plus the plan catalog.
type BillingOverview struct {
	BillingDetail
	Plans []SubscriptionPlan `json:"plans"`
}
