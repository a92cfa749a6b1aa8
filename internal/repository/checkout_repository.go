package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

var (
	// ErrNotFound is returned when no checkout matches.
	ErrNotFound = errors.New("checkout not found")
	// ErrStaleStatus is returned when a conditional transition finds the row
	// in a status other than the expected ones.
	ErrStaleStatus = errors.New("checkout status changed concurrently")
)

const checkoutColumns = `id, idempotency_key, user_id, session_id, kind, plan_id, team_size, amount_cents,
	COALESCE(payment_intent_id, ''), COALESCE(client_secret, ''), status, attempts,
	COALESCE(last_error, ''), COALESCE(resolution_note, ''), created_at, updated_at`

// CheckoutRepository is the durable checkout ledger.
type CheckoutRepository struct {
	pool *pgxpool.Pool
}

// NewCheckoutRepository creates a new CheckoutRepository.
func NewCheckoutRepository(pool *pgxpool.Pool) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

func scanCheckout(row pgx.Row) (*model.Checkout, error) {
	c := &model.Checkout{}
	err := row.Scan(&c.ID, &c.IdempotencyKey, &c.UserID, &c.SessionID, &c.Kind, &c.PlanID, &c.TeamSize, &c.AmountCents,
		&c.PaymentIntentID, &c.ClientSecret, &c.Status, &c.Attempts,
		&c.LastError, &c.ResolutionNote, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Create inserts a pending checkout. When the (user, idempotency key) pair
// already exists the stored row is returned with created=false.
func (r *CheckoutRepository) Create(ctx context.Context, c *model.Checkout) (*model.Checkout, bool, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO checkouts (id, idempotency_key, user_id, session_id, kind, plan_id, team_size, amount_cents, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, idempotency_key) DO NOTHING
		 RETURNING `+checkoutColumns,
		c.ID, c.IdempotencyKey, c.UserID, c.SessionID, c.Kind, c.PlanID, c.TeamSize, c.AmountCents, model.CheckoutStatusPending,
	)
	created, err := scanCheckout(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("insert checkout: %w", err)
	}

	existing, err := r.FindByIdempotencyKey(ctx, c.UserID, c.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByIdempotencyKey returns the checkout a user created with key.
func (r *CheckoutRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*model.Checkout, error) {
	return scanCheckout(r.pool.QueryRow(ctx,
		`SELECT `+checkoutColumns+` FROM checkouts WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
}

// GetByID returns one checkout.
func (r *CheckoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Checkout, error) {
	return scanCheckout(r.pool.QueryRow(ctx,
		`SELECT `+checkoutColumns+` FROM checkouts WHERE id = $1`, id))
}

// GetByPaymentIntent returns the checkout paid by a payment intent.
func (r *CheckoutRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*model.Checkout, error) {
	return scanCheckout(r.pool.QueryRow(ctx,
		`SELECT `+checkoutColumns+` FROM checkouts WHERE payment_intent_id = $1`, intentID))
}

// AttachPaymentIntent records the processor intent on a pending checkout.
func (r *CheckoutRepository) AttachPaymentIntent(ctx context.Context, id uuid.UUID, intentID, clientSecret string) (*model.Checkout, error) {
	c, err := scanCheckout(r.pool.QueryRow(ctx,
		`UPDATE checkouts
		 SET payment_intent_id = $2, client_secret = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $4
		 RETURNING `+checkoutColumns,
		id, intentID, clientSecret, model.CheckoutStatusPending))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStaleStatus
	}
	return c, err
}

// Transition moves a checkout to status `to` only if it is currently in one of
// `from`. Exactly one concurrent caller wins; the rest get ErrStaleStatus.
//
// detail is stored as last_error for failure statuses and as the resolution
// note for resolved. Entering apply_failed increments attempts.
func (r *CheckoutRepository) Transition(ctx context.Context, id uuid.UUID, from []model.CheckoutStatus, to model.CheckoutStatus, detail string) (*model.Checkout, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	c, err := scanCheckout(r.pool.QueryRow(ctx,
		`UPDATE checkouts
		 SET status = $2,
		     attempts = attempts + CASE WHEN $2 = 'apply_failed' THEN 1 ELSE 0 END,
		     last_error = CASE WHEN $2 IN ('failed', 'apply_failed', 'needs_manual') THEN NULLIF($4, '') ELSE last_error END,
		     resolution_note = CASE WHEN $2 = 'resolved' THEN NULLIF($4, '') ELSE resolution_note END,
		     updated_at = NOW()
		 WHERE id = $1 AND status = ANY($3)
		 RETURNING `+checkoutColumns,
		id, string(to), fromStrs, detail))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("transition checkout to %s: %w", to, err)
	}
	return c, nil
}

// ListByStatus returns checkouts in any of the given statuses, oldest change first.
func (r *CheckoutRepository) ListByStatus(ctx context.Context, statuses ...model.CheckoutStatus) ([]model.Checkout, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+checkoutColumns+` FROM checkouts WHERE status = ANY($1) ORDER BY updated_at ASC`, strs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkouts := []model.Checkout{}
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		checkouts = append(checkouts, *c)
	}
	return checkouts, rows.Err()
}
