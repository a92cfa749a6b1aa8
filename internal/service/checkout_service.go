package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/payment"
	"github.com/stemsi/quizdesk-portal/internal/pricing"
	"github.com/stemsi/quizdesk-portal/internal/repository"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// CheckoutStore is the durable ledger behind checkouts.
type CheckoutStore interface {
	Create(ctx context.Context, c *model.Checkout) (*model.Checkout, bool, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*model.Checkout, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Checkout, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*model.Checkout, error)
	AttachPaymentIntent(ctx context.Context, id uuid.UUID, intentID, clientSecret string) (*model.Checkout, error)
	Transition(ctx context.Context, id uuid.UUID, from []model.CheckoutStatus, to model.CheckoutStatus, detail string) (*model.Checkout, error)
	ListByStatus(ctx context.Context, statuses ...model.CheckoutStatus) ([]model.Checkout, error)
}

// PaymentVerifier asks the processor for the real state of a payment intent.
type PaymentVerifier interface {
	Intent(ctx context.Context, id string) (*payment.Intent, error)
}

// CheckoutService sequences payment and entitlement for plan purchases.
//
//	pending -> paid -> applying -> applied
//	pending -> failed -> paid (the intent succeeded after a decline)
//	pending | failed -> needs_manual (captured with the wrong amount)
//	applying -> apply_failed -> applying (retry) | needs_manual
//	paid (stuck) -> apply_failed, applying (stuck) -> needs_manual
//	apply_failed | needs_manual -> resolved
//
// Every move is a conditional update on the ledger, so the entitlement call
// runs at most once per paid -> applying (or retry -> applying) transition.
type CheckoutService struct {
	store       CheckoutStore
	verifier    PaymentVerifier
	api         *backend.Client
	plans       *PlanService
	sessions    *session.Store
	rdb         *redis.Client
	maxAttempts int
	// stuckAfter is how long a paid or applying row may sit before it is
	// treated as abandoned by a crashed or failed request.
	stuckAfter time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	store CheckoutStore,
	verifier PaymentVerifier,
	api *backend.Client,
	plans *PlanService,
	sessions *session.Store,
	rdb *redis.Client,
	maxAttempts int,
	stuckAfter time.Duration,
	log zerolog.Logger,
) *CheckoutService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CheckoutService{
		store:       store,
		verifier:    verifier,
		api:         api,
		plans:       plans,
		sessions:    sessions,
		rdb:         rdb,
		maxAttempts: maxAttempts,
		stuckAfter:  stuckAfter,
		log:         log.With().Str("component", "checkout_service").Logger(),
		now:         time.Now,
	}
}

// Create starts a checkout or returns the one already created with the same key.
func (s *CheckoutService) Create(ctx context.Context, rec *session.Record, idempotencyKey string, req model.CreateCheckoutRequest) (*model.CheckoutIntent, error) {
	existing, err := s.store.FindByIdempotencyKey(ctx, rec.User.UserID, idempotencyKey)
	switch {
	case err == nil:
		return s.replay(existing, req)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find checkout: %w", err)
	}

	plan, err := s.plans.Find(ctx, rec.Token, req.PlanID)
	if err != nil {
		return nil, err
	}
	teamSize := req.TeamSize
	if plan.Type != model.PlanTypeTeam {
		teamSize = 0
	}
	cents, err := pricing.Quote(req.Kind, *plan, teamSize)
	if err != nil {
		return nil, err
	}

	c, created, err := s.store.Create(ctx, &model.Checkout{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		UserID:         rec.User.UserID,
		SessionID:      rec.ID,
		Kind:           req.Kind,
		PlanID:         plan.Identity(),
		TeamSize:       teamSize,
		AmountCents:    cents,
		Status:         model.CheckoutStatusPending,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return s.replay(c, req)
	}

	intent, err := s.api.CreatePaymentIntent(ctx, rec.Token, cents)
	if err != nil || intent.ClientSecret == "" {
		if err == nil {
			err = errors.New("payment intent has no client secret")
		}
		s.fail(ctx, c.ID, []model.CheckoutStatus{model.CheckoutStatusPending}, model.CheckoutStatusFailed, err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	c, err = s.store.AttachPaymentIntent(ctx, c.ID, intent.IntentID(), intent.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("attach payment intent: %w", err)
	}

	s.log.Info().
		Str("checkout_id", c.ID.String()).
		Str("user_id", c.UserID).
		Str("kind", string(c.Kind)).
		Int64("amount_cents", cents).
		Msg("Checkout created")
	s.publish(ctx, c, "")

	return &model.CheckoutIntent{Checkout: c, ClientSecret: c.ClientSecret}, nil
}

func (s *CheckoutService) replay(c *model.Checkout, req model.CreateCheckoutRequest) (*model.CheckoutIntent, error) {
	if c.Kind != req.Kind || c.PlanID != req.PlanID {
		return nil, ErrIdempotencyKeyReuse
	}
	out := &model.CheckoutIntent{Checkout: c}
	if c.Status == model.CheckoutStatusPending {
		out.ClientSecret = c.ClientSecret
	}
	return out, nil
}

// Get returns a checkout owned by the caller. Admins may read any checkout.
func (s *CheckoutService) Get(ctx context.Context, rec *session.Record, id uuid.UUID) (*model.Checkout, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	if c.UserID != rec.User.UserID && rec.Role != model.RoleAdmin {
		return nil, ErrCheckoutNotFound
	}
	return c, nil
}

// Confirm is called by the browser after the payment widget reports success.
// The processor is asked for the real intent status before anything moves.
func (s *CheckoutService) Confirm(ctx context.Context, rec *session.Record, id uuid.UUID, intentID string) (*model.Checkout, error) {
	c, err := s.Get(ctx, rec, id)
	if err != nil {
		return nil, err
	}
	if c.PaymentIntentID == "" || c.PaymentIntentID != intentID {
		return nil, ErrPaymentMismatch
	}
	return s.settle(ctx, c, rec.Token)
}

// HandleIntentSucceeded settles the checkout paid by a webhook-reported intent.
// Unknown intents are ignored.
func (s *CheckoutService) HandleIntentSucceeded(ctx context.Context, intentID string) error {
	c, err := s.store.GetByPaymentIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Str("payment_intent_id", intentID).Msg("Webhook for unknown payment intent")
			return nil
		}
		return fmt.Errorf("find checkout by intent: %w", err)
	}

	token := ""
	if rec, err := s.sessions.Get(ctx, c.SessionID); err == nil {
		token = rec.Token
	}
	_, err = s.settle(ctx, c, token)
	switch {
	case errors.Is(err, ErrEntitlementPending):
		return nil
	case errors.Is(err, ErrPaymentNotSucceeded):
		s.log.Warn().Str("payment_intent_id", intentID).Msg("Webhook reported success the processor does not confirm")
		return nil
	}
	// ErrPaymentPending included: a non-2xx makes the processor redeliver.
	return err
}

func (s *CheckoutService) settle(ctx context.Context, c *model.Checkout, token string) (*model.Checkout, error) {
	switch c.Status {
	case model.CheckoutStatusPending, model.CheckoutStatusFailed:
		paid, err := s.verifyPayment(ctx, c)
		if err != nil {
			return paid, err
		}
		if paid.Status != model.CheckoutStatusPaid {
			// Another caller got there first.
			return paid, nil
		}
		return s.applyPaid(ctx, paid, token)
	case model.CheckoutStatusPaid:
		return s.applyPaid(ctx, c, token)
	case model.CheckoutStatusApplyFailed, model.CheckoutStatusNeedsManual:
		return c, ErrEntitlementPending
	default:
		// applying, applied, resolved: another caller owns or finished it.
		return c, nil
	}
}

func (s *CheckoutService) applyPaid(ctx context.Context, c *model.Checkout, token string) (*model.Checkout, error) {
	if token == "" {
		// Owner session is gone; reconciliation applies with a fresh session or an operator.
		return s.deferApply(ctx, c, errors.New("no session available to apply entitlement"))
	}
	return s.apply(ctx, c, []model.CheckoutStatus{model.CheckoutStatusPaid}, token)
}

// verifyPayment moves a pending or failed checkout according to the
// processor's view of its intent. Only a succeeded intent for the quoted
// amount reaches paid. An intent that may still be charged leaves the row
// untouched with ErrPaymentPending.
func (s *CheckoutService) verifyPayment(ctx context.Context, c *model.Checkout) (*model.Checkout, error) {
	intent, err := s.verifier.Intent(ctx, c.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	from := []model.CheckoutStatus{c.Status}

	switch {
	case intent.Succeeded() && intent.Amount != c.AmountCents:
		// Money was taken, just not the quoted amount. An operator settles it.
		reason := fmt.Errorf("payment intent %s captured %d, quoted %d", intent.ID, intent.Amount, c.AmountCents)
		if flagged := s.fail(ctx, c.ID, from, model.CheckoutStatusNeedsManual, reason); flagged != nil {
			return flagged, ErrEntitlementPending
		}
		return s.reload(ctx, c.ID)

	case intent.Succeeded():
		paid, err := s.store.Transition(ctx, c.ID, from, model.CheckoutStatusPaid, "")
		if errors.Is(err, repository.ErrStaleStatus) {
			return s.reload(ctx, c.ID)
		}
		if err != nil {
			return nil, err
		}
		s.log.Info().
			Str("checkout_id", c.ID.String()).
			Str("payment_intent_id", intent.ID).
			Str("from", string(c.Status)).
			Msg("Payment verified")
		s.publish(ctx, paid, "")
		return paid, nil

	case intent.Declined():
		if c.Status == model.CheckoutStatusFailed {
			return c, ErrPaymentNotSucceeded
		}
		reason := fmt.Errorf("payment intent status %s", intent.Status)
		if failed := s.fail(ctx, c.ID, from, model.CheckoutStatusFailed, reason); failed != nil {
			return failed, ErrPaymentNotSucceeded
		}
		return s.reload(ctx, c.ID)

	default:
		s.log.Info().Str("checkout_id", c.ID.String()).Str("intent_status", intent.Status).Msg("Payment not settled yet")
		return c, ErrPaymentPending
	}
}

// apply claims the checkout for a single entitlement call.
func (s *CheckoutService) apply(ctx context.Context, c *model.Checkout, from []model.CheckoutStatus, token string) (*model.Checkout, error) {
	claimed, err := s.store.Transition(ctx, c.ID, from, model.CheckoutStatusApplying, "")
	if errors.Is(err, repository.ErrStaleStatus) {
		current, err := s.reload(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return current, nil
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, claimed, "")

	// The ledger must record the outcome even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	req := model.EntitlementRequest{SubscriptionPlanID: claimed.PlanID, TeamSize: claimed.TeamSize}
	if applyErr := s.api.ApplyEntitlement(ctx, token, claimed.UserID, claimed.Kind, req); applyErr != nil {
		s.log.Error().
			Err(applyErr).
			Str("checkout_id", claimed.ID.String()).
			Int("status", backend.StatusOf(applyErr)).
			Msg("Entitlement failed after payment, queued for reconciliation")
		return s.deferApply(ctx, claimed, applyErr)
	}

	applied, err := s.store.Transition(ctx, claimed.ID, []model.CheckoutStatus{model.CheckoutStatusApplying}, model.CheckoutStatusApplied, "")
	if err != nil {
		// The row stays applying; the stuck-row sweep hands it to an operator.
		s.log.Error().Err(err).Str("checkout_id", claimed.ID.String()).Msg("Entitlement applied but not recorded")
		return nil, fmt.Errorf("record applied entitlement: %w", err)
	}
	s.log.Info().Str("checkout_id", applied.ID.String()).Str("kind", string(applied.Kind)).Msg("Entitlement applied")
	s.publish(ctx, applied, "")
	return applied, nil
}

// deferApply records a failed or impossible apply and hands it to reconciliation.
func (s *CheckoutService) deferApply(ctx context.Context, c *model.Checkout, cause error) (*model.Checkout, error) {
	from := []model.CheckoutStatus{model.CheckoutStatusApplying, model.CheckoutStatusPaid}
	failed := s.fail(ctx, c.ID, from, model.CheckoutStatusApplyFailed, cause)
	if failed == nil {
		return s.reload(ctx, c.ID)
	}
	if err := s.enqueue(ctx, failed.ID); err != nil {
		s.log.Error().Err(err).Str("checkout_id", failed.ID.String()).Msg("Failed to enqueue reconciliation")
	}
	return failed, ErrEntitlementPending
}

// Reconcile retries an apply_failed checkout. It is driven by the worker.
// Returns true when the checkout should be retried again later.
//
// A paid row left behind by an interrupted request is retried like
// apply_failed: no entitlement call was made for it. An applying row left
// behind may or may not have been applied, so it goes to an operator.
func (s *CheckoutService) Reconcile(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return true, err
	}

	switch c.Status {
	case model.CheckoutStatusApplyFailed:
	case model.CheckoutStatusPaid, model.CheckoutStatusApplying:
		if !s.stuck(c) {
			// Still owned by a live request; look again after the backoff.
			return true, nil
		}
		c, err = s.releaseStuck(ctx, c)
		if err != nil {
			return true, err
		}
		if c.Status != model.CheckoutStatusApplyFailed {
			return false, nil
		}
	default:
		return false, nil
	}

	applyFailed := []model.CheckoutStatus{model.CheckoutStatusApplyFailed}
	if c.Attempts >= s.maxAttempts {
		s.fail(ctx, c.ID, applyFailed, model.CheckoutStatusNeedsManual, fmt.Errorf("gave up after %d attempts: %s", c.Attempts, c.LastError))
		return false, nil
	}

	rec, err := s.sessions.Get(ctx, c.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.fail(ctx, c.ID, applyFailed, model.CheckoutStatusNeedsManual, errors.New("owner session expired before entitlement could be applied"))
			return false, nil
		}
		return true, err
	}

	_, err = s.apply(ctx, c, applyFailed, rec.Token)
	if errors.Is(err, ErrEntitlementPending) {
		return true, nil
	}
	return false, err
}

// Unreconciled lists checkouts that were charged but never entitled: failed
// applies, rows waiting on an operator, and paid or applying rows abandoned
// longer than stuckAfter.
func (s *CheckoutService) Unreconciled(ctx context.Context) ([]model.Checkout, error) {
	rows, err := s.store.ListByStatus(ctx,
		model.CheckoutStatusApplyFailed, model.CheckoutStatusNeedsManual,
		model.CheckoutStatusPaid, model.CheckoutStatusApplying)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, c := range rows {
		if c.Status.Unreconciled() || s.stuck(&c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CheckoutService) stuck(c *model.Checkout) bool {
	if c.Status != model.CheckoutStatusPaid && c.Status != model.CheckoutStatusApplying {
		return false
	}
	return s.now().Sub(c.UpdatedAt) >= s.stuckAfter
}

// releaseStuck takes an abandoned paid or applying row out of its in-flight status.
func (s *CheckoutService) releaseStuck(ctx context.Context, c *model.Checkout) (*model.Checkout, error) {
	from := []model.CheckoutStatus{c.Status}
	var released *model.Checkout
	if c.Status == model.CheckoutStatusPaid {
		released = s.fail(ctx, c.ID, from, model.CheckoutStatusApplyFailed,
			errors.New("interrupted after payment before entitlement was requested"))
	} else {
		released = s.fail(ctx, c.ID, from, model.CheckoutStatusNeedsManual,
			errors.New("interrupted while applying entitlement; check the account before retrying"))
	}
	if released != nil {
		return released, nil
	}
	current, err := s.store.GetByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reload checkout: %w", err)
	}
	return current, nil
}

// Retry applies an unreconciled checkout with the operator's token.
func (s *CheckoutService) Retry(ctx context.Context, operator *session.Record, id uuid.UUID) (*model.Checkout, error) {
	c, err := s.Get(ctx, operator, id)
	if err != nil {
		return nil, err
	}
	if s.stuck(c) {
		if c, err = s.releaseStuck(ctx, c); err != nil {
			return nil, err
		}
	}
	if !c.Status.Unreconciled() {
		return nil, ErrCheckoutState
	}
	s.log.Info().Str("checkout_id", c.ID.String()).Str("operator_id", operator.User.UserID).Msg("Operator retrying entitlement")
	return s.apply(ctx, c, []model.CheckoutStatus{model.CheckoutStatusApplyFailed, model.CheckoutStatusNeedsManual}, operator.Token)
}

// Resolve closes an unreconciled checkout with an operator note.
func (s *CheckoutService) Resolve(ctx context.Context, operator *session.Record, id uuid.UUID, note string) (*model.Checkout, error) {
	c, err := s.store.Transition(ctx, id,
		[]model.CheckoutStatus{model.CheckoutStatusApplyFailed, model.CheckoutStatusNeedsManual},
		model.CheckoutStatusResolved, note)
	if errors.Is(err, repository.ErrStaleStatus) {
		return nil, ErrCheckoutState
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("checkout_id", c.ID.String()).Str("operator_id", operator.User.UserID).Msg("Checkout resolved manually")
	s.publish(ctx, c, "")
	return c, nil
}

// Subscribe opens the status event stream for one checkout.
func (s *CheckoutService) Subscribe(ctx context.Context, id uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.CheckoutEventsChannel(id.String()))
}

func (s *CheckoutService) fail(ctx context.Context, id uuid.UUID, from []model.CheckoutStatus, to model.CheckoutStatus, cause error) *model.Checkout {
	c, err := s.store.Transition(ctx, id, from, to, cause.Error())
	if err != nil {
		if !errors.Is(err, repository.ErrStaleStatus) {
			s.log.Error().Err(err).Str("checkout_id", id.String()).Str("to", string(to)).Msg("Failed to record checkout failure")
		}
		return nil
	}
	s.log.Warn().Str("checkout_id", id.String()).Str("status", string(to)).Str("reason", cause.Error()).Msg("Checkout failed")
	s.publish(ctx, c, cause.Error())
	return c
}

func (s *CheckoutService) reload(ctx context.Context, id uuid.UUID) (*model.Checkout, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload checkout: %w", err)
	}
	switch c.Status {
	case model.CheckoutStatusFailed:
		return c, ErrPaymentNotSucceeded
	case model.CheckoutStatusApplyFailed, model.CheckoutStatusNeedsManual:
		return c, ErrEntitlementPending
	}
	return c, nil
}

func (s *CheckoutService) enqueue(ctx context.Context, id uuid.UUID) error {
	return s.rdb.RPush(ctx, config.WorkerKey.ReconcileCheckoutsQueue, id.String()).Err()
}

func (s *CheckoutService) publish(ctx context.Context, c *model.Checkout, errMsg string) {
	payload, _ := json.Marshal(model.CheckoutEvent{CheckoutID: c.ID, Status: c.Status, Error: errMsg, At: time.Now().UTC()})
	if err := s.rdb.Publish(ctx, config.CacheKey.CheckoutEventsChannel(c.ID.String()), payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("checkout_id", c.ID.String()).Msg("Failed to publish checkout event")
	}
}
