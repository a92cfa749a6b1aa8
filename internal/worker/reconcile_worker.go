package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

const (
	ReconcilePollTimeout = 1 * time.Second
	ReconcileBatchSize   = 50
	ReconcileSweepEvery  = 5 * time.Minute
)

// Reconciler retries entitlement for charged checkouts.
type Reconciler interface {
	Reconcile(ctx context.Context, id uuid.UUID) (bool, error)
	Unreconciled(ctx context.Context) ([]model.Checkout, error)
}

// ReconcileWorker pops apply_failed checkouts, waits out the backoff and
// retries them until they are applied or handed to an operator. It also
// sweeps the ledger every sweepEvery for rows no queue entry points at:
// entries lost with Redis, and paid or applying rows left by a crashed request.
type ReconcileWorker struct {
	reconciler Reconciler
	rdb        *redis.Client
	backoff    time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	log        zerolog.Logger
	now        func() time.Time
}

func NewReconcileWorker(reconciler Reconciler, rdb *redis.Client, backoff time.Duration, log zerolog.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		reconciler: reconciler,
		rdb:        rdb,
		backoff:    backoff,
		sweepEvery: ReconcileSweepEvery,
		log:        log.With().Str("component", "reconcile_worker").Logger(),
		now:        time.Now,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	w.log.Info().Dur("backoff", w.backoff).Msg("ReconcileWorker started")
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ReconcileWorker stopped")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, ReconcilePollTimeout, config.WorkerKey.ReconcileCheckoutsQueue).Result()
		if err != nil && !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		if len(item) == 2 {
			w.schedule(ctx, item[1])
		}
		w.drain(ctx)
		w.processDue(ctx)
		w.sweepIfDue(ctx)
	}
}

func (w *ReconcileWorker) sweepIfDue(ctx context.Context) bool {
	if w.now().Sub(w.lastSweep) < w.sweepEvery {
		return false
	}
	w.sweep(ctx)
	return true
}

// sweep schedules every unreconciled row an operator is not already holding.
// Rows that are already scheduled keep their due time.
func (w *ReconcileWorker) sweep(ctx context.Context) {
	w.lastSweep = w.now()
	pending, err := w.reconciler.Unreconciled(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Failed to list unreconciled checkouts")
		}
		return
	}
	n := 0
	for _, c := range pending {
		if c.Status == model.CheckoutStatusNeedsManual {
			continue
		}
		w.schedule(ctx, c.ID.String())
		n++
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("Swept unreconciled checkouts")
	}
}

// drain moves everything queued into the delayed set.
func (w *ReconcileWorker) drain(ctx context.Context) {
	for i := 0; i < ReconcileBatchSize; i++ {
		id, err := w.rdb.LPop(ctx, config.WorkerKey.ReconcileCheckoutsQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("LPop error")
			}
			return
		}
		w.schedule(ctx, id)
	}
}

func (w *ReconcileWorker) schedule(ctx context.Context, id string) {
	due := w.now().Add(w.backoff)
	// NX keeps the earliest due time when an id is queued twice.
	err := w.rdb.ZAddNX(ctx, config.WorkerKey.ReconcileCheckoutsDelayed, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: id,
	}).Err()
	if err != nil {
		w.log.Error().Err(err).Str("checkout_id", id).Msg("Failed to schedule reconciliation")
	}
}

// processDue retries every checkout whose backoff has elapsed. Returns how many ran.
func (w *ReconcileWorker) processDue(ctx context.Context) int {
	ids, err := w.rdb.ZRangeByScore(ctx, config.WorkerKey.ReconcileCheckoutsDelayed, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(w.now().UnixMilli(), 10),
		Count: ReconcileBatchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("ZRangeByScore error")
		}
		return 0
	}

	ran := 0
	for _, raw := range ids {
		// Only the instance that removes the entry processes it.
		removed, err := w.rdb.ZRem(ctx, config.WorkerKey.ReconcileCheckoutsDelayed, raw).Result()
		if err != nil || removed == 0 {
			continue
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			w.log.Error().Err(err).Str("checkout_id", raw).Msg("Invalid checkout id in reconcile queue")
			continue
		}

		ran++
		retry, err := w.reconciler.Reconcile(ctx, id)
		if err != nil {
			w.log.Warn().Err(err).Str("checkout_id", raw).Msg("Reconciliation attempt errored")
		}
		if retry {
			w.schedule(ctx, raw)
		}
	}
	return ran
}
