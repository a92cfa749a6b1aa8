package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

type fakeReconciler struct {
	mu      sync.Mutex
	calls   map[uuid.UUID]int
	retry   bool
	pending []model.Checkout
}

func (f *fakeReconciler) Reconcile(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[uuid.UUID]int{}
	}
	f.calls[id]++
	return f.retry, nil
}

func (f *fakeReconciler) Unreconciled(context.Context) ([]model.Checkout, error) {
	return f.pending, nil
}

func newTestWorker(t *testing.T, r Reconciler) (*ReconcileWorker, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewReconcileWorker(r, rdb, 30*time.Second, zerolog.Nop())
	w.now = func() time.Time { return now }
	return w, mr, &now
}

func TestReconcileWorker_WaitsOutBackoff(t *testing.T) {
	fake := &fakeReconciler{}
	w, mr, now := newTestWorker(t, fake)
	ctx := context.Background()
	id := uuid.New()

	_, err := mr.RPush(config.WorkerKey.ReconcileCheckoutsQueue, id.String())
	require.NoError(t, err)

	w.drain(ctx)
	assert.Equal(t, 0, w.processDue(ctx), "must not run before backoff elapses")

	*now = now.Add(31 * time.Second)
	assert.Equal(t, 1, w.processDue(ctx))
	assert.Equal(t, 1, fake.calls[id])

	members, err := mr.ZMembers(config.WorkerKey.ReconcileCheckoutsDelayed)
	assert.Error(t, err, "delayed set should be empty once processed: %v", members)
}

func TestReconcileWorker_RetryReschedules(t *testing.T) {
	fake := &fakeReconciler{retry: true}
	w, mr, now := newTestWorker(t, fake)
	ctx := context.Background()
	id := uuid.New()

	w.schedule(ctx, id.String())
	*now = now.Add(time.Minute)
	require.Equal(t, 1, w.processDue(ctx))

	members, err := mr.ZMembers(config.WorkerKey.ReconcileCheckoutsDelayed)
	require.NoError(t, err)
	assert.Equal(t, []string{id.String()}, members)
	assert.Equal(t, 0, w.processDue(ctx), "rescheduled entry waits for the next backoff")
}

func TestReconcileWorker_SweepSkipsOperatorRows(t *testing.T) {
	failed := model.Checkout{ID: uuid.New(), Status: model.CheckoutStatusApplyFailed}
	manual := model.Checkout{ID: uuid.New(), Status: model.CheckoutStatusNeedsManual}
	stuckPaid := model.Checkout{ID: uuid.New(), Status: model.CheckoutStatusPaid}
	stuckApplying := model.Checkout{ID: uuid.New(), Status: model.CheckoutStatusApplying}
	fake := &fakeReconciler{pending: []model.Checkout{failed, manual, stuckPaid, stuckApplying}}
	w, mr, _ := newTestWorker(t, fake)

	w.sweep(context.Background())

	members, err := mr.ZMembers(config.WorkerKey.ReconcileCheckoutsDelayed)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{failed.ID.String(), stuckPaid.ID.String(), stuckApplying.ID.String()}, members)
}

func TestReconcileWorker_SweepKeepsEarliestDueTime(t *testing.T) {
	failed := model.Checkout{ID: uuid.New(), Status: model.CheckoutStatusApplyFailed}
	fake := &fakeReconciler{pending: []model.Checkout{failed}}
	w, mr, now := newTestWorker(t, fake)
	ctx := context.Background()

	w.sweep(ctx)
	first, err := mr.ZScore(config.WorkerKey.ReconcileCheckoutsDelayed, failed.ID.String())
	require.NoError(t, err)

	*now = now.Add(w.sweepEvery - time.Second)
	assert.False(t, w.sweepIfDue(ctx))
	*now = now.Add(time.Second)
	assert.True(t, w.sweepIfDue(ctx))
	again, err := mr.ZScore(config.WorkerKey.ReconcileCheckoutsDelayed, failed.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, *now, w.lastSweep)

	*now = now.Add(w.backoff)
	assert.Equal(t, 1, w.processDue(ctx))
	assert.Equal(t, 1, fake.calls[failed.ID])
}

func TestReconcileWorker_DuplicateEntriesRunOnce(t *testing.T) {
	fake := &fakeReconciler{}
	w, _, now := newTestWorker(t, fake)
	ctx := context.Background()
	id := uuid.New()

	w.schedule(ctx, id.String())
	w.schedule(ctx, id.String())
	*now = now.Add(time.Minute)

	assert.Equal(t, 1, w.processDue(ctx))
	assert.Equal(t, 1, fake.calls[id])
}
