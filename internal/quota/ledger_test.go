package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/memory"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLimits = config.QuotaConfig{FreeLimit: 3, ProLimit: 50, EnterpriseLimit: 500}
	t0         = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
)

func newTestLedger(t *testing.T) (*Ledger, *memory.Store, *time.Time) {
	t.Helper()
	mem := memory.New()
	now := t0
	l := NewLedger(mem.Quotas(), testLimits, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.SetClock(func() time.Time { return now })
	return l, mem, &now
}

func used(t *testing.T, mem *memory.Store, userID uuid.UUID) int {
	t.Helper()
	q, err := mem.Quotas().Get(context.Background(), userID)
	require.NoError(t, err)
	return q.Used
}

func TestLedger_ReserveUntilExceeded(t *testing.T) {
	t.Parallel()
	l, mem, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < testLimits.FreeLimit; i++ {
		r, err := l.Reserve(ctx, userID, uuid.New())
		require.NoError(t, err)
		assert.False(t, r.Settled())
	}

	_, err := l.Reserve(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, testLimits.FreeLimit, used(t, mem, userID))
}

func TestLedger_ConcurrentReserveAtLimitMinusOne(t *testing.T) {
	t.Parallel()
	l, mem, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < testLimits.FreeLimit-1; i++ {
		_, err := l.Reserve(ctx, userID, uuid.New())
		require.NoError(t, err)
	}

	const racers = 16
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Reserve(ctx, userID, uuid.New())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, exceeded int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrQuotaExceeded):
			exceeded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, racers-1, exceeded)
	assert.Equal(t, testLimits.FreeLimit, used(t, mem, userID))
}

func TestLedger_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()
	l, mem, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	r, err := l.Reserve(ctx, userID, uuid.New())
	require.NoError(t, err)
	require.Equal(t, 1, used(t, mem, userID))

	require.NoError(t, l.Release(ctx, r))
	require.NoError(t, l.Release(ctx, r))
	assert.True(t, r.Settled())
	assert.Equal(t, 0, used(t, mem, userID))
}

func TestLedger_CommitThenReleaseKeepsUsage(t *testing.T) {
	t.Parallel()
	l, mem, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	r, err := l.Reserve(ctx, userID, uuid.New())
	require.NoError(t, err)

	l.Commit(r)
	require.NoError(t, l.Release(ctx, r))
	assert.Equal(t, 1, used(t, mem, userID))
}

func TestLedger_ReleaseAcrossResetDoesNotGoNegative(t *testing.T) {
	t.Parallel()
	l, mem, now := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	r, err := l.Reserve(ctx, userID, uuid.New())
	require.NoError(t, err)

	*now = t0.AddDate(0, 1, 1)
	reset, err := l.ResetIfDue(ctx, userID)
	require.NoError(t, err)
	require.True(t, reset)

	require.NoError(t, l.Release(ctx, r))
	assert.Equal(t, 0, used(t, mem, userID))
}

func TestLedger_ResetIfDue(t *testing.T) {
	t.Parallel()
	l, mem, now := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	reset, err := l.ResetIfDue(ctx, userID)
	require.NoError(t, err)
	assert.False(t, reset, "no row, nothing to reset")

	for i := 0; i < testLimits.FreeLimit; i++ {
		_, err := l.Reserve(ctx, userID, uuid.New())
		require.NoError(t, err)
	}

	*now = t0.AddDate(0, 1, 0)
	reset, err = l.ResetIfDue(ctx, userID)
	require.NoError(t, err)
	assert.True(t, reset)

	reset, err = l.ResetIfDue(ctx, userID)
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, 0, used(t, mem, userID))

	_, err = l.Reserve(ctx, userID, uuid.New())
	assert.NoError(t, err)
}

func TestLedger_Status(t *testing.T) {
	t.Parallel()
	l, mem, now := newTestLedger(t)
	ctx := context.Background()

	fresh := uuid.New()
	q, err := l.Status(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, q.Plan)
	assert.Equal(t, testLimits.FreeLimit, q.MonthlyLimit)
	assert.Equal(t, testLimits.FreeLimit, q.Remaining())

	pro := uuid.New()
	seeded := domain.NewQuota(pro, domain.PlanPro, testLimits.LimitFor(domain.PlanPro), t0)
	seeded.Used = 7
	require.NoError(t, mem.PutQuota(ctx, seeded))

	q, err = l.Status(ctx, pro)
	require.NoError(t, err)
	assert.Equal(t, 43, q.Remaining())

	*now = seeded.ResetAt.Add(time.Second)
	q, err = l.Status(ctx, pro)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Used)
}

func TestLedger_ReleaseHeldForCourse(t *testing.T) {
	t.Parallel()
	l, mem, _ := newTestLedger(t)
	ctx := context.Background()
	userID, courseID := uuid.New(), uuid.New()

	released, err := l.ReleaseHeldForCourse(ctx, courseID)
	require.NoError(t, err)
	assert.False(t, released)

	_, err = l.Reserve(ctx, userID, courseID)
	require.NoError(t, err)

	released, err = l.ReleaseHeldForCourse(ctx, courseID)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, 0, used(t, mem, userID))
}

type failingReleaseStore struct {
	store.QuotaStore
	err error
}

func (s failingReleaseStore) Release(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, s.err
}

func TestLedger_ReleaseErrors(t *testing.T) {
	t.Parallel()
	mem := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("missing row is swallowed", func(t *testing.T) {
		l := NewLedger(failingReleaseStore{QuotaStore: mem.Quotas(), err: store.ErrQuotaNotFound}, testLimits, logger)
		r, err := l.Reserve(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.NoError(t, l.Release(ctx, r))
		assert.True(t, r.Settled())
	})

	t.Run("store failure is returned and the handle stays open", func(t *testing.T) {
		errDB := errors.New("connection reset")
		l := NewLedger(failingReleaseStore{QuotaStore: mem.Quotas(), err: errDB}, testLimits, logger)
		r, err := l.Reserve(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.ErrorIs(t, l.Release(ctx, r), errDB)
		assert.False(t, r.Settled())
	})
}

// Random reserve/commit/release sequences: usage always equals the number of
// reservations that were not released, and never exceeds the limit.
func TestLedger_ConservationProperty(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for iter := 0; iter < 50; iter++ {
		l, mem, _ := newTestLedger(t)
		userID := uuid.New()
		var open []*Reservation
		kept := 0

		for step := 0; step < 40; step++ {
			switch rng.Intn(3) {
			case 0:
				r, err := l.Reserve(ctx, userID, uuid.New())
				if errors.Is(err, ErrQuotaExceeded) {
					continue
				}
				require.NoError(t, err)
				open = append(open, r)
			case 1:
				if len(open) == 0 {
					continue
				}
				i := rng.Intn(len(open))
				l.Commit(open[i])
				kept++
				open = append(open[:i], open[i+1:]...)
			case 2:
				if len(open) == 0 {
					continue
				}
				i := rng.Intn(len(open))
				require.NoError(t, l.Release(ctx, open[i]))
				open = append(open[:i], open[i+1:]...)
			}

			if len(open) == 0 && kept == 0 {
				continue
			}
			u := used(t, mem, userID)
			assert.Equal(t, kept+len(open), u)
			assert.LessOrEqual(t, u, testLimits.FreeLimit)
		}
	}
}
