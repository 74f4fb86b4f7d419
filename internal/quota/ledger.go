// Package quota enforces per-user monthly generation limits.
//
// A generation attempt takes a reservation before calling the model. The
// reservation is settled exactly once: committed when the course is
// published, released on any failure. Usage therefore only sticks for
// courses that actually published.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

// ErrQuotaExceeded is returned by Reserve when the monthly limit is used up.
var ErrQuotaExceeded = errors.New("monthly generation quota exceeded")

// Reservation is a handle on one provisional usage increment.
type Reservation struct {
	domain.Reservation
	settled atomic.Bool
}

// Settled reports whether Commit or Release has been applied to the handle.
func (r *Reservation) Settled() bool {
	return r.settled.Load()
}

// Ledger reserves, commits and releases quota on top of a QuotaStore.
type Ledger struct {
	store  store.QuotaStore
	limits config.QuotaConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewLedger creates a ledger provisioning new users on the FREE plan with the
// configured limit.
func NewLedger(s store.QuotaStore, limits config.QuotaConfig, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  s,
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "quota_ledger"),
	}
}

// SetClock replaces the ledger's time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Reserve applies any due reset and takes one unit of the user's quota for
// courseID. It returns ErrQuotaExceeded when nothing is left.
func (l *Ledger) Reserve(ctx context.Context, userID, courseID uuid.UUID) (*Reservation, error) {
	res, q, err := l.store.ReadAndReserve(ctx, store.ReserveRequest{
		UserID:       userID,
		CourseID:     courseID,
		Now:          l.now(),
		DefaultPlan:  domain.PlanFree,
		DefaultLimit: l.limits.LimitFor(domain.PlanFree),
	})
	if err != nil {
		if errors.Is(err, store.ErrLimitReached) {
			log := l.logger.With("user_id", userID, "course_id", courseID)
			if q != nil {
				log = log.With("used", q.Used, "monthly_limit", q.MonthlyLimit)
			}
			log.InfoContext(ctx, "quota exhausted")
			return nil, ErrQuotaExceeded
		}
		return nil, fmt.Errorf("failed to reserve quota: %w", err)
	}

	l.logger.DebugContext(ctx, "quota reserved",
		"user_id", userID,
		"course_id", courseID,
		"reservation_id", res.ID,
		"used", q.Used,
		"monthly_limit", q.MonthlyLimit)
	return &Reservation{Reservation: *res}, nil
}

// Commit marks r as kept. The durable state change happens in the course
// publish transaction, so Commit only settles the handle.
func (l *Ledger) Commit(r *Reservation) {
	if r == nil {
		return
	}
	r.settled.Store(true)
}

// Release gives back the usage held by r. Releasing a settled handle is a
// no-op, as is releasing when the quota row no longer exists.
func (l *Ledger) Release(ctx context.Context, r *Reservation) error {
	if r == nil || !r.settled.CompareAndSwap(false, true) {
		return nil
	}

	released, err := l.store.Release(ctx, r.ID, l.now())
	if err != nil {
		if store.IsNotFoundError(err) {
			l.logger.WarnContext(ctx, "quota release found no row",
				"reservation_id", r.ID,
				"user_id", r.UserID,
				"error", err)
			return nil
		}
		r.settled.Store(false)
		return fmt.Errorf("failed to release quota: %w", err)
	}

	l.logger.DebugContext(ctx, "quota released",
		"reservation_id", r.ID,
		"course_id", r.CourseID,
		"released", released)
	return nil
}

// ReleaseHeldForCourse releases the HELD reservation of courseID, if any.
func (l *Ledger) ReleaseHeldForCourse(ctx context.Context, courseID uuid.UUID) (bool, error) {
	res, err := l.store.FindHeldReservation(ctx, courseID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find held reservation: %w", err)
	}

	released, err := l.store.Release(ctx, res.ID, l.now())
	if err != nil && !store.IsNotFoundError(err) {
		return false, fmt.Errorf("failed to release quota: %w", err)
	}
	return released, nil
}

// ResetIfDue zeroes the user's usage when the reset time has passed.
// Users without a quota row have nothing to reset.
func (l *Ledger) ResetIfDue(ctx context.Context, userID uuid.UUID) (bool, error) {
	reset, err := l.store.ResetIfDue(ctx, userID, l.now())
	if err != nil {
		if errors.Is(err, store.ErrQuotaNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reset quota: %w", err)
	}
	if reset {
		l.logger.InfoContext(ctx, "quota reset", "user_id", userID)
	}
	return reset, nil
}

// Status returns the user's current quota with any due reset applied. Users
// who never generated get the FREE plan they would be provisioned with.
func (l *Ledger) Status(ctx context.Context, userID uuid.UUID) (*domain.Quota, error) {
	if _, err := l.ResetIfDue(ctx, userID); err != nil {
		return nil, err
	}

	q, err := l.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrQuotaNotFound) {
			return domain.NewQuota(userID, domain.PlanFree, l.limits.LimitFor(domain.PlanFree), l.now()), nil
		}
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}
	return q, nil
}
