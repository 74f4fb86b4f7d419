package store

import (
	"context"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/google/uuid"
)

// ReserveRequest describes one reservation attempt. When the user has no
// quota row yet, one is provisioned with DefaultPlan and DefaultLimit.
type ReserveRequest struct {
	UserID       uuid.UUID
	CourseID     uuid.UUID
	Now          time.Time
	DefaultPlan  domain.Plan
	DefaultLimit int
}

// QuotaStore defines atomic operations on a user's quota row. Every method
// is a single read-modify-write serialized per user.
type QuotaStore interface {
	// Get returns the quota row. Returns ErrQuotaNotFound if absent.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Quota, error)

	// ReadAndReserve applies a due reset, then increments Used and records a
	// HELD reservation if Used < MonthlyLimit. Returns ErrLimitReached otherwise.
	ReadAndReserve(ctx context.Context, req ReserveRequest) (*domain.Reservation, *domain.Quota, error)

	// Release moves a HELD reservation to RELEASED and decrements Used when
	// the quota is still in the reservation's period. Returns false without
	// error if the reservation was already settled. Returns ErrQuotaNotFound or
	// ErrReservationNotFound when the rows are gone.
	Release(ctx context.Context, reservationID uuid.UUID, now time.Time) (bool, error)

	// ResetIfDue zeroes Used and advances ResetAt when now has reached it.
	// Reports whether a reset happened.
	ResetIfDue(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)

	// FindHeldReservation returns the HELD reservation for a course, if any.
	// Returns ErrReservationNotFound when there is none.
	FindHeldReservation(ctx context.Context, courseID uuid.UUID) (*domain.Reservation, error)
}
