package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a quota plan tier.
type Plan string

// Possible plan tiers
const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// IsValid reports whether p is a known plan.
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	default:
		return false
	}
}

// Quota is a user's monthly generation allowance. Period counts resets and lets
// a reservation tell whether the usage it added is still part of Used.
type Quota struct {
	UserID       uuid.UUID `json:"user_id"`
	Plan         Plan      `json:"plan"`
	MonthlyLimit int       `json:"monthly_limit"`
	Used         int       `json:"used"`
	ResetAt      time.Time `json:"reset_at"`
	Period       int64     `json:"period"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewQuota returns a quota with nothing used whose first reset is one month after now.
func NewQuota(userID uuid.UUID, plan Plan, limit int, now time.Time) *Quota {
	now = now.UTC()
	return &Quota{
		UserID:       userID,
		Plan:         plan,
		MonthlyLimit: limit,
		ResetAt:      AddMonth(now),
		UpdatedAt:    now,
	}
}

// Remaining returns how many reservations can still succeed in this period.
func (q *Quota) Remaining() int {
	if r := q.MonthlyLimit - q.Used; r > 0 {
		return r
	}
	return 0
}

// IsDue reports whether the reset time has been reached.
func (q *Quota) IsDue(now time.Time) bool {
	return !now.Before(q.ResetAt)
}

// ApplyReset zeroes usage and moves ResetAt forward by whole months until it is
// after now. It returns false and leaves q untouched when no reset is due, so
// applying it twice performs exactly one reset.
func (q *Quota) ApplyReset(now time.Time) bool {
	if !q.IsDue(now) {
		return false
	}
	next := q.ResetAt
	for !now.Before(next) {
		next = AddMonth(next)
	}
	q.Used = 0
	q.ResetAt = next
	q.Period++
	q.UpdatedAt = now.UTC()
	return true
}

// AddMonth advances t by one calendar month, clamping the day to the end of
// the target month (Jan 31 becomes Feb 28 or 29).
func AddMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ReservationState tracks a provisional quota increment.
type ReservationState string

// Possible reservation states
const (
	ReservationHeld      ReservationState = "HELD"
	ReservationCommitted ReservationState = "COMMITTED"
	ReservationReleased  ReservationState = "RELEASED"
)

// Reservation is a durable record of one provisional increment of Quota.Used.
// It is settled exactly once, either committed or released.
type Reservation struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	CourseID  uuid.UUID        `json:"course_id"`
	Period    int64            `json:"period"`
	State     ReservationState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	SettledAt *time.Time       `json:"settled_at,omitempty"`
}
