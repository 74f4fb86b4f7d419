package memory

import (
	"context"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

func (s quotaView) Get(_ context.Context, userID uuid.UUID) (*domain.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotas[userID]
	if !ok {
		return nil, store.ErrQuotaNotFound
	}
	cp := *q
	return &cp, nil
}

// PutQuota inserts or replaces a quota row.
func (s *Store) PutQuota(_ context.Context, q *domain.Quota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	s.quotas[q.UserID] = &cp
	return nil
}

func (s quotaView) ReadAndReserve(
	_ context.Context,
	req store.ReserveRequest,
) (*domain.Reservation, *domain.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotas[req.UserID]
	if !ok {
		q = domain.NewQuota(req.UserID, req.DefaultPlan, req.DefaultLimit, req.Now)
		s.quotas[req.UserID] = q
	}
	q.ApplyReset(req.Now)

	if q.Used >= q.MonthlyLimit {
		cp := *q
		return nil, &cp, store.ErrLimitReached
	}

	q.Used++
	q.UpdatedAt = req.Now.UTC()
	res := &domain.Reservation{
		ID:        uuid.New(),
		UserID:    req.UserID,
		CourseID:  req.CourseID,
		Period:    q.Period,
		State:     domain.ReservationHeld,
		CreatedAt: req.Now.UTC(),
	}
	s.reservations[res.ID] = res

	rc, qc := *res, *q
	return &rc, &qc, nil
}

func (s quotaView) Release(_ context.Context, reservationID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[reservationID]
	if !ok {
		return false, store.ErrReservationNotFound
	}
	if res.State != domain.ReservationHeld {
		return false, nil
	}
	q, ok := s.quotas[res.UserID]
	if !ok {
		return false, store.ErrQuotaNotFound
	}

	now = now.UTC()
	res.State = domain.ReservationReleased
	res.SettledAt = &now
	if q.Period == res.Period && q.Used > 0 {
		q.Used--
		q.UpdatedAt = now
	}
	return true, nil
}

func (s quotaView) ResetIfDue(_ context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotas[userID]
	if !ok {
		return false, store.ErrQuotaNotFound
	}
	return q.ApplyReset(now), nil
}

func (s quotaView) FindHeldReservation(_ context.Context, courseID uuid.UUID) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, res := range s.reservations {
		if res.CourseID == courseID && res.State == domain.ReservationHeld {
			cp := *res
			return &cp, nil
		}
	}
	return nil, store.ErrReservationNotFound
}

// Reservation returns a copy of a reservation, for inspection.
func (s *Store) Reservation(id uuid.UUID) (*domain.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, false
	}
	cp := *res
	return &cp, true
}
