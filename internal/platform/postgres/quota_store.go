package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

const quotaColumns = `user_id, plan, monthly_limit, used, reset_at, period, updated_at`

const reservationColumns = `id, user_id, course_id, period, state, created_at, settled_at`

// PostgresQuotaStore implements store.QuotaStore. Every mutation locks the
// user's quota row with SELECT ... FOR UPDATE.
type PostgresQuotaStore struct {
	db *sql.DB
}

var _ store.QuotaStore = (*PostgresQuotaStore)(nil)

// NewPostgresQuotaStore creates a quota store on db.
func NewPostgresQuotaStore(db *sql.DB) *PostgresQuotaStore {
	return &PostgresQuotaStore{db: db}
}

func scanQuota(row rowScanner) (*domain.Quota, error) {
	var q domain.Quota
	if err := row.Scan(&q.UserID, &q.Plan, &q.MonthlyLimit, &q.Used, &q.ResetAt, &q.Period, &q.UpdatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		r         domain.Reservation
		settledAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.CourseID, &r.Period, &r.State, &r.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	if settledAt.Valid {
		t := settledAt.Time
		r.SettledAt = &t
	}
	return &r, nil
}

func getQuota(ctx context.Context, db store.DBTX, userID uuid.UUID, forUpdate bool) (*domain.Quota, error) {
	query := `SELECT ` + quotaColumns + ` FROM quotas WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	q, err := scanQuota(db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrQuotaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quota: %w", MapError(err))
	}
	return q, nil
}

func updateQuota(ctx context.Context, tx *sql.Tx, q *domain.Quota) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE quotas SET used = $1, reset_at = $2, period = $3, updated_at = $4
		WHERE user_id = $5`,
		q.Used, q.ResetAt, q.Period, q.UpdatedAt, q.UserID)
	if err != nil {
		return fmt.Errorf("failed to update quota: %w", MapError(err))
	}
	return nil
}

// Get implements store.QuotaStore.Get
func (s *PostgresQuotaStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Quota, error) {
	return getQuota(ctx, s.db, userID, false)
}

// ReadAndReserve implements store.QuotaStore.ReadAndReserve
func (s *PostgresQuotaStore) ReadAndReserve(
	ctx context.Context,
	req store.ReserveRequest,
) (*domain.Reservation, *domain.Quota, error) {
	var (
		res          *domain.Reservation
		quota        *domain.Quota
		limitReached bool
	)
	now := req.Now.UTC()

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		fresh := domain.NewQuota(req.UserID, req.DefaultPlan, req.DefaultLimit, now)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quotas (`+quotaColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO NOTHING`,
			fresh.UserID, fresh.Plan, fresh.MonthlyLimit, fresh.Used, fresh.ResetAt, fresh.Period, fresh.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to provision quota: %w", MapError(err))
		}

		q, err := getQuota(ctx, tx, req.UserID, true)
		if err != nil {
			return err
		}
		reset := q.ApplyReset(now)

		if q.Used >= q.MonthlyLimit {
			limitReached = true
			quota = q
			if reset {
				return updateQuota(ctx, tx, q)
			}
			return nil
		}

		q.Used++
		q.UpdatedAt = now
		if err := updateQuota(ctx, tx, q); err != nil {
			return err
		}

		r := &domain.Reservation{
			ID:        uuid.New(),
			UserID:    req.UserID,
			CourseID:  req.CourseID,
			Period:    q.Period,
			State:     domain.ReservationHeld,
			CreatedAt: now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO quota_reservations (id, user_id, course_id, period, state, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.ID, r.UserID, r.CourseID, r.Period, r.State, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record reservation: %w", MapError(err))
		}

		res, quota = r, q
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if limitReached {
		return nil, quota, store.ErrLimitReached
	}
	return res, quota, nil
}

// Release implements store.QuotaStore.Release
func (s *PostgresQuotaStore) Release(ctx context.Context, reservationID uuid.UUID, now time.Time) (bool, error) {
	released := false
	now = now.UTC()

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := scanReservation(tx.QueryRowContext(ctx,
			`SELECT `+reservationColumns+` FROM quota_reservations WHERE id = $1 FOR UPDATE`, reservationID))
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrReservationNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock reservation: %w", MapError(err))
		}
		if res.State != domain.ReservationHeld {
			return nil
		}

		q, err := getQuota(ctx, tx, res.UserID, true)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE quota_reservations SET state = $1, settled_at = $2 WHERE id = $3`,
			domain.ReservationReleased, now, reservationID)
		if err != nil {
			return fmt.Errorf("failed to release reservation: %w", MapError(err))
		}

		if q.Period == res.Period && q.Used > 0 {
			q.Used--
			q.UpdatedAt = now
			if err := updateQuota(ctx, tx, q); err != nil {
				return err
			}
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// ResetIfDue implements store.QuotaStore.ResetIfDue
func (s *PostgresQuotaStore) ResetIfDue(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	reset := false
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		q, err := getQuota(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if !q.ApplyReset(now) {
			return nil
		}
		reset = true
		return updateQuota(ctx, tx, q)
	})
	if err != nil {
		return false, err
	}
	return reset, nil
}

// FindHeldReservation implements store.QuotaStore.FindHeldReservation
func (s *PostgresQuotaStore) FindHeldReservation(ctx context.Context, courseID uuid.UUID) (*domain.Reservation, error) {
	res, err := scanReservation(s.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM quota_reservations
		WHERE course_id = $1 AND state = $2
		LIMIT 1`,
		courseID, domain.ReservationHeld))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find held reservation: %w", MapError(err))
	}
	return res, nil
}

// PutQuota inserts or replaces a user's quota row, for plan changes and seeding.
func (s *PostgresQuotaStore) PutQuota(ctx context.Context, q *domain.Quota) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotas (`+quotaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			monthly_limit = EXCLUDED.monthly_limit,
			used = EXCLUDED.used,
			reset_at = EXCLUDED.reset_at,
			period = EXCLUDED.period,
			updated_at = EXCLUDED.updated_at`,
		q.UserID, q.Plan, q.MonthlyLimit, q.Used, q.ResetAt, q.Period, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put quota: %w", MapError(err))
	}
	return nil
}
