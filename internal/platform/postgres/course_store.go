package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

const courseColumns = `id, creator_id, title, description, raw_text, difficulty, language,
	status, failure_reason, attempts, version, created_at, updated_at`

// PostgresCourseStore implements store.CourseStore.
type PostgresCourseStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.CourseStore = (*PostgresCourseStore)(nil)

// NewPostgresCourseStore creates a course store on db.
func NewPostgresCourseStore(db *sql.DB) *PostgresCourseStore {
	return &PostgresCourseStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var (
		c           domain.Course
		description sql.NullString
		reason      string
	)
	err := row.Scan(
		&c.ID, &c.CreatorID, &c.Title, &description, &c.RawText, &c.Difficulty, &c.Language,
		&c.Status, &reason, &c.Attempts, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	c.FailureReason = domain.FailureReason(reason)
	return &c, nil
}

// Create implements store.CourseStore.Create
func (s *PostgresCourseStore) Create(ctx context.Context, course *domain.Course) error {
	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		course.ID, course.CreatorID, course.Title, course.Description, course.RawText,
		course.Difficulty, course.Language, course.Status, string(course.FailureReason),
		course.Attempts, course.Version, course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to insert course",
			"course_id", course.ID,
			"error", err)
		return MapError(err)
	}
	return nil
}

// GetByID implements store.CourseStore.GetByID
func (s *PostgresCourseStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return getCourse(ctx, s.db, id, false)
}

func getCourse(ctx context.Context, db store.DBTX, id uuid.UUID, forUpdate bool) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanCourse(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", MapError(err))
	}
	return c, nil
}

// ListByCreator implements store.CourseStore.ListByCreator
func (s *PostgresCourseStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE creator_id = $1 ORDER BY created_at DESC`
	return s.queryCourses(ctx, query, creatorID)
}

// FindStuckGenerating implements store.CourseStore.FindStuckGenerating
func (s *PostgresCourseStore) FindStuckGenerating(ctx context.Context, olderThan time.Duration) ([]*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC`
	return s.queryCourses(ctx, query, domain.CourseStatusGenerating, s.now().Add(-olderThan))
}

func (s *PostgresCourseStore) queryCourses(ctx context.Context, query string, args ...any) ([]*domain.Course, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	courses := make([]*domain.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}
	return courses, nil
}

// BeginGeneration implements store.CourseStore.BeginGeneration
func (s *PostgresCourseStore) BeginGeneration(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int,
) (*domain.Course, error) {
	query := `
		UPDATE courses
		SET status = $1, failure_reason = '', version = version + 1, attempts = attempts + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND status IN ($5, $6)
		RETURNING ` + courseColumns

	c, err := scanCourse(s.db.QueryRowContext(ctx, query,
		domain.CourseStatusGenerating, s.now(), id, expectedVersion,
		domain.CourseStatusDraft, domain.CourseStatusFailed,
	))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to begin generation: %w", MapError(err))
	}
	return c, nil
}

// SetStatus implements store.CourseStore.SetStatus
func (s *PostgresCourseStore) SetStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.CourseStatus,
	reason domain.FailureReason,
) error {
	if !status.IsValid() {
		return store.ErrInvalidEntity
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE courses
		SET status = $1, failure_reason = $2, version = version + 1, updated_at = $3
		WHERE id = $4`,
		status, string(reason), s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to set course status: %w", MapError(err))
	}
	if err := CheckRowsAffected(result, "course"); err != nil {
		return store.ErrCourseNotFound
	}
	return nil
}

// PersistGenerationResult implements store.CourseStore.PersistGenerationResult
func (s *PostgresCourseStore) PersistGenerationResult(ctx context.Context, result store.GenerationResult) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		course, err := getCourse(ctx, tx, result.CourseID, true)
		if err != nil {
			return err
		}
		if course.Status != domain.CourseStatusGenerating {
			return store.ErrStatusConflict
		}

		now := s.now()
		reason := result.FailureReason
		refund := 0
		switch result.Status {
		case domain.CourseStatusPublished:
			if err := commitReservation(ctx, tx, result.ReservationID, now); err != nil {
				return err
			}
			if err := insertTree(ctx, tx, course.ID, result.Modules); err != nil {
				return err
			}
			reason = domain.FailureReasonNone
		case domain.CourseStatusFailed:
			if !reason.CountsAsAttempt() {
				refund = 1
			}
		default:
			return store.ErrInvalidEntity
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE courses
			SET status = $1, failure_reason = $2, version = version + 1, updated_at = $3,
				attempts = GREATEST(attempts - $4, 0)
			WHERE id = $5`,
			result.Status, string(reason), now, refund, course.ID)
		if err != nil {
			return store.NewStoreError("course", "persist", "status update failed", MapError(err))
		}
		if err := CheckRowsAffected(res, "course"); err != nil {
			return store.NewStoreError("course", "persist", "status update touched no rows", store.ErrUpdateFailed)
		}
		return nil
	})
}

func commitReservation(ctx context.Context, tx *sql.Tx, reservationID uuid.UUID, now time.Time) error {
	var state domain.ReservationState
	err := tx.QueryRowContext(ctx,
		`SELECT state FROM quota_reservations WHERE id = $1 FOR UPDATE`, reservationID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock reservation: %w", MapError(err))
	}
	if state != domain.ReservationHeld {
		return store.ErrStatusConflict
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE quota_reservations SET state = $1, settled_at = $2 WHERE id = $3`,
		domain.ReservationCommitted, now, reservationID)
	if err != nil {
		return fmt.Errorf("failed to commit reservation: %w", MapError(err))
	}
	return nil
}

func insertTree(ctx context.Context, tx *sql.Tx, courseID uuid.UUID, modules []*domain.Module) error {
	for _, m := range modules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO modules (id, course_id, title, description, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, courseID, m.Title, m.Description, m.Order, m.CreatedAt)
		if err != nil {
			return store.NewStoreError("module", "insert", fmt.Sprintf("position %d", m.Order), MapError(err))
		}

		for _, l := range m.Lessons {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO lessons (id, module_id, position, created_at)
				VALUES ($1, $2, $3, $4)`,
				l.ID, m.ID, l.Order, l.CreatedAt)
			if err != nil {
				return store.NewStoreError("lesson", "insert", fmt.Sprintf("position %d", l.Order), MapError(err))
			}

			for _, c := range l.Contents {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO lesson_contents (id, lesson_id, language, title, body)
					VALUES ($1, $2, $3, $4, $5)`,
					c.ID, l.ID, c.Language, c.Title, c.Body)
				if err != nil {
					return store.NewStoreError("lesson content", "insert", c.Language, MapError(err))
				}
			}

			if l.Quiz == nil {
				continue
			}
			if err := insertQuiz(ctx, tx, l.ID, l.Quiz); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertQuiz(ctx context.Context, tx *sql.Tx, lessonID uuid.UUID, quiz *domain.Quiz) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, lesson_id, type) VALUES ($1, $2, $3)`,
		quiz.ID, lessonID, quiz.Type)
	if err != nil {
		return store.NewStoreError("quiz", "insert", string(quiz.Type), MapError(err))
	}

	for _, q := range quiz.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to encode question options: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (id, quiz_id, position, prompt, options, answer)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, quiz.ID, q.Order, q.Prompt, options, q.Answer)
		if err != nil {
			return store.NewStoreError("question", "insert", fmt.Sprintf("position %d", q.Order), MapError(err))
		}
	}
	return nil
}

// GetTree implements store.CourseStore.GetTree
func (s *PostgresCourseStore) GetTree(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	var course *domain.Course
	err := runReadOnly(ctx, s.db, func(tx *sql.Tx) error {
		c, err := getCourse(ctx, tx, id, false)
		if err != nil {
			return err
		}
		modules, err := loadTree(ctx, tx, id)
		if err != nil {
			return err
		}
		c.Modules = modules
		course = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// runReadOnly runs fn in a repeatable-read snapshot so the subtree queries
// agree with each other.
func runReadOnly(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("%w: failed to begin read transaction: %v", store.ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

func loadTree(ctx context.Context, db store.DBTX, courseID uuid.UUID) ([]*domain.Module, error) {
	modules := make([]*domain.Module, 0)
	moduleByID := make(map[uuid.UUID]*domain.Module)
	err := queryEach(ctx, db, `
		SELECT id, title, description, position, created_at
		FROM modules WHERE course_id = $1
		ORDER BY position`,
		[]any{courseID},
		func(row rowScanner) error {
			m := &domain.Module{CourseID: courseID, Lessons: []*domain.Lesson{}}
			if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Order, &m.CreatedAt); err != nil {
				return err
			}
			modules = append(modules, m)
			moduleByID[m.ID] = m
			return nil
		})
	if err != nil || len(modules) == 0 {
		return modules, err
	}

	lessonByID := make(map[uuid.UUID]*domain.Lesson)
	err = queryEach(ctx, db, `
		SELECT l.id, l.module_id, l.position, l.created_at
		FROM lessons l JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = $1
		ORDER BY m.position, l.position`,
		[]any{courseID},
		func(row rowScanner) error {
			l := &domain.Lesson{Contents: []*domain.LessonContent{}}
			if err := row.Scan(&l.ID, &l.ModuleID, &l.Order, &l.CreatedAt); err != nil {
				return err
			}
			if m, ok := moduleByID[l.ModuleID]; ok {
				m.Lessons = append(m.Lessons, l)
			}
			lessonByID[l.ID] = l
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = queryEach(ctx, db, `
		SELECT c.id, c.lesson_id, c.language, c.title, c.body
		FROM lesson_contents c
		JOIN lessons l ON l.id = c.lesson_id
		JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = $1
		ORDER BY c.language`,
		[]any{courseID},
		func(row rowScanner) error {
			c := &domain.LessonContent{}
			if err := row.Scan(&c.ID, &c.LessonID, &c.Language, &c.Title, &c.Body); err != nil {
				return err
			}
			if l, ok := lessonByID[c.LessonID]; ok {
				l.Contents = append(l.Contents, c)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	quizByID := make(map[uuid.UUID]*domain.Quiz)
	err = queryEach(ctx, db, `
		SELECT q.id, q.lesson_id, q.type
		FROM quizzes q
		JOIN lessons l ON l.id = q.lesson_id
		JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = $1`,
		[]any{courseID},
		func(row rowScanner) error {
			q := &domain.Quiz{Questions: []*domain.Question{}}
			if err := row.Scan(&q.ID, &q.LessonID, &q.Type); err != nil {
				return err
			}
			if l, ok := lessonByID[q.LessonID]; ok {
				l.Quiz = q
			}
			quizByID[q.ID] = q
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = queryEach(ctx, db, `
		SELECT qu.id, qu.quiz_id, qu.position, qu.prompt, qu.options, qu.answer
		FROM questions qu
		JOIN quizzes q ON q.id = qu.quiz_id
		JOIN lessons l ON l.id = q.lesson_id
		JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = $1
		ORDER BY qu.quiz_id, qu.position`,
		[]any{courseID},
		func(row rowScanner) error {
			var options []byte
			q := &domain.Question{}
			if err := row.Scan(&q.ID, &q.QuizID, &q.Order, &q.Prompt, &options, &q.Answer); err != nil {
				return err
			}
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return fmt.Errorf("failed to decode question options: %w", err)
			}
			if quiz, ok := quizByID[q.QuizID]; ok {
				quiz.Questions = append(quiz.Questions, q)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return modules, nil
}

// queryEach runs query and calls fn for every row.
func queryEach(ctx context.Context, db store.DBTX, query string, args []any, fn func(rowScanner) error) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query failed: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}
