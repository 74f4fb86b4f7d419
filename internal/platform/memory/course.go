package memory

import (
	"context"
	"sort"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

func (s courseView) Create(_ context.Context, course *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[course.ID]; ok {
		return store.ErrDuplicate
	}
	cp := cloneCourse(course)
	cp.Modules = nil
	s.courses[course.ID] = cp
	return nil
}

func (s courseView) GetByID(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, store.ErrCourseNotFound
	}
	return cloneCourse(c), nil
}

func (s courseView) GetTree(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, store.ErrCourseNotFound
	}
	cp := cloneCourse(c)
	cp.Modules = cloneModules(s.trees[id])
	if cp.Modules == nil {
		cp.Modules = []*domain.Module{}
	}
	return cp, nil
}

func (s courseView) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Course, 0)
	for _, c := range s.courses {
		if c.CreatorID == creatorID {
			out = append(out, cloneCourse(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s courseView) BeginGeneration(_ context.Context, id uuid.UUID, expectedVersion int) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, store.ErrCourseNotFound
	}
	if c.Version != expectedVersion || !c.CanBeginGeneration() {
		return nil, store.ErrStatusConflict
	}

	c.Status = domain.CourseStatusGenerating
	c.FailureReason = ""
	c.Version++
	c.Attempts++
	c.UpdatedAt = s.now()
	return cloneCourse(c), nil
}

func (s courseView) SetStatus(
	_ context.Context,
	id uuid.UUID,
	status domain.CourseStatus,
	reason domain.FailureReason,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return store.ErrCourseNotFound
	}
	if !status.IsValid() {
		return store.ErrInvalidEntity
	}
	c.Status = status
	c.FailureReason = reason
	c.Version++
	c.UpdatedAt = s.now()
	return nil
}

func (s courseView) PersistGenerationResult(_ context.Context, result store.GenerationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[result.CourseID]
	if !ok {
		return store.ErrCourseNotFound
	}
	if c.Status != domain.CourseStatusGenerating {
		return store.ErrStatusConflict
	}
	if s.persistHook != nil {
		if err := s.persistHook(result); err != nil {
			return err
		}
	}

	now := s.now()
	switch result.Status {
	case domain.CourseStatusPublished:
		res, ok := s.reservations[result.ReservationID]
		if !ok {
			return store.ErrReservationNotFound
		}
		if res.State != domain.ReservationHeld {
			return store.ErrStatusConflict
		}
		res.State = domain.ReservationCommitted
		res.SettledAt = &now

		tree := cloneModules(result.Modules)
		s.trees[c.ID] = tree
		for _, m := range tree {
			for _, l := range m.Lessons {
				s.lessonCourse[l.ID] = c.ID
			}
		}
		c.FailureReason = ""
	case domain.CourseStatusFailed:
		c.FailureReason = result.FailureReason
		if !result.FailureReason.CountsAsAttempt() && c.Attempts > 0 {
			c.Attempts--
		}
	default:
		return store.ErrInvalidEntity
	}

	c.Status = result.Status
	c.Version++
	c.UpdatedAt = now
	return nil
}

func (s courseView) FindStuckGenerating(_ context.Context, olderThan time.Duration) ([]*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-olderThan)
	var out []*domain.Course
	for _, c := range s.courses {
		if c.Status == domain.CourseStatusGenerating && c.UpdatedAt.Before(cutoff) {
			out = append(out, cloneCourse(c))
		}
	}
	return out, nil
}
