// Package memory provides map-backed implementations of every store
// interface. It serves the "memory" database driver and the service tests.
//
// A single mutex guards all maps, which makes each method trivially atomic
// with respect to every other. Values are copied on the way in and out.
package memory

import (
	"sync"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/task"
	"github.com/google/uuid"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users        map[uuid.UUID]*domain.User
	tokens       map[uuid.UUID]*domain.RefreshToken
	courses      map[uuid.UUID]*domain.Course
	trees        map[uuid.UUID][]*domain.Module
	lessonCourse map[uuid.UUID]uuid.UUID
	quotas       map[uuid.UUID]*domain.Quota
	reservations map[uuid.UUID]*domain.Reservation
	progress     map[progressKey]*domain.Progress
	tasks        map[uuid.UUID]*task.Record

	persistHook func(store.GenerationResult) error
}

type progressKey struct {
	user, lesson uuid.UUID
}

func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		users:        make(map[uuid.UUID]*domain.User),
		tokens:       make(map[uuid.UUID]*domain.RefreshToken),
		courses:      make(map[uuid.UUID]*domain.Course),
		trees:        make(map[uuid.UUID][]*domain.Module),
		lessonCourse: make(map[uuid.UUID]uuid.UUID),
		quotas:       make(map[uuid.UUID]*domain.Quota),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		progress:     make(map[progressKey]*domain.Progress),
		tasks:        make(map[uuid.UUID]*task.Record),
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetPersistHook installs a function called before a generation result is
// applied. A non-nil error aborts the write and is returned to the caller.
func (s *Store) SetPersistHook(fn func(store.GenerationResult) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistHook = fn
}

// Views over the shared state, one per store interface.
type (
	courseView   struct{ *Store }
	quotaView    struct{ *Store }
	userView     struct{ *Store }
	sessionView  struct{ *Store }
	progressView struct{ *Store }
	taskView     struct{ *Store }
)

func (s *Store) Courses() store.CourseStore { return courseView{s} }
func (s *Store) Quotas() store.QuotaStore { return quotaView{s} }
func (s *Store) Users() store.UserStore { return userView{s} }
func (s *Store) Sessions() store.SessionStore { return sessionView{s} }
func (s *Store) Progress() store.ProgressStore { return progressView{s} }
func (s *Store) Tasks() task.TaskStore { return taskView{s} }

func cloneCourse(c *domain.Course) *domain.Course {
	cp := *c
	if c.Description != nil {
		d := *c.Description
		cp.Description = &d
	}
	cp.Modules = cloneModules(c.Modules)
	return &cp
}

func cloneModules(mods []*domain.Module) []*domain.Module {
	if mods == nil {
		return nil
	}
	out := make([]*domain.Module, len(mods))
	for i, m := range mods {
		mc := *m
		mc.Lessons = make([]*domain.Lesson, len(m.Lessons))
		for j, l := range m.Lessons {
			lc := *l
			lc.Contents = make([]*domain.LessonContent, len(l.Contents))
			for k, c := range l.Contents {
				cc := *c
				lc.Contents[k] = &cc
			}
			if l.Quiz != nil {
				qc := *l.Quiz
				qc.Questions = make([]*domain.Question, len(l.Quiz.Questions))
				for k, q := range l.Quiz.Questions {
					qq := *q
					qq.Options = append([]string(nil), q.Options...)
					qc.Questions[k] = &qq
				}
				lc.Quiz = &qc
			}
			mc.Lessons[j] = &lc
		}
		out[i] = &mc
	}
	return out
}
