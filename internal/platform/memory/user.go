package memory

import (
	"context"
	"strings"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

// Create stores a user. Emails are unique case-insensitively.
func (s userView) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrEmailExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s userView) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s sessionView) HasActiveSession(_ context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.UserID == userID && t.IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s sessionView) CreateRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token.UserID]; !ok {
		return store.ErrInvalidEntity
	}
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s progressView) Upsert(_ context.Context, p *domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lessonCourse[p.LessonID]; !ok {
		return store.ErrInvalidEntity
	}
	key := progressKey{user: p.UserID, lesson: p.LessonID}
	cp := *p
	if existing, ok := s.progress[key]; ok {
		cp.ID = existing.ID
	}
	if p.Score != nil {
		score := *p.Score
		cp.Score = &score
	}
	s.progress[key] = &cp
	return nil
}

func (s progressView) Get(_ context.Context, userID, lessonID uuid.UUID) (*domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[progressKey{user: userID, lesson: lessonID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s progressView) LessonOwner(_ context.Context, lessonID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courseID, ok := s.lessonCourse[lessonID]
	if !ok {
		return uuid.Nil, store.ErrLessonNotFound
	}
	return s.courses[courseID].CreatorID, nil
}
