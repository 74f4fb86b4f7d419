package memory

import (
	"context"
	"sort"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/task"
	"github.com/google/uuid"
)

func (s taskView) SaveTask(_ context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID()]; ok {
		return store.ErrDuplicate
	}
	now := s.now()
	s.tasks[t.ID()] = &task.Record{
		ID:        t.ID(),
		Type:      t.Type(),
		Payload:   append([]byte(nil), t.Payload()...),
		Status:    t.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s taskView) UpdateTaskStatus(_ context.Context, id uuid.UUID, status task.TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

func (s taskView) GetPendingTasks(_ context.Context) ([]task.Record, error) {
	return s.tasksWithStatus(task.TaskStatusPending, 0), nil
}

func (s taskView) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]task.Record, error) {
	return s.tasksWithStatus(task.TaskStatusProcessing, olderThan), nil
}

func (s taskView) tasksWithStatus(status task.TaskStatus, olderThan time.Duration) []task.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-olderThan)
	out := make([]task.Record, 0)
	for _, rec := range s.tasks {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
