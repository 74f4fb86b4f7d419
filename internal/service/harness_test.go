package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/assembly"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/events"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/memory"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/quota"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects the events delivered to it.
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) HandleEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) statuses(t *testing.T) []events.CourseStatusPayload {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.CourseStatusPayload
	for _, e := range r.events {
		if e.Type != events.TypeCourseStatusChanged {
			continue
		}
		var p events.CourseStatusPayload
		require.NoError(t, e.UnmarshalPayload(&p))
		out = append(out, p)
	}
	return out
}

// harness wires an orchestrator over the in-memory store with a fake
// capability.
type harness struct {
	mem      *memory.Store
	ledger   *quota.Ledger
	orch     *GenerationOrchestrator
	emitter  *events.InMemoryEventEmitter
	recorded *recorder

	mu    sync.Mutex
	calls int
	genFn func(ctx context.Context, p generation.Params) (*generation.Draft, error)
}

func newHarness(t *testing.T, cfg OrchestratorConfig, limits config.QuotaConfig) *harness {
	t.Helper()
	h := &harness{
		mem:      memory.New(),
		recorded: &recorder{},
		genFn: func(_ context.Context, p generation.Params) (*generation.Draft, error) {
			return validDraft(p.Languages...), nil
		},
	}
	logger := discardLogger()
	h.ledger = quota.NewLedger(h.mem.Quotas(), limits, logger)
	h.emitter = events.NewInMemoryEventEmitter(logger)
	h.emitter.RegisterHandler(h.recorded)

	capability := generation.CapabilityFunc(func(ctx context.Context, p generation.Params) (*generation.Draft, error) {
		h.mu.Lock()
		h.calls++
		fn := h.genFn
		h.mu.Unlock()
		return fn(ctx, p)
	})

	orch, err := NewGenerationOrchestrator(
		h.mem.Courses(), h.ledger, capability, assembly.NewAssembler(), h.emitter, cfg, logger)
	require.NoError(t, err)
	h.orch = orch
	return h
}

func defaultHarness(t *testing.T) *harness {
	return newHarness(t,
		OrchestratorConfig{Timeout: time.Second, MaxAttempts: 0},
		config.QuotaConfig{FreeLimit: 5, ProLimit: 50, EnterpriseLimit: 500})
}

func (h *harness) setCapability(fn func(ctx context.Context, p generation.Params) (*generation.Draft, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.genFn = fn
}

func (h *harness) capabilityCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func (h *harness) draftCourse(t *testing.T, creatorID uuid.UUID, language string) *domain.Course {
	t.Helper()
	c, err := domain.NewCourse(creatorID, "Photosynthesis", nil,
		"Plants turn light into chemical energy.", domain.DifficultyBeginner, language)
	require.NoError(t, err)
	require.NoError(t, h.mem.Courses().Create(context.Background(), c))
	return c
}

func (h *harness) course(t *testing.T, id uuid.UUID) *domain.Course {
	t.Helper()
	c, err := h.mem.Courses().GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (h *harness) used(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	q, err := h.ledger.Status(context.Background(), userID)
	require.NoError(t, err)
	return q.Used
}

// validDraft returns a two-module draft with content in every language.
func validDraft(languages ...string) *generation.Draft {
	lesson := func(n string) generation.LessonDraft {
		l := generation.LessonDraft{
			Quiz: &generation.QuizDraft{
				Questions: []generation.QuestionDraft{{
					Prompt:  "What do plants need?",
					Options: []string{"Light", "Sound"},
					Answer:  "Light",
				}},
			},
		}
		for _, lang := range languages {
			l.Contents = append(l.Contents, generation.ContentDraft{
				Language: lang,
				Title:    "Lesson " + n + " " + lang,
				Body:     "Body " + n,
			})
		}
		return l
	}
	return &generation.Draft{Modules: []generation.ModuleDraft{
		{Title: "Light", Lessons: []generation.LessonDraft{lesson("1"), lesson("2")}},
		{Title: "Sugar", Lessons: []generation.LessonDraft{lesson("3")}},
	}}
}
