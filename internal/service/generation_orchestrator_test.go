package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/assembly"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/quota"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Publishes(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "en")

	out, err := h.orch.Generate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusPublished, out.Status)
	assert.Empty(t, out.Reason)

	tree, err := h.mem.Courses().GetTree(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusPublished, tree.Status)
	assert.Equal(t, 1, tree.Attempts)
	require.Len(t, tree.Modules, 2)
	assert.Len(t, tree.Modules[0].Lessons, 2)
	assert.Equal(t, 1, tree.Modules[1].Order)
	assert.NotNil(t, tree.Modules[0].Lessons[0].ContentFor("en"))

	assert.Equal(t, 1, h.used(t, creator))
	_, err = h.mem.Quotas().FindHeldReservation(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrReservationNotFound, "reservation must be committed")

	statuses := h.recorded.statuses(t)
	require.Len(t, statuses, 1)
	assert.Equal(t, string(domain.CourseStatusPublished), statuses[0].Status)
	assert.Equal(t, creator, statuses[0].CreatorID)
}

func TestGenerate_QuotaExceeded(t *testing.T) {
	t.Parallel()
	h := newHarness(t, OrchestratorConfig{Timeout: time.Second}, config.QuotaConfig{FreeLimit: 1})
	ctx := context.Background()
	creator := uuid.New()

	first := h.draftCourse(t, creator, "en")
	_, err := h.orch.Generate(ctx, first.ID)
	require.NoError(t, err)

	second := h.draftCourse(t, creator, "en")
	out, err := h.orch.Generate(ctx, second.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, domain.FailureReasonQuotaExceeded, genErr.Reason)
	assert.Equal(t, domain.CourseStatusFailed, out.Status)

	got := h.course(t, second.ID)
	assert.Equal(t, domain.CourseStatusFailed, got.Status)
	assert.Equal(t, domain.FailureReasonQuotaExceeded, got.FailureReason)
	assert.Equal(t, 1, h.capabilityCalls(), "capability must not run without quota")
	assert.Equal(t, 1, h.used(t, creator))
}

func TestGenerate_CapabilityFailureReleasesQuota(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "en")

	errModel := errors.New("model overloaded")
	h.setCapability(func(context.Context, generation.Params) (*generation.Draft, error) {
		return nil, errModel
	})

	out, err := h.orch.Generate(ctx, c.ID)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.ErrorIs(t, err, errModel)
	assert.Equal(t, domain.FailureReasonGenerationFailed, out.Reason)

	got := h.course(t, c.ID)
	assert.Equal(t, domain.CourseStatusFailed, got.Status)
	assert.Equal(t, domain.FailureReasonGenerationFailed, got.FailureReason)
	assert.Equal(t, 0, h.used(t, creator))
	assert.Equal(t, 1, h.capabilityCalls(), "no internal retries")
}

func TestGenerate_TimeoutTakesFailurePath(t *testing.T) {
	t.Parallel()
	h := newHarness(t,
		OrchestratorConfig{Timeout: 20 * time.Millisecond},
		config.QuotaConfig{FreeLimit: 5})
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "en")

	h.setCapability(func(ctx context.Context, p generation.Params) (*generation.Draft, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	out, err := h.orch.Generate(ctx, c.ID)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.FailureReasonGenerationTimeout, out.Reason)
	assert.Equal(t, domain.CourseStatusFailed, h.course(t, c.ID).Status)
	assert.Equal(t, 0, h.used(t, creator))
}

func TestGenerate_LateResultIsDiscarded(t *testing.T) {
	t.Parallel()
	h := newHarness(t,
		OrchestratorConfig{Timeout: 10 * time.Millisecond},
		config.QuotaConfig{FreeLimit: 5})
	c := h.draftCourse(t, uuid.New(), "en")

	h.setCapability(func(ctx context.Context, p generation.Params) (*generation.Draft, error) {
		<-ctx.Done()
		return validDraft(p.Languages...), nil
	})

	out, err := h.orch.Generate(context.Background(), c.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.FailureReasonGenerationTimeout, out.Reason)
}

func TestGenerate_MissingLanguageFailsWithIncompleteContent(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "es")

	h.setCapability(func(context.Context, generation.Params) (*generation.Draft, error) {
		return validDraft("en"), nil
	})

	out, err := h.orch.Generate(ctx, c.ID)
	assert.ErrorIs(t, err, assembly.ErrIncompleteContent)

	var aerr *assembly.AssemblyError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "es", aerr.Language)
	assert.Equal(t, domain.FailureReasonIncompleteContent, out.Reason)

	tree, err := h.mem.Courses().GetTree(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusFailed, tree.Status)
	assert.Empty(t, tree.Modules)
	assert.Equal(t, 0, h.used(t, creator))
}

func TestGenerate_InvalidQuestion(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	c := h.draftCourse(t, uuid.New(), "en")

	h.setCapability(func(_ context.Context, p generation.Params) (*generation.Draft, error) {
		d := validDraft(p.Languages...)
		d.Modules[0].Lessons[0].Quiz.Questions[0].Answer = "Darkness"
		return d, nil
	})

	out, err := h.orch.Generate(context.Background(), c.ID)
	assert.ErrorIs(t, err, assembly.ErrInvalidQuestion)
	assert.Equal(t, domain.FailureReasonInvalidQuestion, out.Reason)
}

func TestGenerate_PersistFailureIsAtomic(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "en")

	errDisk := errors.New("disk full")
	h.mem.SetPersistHook(func(r store.GenerationResult) error {
		if r.Status == domain.CourseStatusPublished {
			return errDisk
		}
		return nil
	})

	out, err := h.orch.Generate(ctx, c.ID)
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, domain.FailureReasonPersistence, out.Reason)

	tree, err := h.mem.Courses().GetTree(ctx, c.ID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.CourseStatusPublished, tree.Status)
	assert.Equal(t, domain.CourseStatusFailed, tree.Status)
	assert.Empty(t, tree.Modules)
	assert.Equal(t, 0, h.used(t, creator))
}

func TestGenerate_ConcurrentRequestsRunOnce(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "en")

	release := make(chan struct{})
	h.setCapability(func(_ context.Context, p generation.Params) (*generation.Draft, error) {
		<-release
		return validDraft(p.Languages...), nil
	})

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.Generate(ctx, c.ID)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return h.capabilityCalls() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	var ok, invalid int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInvalidState):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, invalid)
	assert.Equal(t, 1, h.capabilityCalls())
	assert.Equal(t, 1, h.used(t, creator))
}

func TestGenerate_NoLockHeldDuringCapability(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	a := h.draftCourse(t, uuid.New(), "en")
	b := h.draftCourse(t, uuid.New(), "en")

	var entered sync.WaitGroup
	entered.Add(2)
	release := make(chan struct{})
	h.setCapability(func(_ context.Context, p generation.Params) (*generation.Draft, error) {
		entered.Done()
		<-release
		return validDraft(p.Languages...), nil
	})

	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := h.orch.Generate(ctx, id)
			assert.NoError(t, err)
		}(id)
	}

	done := make(chan struct{})
	go func() {
		entered.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("both capability calls should be in flight at once")
	}

	// The store stays usable while generation is in flight.
	_, err := h.mem.Courses().GetByID(ctx, a.ID)
	require.NoError(t, err)

	close(release)
	wg.Wait()
}

func TestGenerate_ResubmitAfterFailure(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()
	c := h.draftCourse(t, creator, "en")

	h.setCapability(func(context.Context, generation.Params) (*generation.Draft, error) {
		return nil, errors.New("flaky")
	})
	_, err := h.orch.Generate(ctx, c.ID)
	require.Error(t, err)
	require.Equal(t, domain.CourseStatusFailed, h.course(t, c.ID).Status)

	h.setCapability(func(_ context.Context, p generation.Params) (*generation.Draft, error) {
		return validDraft(p.Languages...), nil
	})
	out, err := h.orch.Generate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusPublished, out.Status)

	got := h.course(t, c.ID)
	assert.Equal(t, 2, got.Attempts)
	assert.Empty(t, got.FailureReason)
	assert.Equal(t, 1, h.used(t, creator), "only the successful attempt counts")
}

func TestGenerate_InvalidStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("published course", func(t *testing.T) {
		h := defaultHarness(t)
		c := h.draftCourse(t, uuid.New(), "en")
		_, err := h.orch.Generate(ctx, c.ID)
		require.NoError(t, err)

		_, err = h.orch.Generate(ctx, c.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, 1, h.capabilityCalls())
	})

	t.Run("unknown course", func(t *testing.T) {
		h := defaultHarness(t)
		_, err := h.orch.Generate(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrCourseNotFound)
	})

	t.Run("resume requires generating", func(t *testing.T) {
		h := defaultHarness(t)
		c := h.draftCourse(t, uuid.New(), "en")
		_, err := h.orch.Resume(ctx, c.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestGenerate_AttemptsExhausted(t *testing.T) {
	t.Parallel()
	h := newHarness(t,
		OrchestratorConfig{Timeout: time.Second, MaxAttempts: 2},
		config.QuotaConfig{FreeLimit: 5})
	ctx := context.Background()
	c := h.draftCourse(t, uuid.New(), "en")

	h.setCapability(func(context.Context, generation.Params) (*generation.Draft, error) {
		return nil, errors.New("always fails")
	})
	for i := 0; i < 2; i++ {
		_, err := h.orch.Generate(ctx, c.ID)
		require.ErrorIs(t, err, generation.ErrGenerationFailed)
	}

	_, err := h.orch.Generate(ctx, c.ID)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	got := h.course(t, c.ID)
	assert.Equal(t, domain.CourseStatusFailed, got.Status)
	assert.Equal(t, 2, got.Attempts)
}

func TestGenerate_QuotaFailuresDoNotUseAttempts(t *testing.T) {
	t.Parallel()
	h := newHarness(t,
		OrchestratorConfig{Timeout: time.Second, MaxAttempts: 3},
		config.QuotaConfig{FreeLimit: 1})
	ctx := context.Background()
	now := time.Now().UTC()
	h.ledger.SetClock(func() time.Time { return now })

	creator := uuid.New()
	first := h.draftCourse(t, creator, "en")
	_, err := h.orch.Generate(ctx, first.ID)
	require.NoError(t, err)

	second := h.draftCourse(t, creator, "en")
	for i := 0; i < 4; i++ {
		_, err := h.orch.Generate(ctx, second.ID)
		require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	}
	got := h.course(t, second.ID)
	assert.Equal(t, domain.FailureReasonQuotaExceeded, got.FailureReason)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, 1, h.capabilityCalls())

	h.ledger.SetClock(func() time.Time { return now.AddDate(0, 2, 0) })
	out, err := h.orch.Generate(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusPublished, out.Status)
	assert.Equal(t, 1, h.course(t, second.ID).Attempts)
	assert.Equal(t, 2, h.capabilityCalls())
}

func TestBeginThenResume(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	c := h.draftCourse(t, uuid.New(), "en")

	begun, err := h.orch.Begin(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusGenerating, begun.Status)

	out, err := h.orch.Resume(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseStatusPublished, out.Status)
}

func TestAbort(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	c := h.draftCourse(t, uuid.New(), "en")

	begun, err := h.orch.Begin(ctx, c.ID)
	require.NoError(t, err)

	errQueue := errors.New("queue full")
	out, err := h.orch.Abort(ctx, begun, domain.FailureReasonEnqueueFailed, errQueue)
	assert.ErrorIs(t, err, errQueue)
	assert.Equal(t, domain.FailureReasonEnqueueFailed, out.Reason)
	assert.Equal(t, domain.CourseStatusFailed, h.course(t, c.ID).Status)
}

func TestRecoverStuck(t *testing.T) {
	t.Parallel()
	h := defaultHarness(t)
	ctx := context.Background()
	creator := uuid.New()

	now := time.Now().UTC()
	h.mem.SetClock(func() time.Time { return now })

	c := h.draftCourse(t, creator, "en")
	_, err := h.orch.Begin(ctx, c.ID)
	require.NoError(t, err)
	_, err = h.ledger.Reserve(ctx, creator, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, h.used(t, creator))

	n, err := h.orch.RecoverStuck(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "not old enough yet")

	now = now.Add(2 * time.Hour)
	n, err = h.orch.RecoverStuck(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := h.course(t, c.ID)
	assert.Equal(t, domain.CourseStatusFailed, got.Status)
	assert.Equal(t, domain.FailureReasonInterrupted, got.FailureReason)
	assert.Equal(t, 0, h.used(t, creator))

	statuses := h.recorded.statuses(t)
	require.Len(t, statuses, 1)
	assert.Equal(t, string(domain.FailureReasonInterrupted), statuses[0].FailureReason)
}
