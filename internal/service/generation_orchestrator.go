package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/assembly"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/events"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/quota"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DineshDumka/text2learn-backend-sub000/internal/service"

// QuotaLedger is the subset of the quota ledger the orchestrator needs.
type QuotaLedger interface {
	Reserve(ctx context.Context, userID, courseID uuid.UUID) (*quota.Reservation, error)
	Commit(r *quota.Reservation)
	Release(ctx context.Context, r *quota.Reservation) error
	ReleaseHeldForCourse(ctx context.Context, courseID uuid.UUID) (bool, error)
}

// ContentAssembler validates a draft and returns the course with its subtree.
type ContentAssembler interface {
	Assemble(course *domain.Course, draft *generation.Draft, languages []string) (*domain.Course, error)
}

// OrchestratorConfig bounds a generation attempt.
type OrchestratorConfig struct {
	// Timeout caps the capability call.
	Timeout time.Duration
	// MaxAttempts caps the counted runs of a course; see
	// domain.FailureReason.CountsAsAttempt. Zero means unlimited.
	MaxAttempts int
}

// Outcome is the terminal status of one generation attempt.
type Outcome struct {
	CourseID uuid.UUID            `json:"course_id"`
	Status   domain.CourseStatus  `json:"status"`
	Reason   domain.FailureReason `json:"failure_reason,omitempty"`
}

// GenerationOrchestrator drives courses through DRAFT|FAILED -> GENERATING ->
// PUBLISHED|FAILED.
type GenerationOrchestrator struct {
	courses    store.CourseStore
	ledger     QuotaLedger
	capability generation.Capability
	assembler  ContentAssembler
	emitter    events.EventEmitter
	cfg        OrchestratorConfig
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewGenerationOrchestrator wires an orchestrator. emitter may be nil.
func NewGenerationOrchestrator(
	courses store.CourseStore,
	ledger QuotaLedger,
	capability generation.Capability,
	assembler ContentAssembler,
	emitter events.EventEmitter,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) (*GenerationOrchestrator, error) {
	if courses == nil || ledger == nil || capability == nil || assembler == nil {
		return nil, errors.New("orchestrator requires course store, ledger, capability and assembler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationOrchestrator{
		courses:    courses,
		ledger:     ledger,
		capability: capability,
		assembler:  assembler,
		emitter:    emitter,
		cfg:        cfg,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With("component", "generation_orchestrator"),
	}, nil
}

// Generate begins generation of courseID and runs it to a terminal status.
func (o *GenerationOrchestrator) Generate(ctx context.Context, courseID uuid.UUID) (*Outcome, error) {
	course, err := o.Begin(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, course)
}

// Begin moves a DRAFT or FAILED course to GENERATING. Concurrent callers race
// on the course version; exactly one wins and the rest get ErrInvalidState.
func (o *GenerationOrchestrator) Begin(ctx context.Context, courseID uuid.UUID) (*domain.Course, error) {
	course, err := o.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if !course.CanBeginGeneration() {
		return nil, fmt.Errorf("%w: course is %s", ErrInvalidState, course.Status)
	}
	if o.cfg.MaxAttempts > 0 && course.Attempts >= o.cfg.MaxAttempts {
		return nil, fmt.Errorf("%w: %d of %d used", ErrAttemptsExhausted, course.Attempts, o.cfg.MaxAttempts)
	}

	begun, err := o.courses.BeginGeneration(ctx, course.ID, course.Version)
	if err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: generation already started", ErrInvalidState)
		}
		return nil, fmt.Errorf("failed to begin generation: %w", err)
	}

	o.logger.InfoContext(ctx, "course generation started",
		"course_id", begun.ID,
		"attempt", begun.Attempts)
	return begun, nil
}

// Resume runs a course that is already GENERATING, as handed over by Begin.
func (o *GenerationOrchestrator) Resume(ctx context.Context, courseID uuid.UUID) (*Outcome, error) {
	course, err := o.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if course.Status != domain.CourseStatusGenerating {
		return nil, fmt.Errorf("%w: course is %s", ErrInvalidState, course.Status)
	}
	return o.Run(ctx, course)
}

// Run reserves quota, calls the capability, assembles the draft and
// publishes it. Any failure releases the reservation and leaves the course
// FAILED; the returned error is then a *GenerationError.
func (o *GenerationOrchestrator) Run(ctx context.Context, course *domain.Course) (*Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "generation.run", trace.WithAttributes(
		attribute.String("course.id", course.ID.String()),
		attribute.Int("course.attempt", course.Attempts),
	))
	defer span.End()

	log := o.logger.With("course_id", course.ID, "creator_id", course.CreatorID)

	res, err := o.reserve(ctx, course)
	if err != nil {
		reason := domain.FailureReasonInternal
		if errors.Is(err, quota.ErrQuotaExceeded) {
			reason = domain.FailureReasonQuotaExceeded
		}
		return o.fail(ctx, span, course, nil, reason, err)
	}

	draft, err := o.callCapability(ctx, course)
	if err != nil {
		reason := domain.FailureReasonGenerationFailed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = domain.FailureReasonGenerationTimeout
		}
		return o.fail(ctx, span, course, res, reason, fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err))
	}

	assembled, err := o.assemble(ctx, course, draft)
	if err != nil {
		return o.fail(ctx, span, course, res, assemblyReason(err), err)
	}

	_, persistSpan := o.tracer.Start(ctx, "course.persist")
	err = o.courses.PersistGenerationResult(context.WithoutCancel(ctx), store.GenerationResult{
		CourseID:      course.ID,
		Status:        domain.CourseStatusPublished,
		Modules:       assembled.Modules,
		ReservationID: res.ID,
	})
	endSpan(persistSpan, err)
	if err != nil {
		return o.fail(ctx, span, course, res, domain.FailureReasonPersistence,
			fmt.Errorf("failed to persist generated course: %w", err))
	}

	o.ledger.Commit(res)
	o.emitStatus(ctx, course, domain.CourseStatusPublished, "")

	log.InfoContext(ctx, "course published", "module_count", len(assembled.Modules))
	span.SetStatus(codes.Ok, "")
	return &Outcome{CourseID: course.ID, Status: domain.CourseStatusPublished}, nil
}

func (o *GenerationOrchestrator) reserve(ctx context.Context, course *domain.Course) (*quota.Reservation, error) {
	ctx, span := o.tracer.Start(ctx, "quota.reserve")
	res, err := o.ledger.Reserve(ctx, course.CreatorID, course.ID)
	endSpan(span, err)
	return res, err
}

func (o *GenerationOrchestrator) callCapability(ctx context.Context, course *domain.Course) (*generation.Draft, error) {
	ctx, span := o.tracer.Start(ctx, "generation.capability")
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	draft, err := o.capability.Generate(ctx, generation.Params{
		Title:      course.Title,
		RawText:    course.RawText,
		Difficulty: course.Difficulty,
		Languages:  []string{course.Language},
	})
	// A result that arrives after the deadline is discarded.
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	endSpan(span, err)
	return draft, err
}

func (o *GenerationOrchestrator) assemble(
	ctx context.Context,
	course *domain.Course,
	draft *generation.Draft,
) (*domain.Course, error) {
	_, span := o.tracer.Start(ctx, "assembly.assemble")
	assembled, err := o.assembler.Assemble(course, draft, []string{course.Language})
	endSpan(span, err)
	return assembled, err
}

// fail releases res, records FAILED and builds the error returned by Run.
// Cleanup runs detached from ctx cancellation.
func (o *GenerationOrchestrator) fail(
	ctx context.Context,
	span trace.Span,
	course *domain.Course,
	res *quota.Reservation,
	reason domain.FailureReason,
	cause error,
) (*Outcome, error) {
	cleanupCtx := context.WithoutCancel(ctx)
	log := o.logger.With("course_id", course.ID, "failure_reason", reason)

	if res != nil {
		if err := o.ledger.Release(cleanupCtx, res); err != nil {
			log.ErrorContext(ctx, "failed to release quota reservation",
				"reservation_id", res.ID,
				"error", err)
		}
	}

	err := o.courses.PersistGenerationResult(cleanupCtx, store.GenerationResult{
		CourseID:      course.ID,
		Status:        domain.CourseStatusFailed,
		FailureReason: reason,
	})
	switch {
	case errors.Is(err, store.ErrStatusConflict):
		log.WarnContext(ctx, "course left GENERATING before failure was recorded")
	case err != nil:
		log.ErrorContext(ctx, "failed to record course failure", "error", err)
	default:
		o.emitStatus(cleanupCtx, course, domain.CourseStatusFailed, reason)
	}

	log.WarnContext(ctx, "course generation failed", "error", cause)
	span.RecordError(cause)
	span.SetStatus(codes.Error, string(reason))

	return &Outcome{CourseID: course.ID, Status: domain.CourseStatusFailed, Reason: reason},
		&GenerationError{CourseID: course.ID, Reason: reason, Err: cause}
}

// Abort marks a GENERATING course FAILED without running it, for work that
// could not be handed to the background runner.
func (o *GenerationOrchestrator) Abort(
	ctx context.Context,
	course *domain.Course,
	reason domain.FailureReason,
	cause error,
) (*Outcome, error) {
	_, span := o.tracer.Start(ctx, "generation.abort", trace.WithAttributes(
		attribute.String("course.id", course.ID.String()),
	))
	defer span.End()
	return o.fail(ctx, span, course, nil, reason, cause)
}

// RecoverStuck fails courses that have been GENERATING for longer than
// olderThan, releasing any reservation they still hold. It returns the number
// of courses recovered.
func (o *GenerationOrchestrator) RecoverStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	stuck, err := o.courses.FindStuckGenerating(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to find stuck courses: %w", err)
	}

	recovered := 0
	for _, course := range stuck {
		log := o.logger.With("course_id", course.ID)

		if _, err := o.ledger.ReleaseHeldForCourse(ctx, course.ID); err != nil {
			log.ErrorContext(ctx, "failed to release quota for stuck course", "error", err)
			continue
		}

		err := o.courses.PersistGenerationResult(ctx, store.GenerationResult{
			CourseID:      course.ID,
			Status:        domain.CourseStatusFailed,
			FailureReason: domain.FailureReasonInterrupted,
		})
		if errors.Is(err, store.ErrStatusConflict) {
			continue
		}
		if err != nil {
			log.ErrorContext(ctx, "failed to fail stuck course", "error", err)
			continue
		}

		recovered++
		o.emitStatus(ctx, course, domain.CourseStatusFailed, domain.FailureReasonInterrupted)
		log.WarnContext(ctx, "recovered stuck course")
	}
	return recovered, nil
}

func (o *GenerationOrchestrator) emitStatus(
	ctx context.Context,
	course *domain.Course,
	status domain.CourseStatus,
	reason domain.FailureReason,
) {
	if o.emitter == nil {
		return
	}
	event, err := events.NewEvent(events.TypeCourseStatusChanged, events.CourseStatusPayload{
		CourseID:      course.ID,
		CreatorID:     course.CreatorID,
		Status:        string(status),
		FailureReason: string(reason),
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to build status event", "error", err)
		return
	}
	if err := o.emitter.EmitEvent(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "status event delivery failed",
			"course_id", course.ID,
			"error", err)
	}
}

func assemblyReason(err error) domain.FailureReason {
	var aerr *assembly.AssemblyError
	if errors.As(err, &aerr) {
		return aerr.Reason()
	}
	return domain.FailureReasonInternal
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
