package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/assembly"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/events"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/gemini"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/memory"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/postgres"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/redis"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/quota"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service/auth"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/task"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

// stores is the storage backend selected by database.driver.
type stores struct {
	users    store.UserStore
	sessions store.SessionStore
	courses  store.CourseStore
	quotas   store.QuotaStore
	progress store.ProgressStore
	tasks    task.TaskStore
	seeder   service.QuotaWriter
}

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores stores

	jwtService   auth.JWTService
	ledger       *quota.Ledger
	orchestrator *service.GenerationOrchestrator
	courses      service.CourseService
	progress     service.ProgressService
	users        service.UserService

	eventEmitter *events.InMemoryEventEmitter
	publisher    *redis.StatusPublisher
	taskRunner   *task.TaskRunner
}

// newApplication opens storage, builds the services and starts the task
// runner. On error everything already opened is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	capability, err := gemini.NewCapability(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM capability: %w", err)
	}
	logger.Info("LLM capability initialized", "model", cfg.LLM.ModelName)

	return buildApplication(ctx, cfg, logger, capability)
}

// buildApplication wires everything around an already constructed
// capability.
func buildApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	capability generation.Capability,
) (_ *application, err error) {
	app := &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	if err := app.openStores(ctx); err != nil {
		return nil, err
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	if cfg.Redis.Addr != "" {
		app.publisher, err = redis.NewStatusPublisher(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect status publisher: %w", err)
		}
		app.eventEmitter.RegisterHandler(app.publisher)
		logger.Info("course status publishing enabled", "channel", cfg.Redis.Channel)
	}

	app.ledger = quota.NewLedger(app.stores.quotas, cfg.Quota, logger)

	app.orchestrator, err = service.NewGenerationOrchestrator(
		app.stores.courses,
		app.ledger,
		capability,
		assembly.NewAssembler(),
		app.eventEmitter,
		service.OrchestratorConfig{
			Timeout:     cfg.Generation.Timeout(),
			MaxAttempts: cfg.Generation.MaxAttempts,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation orchestrator: %w", err)
	}

	app.courses = service.NewCourseService(app.stores.courses, app.orchestrator, app.eventEmitter, logger)
	app.progress = service.NewProgressService(app.stores.progress, logger)
	app.users = service.NewUserService(app.stores.users, auth.NewBcryptHasher(bcrypt.DefaultCost), logger)

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

func (app *application) openStores(ctx context.Context) error {
	switch app.config.Database.Driver {
	case driverMemory:
		mem := memory.New()
		app.stores = stores{
			users:    mem.Users(),
			sessions: mem.Sessions(),
			courses:  mem.Courses(),
			quotas:   mem.Quotas(),
			progress: mem.Progress(),
			tasks:    mem.Tasks(),
			seeder:   mem,
		}
		app.logger.Warn("using in-memory storage; all data is lost on exit")
		return nil

	case driverPostgres:
		db, err := postgres.Open(ctx, app.config.Database.URL, app.config.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		app.db = db

		if app.config.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db, app.logger); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
		}

		quotas := postgres.NewPostgresQuotaStore(db)
		app.stores = stores{
			users:    postgres.NewPostgresUserStore(db),
			sessions: postgres.NewPostgresSessionStore(db),
			courses:  postgres.NewPostgresCourseStore(db),
			quotas:   quotas,
			progress: postgres.NewPostgresProgressStore(db),
			tasks:    postgres.NewPostgresTaskStore(db),
			seeder:   quotas,
		}
		app.logger.Info("database connection established")
		return nil

	default:
		return fmt.Errorf("unsupported database driver %q", app.config.Database.Driver)
	}
}

// stuckThreshold is how long a course may stay GENERATING before the sweeper
// fails it. It never undercuts twice the generation timeout.
func stuckThreshold(cfg *config.Config) time.Duration {
	threshold := time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute
	if floor := 2 * cfg.Generation.Timeout(); threshold < floor {
		threshold = floor
	}
	return threshold
}

// setupTaskRunner creates the runner, registers course generation and the
// stuck-course sweeper, hooks generation requests to it and starts it.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	runner := task.NewTaskRunner(app.stores.tasks, task.TaskRunnerConfig{
		QueueSize:              app.config.Task.QueueSize,
		WorkerCount:            app.config.Task.WorkerCount,
		StuckTaskAge:           time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckTaskCheckInterval: time.Duration(app.config.Task.CheckIntervalSeconds) * time.Second,
	}, app.logger)

	orch := app.orchestrator
	factory := task.NewCourseGenerationTaskFactory(task.CourseGeneratorFunc(
		func(ctx context.Context, courseID uuid.UUID) error {
			_, err := orch.Resume(ctx, courseID)
			return err
		},
	))
	runner.RegisterType(task.TaskTypeCourseGeneration, factory.Rehydrate)

	threshold := stuckThreshold(app.config)
	log := app.logger.With("component", "stuck_course_sweeper")
	runner.SetSweeper(task.SweeperFunc(func(ctx context.Context) error {
		n, err := orch.RecoverStuck(ctx, threshold)
		if n > 0 {
			log.WarnContext(ctx, "failed stuck courses", "count", n, "threshold", threshold)
		}
		return err
	}))

	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, runner, app.logger))

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return runner, nil
}

// seedDevUser creates a development account in the in-memory store and
// writes its access token to out.
func (app *application) seedDevUser(ctx context.Context, email, password string, out io.Writer) error {
	if app.config.Database.Driver != driverMemory {
		return errors.New("-dev-seed-email only works with the memory driver; use cmd/devseed for postgres")
	}

	seeder := service.NewDevSeeder(
		app.users,
		app.stores.sessions,
		app.stores.seeder,
		app.jwtService,
		auth.NewBcryptHasher(bcrypt.DefaultCost),
		app.logger,
	)
	res, err := seeder.Seed(ctx, service.SeedRequest{
		Email:    email,
		Password: password,
		Plan:     domain.PlanFree,
		Limit:    app.config.Quota.LimitFor(domain.PlanFree),
	})
	if err != nil {
		return fmt.Errorf("failed to seed development user: %w", err)
	}

	_, err = fmt.Fprintf(out, "user_id=%s\naccess_token=%s\n", res.UserID, res.AccessToken)
	return err
}

// cleanup stops the runner and closes connections. It is safe on a partly
// built application.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("failed to close status publisher", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
