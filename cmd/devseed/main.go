// Command devseed creates a user with an active session and a quota in the
// postgres database, then prints an access token for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/postgres"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

type seedFlags struct {
	email      string
	password   string
	plan       string
	limit      int
	sessionTTL time.Duration
}

func main() {
	var f seedFlags
	flag.StringVar(&f.email, "email", "dev@example.com", "email of the user to create")
	flag.StringVar(&f.password, "password", "password123", "password of the user to create")
	flag.StringVar(&f.plan, "plan", string(domain.PlanFree), "quota plan: FREE, PRO or ENTERPRISE")
	flag.IntVar(&f.limit, "limit", -1, "monthly generation limit; -1 uses the plan's configured limit")
	flag.DurationVar(&f.sessionTTL, "session-ttl", 30*24*time.Hour, "lifetime of the seeded session")
	flag.Parse()

	if err := run(context.Background(), f, os.Stdout); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f seedFlags, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("devseed needs the postgres driver, got %q; run the server with -dev-seed-email instead",
			cfg.Database.Driver)
	}

	req, err := seedRequest(f, cfg.Quota)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, 2)
	if err != nil {
		return err
	}
	defer db.Close()

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	seeder := service.NewDevSeeder(
		service.NewUserService(postgres.NewPostgresUserStore(db), hasher, log),
		postgres.NewPostgresSessionStore(db),
		postgres.NewPostgresQuotaStore(db),
		jwtService,
		hasher,
		log,
	)
	res, err := seeder.Seed(ctx, req)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "user_id=%s\naccess_token=%s\n", res.UserID, res.AccessToken)
	return err
}

// seedRequest turns flags into a SeedRequest, filling the limit from the
// plan's configured default.
func seedRequest(f seedFlags, limits config.QuotaConfig) (service.SeedRequest, error) {
	plan := domain.Plan(strings.ToUpper(strings.TrimSpace(f.plan)))
	if !plan.IsValid() {
		return service.SeedRequest{}, fmt.Errorf("unknown plan %q", f.plan)
	}

	limit := f.limit
	if limit < 0 {
		limit = limits.LimitFor(plan)
	}

	return service.SeedRequest{
		Email:      f.email,
		Password:   f.password,
		Plan:       plan,
		Limit:      limit,
		SessionTTL: f.sessionTTL,
	}, nil
}
