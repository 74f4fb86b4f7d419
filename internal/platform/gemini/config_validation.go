package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2
)

// validateConfig rejects settings the capability cannot run with and
// replaces out-of-range retry settings with defaults.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (config.LLMConfig, error) {
	if cfg.GeminiAPIKey == "" {
		return cfg, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return cfg, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "invalid max retries value, using default",
			"value", cfg.MaxRetries,
			"default", defaultMaxRetries)
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "invalid retry delay value, using default",
			"value", cfg.RetryDelaySeconds,
			"default", defaultRetryDelay)
		cfg.RetryDelaySeconds = defaultRetryDelay
	}
	return cfg, nil
}
