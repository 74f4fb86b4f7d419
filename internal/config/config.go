package config

import (
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Quota      QuotaConfig      `mapstructure:"quota" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig selects the storage backend. The memory driver keeps all
// state in process and is meant for local runs.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL          string `mapstructure:"url" validate:"required_if=Driver postgres,omitempty,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1"`
}

// LLMConfig contains the Gemini generation settings.
type LLMConfig struct {
	GeminiAPIKey       string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName          string  `mapstructure:"model_name" validate:"required"`
	MaxRetries         int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds  int     `mapstructure:"retry_delay_seconds" validate:"gte=1"`
	PromptTemplatePath string  `mapstructure:"prompt_template_path"`
	Temperature        float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	WorkerCount          int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize            int `mapstructure:"queue_size" validate:"gte=1"`
	StuckTaskAgeMinutes  int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds" validate:"gte=1"`
}

// GenerationConfig bounds a single generation attempt.
type GenerationConfig struct {
	// TimeoutSeconds bounds the capability call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=1"`
	// MaxAttempts caps how many counted generation runs one course may have.
	// Quota, enqueue and interruption failures are not counted. Zero means unlimited.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0"`
}

// Timeout returns the capability call bound as a duration.
func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// QuotaConfig holds the monthly limit for each plan tier.
type QuotaConfig struct {
	FreeLimit       int `mapstructure:"free_limit" validate:"gte=0"`
	ProLimit        int `mapstructure:"pro_limit" validate:"gte=0"`
	EnterpriseLimit int `mapstructure:"enterprise_limit" validate:"gte=0"`
}

// LimitFor returns the monthly limit of plan. Unknown plans get the free limit.
func (c QuotaConfig) LimitFor(plan domain.Plan) int {
	switch plan {
	case domain.PlanPro:
		return c.ProLimit
	case domain.PlanEnterprise:
		return c.EnterpriseLimit
	default:
		return c.FreeLimit
	}
}

// RedisConfig enables publishing course status events. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Channel  string `mapstructure:"channel" validate:"required_with=Addr"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRatio    float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}
