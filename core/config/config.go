// Package config holds process-wide settings bound from environment
// variables and CLI flags, following the same package-level var block
// pattern used throughout the bot's settings package.
package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

// ValkeyConfig configures the ephemeral store connection.
type ValkeyConfig struct {
	Address  string
	Password string
	DB       int
	KeyPrefix string
}

// NLUConfig holds the NLU provider settings and the ensemble deadline.
// The Confidence* fields carry default threshold values, but no
// component reads them: the ensemble's 0.95/0.85/0.60 banding is
// fixed in nlu.reconcile, and the Router applies no per-intent
// confidence gate.
type NLUConfig struct {
	ConfidenceHighVotes3   float64
	ConfidenceMediumVotes2 float64
	ConfidenceClarifyMax   float64
	ConfidenceCreateList   float64
	ConfidenceDestructive  float64
	EnsembleDeadline       time.Duration

	OpenAIAPIKey   string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	CompatAPIKey   string
	CompatBaseURL  string
	CompatModel    string
}

// EventsConfig controls event-service policy toggles.
type EventsConfig struct {
	AllowPastDates bool
}

// OperatorConfig is where cost alerts are delivered.
type OperatorConfig struct {
	Phone string
}

// SchedulerConfig tunes the reminder delivery worker pool.
type SchedulerConfig struct {
	WorkerCount       int
	PollInterval      time.Duration
	JobDeadline       time.Duration
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RetryMaxAttempts  int
	MorningSummaryUTC string // "HH:MM" in UTC, default "09:00"
}

// AuthConfig tunes PIN lockout and session TTL.
type AuthConfig struct {
	MaxFailures    int
	LockoutWindow  time.Duration
	SessionTTL     time.Duration
}

// Settings is the root configuration object, assembled once at startup
// and passed by reference into every component constructor.
type Settings struct {
	Debug    bool
	Database DatabaseConfig
	Valkey   ValkeyConfig
	NLU      NLUConfig
	Events   EventsConfig
	Operator OperatorConfig
	Scheduler SchedulerConfig
	Auth     AuthConfig
}

// Defaults returns the baseline configuration with spec-mandated
// defaults; callers overlay environment/flag values on top.
func Defaults() *Settings {
	return &Settings{
		Debug: false,
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/app.db",
		},
		Valkey: ValkeyConfig{
			Address:   "127.0.0.1:6379",
			KeyPrefix: "levwa",
		},
		NLU: NLUConfig{
			ConfidenceHighVotes3:   0.95,
			ConfidenceMediumVotes2: 0.85,
			ConfidenceClarifyMax:   0.60,
			ConfidenceCreateList:   0.50,
			ConfidenceDestructive:  0.60,
			EnsembleDeadline:       5 * time.Second,
			OpenAIModel:            "gpt-4o-mini",
			GeminiModel:            "gemini-2.0-flash",
			CompatModel:            "deepseek-chat",
		},
		Events: EventsConfig{
			AllowPastDates: false,
		},
		Scheduler: SchedulerConfig{
			WorkerCount:       8,
			PollInterval:      5 * time.Second,
			JobDeadline:       30 * time.Second,
			RetryBaseDelay:    1 * time.Second,
			RetryMaxDelay:     30 * time.Second,
			RetryMaxAttempts:  3,
			MorningSummaryUTC: "09:00",
		},
		Auth: AuthConfig{
			MaxFailures:   3,
			LockoutWindow: 15 * time.Minute,
			SessionTTL:    48 * time.Hour,
		},
	}
}

// LoadFromEnv overlays environment variables on top of Defaults, the
// same getEnv/getEnvBool/getEnvInt overlay style the bot's own
// core/config.LoadConfig uses. Call godotenv.Load beforehand so a
// local .env file populates os.Getenv first.
func LoadFromEnv() *Settings {
	cfg := Defaults()

	cfg.Debug = getEnvBool("APP_DEBUG", cfg.Debug)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)

	cfg.Valkey.Address = getEnv("VALKEY_ADDRESS", cfg.Valkey.Address)
	cfg.Valkey.Password = getEnv("VALKEY_PASSWORD", cfg.Valkey.Password)
	cfg.Valkey.DB = getEnvInt("VALKEY_DB", cfg.Valkey.DB)
	cfg.Valkey.KeyPrefix = getEnv("VALKEY_KEY_PREFIX", cfg.Valkey.KeyPrefix)

	cfg.NLU.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.NLU.OpenAIAPIKey)
	cfg.NLU.OpenAIModel = getEnv("OPENAI_MODEL", cfg.NLU.OpenAIModel)
	cfg.NLU.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.NLU.GeminiAPIKey)
	cfg.NLU.GeminiModel = getEnv("GEMINI_MODEL", cfg.NLU.GeminiModel)
	cfg.NLU.CompatAPIKey = getEnv("COMPAT_API_KEY", cfg.NLU.CompatAPIKey)
	cfg.NLU.CompatBaseURL = getEnv("COMPAT_BASE_URL", cfg.NLU.CompatBaseURL)
	cfg.NLU.CompatModel = getEnv("COMPAT_MODEL", cfg.NLU.CompatModel)

	cfg.Events.AllowPastDates = getEnvBool("EVENTS_ALLOW_PAST_DATES", cfg.Events.AllowPastDates)
	cfg.Operator.Phone = getEnv("OPERATOR_PHONE", cfg.Operator.Phone)

	cfg.Scheduler.WorkerCount = getEnvInt("SCHEDULER_WORKER_COUNT", cfg.Scheduler.WorkerCount)
	cfg.Scheduler.MorningSummaryUTC = getEnv("SCHEDULER_MORNING_SUMMARY_UTC", cfg.Scheduler.MorningSummaryUTC)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
