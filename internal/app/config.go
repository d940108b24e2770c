package app

import (
	"strings"
	"time"

	"github.com/finvelo/ledger-backend/internal/jobs/outbox"
	"github.com/finvelo/ledger-backend/internal/platform/envutil"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	DispatcherEnabled     bool
	DispatcherInterval    time.Duration
	DispatcherBatchSize   int
	DispatcherMaxAttempts int

	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration

	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:              ":" + envutil.GetEnv("PORT", "8080", log),
		DispatcherEnabled:     envutil.GetEnvAsBool("OUTBOX_ENABLED", true, log),
		DispatcherInterval:    envutil.GetEnvAsDuration("OUTBOX_INTERVAL", outbox.DefaultInterval, log),
		DispatcherBatchSize:   envutil.GetEnvAsInt("OUTBOX_BATCH_SIZE", outbox.DefaultBatchSize, log),
		DispatcherMaxAttempts: envutil.GetEnvAsInt("OUTBOX_MAX_ATTEMPTS", outbox.DefaultMaxAttempts, log),
		WebhookURL:            envutil.GetEnv("EVENT_WEBHOOK_URL", "", log),
		WebhookSecret:         envutil.GetEnv("EVENT_WEBHOOK_SECRET", "", log),
		WebhookTimeout:        envutil.GetEnvAsDuration("EVENT_WEBHOOK_TIMEOUT", 10*time.Second, log),
		Environment:           envutil.GetEnv("APP_ENV", "development", log),
		Version:               envutil.GetEnv("APP_VERSION", "dev", log),
	}

	origins := envutil.GetEnv("CORS_ALLOW_ORIGINS", "", log)
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	return cfg
}
