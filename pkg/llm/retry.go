package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/logging"
)

// RetryConfig configures the retry middleware
type RetryConfig struct {
	Enabled        bool
	MaxRetries     int
	InitialBackoff time.Duration
}

// RetryMiddleware wraps a Provider to add retry logic
type RetryMiddleware struct {
	underlying     Provider
	maxRetries     int
	initialBackoff time.Duration
	logger         logging.Logger
	sleep          func(time.Duration)
}

// NewRetryMiddleware creates a new RetryMiddleware
func NewRetryMiddleware(underlying Provider, config RetryConfig, logger logging.Logger) *RetryMiddleware {
	if logger == nil {
		logger = logging.NewComponentLogger("llm-retry")
	}
	return &RetryMiddleware{
		underlying:     underlying,
		maxRetries:     config.MaxRetries,
		initialBackoff: config.InitialBackoff,
		logger:         logger,
		sleep:          time.Sleep,
	}
}

func (r *RetryMiddleware) Name() string { return r.underlying.Name() }

func (r *RetryMiddleware) Model() string { return r.underlying.Model() }

// Complete implements the Provider interface with retry logic
func (r *RetryMiddleware) Complete(ctx context.Context, system, prompt string) (string, error) {
	var (
		response string
		err      error
	)

	backoff := r.initialBackoff
	for i := 0; i < r.maxRetries; i++ {
		response, err = r.underlying.Complete(ctx, system, prompt)
		if err == nil {
			return response, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		r.logger.Warn("completion attempt failed", "attempt", i+1, "error", err, "backoff", backoff)
		r.sleep(backoff)
		backoff *= 2 // Exponential backoff
	}

	return "", fmt.Errorf("failed to complete after %d retries: %w", r.maxRetries, err)
}

// GetRetryConfigFromEnv creates retry config from environment variables
func GetRetryConfigFromEnv(configManager config.Manager) RetryConfig {
	return RetryConfig{
		Enabled:        configManager.GetBoolWithDefault("LOOM_RETRY_LLM_ENABLED", true),
		MaxRetries:     configManager.GetIntWithDefault("LOOM_RETRY_LLM_MAX_RETRIES", 3),
		InitialBackoff: configManager.GetDurationWithDefault("LOOM_RETRY_LLM_INITIAL_BACKOFF", 1*time.Second),
	}
}
