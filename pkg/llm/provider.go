// Package llm is the model-invocation collaborator. The assembly core never
// calls a model; everything here is driven by the engine.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/logging"
)

// ErrNotConfigured is returned when a provider's credentials are missing.
var ErrNotConfigured = errors.New("llm backend not configured")

// Provider executes a single system+user completion against a model backend.
type Provider interface {
	// Name identifies the backend ("anthropic", "openai", "gemini").
	Name() string

	// Model reports the model that Complete will invoke.
	Model() string

	// Complete sends one system prompt and one user prompt, returning the
	// model's text response.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Backend enumerates the supported provider backends.
type Backend int

const (
	BackendAnthropic Backend = iota
	BackendOpenAI
	BackendGemini
)

func (b Backend) String() string {
	switch b {
	case BackendAnthropic:
		return "anthropic"
	case BackendOpenAI:
		return "openai"
	case BackendGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// ParseBackend maps a configured provider name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "anthropic":
		return BackendAnthropic, nil
	case "openai":
		return BackendOpenAI, nil
	case "gemini", "genai", "google":
		return BackendGemini, nil
	default:
		return 0, fmt.Errorf("unsupported llm provider %q", name)
	}
}

// NewProvider builds the provider selected by the settings, wrapped with
// retry middleware.
func NewProvider(settings config.Settings, manager config.Manager, logger logging.Logger) (Provider, error) {
	backend, err := ParseBackend(settings.Provider)
	if err != nil {
		return nil, err
	}

	var provider Provider
	switch backend {
	case BackendAnthropic:
		provider = NewAnthropicClient(WithConfigManager(manager), WithLogger(logger), WithModel(settings.Model))
	case BackendOpenAI:
		provider = NewOpenAIClient(WithConfigManager(manager), WithLogger(logger), WithModel(settings.Model))
	case BackendGemini:
		provider = NewGeminiClient(WithConfigManager(manager), WithLogger(logger), WithModel(settings.Model))
	}

	retryConfig := GetRetryConfigFromEnv(manager)
	if !retryConfig.Enabled {
		return provider, nil
	}
	return NewRetryMiddleware(provider, retryConfig, logger), nil
}
