package llm

import (
	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/logging"
)

type clientOptions struct {
	config    config.Manager
	logger    logging.Logger
	model     string
	messages  messageClient
	chat      chatCompletionClient
	generator contentGenerator
}

// Option configures a provider client.
type Option func(*clientOptions)

// WithConfigManager injects a custom configuration manager (useful for tests).
func WithConfigManager(manager config.Manager) Option {
	return func(o *clientOptions) {
		if manager != nil {
			o.config = manager
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithModel overrides the model the client invokes.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMessageClient injects a pre-built Anthropic message client (primarily
// for tests).
func WithMessageClient(client messageClient) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.messages = client
		}
	}
}

// WithChatClient injects a custom OpenAI Chat Completions client (primarily
// for tests).
func WithChatClient(chat chatCompletionClient) Option {
	return func(o *clientOptions) {
		if chat != nil {
			o.chat = chat
		}
	}
}

// WithContentGenerator injects a custom Gemini generation function
// (primarily for tests).
func WithContentGenerator(generator contentGenerator) Option {
	return func(o *clientOptions) {
		if generator != nil {
			o.generator = generator
		}
	}
}

func buildOptions(component string, opts []Option) clientOptions {
	options := clientOptions{
		config: config.NewManager(),
		logger: logging.NewAPILogger(component),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
