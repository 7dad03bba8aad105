package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	anthropic_sdk "github.com/anthropics/anthropic-sdk-go"
	anthropic_option "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/logging"
)

const defaultClaudeModel = "claude-3-5-sonnet-20241022"

var _ Provider = (*AnthropicClient)(nil)

type messageClient interface {
	New(ctx context.Context, body anthropic_sdk.MessageNewParams, opts ...anthropic_option.RequestOption) (*anthropic_sdk.Message, error)
}

// AnthropicClient provides a Provider backed by the Anthropic Messages API.
type AnthropicClient struct {
	mu sync.Mutex

	config config.Manager
	logger logging.Logger
	model  string

	apiClient *anthropic_sdk.Client
	messages  messageClient

	initialized bool
	initErr     error
}

// NewAnthropicClient builds an Anthropic-backed Provider. The SDK client is
// created lazily on first use so construction never needs credentials.
func NewAnthropicClient(opts ...Option) *AnthropicClient {
	options := buildOptions("anthropic", opts)

	model := options.model
	if model == "" {
		model = defaultClaudeModel
	}

	return &AnthropicClient{
		config:   options.config,
		logger:   options.logger,
		model:    model,
		messages: options.messages,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) Model() string { return c.model }

// Complete sends one system+user exchange and returns the text response.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}

	params := anthropic_sdk.MessageNewParams{
		Model:     anthropic_sdk.Model(c.model),
		MaxTokens: int64(c.config.GetModelConfig().MaxTokens),
		Messages: []anthropic_sdk.MessageParam{
			anthropic_sdk.NewUserMessage(anthropic_sdk.NewTextBlock(prompt)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic_sdk.TextBlockParam{{Text: system}}
	}
	if temperature := c.config.GetModelConfig().Temperature; temperature > 0 {
		params.Temperature = anthropic_sdk.Float(float64(temperature))
	}

	c.logger.Debug("sending anthropic request", "model", c.model)

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var textBuilder strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n")
			}
			textBuilder.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(textBuilder.String()), nil
}

func (c *AnthropicClient) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}

	if c.messages != nil {
		c.initialized = true
		c.initErr = nil
		return nil
	}

	apiKey := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_API_KEY", ""))
	if apiKey == "" {
		c.initErr = fmt.Errorf("%w: please export ANTHROPIC_API_KEY (and optionally ANTHROPIC_BASE_URL)", ErrNotConfigured)
		return c.initErr
	}

	opts := []anthropic_option.RequestOption{
		anthropic_option.WithAPIKey(apiKey),
	}
	if baseURL := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_BASE_URL", "")); baseURL != "" {
		opts = append(opts, anthropic_option.WithBaseURL(baseURL))
	}

	client := anthropic_sdk.NewClient(opts...)
	service := client.Messages

	c.apiClient = &client
	c.messages = &service
	c.initialized = true
	c.initErr = nil
	return nil
}
