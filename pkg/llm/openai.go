package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai_sdk "github.com/openai/openai-go"
	openai_option "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/logging"
)

const defaultOpenAIModel = "gpt-4o-mini"

var _ Provider = (*OpenAIClient)(nil)

type chatCompletionClient interface {
	New(ctx context.Context, body openai_sdk.ChatCompletionNewParams, opts ...openai_option.RequestOption) (*openai_sdk.ChatCompletion, error)
}

// OpenAIClient provides a Provider backed by OpenAI Chat Completions.
type OpenAIClient struct {
	mu sync.Mutex

	config config.Manager
	logger logging.Logger
	model  string

	apiClient       *openai_sdk.Client
	chatCompletions chatCompletionClient

	initialized bool
	initErr     error
}

// NewOpenAIClient builds an OpenAI-backed Provider.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	options := buildOptions("openai", opts)

	model := options.model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIClient{
		config:          options.config,
		logger:          options.logger,
		model:           model,
		chatCompletions: options.chat,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Model() string { return c.model }

// Complete sends one system+user exchange and returns the text response.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}

	var messages []openai_sdk.ChatCompletionMessageParamUnion
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openai_sdk.SystemMessage(system))
	}
	messages = append(messages, openai_sdk.UserMessage(prompt))

	params := openai_sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if temperature := c.config.GetModelConfig().Temperature; temperature > 0 {
		params.Temperature = openai_sdk.Float(float64(temperature))
	}

	c.logger.Debug("sending openai request", "model", c.model)

	resp, err := c.chatCompletions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}

	if c.chatCompletions != nil {
		c.initialized = true
		c.initErr = nil
		return nil
	}

	apiKey := strings.TrimSpace(c.config.GetStringWithDefault("OPENAI_API_KEY", ""))
	if apiKey == "" {
		c.initErr = fmt.Errorf("%w: please export OPENAI_API_KEY (and optionally OPENAI_BASE_URL)", ErrNotConfigured)
		return c.initErr
	}

	opts := []openai_option.RequestOption{
		openai_option.WithAPIKey(apiKey),
	}
	if baseURL := strings.TrimSpace(c.config.GetStringWithDefault("OPENAI_BASE_URL", "")); baseURL != "" {
		opts = append(opts, openai_option.WithBaseURL(baseURL))
	}
	if orgID := strings.TrimSpace(c.config.GetStringWithDefault("OPENAI_ORG_ID", "")); orgID != "" {
		opts = append(opts, openai_option.WithOrganization(orgID))
	}

	client := openai_sdk.NewClient(opts...)
	service := client.Chat.Completions

	c.apiClient = &client
	c.chatCompletions = &service
	c.initialized = true
	c.initErr = nil
	return nil
}
