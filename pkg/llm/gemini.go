package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/logging"
)

const defaultGeminiModel = "gemini-2.0-flash"

var _ Provider = (*GeminiClient)(nil)

// contentGenerator abstracts the genai generate call for test injection.
type contentGenerator func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiClient provides a Provider backed by the Gemini API.
type GeminiClient struct {
	mu sync.Mutex

	config config.Manager
	logger logging.Logger
	model  string

	apiClient *genai.Client
	generate  contentGenerator

	initialized bool
	initErr     error
}

// NewGeminiClient builds a Gemini-backed Provider.
func NewGeminiClient(opts ...Option) *GeminiClient {
	options := buildOptions("gemini", opts)

	model := options.model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiClient{
		config:   options.config,
		logger:   options.logger,
		model:    model,
		generate: options.generator,
	}
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) Model() string { return c.model }

// Complete sends one system+user exchange and returns the text response.
func (c *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}

	userParts := []*genai.Part{genai.NewPartFromText(prompt)}
	contents := []*genai.Content{genai.NewContentFromParts(userParts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if strings.TrimSpace(system) != "" {
		systemParts := []*genai.Part{genai.NewPartFromText(system)}
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromParts(systemParts, genai.RoleUser),
		}
	}
	if temperature := c.config.GetModelConfig().Temperature; temperature > 0 {
		if cfg == nil {
			cfg = &genai.GenerateContentConfig{}
		}
		temp := float32(temperature)
		cfg.Temperature = &temp
	}

	c.logger.Debug("sending gemini request", "model", c.model)

	result, err := c.generate(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("no content in response candidate")
	}

	var textBuilder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n")
			}
			textBuilder.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(textBuilder.String()), nil
}

func (c *GeminiClient) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}

	if c.generate != nil {
		c.initialized = true
		c.initErr = nil
		return nil
	}

	apiKey := strings.TrimSpace(c.config.GetStringWithDefault("GEMINI_API_KEY", ""))
	if apiKey == "" {
		c.initErr = fmt.Errorf("%w: please export GEMINI_API_KEY", ErrNotConfigured)
		return c.initErr
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		c.initErr = fmt.Errorf("error creating Gemini API client: %w", err)
		return c.initErr
	}

	c.apiClient = client
	c.generate = func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, contents, cfg)
	}
	c.initialized = true
	c.initErr = nil
	return nil
}
