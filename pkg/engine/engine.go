// Package engine wires the store, the allocator, the assembler, and the
// model provider into the two top-level operations: building a context
// payload and answering a question with it.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kcaldas/loom/pkg/codec"
	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/events"
	"github.com/kcaldas/loom/pkg/llm"
	"github.com/kcaldas/loom/pkg/logging"
	"github.com/kcaldas/loom/pkg/retrieval"
	"github.com/kcaldas/loom/pkg/store"
	"github.com/kcaldas/loom/pkg/tokens"
	"github.com/kcaldas/loom/pkg/window"
)

const answerSystemPrompt = `You are a coding assistant. Answer using the ` +
	`repository context below. Lines starting with "REF:" stand for files ` +
	`whose full content was left out; say so instead of guessing their ` +
	`contents.`

// Retriever finds past-conversation snippets relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, repoID, query string, k int) ([]retrieval.Snippet, error)
}

// ContextResult is one assembled context window.
type ContextResult struct {
	Payload    string
	SideTable  window.SideTable
	TokensUsed int
}

// AskResult is one answered question.
type AskResult struct {
	ConversationID string
	Title          string
	Answer         string
	Context        ContextResult
}

// Engine orchestrates context assembly and question answering. All
// collaborators are injected; the engine holds no global state.
type Engine struct {
	files         store.FileStore
	conversations store.ConversationStore
	provider      llm.Provider
	retriever     Retriever

	allocator *window.Allocator
	assembler *window.Assembler
	codec     *codec.Codec
	estimator tokens.Estimator
	publisher events.Publisher
	logger    logging.Logger
	settings  config.Settings
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithProvider sets the model provider used by Ask.
func WithProvider(provider llm.Provider) Option {
	return func(e *Engine) {
		if provider != nil {
			e.provider = provider
		}
	}
}

// WithRetriever sets the conversation retriever used by Ask.
func WithRetriever(retriever Retriever) Option {
	return func(e *Engine) {
		if retriever != nil {
			e.retriever = retriever
		}
	}
}

// WithAllocator overrides the compaction allocator.
func WithAllocator(allocator *window.Allocator) Option {
	return func(e *Engine) {
		if allocator != nil {
			e.allocator = allocator
		}
	}
}

// WithCodec overrides the artifact codec.
func WithCodec(c *codec.Codec) Option {
	return func(e *Engine) {
		if c != nil {
			e.codec = c
		}
	}
}

// WithEstimator overrides the token estimator.
func WithEstimator(estimator tokens.Estimator) Option {
	return func(e *Engine) {
		if estimator != nil {
			e.estimator = estimator
		}
	}
}

// WithPublisher sets the event bus the engine publishes to.
func WithPublisher(publisher events.Publisher) Option {
	return func(e *Engine) {
		if publisher != nil {
			e.publisher = publisher
		}
	}
}

// WithLogger overrides the engine logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an engine over the given stores and settings.
func New(files store.FileStore, conversations store.ConversationStore, settings config.Settings, opts ...Option) *Engine {
	e := &Engine{
		files:         files,
		conversations: conversations,
		assembler:     window.NewAssembler(),
		codec:         codec.New(),
		estimator:     tokens.NewEstimator(settings.Estimator, settings.Model),
		publisher:     events.NoOpEventBus{},
		logger:        logging.NewComponentLogger("engine"),
		settings:      settings,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.allocator == nil {
		e.allocator = window.NewAllocator(
			window.WithEstimator(e.estimator),
			window.WithLogger(e.logger),
			window.WithPublisher(e.publisher),
		)
	}
	return e
}

// Budget derives the allocation budget from the settings.
func (e *Engine) Budget() window.Budget {
	return window.Budget{
		Total:    e.settings.Budget.Total,
		Reserved: e.settings.Budget.Reserved,
	}
}

// BuildContext assembles a context payload for the requested paths plus a
// recency fill, within the given budget.
func (e *Engine) BuildContext(ctx context.Context, repoID string, requestedPaths []string, budget window.Budget) (ContextResult, error) {
	requested, err := e.files.FetchByPaths(ctx, repoID, requestedPaths)
	if err != nil {
		return ContextResult{}, fmt.Errorf("failed to fetch requested files: %w", err)
	}

	recent, err := e.files.FetchRecent(ctx, repoID, requestedPaths, e.settings.RecencyLimit)
	if err != nil {
		return ContextResult{}, fmt.Errorf("failed to fetch recent files: %w", err)
	}

	items := append(requested, recent...)
	resolved := e.allocator.Allocate(items, budget)
	payload, sideTable := e.assembler.Render(resolved)

	var kept, fill, dropped, used int
	for _, r := range resolved {
		if !r.Rep.Retained() {
			dropped++
			continue
		}
		used += r.Rep.TokenCost
		if r.Item.Class == window.ClassRequested {
			kept++
		} else {
			fill++
		}
	}

	event := events.ContextAssembledEvent{
		RepoID:      repoID,
		Requested:   kept,
		RecencyFill: fill,
		Dropped:     dropped,
		TokensUsed:  used,
		TokensAvail: budget.Available(),
	}
	e.publisher.Publish(event.Topic(), event)

	return ContextResult{
		Payload:    payload,
		SideTable:  sideTable,
		TokensUsed: used,
	}, nil
}

// IndexFile stores a file record and, when the content is large enough to
// matter, encodes and stores a compact artifact for it. Encode fallbacks are
// published on the event bus.
func (e *Engine) IndexFile(ctx context.Context, repoID, path, language, content string, modTime time.Time) error {
	record := store.FileRecord{
		RepoID:   repoID,
		Path:     path,
		Language: language,
		Content:  content,
		ModTime:  modTime,
	}
	if err := e.files.UpsertFile(ctx, record); err != nil {
		return fmt.Errorf("failed to index %s: %w", path, err)
	}

	if e.estimator.Estimate(content) < window.SmallFileTokenLimit {
		return nil
	}

	strategy, err := codec.ParseStrategy(e.settings.Strategy)
	if err != nil {
		strategy = codec.StrategyCompression
	}

	result := e.codec.Encode(content, language, strategy, true)
	if result.FellBack {
		e.logger.Debug("encode fell back to compression",
			"path", path, "requested", strategy.String(), "reason", result.FallbackReason)
		event := events.EncodeFallbackEvent{
			Path:      path,
			Requested: strategy.String(),
			Reason:    result.FallbackReason,
		}
		e.publisher.Publish(event.Topic(), event)
	}

	if _, err := e.files.SaveArtifact(ctx, repoID, path, result.Artifact); err != nil {
		return fmt.Errorf("failed to store artifact for %s: %w", path, err)
	}
	return nil
}

// Ask answers a question over the assembled repository context, carrying
// past conversation turns and retrieved snippets. It persists the new turn
// and titles conversations on their first exchange.
func (e *Engine) Ask(ctx context.Context, repoID, conversationID string, paths []string, question string) (AskResult, error) {
	if e.provider == nil {
		return AskResult{}, fmt.Errorf("no llm provider configured")
	}

	contextResult, err := e.BuildContext(ctx, repoID, paths, e.Budget())
	if err != nil {
		return AskResult{}, err
	}

	var history []store.Message
	newConversation := conversationID == ""
	if newConversation {
		conversationID, err = e.conversations.CreateConversation(ctx, repoID, "")
		if err != nil {
			return AskResult{}, fmt.Errorf("failed to create conversation: %w", err)
		}
	} else {
		history, err = e.conversations.LoadMessages(ctx, conversationID)
		if err != nil {
			return AskResult{}, fmt.Errorf("failed to load conversation: %w", err)
		}
	}

	var snippets []retrieval.Snippet
	if e.retriever != nil {
		snippets, err = e.retriever.Retrieve(ctx, repoID, question, e.settings.RetrievalK)
		if err != nil {
			// Retrieval is best-effort; the answer proceeds without it.
			e.logger.Warn("snippet retrieval failed", "error", err)
			snippets = nil
		}
	}

	system := buildSystemPrompt(contextResult.Payload, snippets)
	prompt := buildUserPrompt(history, question)

	answer, err := e.provider.Complete(ctx, system, prompt)
	if err != nil {
		return AskResult{}, fmt.Errorf("completion failed: %w", err)
	}

	history = append(history,
		store.Message{Role: "user", Content: question},
		store.Message{Role: "assistant", Content: answer},
	)
	if err := e.conversations.SaveMessages(ctx, conversationID, history); err != nil {
		return AskResult{}, fmt.Errorf("failed to persist conversation: %w", err)
	}

	title := ""
	if newConversation {
		title = llm.GenerateTitle(ctx, e.provider, question)
		if err := e.conversations.SetTitle(ctx, conversationID, title); err != nil {
			return AskResult{}, fmt.Errorf("failed to title conversation: %w", err)
		}
	}

	return AskResult{
		ConversationID: conversationID,
		Title:          title,
		Answer:         answer,
		Context:        contextResult,
	}, nil
}

func buildSystemPrompt(payload string, snippets []retrieval.Snippet) string {
	var b strings.Builder
	b.WriteString(answerSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(payload)

	if len(snippets) > 0 {
		b.WriteString("\n# Related past conversations\n")
		for _, s := range snippets {
			title := s.Title
			if title == "" {
				title = s.ConversationID
			}
			fmt.Fprintf(&b, "- %s: %s\n", title, s.Content)
		}
	}
	return b.String()
}

func buildUserPrompt(history []store.Message, question string) string {
	if len(history) == 0 {
		return question
	}

	var b strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("user: ")
	b.WriteString(question)
	return b.String()
}
