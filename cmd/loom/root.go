package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kcaldas/loom/pkg/config"
	"github.com/kcaldas/loom/pkg/engine"
	"github.com/kcaldas/loom/pkg/events"
	"github.com/kcaldas/loom/pkg/llm"
	"github.com/kcaldas/loom/pkg/logging"
	"github.com/kcaldas/loom/pkg/retrieval"
	"github.com/kcaldas/loom/pkg/store"
)

var (
	// Global flags
	repoID  string
	verbose bool
	quiet   bool

	// Initialized once in PersistentPreRunE and reused by subcommands
	settings    config.Settings
	configMgr   config.Manager
	logger      logging.Logger
	sqliteStore *store.SqliteStore
	eventBus    *events.InMemoryBus
	loomEngine  *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Budget-constrained repository context assembly",
	Long: `Loom assembles source files into a token-budgeted context payload
for LLM prompts, keeping small files verbatim and compacting the rest.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()

		switch {
		case quiet:
			logger = logging.NewQuietLogger()
		case verbose:
			logger = logging.NewVerboseLogger()
		default:
			logger = logging.NewDefaultLogger()
		}

		configMgr = config.NewManager()
		var err error
		settings, err = config.LoadSettings(configMgr)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		sqliteStore, err = store.OpenSqlite(settings.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}

		// Provider construction is lazy; credentials are only needed
		// when a completion is actually sent.
		provider, err := llm.NewProvider(settings, configMgr, logger)
		if err != nil {
			return fmt.Errorf("failed to build llm provider: %w", err)
		}

		eventBus = events.NewEventBus()
		subscribeAssemblyEvents(eventBus, logger)

		loomEngine = engine.New(sqliteStore, sqliteStore, settings,
			engine.WithLogger(logger),
			engine.WithRetriever(retrieval.New(sqliteStore)),
			engine.WithProvider(provider),
			engine.WithPublisher(eventBus),
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if eventBus != nil {
			// Drain queued events so their log lines are not lost.
			eventBus.Shutdown()
		}
		if sqliteStore != nil {
			return sqliteStore.Close()
		}
		return nil
	},
}

// subscribeAssemblyEvents routes pipeline events to the logger. With the
// default logger the assembled and dropped lines only surface under -v;
// encode fallbacks are always worth a warning.
func subscribeAssemblyEvents(bus events.EventBus, logger logging.Logger) {
	bus.Subscribe(events.TopicContextAssembled, func(event interface{}) {
		if e, ok := event.(events.ContextAssembledEvent); ok {
			logger.Debug("context assembled",
				"repo", e.RepoID,
				"requested", e.Requested,
				"recency_fill", e.RecencyFill,
				"dropped", e.Dropped,
				"tokens_used", e.TokensUsed,
				"tokens_available", e.TokensAvail)
		}
	})
	bus.Subscribe(events.TopicEncodeFallback, func(event interface{}) {
		if e, ok := event.(events.EncodeFallbackEvent); ok {
			logger.Warn("encode fell back to compression",
				"path", e.Path, "requested", e.Requested, "reason", e.Reason)
		}
	})
	bus.Subscribe(events.TopicItemDropped, func(event interface{}) {
		if e, ok := event.(events.ItemDroppedEvent); ok {
			logger.Debug("item dropped", "path", e.Path, "reason", e.Reason)
		}
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoID, "repo", "default", "repository identifier the files are indexed under")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug level)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (errors only)")

	rootCmd.AddCommand(newAssembleCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newIndexCommand())
	rootCmd.AddCommand(newConversationsCommand())
}
