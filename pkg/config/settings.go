package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Settings is the resolved runtime configuration. Values come from built-in
// defaults, then the optional settings file, then environment variables, the
// last source winning.
type Settings struct {
	Provider     string         `yaml:"provider"`
	Model        string         `yaml:"model"`
	DatabasePath string         `yaml:"db_path"`
	Budget       BudgetSettings `yaml:"budget"`
	RecencyLimit int            `yaml:"recency_limit"`
	RetrievalK   int            `yaml:"retrieval_k"`
	Strategy     string         `yaml:"strategy"`
	Estimator    string         `yaml:"estimator"`
}

// BudgetSettings configures the context window budget.
type BudgetSettings struct {
	Total    int `yaml:"total"`
	Reserved int `yaml:"reserved"`
}

const (
	DefaultBudgetTotal    = 32000
	DefaultBudgetReserved = 2000
	DefaultRecencyLimit   = 20
	DefaultRetrievalK     = 3
	DefaultStrategy       = "compression"

	// DefaultEstimator keeps token estimation on the chars/4 heuristic;
	// "tiktoken" switches to exact BPE counts for the configured model.
	DefaultEstimator = "heuristic"
)

// DefaultSettings returns the built-in defaults. The database lives under
// ~/.loom unless overridden.
func DefaultSettings() Settings {
	dbPath := "loom.db"
	if home, err := homedir.Dir(); err == nil {
		dbPath = filepath.Join(home, ".loom", "loom.db")
	}

	return Settings{
		Provider:     "anthropic",
		DatabasePath: dbPath,
		Budget: BudgetSettings{
			Total:    DefaultBudgetTotal,
			Reserved: DefaultBudgetReserved,
		},
		RecencyLimit: DefaultRecencyLimit,
		RetrievalK:   DefaultRetrievalK,
		Strategy:     DefaultStrategy,
		Estimator:    DefaultEstimator,
	}
}

// SettingsFilePath resolves the settings file location, honoring
// LOOM_SETTINGS_FILE.
func SettingsFilePath(manager Manager) string {
	if path := manager.GetStringWithDefault("LOOM_SETTINGS_FILE", ""); path != "" {
		return path
	}
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".loom", "settings.yaml")
}

// LoadSettings resolves settings from defaults, the optional settings file,
// and environment variables. A missing settings file is not an error; a
// malformed one is.
func LoadSettings(manager Manager) (Settings, error) {
	settings := DefaultSettings()

	if path := SettingsFilePath(manager); path != "" {
		if err := applySettingsFile(&settings, path); err != nil {
			return Settings{}, err
		}
	}

	applyEnv(&settings, manager)

	if settings.Budget.Total <= 0 {
		return Settings{}, fmt.Errorf("budget total must be positive, got %d", settings.Budget.Total)
	}
	return settings, nil
}

func applySettingsFile(settings *Settings, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return nil
}

func applyEnv(settings *Settings, manager Manager) {
	settings.Provider = manager.GetStringWithDefault("LOOM_PROVIDER", settings.Provider)
	settings.Model = manager.GetStringWithDefault("LOOM_MODEL_NAME", settings.Model)
	settings.DatabasePath = manager.GetStringWithDefault("LOOM_DB_PATH", settings.DatabasePath)
	settings.Budget.Total = manager.GetIntWithDefault("LOOM_BUDGET_TOTAL", settings.Budget.Total)
	settings.Budget.Reserved = manager.GetIntWithDefault("LOOM_BUDGET_RESERVED", settings.Budget.Reserved)
	settings.RecencyLimit = manager.GetIntWithDefault("LOOM_RECENCY_LIMIT", settings.RecencyLimit)
	settings.RetrievalK = manager.GetIntWithDefault("LOOM_RETRIEVAL_K", settings.RetrievalK)
	settings.Strategy = manager.GetStringWithDefault("LOOM_STRATEGY", settings.Strategy)
	settings.Estimator = manager.GetStringWithDefault("LOOM_ESTIMATOR", settings.Estimator)
}
