// Package config handles configuration loading for Quorum.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Quorum.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Projects  ProjectsConfig  `mapstructure:"projects"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseAWSBedrock routes invocations through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
	// MaxTokens is the per-invocation output token cap.
	MaxTokens int `mapstructure:"max_tokens"`
	// DefaultConfidence is reported for providers that do not self-score.
	DefaultConfidence float64 `mapstructure:"default_confidence"`
}

// StorageConfig holds project store settings.
type StorageConfig struct {
	// Path is the SQLite database path. Empty means the XDG default.
	Path string `mapstructure:"path"`
}

// WorkersConfig locates the worker-definition file.
type WorkersConfig struct {
	// File is the workers.yaml path. Empty means built-in defaults.
	File string `mapstructure:"file"`
	// Watch reloads definitions when the file changes.
	Watch bool `mapstructure:"watch"`
	// FailureLimit is the permanent-failure count that takes a worker
	// out of rotation. Zero disables the policy.
	FailureLimit int `mapstructure:"failure_limit"`
}

// PlannerConfig selects the request decomposition strategy.
type PlannerConfig struct {
	// Mode is "template" (one analysis task per available role) or
	// "planner" (a planning worker emits the task graph).
	Mode string `mapstructure:"mode"`
	// Worker is the worker key used in planner mode.
	Worker string `mapstructure:"worker"`
	// MaxWorkersPerProject caps the roles fanned out in template mode.
	MaxWorkersPerProject int `mapstructure:"max_workers_per_project"`
}

// SchedulerConfig holds retry and timeout policy for collaboration runs.
type SchedulerConfig struct {
	// MaxAttempts is the total number of invocation attempts per task.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// TaskTimeout bounds a single worker invocation.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// DebugLog is an optional file path for the scheduler debug log.
	DebugLog string `mapstructure:"debug_log"`
}

// SynthesisConfig holds response merge settings.
type SynthesisConfig struct {
	// RolePriority is the section order of the synthesized response.
	RolePriority []string `mapstructure:"role_priority"`
}

// ProjectsConfig holds project lifecycle policy.
type ProjectsConfig struct {
	// HistoryLimit bounds the per-project request history.
	HistoryLimit int `mapstructure:"history_limit"`
	// ArchiveAfter is the inactivity threshold for the archive sweep.
	ArchiveAfter time.Duration `mapstructure:"archive_after"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.quorum.yaml in current directory or parent)
// 3. User config (~/.config/quorum/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("anthropic.default_confidence", 0.8)

	v.SetDefault("storage.path", "")

	v.SetDefault("workers.file", "")
	v.SetDefault("workers.watch", false)
	v.SetDefault("workers.failure_limit", 3)

	v.SetDefault("planner.mode", "template")
	v.SetDefault("planner.worker", "general")
	v.SetDefault("planner.max_workers_per_project", 5)

	v.SetDefault("scheduler.max_attempts", 3)
	v.SetDefault("scheduler.backoff_base", "500ms")
	v.SetDefault("scheduler.task_timeout", "60s")
	v.SetDefault("scheduler.debug_log", "")

	v.SetDefault("synthesis.role_priority", []string{"general", "research", "specialist", "code", "creative"})

	v.SetDefault("projects.history_limit", 5)
	v.SetDefault("projects.archive_after", "720h")
}

// getUserConfigDir returns the XDG config directory for Quorum.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "quorum")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "quorum")
	}
	return filepath.Join(home, ".config", "quorum")
}

// findProjectConfig searches for .quorum.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".quorum.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			MaxTokens:         2000,
			DefaultConfidence: 0.8,
		},
		Workers: WorkersConfig{
			FailureLimit: 3,
		},
		Planner: PlannerConfig{
			Mode:                 "template",
			Worker:               "general",
			MaxWorkersPerProject: 5,
		},
		Scheduler: SchedulerConfig{
			MaxAttempts: 3,
			BackoffBase: 500 * time.Millisecond,
			TaskTimeout: 60 * time.Second,
		},
		Synthesis: SynthesisConfig{
			RolePriority: []string{"general", "research", "specialist", "code", "creative"},
		},
		Projects: ProjectsConfig{
			HistoryLimit: 5,
			ArchiveAfter: 720 * time.Hour,
		},
	}
}
