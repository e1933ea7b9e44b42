package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds the remote TaskMaster API settings.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://tasks.example.com/api.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP exchange.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SearchConfig holds search-box behaviour.
type SearchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// TasksConfig holds list paging settings. PageSize 0 lets the server pick.
type TasksConfig struct {
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme              string `mapstructure:"theme" yaml:"theme"`
	RefreshIntervalSec int    `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
	ToastSec           int    `mapstructure:"toast_sec" yaml:"toast_sec"`
}

// StorageConfig locates the local notification log.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Tasks   TasksConfig   `mapstructure:"tasks" yaml:"tasks"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DebounceWindow returns the search quiescence window.
func (c *AppConfig) DebounceWindow() time.Duration {
	return time.Duration(c.Search.DebounceMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// RefreshInterval returns the auto-refresh period; zero disables it.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Display.RefreshIntervalSec) * time.Second
}

// ToastDuration returns how long a notification stays in the status bar.
func (c *AppConfig) ToastDuration() time.Duration {
	return time.Duration(c.Display.ToastSec) * time.Second
}

// ConfigDir returns ~/.config/taskmaster, or the working directory if the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskmaster")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskmaster/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:3001/api",
			TimeoutSec: 30,
		},
		Search: SearchConfig{DebounceMS: 500},
		Display: DisplayConfig{
			Theme:    "default",
			ToastSec: 4,
		},
		Storage: StorageConfig{Path: filepath.Join(dir, "history.db")},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "taskmaster.log"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := defaultAppConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("search.debounce_ms", def.Search.DebounceMS)
	v.SetDefault("tasks.page_size", def.Tasks.PageSize)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.refresh_interval_sec", def.Display.RefreshIntervalSec)
	v.SetDefault("display.toast_sec", def.Display.ToastSec)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// TASKMASTER_* environment variables override file values, e.g.
// TASKMASTER_API_BASE_URL. A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskmaster")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("config %s: api.base_url is empty", path)
	}
	if cfg.Search.DebounceMS < 0 {
		cfg.Search.DebounceMS = 0
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 30
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("search", cfg.Search)
	v.Set("tasks", cfg.Tasks)
	v.Set("display", cfg.Display)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
