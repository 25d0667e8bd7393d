// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/kryptonite/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kryptonite configuration.
type Config struct {
	// Chat backend the client talks to
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`

	// Where conversations are kept
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Assistant strings; empty fields use the built-in persona
	Persona PersonaConfig `toml:"persona" json:"persona" yaml:"persona"`

	// Speech input/output commands
	Voice VoiceConfig `toml:"voice" json:"voice" yaml:"voice"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Backend proxy (kryptonite-backend) settings
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// BackendConfig configures the client transport.
type BackendConfig struct {
	// URL is the full chat endpoint, e.g. http://127.0.0.1:7860/api/chat
	URL string `toml:"url" json:"url" yaml:"url"`

	// TimeoutSecs bounds one exchange
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
}

// StorageConfig selects the durable key/value backend.
type StorageConfig struct {
	// Driver is "file", "sqlite" or "memory"
	Driver string `toml:"driver" json:"driver" yaml:"driver"`

	// Path of the state file or database; empty means inside ConfigDir
	Path string `toml:"path" json:"path" yaml:"path"`
}

// PersonaConfig overrides the assistant's fixed strings.
type PersonaConfig struct {
	SystemInstruction string `toml:"system_instruction" json:"system_instruction" yaml:"system_instruction"`
	Greeting          string `toml:"greeting" json:"greeting" yaml:"greeting"`
	BlockedReply      string `toml:"blocked_reply" json:"blocked_reply" yaml:"blocked_reply"`
	GlitchReply       string `toml:"glitch_reply" json:"glitch_reply" yaml:"glitch_reply"`
	FailureTemplate   string `toml:"failure_template" json:"failure_template" yaml:"failure_template"`
	CodePlaceholder   string `toml:"code_placeholder" json:"code_placeholder" yaml:"code_placeholder"`
}

// VoiceConfig configures speech commands.
type VoiceConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// SpeakCommand reads text on stdin and plays it, e.g. "espeak"
	SpeakCommand string `toml:"speak_command" json:"speak_command" yaml:"speak_command"`

	// ListenCommand prints one transcript per line on stdout
	ListenCommand string `toml:"listen_command" json:"listen_command" yaml:"listen_command"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "dark", "light" or "auto". The persisted toggle wins over
	// this once the user has used it.
	Theme string `toml:"theme" json:"theme" yaml:"theme"`

	// GlamourStyle names the glamour style for model replies; empty follows Theme
	GlamourStyle string `toml:"glamour_style" json:"glamour_style" yaml:"glamour_style"`
}

// ServerConfig configures the backend proxy.
type ServerConfig struct {
	Addr               string   `toml:"addr" json:"addr" yaml:"addr"`
	AllowedOrigins     []string `toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	Model              string   `toml:"model" json:"model" yaml:"model"`
	Temperature        float64  `toml:"temperature" json:"temperature" yaml:"temperature"`
	TopK               int      `toml:"top_k" json:"top_k" yaml:"top_k"`
	TopP               float64  `toml:"top_p" json:"top_p" yaml:"top_p"`
	MaxOutputTokens    int      `toml:"max_output_tokens" json:"max_output_tokens" yaml:"max_output_tokens"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute" json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	MaxBodyBytes       int64    `toml:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes"`

	// APIKey is the Gemini key. Prefer GEMINI_API_KEY over writing it here.
	APIKey string `toml:"api_key" json:"api_key" yaml:"api_key"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level" yaml:"level"`

	// File receives logs; empty means stderr (or ConfigDir/kryptonite.log for the TUI)
	File string `toml:"file" json:"file" yaml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "http://127.0.0.1:7860/api/chat",
			TimeoutSecs: 60,
		},
		Storage: StorageConfig{
			Driver: "file",
		},
		Voice: VoiceConfig{
			SpeakCommand: "espeak",
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Server: ServerConfig{
			Addr:               ":7860",
			AllowedOrigins:     []string{"http://127.0.0.1:5500"},
			Model:              "gemini-2.5-flash-preview-05-20",
			Temperature:        0.8,
			TopK:               1,
			TopP:               1,
			MaxOutputTokens:    8192,
			RateLimitPerMinute: 60,
			MaxBodyBytes:       1 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the kryptonite configuration directory path.
// KRYPTONITE_HOME overrides the default ~/.kryptonite.
func ConfigDir() (string, error) {
	if dir := os.Getenv("KRYPTONITE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".kryptonite"), nil
}

// candidatePaths lists config files in precedence order.
func candidatePaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// ExistingPath returns the config file Load would read, or "" if none exists.
func ExistingPath() string {
	paths, err := candidatePaths()
	if err != nil {
		return ""
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultStoragePath returns where the given driver keeps its data when
// storage.path is empty.
func DefaultStoragePath(driver string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if driver == "sqlite" {
		return filepath.Join(dir, "state.db"), nil
	}
	return filepath.Join(dir, "state.json"), nil
}

// StoragePath resolves Storage.Path, expanding a leading "~/".
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path == "" {
		return DefaultStoragePath(c.Storage.Driver)
	}
	return expandHome(c.Storage.Path)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files may carry an API key and should be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file found in ConfigDir, then applies
// environment overrides and validation. With no file, defaults are used.
func Load() (*Config, error) {
	if path := ExistingPath(); path != "" {
		return LoadFromPath(path)
	}
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads the file at path (format chosen by extension) on top
// of the defaults, then applies environment overrides and validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	warnPermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadYAML decodes a YAML file into cfg.
func LoadYAML(cfg *Config, path string) error {
	warnPermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	warnPermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func warnPermissions(path string) {
	if err := ensureSecurePermissions(path); err != nil {
		// Not fatal; some filesystems ignore chmod.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
}

// fillDefaults restores defaults for fields a file explicitly zeroed.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Backend.URL == "" {
		cfg.Backend.URL = d.Backend.URL
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = d.Storage.Driver
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = d.Server.AllowedOrigins
	}
	if cfg.Server.Model == "" {
		cfg.Server.Model = d.Server.Model
	}
	if cfg.Server.TopK == 0 {
		cfg.Server.TopK = d.Server.TopK
	}
	if cfg.Server.MaxOutputTokens == 0 {
		cfg.Server.MaxOutputTokens = d.Server.MaxOutputTokens
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# kryptonite configuration file\n")
	buf.WriteString("# Environment variables (KRYPTONITE_*, GEMINI_API_KEY) override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders cfg as TOML with the API key masked.
func (c *Config) String() string {
	clone := *c
	if clone.Server.APIKey != "" {
		clone.Server.APIKey = maskSecret(clone.Server.APIKey)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(clone); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors when anything is
// out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := validateHTTPURL(c.Backend.URL); err != nil {
		add("backend.url", "%v", err)
	}
	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 600 {
		add("backend.timeout_secs", "must be between 1 and 600, got %d", c.Backend.TimeoutSecs)
	}

	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		add("storage.driver", "must be file, sqlite or memory, got %q", c.Storage.Driver)
	}

	if c.Voice.Enabled && strings.TrimSpace(c.Voice.SpeakCommand) == "" {
		add("voice.speak_command", "required when voice is enabled")
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		add("ui.theme", "must be dark, light or auto, got %q", c.UI.Theme)
	}

	if c.Server.Addr == "" {
		add("server.addr", "must not be empty")
	}
	for i, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin); err != nil {
			add(fmt.Sprintf("server.allowed_origins[%d]", i), "%v", err)
		}
	}
	if c.Server.Temperature < 0 || c.Server.Temperature > 2 {
		add("server.temperature", "must be between 0 and 2, got %g", c.Server.Temperature)
	}
	if c.Server.TopK < 1 {
		add("server.top_k", "must be at least 1, got %d", c.Server.TopK)
	}
	if c.Server.TopP <= 0 || c.Server.TopP > 1 {
		add("server.top_p", "must be in (0, 1], got %g", c.Server.TopP)
	}
	if c.Server.MaxOutputTokens < 1 || c.Server.MaxOutputTokens > 65536 {
		add("server.max_output_tokens", "must be between 1 and 65536, got %d", c.Server.MaxOutputTokens)
	}
	if c.Server.RateLimitPerMinute < 0 {
		add("server.rate_limit_per_minute", "must not be negative")
	}
	if c.Server.MaxBodyBytes < 1024 {
		add("server.max_body_bytes", "must be at least 1024, got %d", c.Server.MaxBodyBytes)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", "must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - KRYPTONITE_BACKEND_URL: overrides backend.url
//   - KRYPTONITE_STORAGE: overrides storage.driver
//   - KRYPTONITE_STORAGE_PATH: overrides storage.path
//   - KRYPTONITE_THEME: overrides ui.theme
//   - KRYPTONITE_LOG_LEVEL: overrides logging.level
//   - KRYPTONITE_VOICE: "1" or "true" enables voice
//   - GEMINI_API_KEY: overrides server.api_key
//   - VERCEL_FRONTEND_URL: replaces server.allowed_origins with one origin
//   - PORT: sets server.addr to ":PORT"
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KRYPTONITE_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("KRYPTONITE_STORAGE"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("KRYPTONITE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("KRYPTONITE_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("KRYPTONITE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KRYPTONITE_VOICE"); v != "" {
		c.Voice.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("VERCEL_FRONTEND_URL"); v != "" {
		c.Server.AllowedOrigins = []string{v}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
