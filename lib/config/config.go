// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the full client configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// API configures the REST backend.
	API APIConfig `yaml:"api"`

	// Socket configures the real-time connection.
	Socket SocketConfig `yaml:"socket"`

	// Chat tunes conversation behavior.
	Chat ChatConfig `yaml:"chat"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds per-environment replacements. Only non-zero fields
// replace base values.
type Overrides struct {
	API    *APIConfig    `yaml:"api,omitempty"`
	Socket *SocketConfig `yaml:"socket,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// APIConfig configures the REST backend.
type APIConfig struct {
	// BaseURL is the REST origin, e.g. "https://api.tripmate.example".
	BaseURL string `yaml:"base_url"`

	// Timeout bounds every REST call.
	Timeout Duration `yaml:"timeout"`
}

// SocketConfig configures the real-time connection.
type SocketConfig struct {
	// URL is the WebSocket endpoint, e.g. "wss://api.tripmate.example/socket".
	URL string `yaml:"url"`

	// WireFormat is "json" (text frames) or "cbor" (binary frames).
	WireFormat string `yaml:"wire_format"`

	// Reconnect redials with exponential backoff after the link drops.
	Reconnect *bool `yaml:"reconnect,omitempty"`

	// MaxBackoff caps the delay between redial attempts.
	MaxBackoff Duration `yaml:"max_backoff"`

	// PingInterval is the keepalive period. Zero disables pings.
	PingInterval Duration `yaml:"ping_interval"`
}

// ReconnectEnabled reports the effective reconnect setting. Unset
// means enabled.
func (s SocketConfig) ReconnectEnabled() bool {
	return s.Reconnect == nil || *s.Reconnect
}

// ChatConfig tunes conversation behavior.
type ChatConfig struct {
	// TypingDebounce is the quiet period after the last keystroke
	// before "stopped typing" is sent.
	TypingDebounce Duration `yaml:"typing_debounce"`

	// PeerTypingTimeout clears the peer's typing indicator when no
	// "stopped" signal arrives in time.
	PeerTypingTimeout Duration `yaml:"peer_typing_timeout"`

	// ReconcileEcho replaces an optimistic entry in place when the
	// server echoes the send back with the same client nonce. Leave
	// off for backends that do not echo the sender's own messages.
	ReconcileEcho bool `yaml:"reconcile_echo"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File receives JSON log records in addition to the terminal.
	File string `yaml:"file"`
}

// Duration is a time.Duration written as a Go duration string ("900ms").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used as a base before the file is
// applied. It points at a local development backend.
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: Duration(15 * time.Second),
		},
		Socket: SocketConfig{
			URL:          "ws://localhost:5000/socket",
			WireFormat:   "json",
			MaxBackoff:   Duration(30 * time.Second),
			PingInterval: Duration(25 * time.Second),
		},
		Chat: ChatConfig{
			TypingDebounce:    Duration(900 * time.Millisecond),
			PeerTypingTimeout: Duration(3 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by TRIPMATE_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv("TRIPMATE_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("TRIPMATE_CONFIG environment variable not set; " +
			"set it to the path of your tripmate.yaml, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over [Default], applies the
// matching environment section, and expands variables in URLs. Files
// ending in .json or .jsonc may carry comments and trailing commas.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML once comments are stripped.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.API != nil {
		if overrides.API.BaseURL != "" {
			c.API.BaseURL = overrides.API.BaseURL
		}
		if overrides.API.Timeout != 0 {
			c.API.Timeout = overrides.API.Timeout
		}
	}

	if overrides.Socket != nil {
		if overrides.Socket.URL != "" {
			c.Socket.URL = overrides.Socket.URL
		}
		if overrides.Socket.WireFormat != "" {
			c.Socket.WireFormat = overrides.Socket.WireFormat
		}
		if overrides.Socket.Reconnect != nil {
			c.Socket.Reconnect = overrides.Socket.Reconnect
		}
		if overrides.Socket.MaxBackoff != 0 {
			c.Socket.MaxBackoff = overrides.Socket.MaxBackoff
		}
		if overrides.Socket.PingInterval != 0 {
			c.Socket.PingInterval = overrides.Socket.PingInterval
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.File != "" {
			c.Log.File = overrides.Log.File
		}
	}
}

func (c *Config) expandVariables() {
	c.API.BaseURL = expandVars(c.API.BaseURL)
	c.Socket.URL = expandVars(c.Socket.URL)
	c.Log.File = expandVars(c.Log.File)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.Socket.URL == "" {
		errs = append(errs, errors.New("socket.url is required"))
	}
	switch c.Socket.WireFormat {
	case "json", "cbor":
	default:
		errs = append(errs, fmt.Errorf("socket.wire_format must be json or cbor, got %q", c.Socket.WireFormat))
	}
	if c.Chat.TypingDebounce <= 0 {
		errs = append(errs, errors.New("chat.typing_debounce must be positive"))
	}
	if c.Chat.PeerTypingTimeout <= 0 {
		errs = append(errs, errors.New("chat.peer_typing_timeout must be positive"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
