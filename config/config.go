// Package config loads bot configuration from YAML.
//
// Values left out of the file get defaults; command line flags and
// environment variables are applied on top by the CLI before Validate runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MatchMode selects how the bot answers a query with results.
type MatchMode string

const (
	// MatchAuto relays a single match directly and lists several.
	MatchAuto MatchMode = "auto"
	// MatchList always presents a choice list.
	MatchList MatchMode = "list"
	// MatchAll relays every match, paced by RelayInterval.
	MatchAll MatchMode = "all"
)

// Valid reports whether m is a known mode.
func (m MatchMode) Valid() bool {
	switch m {
	case MatchAuto, MatchList, MatchAll:
		return true
	}
	return false
}

var (
	ErrTokenMissing         = errors.New("telegram token is required")
	ErrSourceChannelMissing = errors.New("source channel is required")
	ErrInvalidMatchMode     = errors.New("invalid match mode")
	ErrInvalidValue         = errors.New("invalid value")
)

// TelegramConfig holds chat platform settings.
type TelegramConfig struct {
	Token         string  `yaml:"token"`
	Endpoint      string  `yaml:"endpoint"`
	SourceChannel int64   `yaml:"source_channel"`
	OperatorIDs   []int64 `yaml:"operator_ids"`
	PollTimeout   int     `yaml:"poll_timeout"`
	Workers       int     `yaml:"workers"`

	// RequestTimeout bounds each outbound Bot API call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SearchConfig holds query resolution settings.
type SearchConfig struct {
	ResultLimit   int           `yaml:"result_limit"`
	MatchMode     MatchMode     `yaml:"match_mode"`
	RelayInterval time.Duration `yaml:"relay_interval"`
}

// RelayConfig holds ephemeral relay settings.
type RelayConfig struct {
	RetractionDelay time.Duration `yaml:"retraction_delay"`
	Workers         int           `yaml:"workers"`
}

// BroadcastConfig holds fan-out settings.
type BroadcastConfig struct {
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	Workers         int           `yaml:"workers"`
	ExcerptLength   int           `yaml:"excerpt_length"`
}

// StartConfig holds the start screen content.
type StartConfig struct {
	PictureURL       string `yaml:"picture_url"`
	UpdateChannelURL string `yaml:"update_channel_url"`
	ContactURL       string `yaml:"contact_url"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// MetricsConfig holds metrics endpoint settings. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Search    SearchConfig    `yaml:"search"`
	Relay     RelayConfig     `yaml:"relay"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Start     StartConfig     `yaml:"start"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// LoadConfig loads configuration from a file. Validation is left to the
// caller so flag overrides can be applied first.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)
	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 60
	}
	if cfg.Telegram.Workers == 0 {
		cfg.Telegram.Workers = 16
	}
	if cfg.Telegram.RequestTimeout == 0 {
		cfg.Telegram.RequestTimeout = 30 * time.Second
	}

	if cfg.Search.ResultLimit == 0 {
		cfg.Search.ResultLimit = 10
	}
	if cfg.Search.MatchMode == "" {
		cfg.Search.MatchMode = MatchAuto
	}
	if cfg.Search.RelayInterval == 0 {
		cfg.Search.RelayInterval = 700 * time.Millisecond
	}

	if cfg.Relay.RetractionDelay == 0 {
		cfg.Relay.RetractionDelay = 600 * time.Second
	}
	if cfg.Relay.Workers == 0 {
		cfg.Relay.Workers = 8
	}

	if cfg.Broadcast.DeliveryTimeout == 0 {
		cfg.Broadcast.DeliveryTimeout = 10 * time.Second
	}
	if cfg.Broadcast.Workers == 0 {
		cfg.Broadcast.Workers = 8
	}
	if cfg.Broadcast.ExcerptLength == 0 {
		cfg.Broadcast.ExcerptLength = 100
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./reelbot-data"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrTokenMissing
	}
	if c.Telegram.SourceChannel == 0 {
		return ErrSourceChannelMissing
	}
	return c.ValidateEngine()
}

// ValidateEngine checks the settings used by the engine alone, without the
// chat platform credentials.
func (c *Config) ValidateEngine() error {
	if !c.Search.MatchMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMatchMode, c.Search.MatchMode)
	}
	if c.Search.ResultLimit < 1 {
		return fmt.Errorf("%w: result_limit must be at least 1", ErrInvalidValue)
	}
	if c.Search.RelayInterval < 0 {
		return fmt.Errorf("%w: relay_interval must not be negative", ErrInvalidValue)
	}
	if c.Relay.RetractionDelay <= 0 {
		return fmt.Errorf("%w: retraction_delay must be positive", ErrInvalidValue)
	}
	if c.Broadcast.DeliveryTimeout <= 0 {
		return fmt.Errorf("%w: delivery_timeout must be positive", ErrInvalidValue)
	}
	if c.Broadcast.ExcerptLength < 1 {
		return fmt.Errorf("%w: excerpt_length must be at least 1", ErrInvalidValue)
	}
	return nil
}

// ParseIDList parses a comma or whitespace separated list of numeric IDs,
// the format of the ADMIN_IDS environment variable.
func ParseIDList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: id %q", ErrInvalidValue, f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
