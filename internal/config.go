// Package internal holds process configuration. Values resolve in layers:
// built-in defaults, then the YAML config file, then environment variables,
// then command-line flags.
package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort int    `env:"HTTP_PORT" yaml:"http_port"`
	SSHPort  int    `env:"SSH_PORT" yaml:"ssh_port"`
	ChatName string `env:"CHAT_NAME" yaml:"chat_name"`

	BadgerFilepath string `env:"BADGER_FILEPATH" yaml:"badger_filepath"`
	LogLevel       string `env:"LOG_LEVEL" yaml:"log_level"`

	MaxContentLength  int    `env:"MAX_CONTENT_LENGTH" yaml:"-"`
	HistoryLimit      int    `env:"HISTORY_LIMIT" yaml:"-"`
	SessionBufferSize int    `env:"SESSION_BUFFER_SIZE" yaml:"-"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT" yaml:"-"`

	PollTimeout     time.Duration `env:"POLL_TIMEOUT" yaml:"-"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" yaml:"-"`
	HTTPSessionTTL  time.Duration `env:"HTTP_SESSION_TTL" yaml:"-"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" yaml:"-"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL" yaml:"-"`
}

func Default() Config {
	return Config{
		HTTPPort:          8080,
		SSHPort:           2222,
		ChatName:          "NoJS Chat",
		BadgerFilepath:    "chat.db",
		LogLevel:          "INFO",
		MaxContentLength:  500,
		HistoryLimit:      50,
		SessionBufferSize: 64,
		CharReplacement:   "*",
		PollTimeout:       25 * time.Second,
		DeliveryTimeout:   2 * time.Second,
		HTTPSessionTTL:    10 * time.Minute,
		JanitorInterval:   time.Minute,
		RestartInterval:   200 * time.Millisecond,
	}
}

// LoadFile overlays the YAML config file onto cfg. A missing file is not an
// error when optional, matching the original behavior of running with
// defaults when no config.yml is present.
func LoadFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// MaskRune converts the single-character replacement setting to a rune.
func (c Config) MaskRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
