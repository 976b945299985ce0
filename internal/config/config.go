// Package config loads TeamBoard configuration from an optional YAML file and
// TEAMBOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Transport kinds.
const (
	TransportNATS   = "nats"
	TransportWS     = "ws"
	TransportMemory = "memory"
)

// Config is the full TeamBoard configuration.
type Config struct {
	Identity  Identity        `koanf:"identity"`
	Log       LogConfig       `koanf:"log"`
	Transport TransportConfig `koanf:"transport"`
	Relay     RelayConfig     `koanf:"relay"`
	AI        AIConfig        `koanf:"ai"`
	Canvas    CanvasConfig    `koanf:"canvas"`
	Export    ExportConfig    `koanf:"export"`
}

// Identity labels this client's broadcasts. It comes from the auth provider in
// a hosted deployment; locally it is configured or generated.
type Identity struct {
	ID          string `koanf:"id"`
	DisplayName string `koanf:"display_name"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TransportConfig selects the realtime pub/sub backend.
type TransportConfig struct {
	Kind     string `koanf:"kind"`
	NATSURL  string `koanf:"nats_url"`
	RelayURL string `koanf:"relay_url"`
	// Discover browses mDNS for a relay when RelayURL is empty.
	Discover bool `koanf:"discover"`
	// SendQueue bounds outbound websocket frames; overflow is dropped.
	SendQueue int `koanf:"send_queue"`
}

type RelayConfig struct {
	Addr      string `koanf:"addr"`
	Advertise bool   `koanf:"advertise"`
	// EmbedNATS starts an in-process NATS server next to the relay.
	EmbedNATS bool `koanf:"embed_nats"`
	NATSPort  int  `koanf:"nats_port"`
}

type AIConfig struct {
	Enabled bool          `koanf:"enabled"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type CanvasConfig struct {
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
	// HistoryLimit caps undo depth. Zero keeps every step.
	HistoryLimit int `koanf:"history_limit"`
}

type ExportConfig struct {
	Dir string `koanf:"dir"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Identity.DisplayName == "" {
		cfg.Identity.DisplayName = "anonymous"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = TransportNATS
	}
	if cfg.Transport.NATSURL == "" {
		cfg.Transport.NATSURL = "nats://127.0.0.1:4222"
	}
	if cfg.Transport.SendQueue == 0 {
		cfg.Transport.SendQueue = 64
	}

	if cfg.Relay.Addr == "" {
		cfg.Relay.Addr = ":8888"
	}
	if cfg.Relay.NATSPort == 0 {
		cfg.Relay.NATSPort = 4222
	}

	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-3.5-turbo"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30 * time.Second
	}

	if cfg.Canvas.Width == 0 {
		cfg.Canvas.Width = 1200
	}
	if cfg.Canvas.Height == 0 {
		cfg.Canvas.Height = 800
	}

	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "."
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportNATS, TransportWS, TransportMemory:
	default:
		return fmt.Errorf("transport.kind must be one of nats, ws, memory; got %q", c.Transport.Kind)
	}
	if c.Transport.Kind == TransportWS && c.Transport.RelayURL == "" && !c.Transport.Discover {
		return errors.New("transport.relay_url is required for ws transport unless transport.discover is set")
	}
	if c.Transport.SendQueue < 0 {
		return fmt.Errorf("transport.send_queue must be >= 0, got %d", c.Transport.SendQueue)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console', got %q", c.Log.Format)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.HistoryLimit < 0 {
		return fmt.Errorf("canvas.history_limit must be >= 0, got %d", c.Canvas.HistoryLimit)
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("ai.timeout must be >= 0, got %s", c.AI.Timeout)
	}
	return nil
}
