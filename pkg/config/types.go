package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent parley configuration stored as config.toml
// in the .parley/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Chat    ChatConfig   `toml:"chat"`
	Render  RenderConfig `toml:"render"`
}

// ClientConfig holds settings for reaching the chat service.
// Target is a full URL (scheme + host + port).
type ClientConfig struct {
	Target  string `toml:"target,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout, falling back to the default on an empty or
// invalid value.
func (c ClientConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(defaultClientTimeout)
	}
	return d
}

// ChatConfig holds the fixed texts shown by the chat UI.
type ChatConfig struct {
	Greeting string `toml:"greeting,omitempty"`
	Fallback string `toml:"fallback,omitempty"`
}

// RenderConfig holds terminal rendering settings.
type RenderConfig struct {
	// Width is the wrap width for rendered paragraphs. 0 follows the terminal.
	Width    uint `toml:"width,omitempty"`
	Markdown bool `toml:"markdown,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for client.timeout: %w", err)
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"chat.greeting": {
		get: func(c *Config) string { return c.Chat.Greeting },
		set: func(c *Config, v string) error { c.Chat.Greeting = v; return nil },
	},
	"chat.fallback": {
		get: func(c *Config) string { return c.Chat.Fallback },
		set: func(c *Config, v string) error { c.Chat.Fallback = v; return nil },
	},
	"render.width": {
		get: func(c *Config) string {
			if c.Render.Width == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Render.Width), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for render.width: %w", err)
			}
			c.Render.Width = uint(n)
			return nil
		},
	},
	"render.markdown": {
		get: func(c *Config) string { return strconv.FormatBool(c.Render.Markdown) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for render.markdown: %w", err)
			}
			c.Render.Markdown = b
			return nil
		},
	},
}
