package config

import "github.com/papercomputeco/parley/pkg/chat"

const (
	defaultClientTarget  = "http://127.0.0.1:5000"
	defaultClientTimeout = "5m"

	// DefaultGreeting is the assistant message every transcript starts with.
	DefaultGreeting = chat.DefaultGreeting

	// DefaultFallback is shown in place of the reply when a stream fails.
	DefaultFallback = chat.DefaultFallback
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target:  defaultClientTarget,
			Timeout: defaultClientTimeout,
		},
		Chat: ChatConfig{
			Greeting: DefaultGreeting,
			Fallback: DefaultFallback,
		},
	}
}
