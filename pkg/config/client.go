package config

import "github.com/papercomputeco/parley/pkg/chat"

// NewClient returns a chat client for the configured target and timeout.
func (c ClientConfig) NewClient(opts ...chat.ClientOption) *chat.Client {
	opts = append([]chat.ClientOption{chat.WithTimeout(c.TimeoutDuration())}, opts...)
	return chat.NewClient(c.Target, opts...)
}
