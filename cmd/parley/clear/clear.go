// Package clearcmder provides the clear command, which discards the
// conversation history the chat service keeps for this client.
package clearcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/dotdir"
)

type clearCommander struct {
	target    string
	timeout   string
	configDir string
	cfg       *config.Config
}

const clearLongDesc string = `Clear the conversation history kept by the chat service.

The service keys history by session cookie, so this only affects the
conversation of this client.

Examples:
  parley clear
  parley clear --target http://127.0.0.1:5000`

const clearShortDesc string = "Clear the conversation history"

func NewClearCmd() *cobra.Command {
	cmder := &clearCommander{}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.ClientFlags, []string{config.FlagTarget, config.FlagTimeout})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTimeout, &cmder.timeout)

	return cmd
}

func (c *clearCommander) run(ctx context.Context, w io.Writer) error {
	client := c.cfg.Client.NewClient()
	manager := dotdir.NewManager()

	resumed, err := manager.ResumeClientSession(client, c.configDir)
	if err != nil {
		return fmt.Errorf("loading service session: %w", err)
	}

	err = cliui.Step(w, "Clearing conversation", func() error {
		return clearConversation(ctx, client)
	})
	if err != nil {
		return err
	}

	// The saved session has no history left to act on.
	if resumed {
		if err := manager.ClearSession(c.configDir); err != nil {
			return fmt.Errorf("removing service session: %w", err)
		}
	}
	return nil
}

func clearConversation(ctx context.Context, svc chat.Service) error {
	if err := svc.Clear(ctx); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}
	return nil
}
