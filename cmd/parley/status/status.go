// Package statuscmder provides the status command for checking that the chat
// service is reachable.
package statuscmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/config"
)

type statusCommander struct {
	target  string
	timeout string
	cfg     *config.Config
}

const statusLongDesc string = `Show whether the chat service is reachable.

Calls the service health endpoint and prints the target, the reported
service name and the resulting connection status. Exits non-zero when the
service cannot be reached.

Examples:
  parley status
  parley status --target http://chat.internal:5000`

const statusShortDesc string = "Show chat service status"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTimeout, &cmder.timeout)

	return cmd
}

func (c *statusCommander) run(ctx context.Context, w io.Writer) error {
	client := c.cfg.Client.NewClient()

	start := time.Now()
	health, err := client.Health(ctx)
	elapsed := time.Since(start)

	status := chat.StatusConnected
	if err != nil {
		status = chat.StatusDisconnected
	}

	fmt.Fprintf(w, "\n  %s  %s\n", cliui.KeyStyle.Render("Target: "), cliui.NameStyle.Render(client.BaseURL()))
	if health != nil {
		fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Service:"), cliui.ValueStyle.Render(health.Service))
	}
	fmt.Fprintf(w, "  %s  %s %s %s\n\n",
		cliui.KeyStyle.Render("Status: "),
		cliui.Mark(err),
		cliui.ValueStyle.Render(status.String()),
		cliui.StepStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(elapsed))),
	)

	if err != nil {
		return fmt.Errorf("checking service health: %w", err)
	}
	return nil
}
