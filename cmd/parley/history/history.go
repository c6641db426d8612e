// Package historycmder provides the history command, which prints the
// conversation history the chat service keeps for this client.
package historycmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/dotdir"
	"github.com/papercomputeco/parley/pkg/format"
	"github.com/papercomputeco/parley/pkg/termview"
)

type historyCommander struct {
	target    string
	timeout   string
	configDir string
	width     uint
	markup    bool
	cfg       *config.Config
}

const historyLongDesc string = `Print the conversation history kept by the chat service.

Entries are printed oldest first with their role. Text is rendered for the
terminal unless --markup is given, in which case the formatted markup is
printed instead.

Examples:
  parley history
  parley history --markup`

const historyShortDesc string = "Print the conversation history"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.ClientFlags, []string{
				config.FlagTarget,
				config.FlagTimeout,
				config.FlagWidth,
			})
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
	config.AddUintFlag(cmd, config.ClientFlags, config.FlagWidth, &cmder.width)
	cmd.Flags().BoolVar(&cmder.markup, "markup", false, "Print formatted markup instead of terminal text")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, w io.Writer) error {
	client := c.cfg.Client.NewClient()
	if _, err := dotdir.NewManager().ResumeClientSession(client, c.configDir); err != nil {
		return fmt.Errorf("loading service session: %w", err)
	}

	entries, err := client.History(ctx)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	printHistory(w, entries, c.markup, c.cfg.Render.Width)
	return nil
}

func printHistory(w io.Writer, entries []chat.HistoryEntry, markup bool, width uint) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "  %s No conversation history.\n", cliui.DimStyle.Render("●"))
		return
	}

	for i, entry := range entries {
		fmt.Fprintf(w, "%s %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)), roleLabel(entry.Role))

		m := format.Format(entry.Text())
		if markup {
			fmt.Fprintf(w, "%s\n\n", m)
			continue
		}
		fmt.Fprintf(w, "%s\n\n", termview.Render(m, termview.WithWidth(width)))
	}
}

func roleLabel(role string) string {
	if role == string(chat.RoleUser) {
		return cliui.UserStyle.Render("[" + role + "]")
	}
	return cliui.AgentStyle.Render("[" + role + "]")
}
