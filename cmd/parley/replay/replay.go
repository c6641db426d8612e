// Package replaycmder provides the replay command, which re-ingests a
// recorded reply stream.
package replaycmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/stream"
	"github.com/papercomputeco/parley/pkg/termview"
)

type replayCommander struct {
	width uint
	term  bool
	debug bool
	cfg   *config.Config
}

const replayLongDesc string = `Replay a recorded reply stream.

Reads a stream recorded with "parley chat --record" (or captured from the
chat service directly) and applies the same rules as a live turn: chunks are
appended, error records replace the reply, and each complete record
finishes a message. Malformed records are skipped; run with --debug to see
them.

Prints the markup of every resulting message, or terminal text with --term,
followed by the final connection status.

Examples:
  parley replay session.sse
  parley replay --term session.sse
  curl -sN -d '{"message":"hi"}' http://127.0.0.1:5000/api/chat | parley replay -`

const replayShortDesc string = "Replay a recorded reply stream"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.ClientFlags, []string{config.FlagWidth})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening recording: %w", err)
				}
				defer f.Close()
				in = f
			}

			return cmder.run(cmd.Context(), in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddUintFlag(cmd, config.ClientFlags, config.FlagWidth, &cmder.width)
	cmd.Flags().BoolVar(&cmder.term, "term", false, "Render as terminal text instead of markup")

	return cmd
}

func (c *replayCommander) run(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(errOut),
	)

	messages, status, err := chat.Replay(ctx, in, stream.WithLogger(log))

	for i, msg := range messages {
		fmt.Fprintln(out, cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)))
		if c.term {
			fmt.Fprintln(out, termview.Render(msg.Markup, termview.WithWidth(c.cfg.Render.Width)))
		} else {
			fmt.Fprintln(out, msg.Markup)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Status:"), cliui.ValueStyle.Render(status.String()))

	if err != nil {
		return fmt.Errorf("replaying stream: %w", err)
	}
	return nil
}
