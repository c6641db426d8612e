// Package formatcmder provides the format command, which converts reply
// text into display markup.
package formatcmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/format"
	"github.com/papercomputeco/parley/pkg/termview"
)

type formatCommander struct {
	width uint
	term  bool
	cfg   *config.Config
}

const formatLongDesc string = `Format reply text into display markup.

Reads FILE, or stdin when FILE is omitted or "-", and prints the markup the
chat UI would display for it: paragraphs, line breaks, bold, italic, inline
and fenced code, and ordered or unordered lists.

With --term the markup is rendered as terminal text instead.

Examples:
  parley format reply.txt
  echo "**bold** and *italic*" | parley format
  parley format --term --width 60 reply.txt`

const formatShortDesc string = "Format reply text into display markup"

func NewFormatCmd() *cobra.Command {
	cmder := &formatCommander{}

	cmd := &cobra.Command{
		Use:   "format [FILE]",
		Short: formatShortDesc,
		Long:  formatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.ClientFlags, []string{config.FlagWidth})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				in = f
			}

			return cmder.run(in, cmd.OutOrStdout())
		},
	}

	config.AddUintFlag(cmd, config.ClientFlags, config.FlagWidth, &cmder.width)
	cmd.Flags().BoolVar(&cmder.term, "term", false, "Render as terminal text instead of markup")

	return cmd
}

func (c *formatCommander) run(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	// Drop the newline files and pipes end with.
	markup := format.Format(strings.TrimRight(string(data), "\r\n"))
	if c.term {
		fmt.Fprintln(out, termview.Render(markup, termview.WithWidth(c.cfg.Render.Width)))
		return nil
	}

	fmt.Fprintln(out, markup)
	return nil
}
