// Package chatcmder provides the chat command, an interactive session with
// the chat service in a full-screen terminal UI or a plain line-mode REPL.
package chatcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/dotdir"
	"github.com/papercomputeco/parley/pkg/logger"
)

type chatCommander struct {
	target   string
	timeout  string
	width    uint
	markdown bool
	plain    bool
	record   string

	configDir string
	debug     bool
	cfg       *config.Config
}

const chatLongDesc string = `Start an interactive chat session with the chat service.

When stdout is a terminal the session runs in a full-screen UI that renders
replies as they stream in. With --plain, or when stdout is not a terminal,
the session runs in line mode: you type a line, the reply is printed as it
arrives.

Commands typed at the prompt:
  /clear    Discard the conversation and keep only the greeting
  /exit     Leave the session (Ctrl+D also works in line mode)

Use --record to keep the raw reply streams for "parley replay". The session
log is written as JSON to parley.log in the .parley/ directory.

Examples:
  parley chat
  parley chat --target http://127.0.0.1:5000
  parley chat --plain --markdown
  parley chat --record session.sse`

const chatShortDesc string = "Chat with the service interactively"

var chatFlags = []string{
	config.FlagTarget,
	config.FlagTimeout,
	config.FlagWidth,
	config.FlagMarkdown,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.ClientFlags, chatFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.cfg = cfg
			cmder.width = cfg.Render.Width
			cmder.markdown = cfg.Render.Markdown
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTimeout, &cmder.timeout)
	config.AddUintFlag(cmd, config.ClientFlags, config.FlagWidth, &cmder.width)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagMarkdown, &cmder.markdown)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use line mode even when stdout is a terminal")
	cmd.Flags().StringVar(&cmder.record, "record", "", "Write the raw reply streams to this file")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	lineMode := c.plain || !isTerminal(out)

	logFile, err := dotdir.NewManager().OpenLog(c.configDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logger.New(logger.WithJSON(true), logger.WithDebug(c.debug), logger.WithWriter(logFile))
	if lineMode {
		log = logger.Multi(log, logger.New(
			logger.WithPretty(true),
			logger.WithDebug(c.debug),
			logger.WithWriter(errOut),
		))
	}

	client := c.cfg.Client.NewClient(chat.WithClientLogger(log))

	opts := []chat.SessionOption{
		chat.WithGreeting(c.cfg.Chat.Greeting),
		chat.WithFallback(c.cfg.Chat.Fallback),
		chat.WithLogger(log),
	}

	if c.record != "" {
		f, err := os.Create(c.record)
		if err != nil {
			return fmt.Errorf("creating record file: %w", err)
		}
		defer f.Close()
		opts = append(opts, chat.WithRecorder(f))
	}

	session := chat.NewSession(client, opts...)
	log.Debug("chat session started",
		"target", client.BaseURL(),
		"line_mode", lineMode,
		"record", c.record,
	)

	if lineMode {
		err = runLine(ctx, lineOptions{
			in:       in,
			out:      out,
			session:  session,
			logger:   log,
			markdown: c.markdown,
			width:    c.width,
		})
	} else {
		err = runTUI(ctx, session, client.BaseURL(), c.width, log)
	}

	if saveErr := dotdir.NewManager().SaveClientSession(client, c.configDir); saveErr != nil {
		log.Warn("could not save service session", "error", saveErr)
	}

	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
