package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/termview"
)

var (
	userPrompt      = cliui.UserStyle.Render("you> ")
	assistantPrompt = cliui.AgentStyle.Render("assistant> ")
)

const (
	commandExit  = "/exit"
	commandClear = "/clear"
)

type lineOptions struct {
	in       io.Reader
	out      io.Writer
	session  *chat.Session
	logger   *slog.Logger
	markdown bool
	width    uint
}

// runLine is the line-mode REPL. It reads one message per line until EOF
// or /exit.
func runLine(ctx context.Context, opts lineOptions) error {
	log := logger.OrNop(opts.logger)
	out := opts.out

	greeting := opts.session.Messages()[0]
	fmt.Fprintf(out, "\n%s%s\n\n", assistantPrompt, greeting.Raw)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /clear resets, /exit or Ctrl+D quits."))

	scanner := bufio.NewScanner(opts.in)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case commandExit:
			return nil
		case commandClear:
			if err := opts.session.Clear(ctx); err != nil {
				fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
				continue
			}
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		err := sendLine(ctx, opts, input)
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrEmptyMessage):
		default:
			log.Debug("turn ended with error", "error", err)
			fmt.Fprintf(out, "  %s %s\n\n",
				cliui.FailMark,
				cliui.DimStyle.Render(opts.session.Status().String()),
			)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// sendLine runs one turn. The typing indicator stays up while the reply
// streams in, then the reply is printed once: as formatted markup, or
// rendered by glamour when markdown rendering is on.
func sendLine(ctx context.Context, opts lineOptions, input string) error {
	out := opts.out
	typing := cliui.NewTyping(out, "assistant is typing")
	typing.Start()
	defer typing.Stop()

	var last chat.Update
	received := false

	err := opts.session.Send(ctx, input, func(u chat.Update) {
		last = u
		received = true
	})

	typing.Stop()
	if received {
		printReply(out, last, opts)
	}

	return err
}

// printReply prints the final state of a turn's reply. A reply that ended
// with a transport failure holds the fallback text.
func printReply(out io.Writer, u chat.Update, opts lineOptions) {
	if opts.markdown && !u.Failed {
		printMarkdown(out, u.Raw, opts.width)
		return
	}

	rendered := termview.Render(u.Markup, termview.WithWidth(opts.width))
	fmt.Fprintf(out, "%s%s\n\n", assistantPrompt, rendered)
}

func printMarkdown(out io.Writer, raw string, width uint) {
	rendered, err := cliui.RenderMarkdown(raw, int(width))
	if err != nil {
		fmt.Fprintf(out, "%s%s\n\n", assistantPrompt, raw)
		return
	}
	fmt.Fprintf(out, "%s\n%s", assistantPrompt, rendered)
}
