// Package parleycmder is the root of the parley command tree.
package parleycmder

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/parley/cmd/parley/chat"
	clearcmder "github.com/papercomputeco/parley/cmd/parley/clear"
	configcmder "github.com/papercomputeco/parley/cmd/parley/config"
	formatcmder "github.com/papercomputeco/parley/cmd/parley/format"
	historycmder "github.com/papercomputeco/parley/cmd/parley/history"
	replaycmder "github.com/papercomputeco/parley/cmd/parley/replay"
	statuscmder "github.com/papercomputeco/parley/cmd/parley/status"
	versioncmder "github.com/papercomputeco/parley/cmd/version"
)

const parleyLongDesc string = `Parley is a terminal client for a streaming chat service.

Start chatting with:
  parley chat                   Interactive session
  parley status                 Check the service is reachable

Work with replies offline:
  parley format reply.txt       Format text into display markup
  parley replay session.sse     Replay a recorded reply stream`

const parleyShortDesc string = "Parley - streaming chat client"

func NewParleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "parley",
		Short:         parleyShortDesc,
		Long:          parleyLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .parley/ config directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(clearcmder.NewClearCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(formatcmder.NewFormatCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
