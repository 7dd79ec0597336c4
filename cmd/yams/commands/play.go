package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yamclicker/core/internal/adapters/tui"
	"github.com/yamclicker/core/internal/infrastructure/clock"
)

// NewPlayCommand creates the play command
func NewPlayCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts, modeInteractive, clock.Real{})
			if err != nil {
				return err
			}
			defer a.Close()

			events, cancel := a.game.Subscribe(64)
			defer cancel()

			model := tui.New(a.game, events, a.cfg.Game.MaskedName)
			_, err = tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			).Run()
			return err
		},
	}
}
