package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yamclicker/core/internal/adapters/tui"
	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/clock"
)

// NewStatusCommand creates the status command
func NewStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts, modeCommand, clock.Real{})
			if err != nil {
				return err
			}
			defer a.Close()

			state := a.game.State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Yams: %s\n", tui.FormatCount(state.Count))
			fmt.Fprintf(out, "Rate: %s per second\n", tui.FormatRate(state.Rate))
			fmt.Fprintln(out, tui.RenderMarket(state.Catalog, state.Count, a.cfg.Game.MaskedName, tui.DefaultStyles()))
			return nil
		},
	}
}

// NewClickCommand creates the click command
func NewClickCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "click [times]",
		Short: "Click the yam",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			times := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("times must be a positive integer, got %q", args[0])
				}
				times = n
			}

			a, err := bootstrap(cmd.Context(), opts, modeCommand, clock.Real{})
			if err != nil {
				return err
			}
			defer a.Close()

			var count float64
			for i := 0; i < times; i++ {
				if count, err = a.game.Click(cmd.Context()); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Yams: %s\n", tui.FormatCount(count))
			return nil
		},
	}
}

// NewBuyCommand creates the buy command. Items are numbered from 1 as in
// the status table.
func NewBuyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item>",
		Short: "Buy a market item by its number in the status table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("item must be a number, got %q", args[0])
			}

			a, err := bootstrap(cmd.Context(), opts, modeCommand, clock.Real{})
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.game.Buy(cmd.Context(), number-1)
			switch {
			case errors.Is(err, entities.ErrItemNotFound):
				return fmt.Errorf("there is no item %d", number)
			case errors.Is(err, entities.ErrInsufficientFunds):
				return fmt.Errorf("not enough yams: %s costs %s, you have %s",
					item.DisplayName(a.cfg.Game.MaskedName), tui.FormatCount(item.Cost), tui.FormatCount(a.game.Count()))
			case err != nil:
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Bought %s, you own %d. Next one costs %s.\n",
				item.Name, item.Amount, tui.FormatCount(item.Cost))
			fmt.Fprintf(cmd.OutOrStdout(), "Yams: %s, rate: %s per second\n",
				tui.FormatCount(a.game.Count()), tui.FormatRate(a.game.Rate()))
			return nil
		},
	}
}

// NewResetCommand creates the reset command
func NewResetCommand(opts *rootOptions) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe the saved game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("refusing to wipe the saved game without --yes")
			}

			a, err := bootstrap(cmd.Context(), opts, modeCommand, clock.Real{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.game.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved game wiped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the reset")
	return cmd
}
