package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/metrics"
	"github.com/yamclicker/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the game and serve the HTTP API",
		Long:  "Run the game engine with real-time ticks and expose it over the HTTP JSON API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts)
		},
	}
}

func runServer(ctx context.Context, opts *rootOptions) error {
	a, err := bootstrap(ctx, opts, modeServe, clock.Real{})
	if err != nil {
		return err
	}
	defer a.Close()

	var collector *metrics.Collector
	if a.cfg.Metrics.Enabled {
		collector = metrics.New()
		collector.SetState(a.game.Count(), a.game.Rate())
	}
	srv := server.New(a.cfg, a.game, a.store, collector, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	if collector != nil {
		events, cancel := a.game.Subscribe(256)
		defer cancel()
		g.Go(func() error {
			collector.Run(gctx, events)
			return nil
		})
	}

	g.Go(func() error {
		if err := srv.Start(a.cfg.Server.GetAddress()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	a.logger.Infow("Yam Clicker server started",
		"address", a.cfg.Server.GetAddress(),
		"storage", a.cfg.Storage.Driver,
		"environment", a.cfg.App.Environment,
	)

	return g.Wait()
}
