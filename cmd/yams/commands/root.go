package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yamclicker/core/internal/adapters/repository"
	"github.com/yamclicker/core/internal/application/services"
	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/config"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCommand builds the yams command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "yams",
		Short:         "Yam Clicker game engine",
		Long:          `Yam Clicker is an incremental game: click for yams, buy upgrades that produce yams on their own, repeat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewPlayCommand(opts))
	rootCmd.AddCommand(NewStatusCommand(opts))
	rootCmd.AddCommand(NewClickCommand(opts))
	rootCmd.AddCommand(NewBuyCommand(opts))
	rootCmd.AddCommand(NewResetCommand(opts))
	rootCmd.AddCommand(NewMigrateCommand(opts))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// runMode decides how noisy bootstrap is allowed to be.
type runMode int

const (
	// modeServe logs at the configured level.
	modeServe runMode = iota
	// modeCommand keeps one-shot commands quiet unless --log-level is set.
	modeCommand
	// modeInteractive never writes logs to stdout, which the TUI owns.
	modeInteractive
)

// app is the wired game: configuration, logger, store and a started engine.
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	store  ports.KeyValueStore
	game   *services.GameService
}

func loadConfig(opts *rootOptions, mode runMode) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	switch {
	case opts.logLevel != "":
		cfg.Logger.Level = opts.logLevel
	case mode == modeCommand && (cfg.Logger.Level == "debug" || cfg.Logger.Level == "info"):
		cfg.Logger.Level = "warn"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, mode runMode) (*logger.Logger, error) {
	if mode == modeInteractive && cfg.Logger.Output != "file" {
		return logger.NewNop(), nil
	}
	return logger.New(cfg.Logger)
}

// bootstrap wires config, logger, storage and engine, and starts the engine.
func bootstrap(ctx context.Context, opts *rootOptions, mode runMode, clk clock.Clock) (*app, error) {
	cfg, err := loadConfig(opts, mode)
	if err != nil {
		return nil, err
	}

	appLogger, err := newLogger(cfg, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	seed := entities.DefaultSeedCatalog()
	if cfg.Game.CatalogFile != "" {
		if seed, err = entities.LoadSeedFile(cfg.Game.CatalogFile); err != nil {
			appLogger.Close()
			return nil, err
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()
	store, err := repository.Open(openCtx, cfg.Storage, appLogger)
	if err != nil {
		appLogger.Close()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	game := services.NewGameService(store, clk, services.GameOptions{
		ClickValue:           cfg.Game.ClickValue,
		CostMultiplier:       cfg.Game.CostMultiplier,
		WholeTickInterval:    cfg.Game.WholeTickInterval,
		FractionTickInterval: cfg.Game.FractionTickInterval,
		StorageTimeout:       cfg.Storage.Timeout,
		Seed:                 seed,
	}, appLogger)

	if err := game.Init(ctx); err != nil {
		store.Close()
		appLogger.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: appLogger, store: store, game: game}, nil
}

// Close stops the engine and releases storage.
func (a *app) Close() {
	a.game.Teardown()
	if err := a.store.Close(); err != nil {
		a.logger.Warnw("Failed to close storage", "error", err)
	}
	_ = a.logger.Close()
}
