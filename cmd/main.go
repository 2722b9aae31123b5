package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/rinktime/internal/config"
	"github.com/okian/rinktime/pkg/logger"
)

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
}

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command with its subcommands.
func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}
	var cfg config.Config

	root := &cobra.Command{
		Use:   "rinktime",
		Short: "Second-by-second hockey game state reconstruction",
		Long: `rinktime rebuilds, for every second of a game, how many skaters each
team has on the ice and which goaltender is in net.

Examples:
  rinktime serve --config=rinktime.yaml
  rinktime reconstruct games/*.json --db=games.db
  rinktime generate --games=50 --out=testdata/games`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := setup(flags)
			if err != nil {
				return err
			}
			cfg = *loaded
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", os.Getenv("RINKTIME_CONFIG"), "path to YAML config file (optional)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level override: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.LogFile, "log-file", "", "also write logs to this rotating file")

	root.AddCommand(
		createServeCommand(&cfg),
		createReconstructCommand(&cfg),
		createGenerateCommand(),
	)
	return root
}

// setup loads configuration and initializes logging.
func setup(flags *GlobalFlags) (*config.Config, error) {
	cfg, err := config.LoadFile(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		cfg.LogFile = flags.LogFile
	}

	if cfg.LogFile != "" {
		err = logger.InitWithFile(cfg.LogFile, logger.FileOptions{})
	} else {
		err = logger.Init()
	}
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
