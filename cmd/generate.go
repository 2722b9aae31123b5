package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/rinktime/internal/testgames"
)

// GenerateFlags holds flags for the generate command.
type GenerateFlags struct {
	Games   int
	Seed    int64
	Out     string
	Submit  string
	Workers int
	Timeout time.Duration
}

func createGenerateCommand() *cobra.Command {
	flags := &GenerateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic game logs",
		Long: `Generate synthetic game logs, write them to a directory and optionally
replay them against a running service.

Examples:
  rinktime generate --games=20 --out=testdata/games
  rinktime generate --games=500 --submit=http://localhost:9080 --workers=16`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.Out == "" && flags.Submit == "" {
				return fmt.Errorf("one of --out or --submit is required")
			}
			gen := testgames.DefaultConfig()
			gen.Games, gen.Seed = flags.Games, flags.Seed
			logs, err := testgames.Generate(gen)
			if err != nil {
				return err
			}

			if flags.Out != "" {
				paths, err := testgames.WriteFiles(cmd.Context(), flags.Out, logs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d games to %s\n", len(paths), flags.Out)
			}
			if flags.Submit != "" {
				stats, err := testgames.Submit(cmd.Context(), testgames.SubmitConfig{
					BaseURL: flags.Submit,
					Workers: flags.Workers,
					Timeout: flags.Timeout,
				}, logs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "submitted %d games in %s: %d accepted, %d duplicate, %d failed\n",
					stats.Submitted, stats.Duration.Round(time.Millisecond), stats.Accepted, stats.Duplicate, stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flags.Games, "games", 10, "number of games")
	cmd.Flags().Int64Var(&flags.Seed, "seed", 1, "generator seed")
	cmd.Flags().StringVar(&flags.Out, "out", "", "directory to write game files into")
	cmd.Flags().StringVar(&flags.Submit, "submit", "", "base URL of a running service to submit games to")
	cmd.Flags().IntVar(&flags.Workers, "workers", 4, "concurrent submitters")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}
