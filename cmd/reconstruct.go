package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/rinktime/internal/adapters/mq/queue"
	"github.com/okian/rinktime/internal/adapters/repository"
	app "github.com/okian/rinktime/internal/app"
	"github.com/okian/rinktime/internal/config"
	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/pkg/logger"
)

// ReconstructFlags holds flags for the reconstruct command.
type ReconstructFlags struct {
	DB      string
	Workers int
	JSON    bool
}

// gameReport summarizes one reconstructed game file.
type gameReport struct {
	File      string           `json:"file"`
	GameID    string           `json:"game_id"`
	End       int              `json:"end,omitempty"`
	Goals     int              `json:"goals"`
	Anomalies int              `json:"anomalies"`
	PowerPlay model.Sides[int] `json:"power_play_seconds"`
	EmptyNet  model.Sides[int] `json:"empty_net_seconds"`
	Duplicate bool             `json:"duplicate,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func createReconstructCommand(cfg *config.Config) *cobra.Command {
	flags := &ReconstructFlags{}
	cmd := &cobra.Command{
		Use:   "reconstruct <file>...",
		Short: "Reconstruct game log files and print a summary per game",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconstructFiles(cmd.Context(), cmd.OutOrStdout(), cfg, flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.DB, "db", "", "store results in this SQLite database")
	cmd.Flags().IntVar(&flags.Workers, "workers", 0, "reconstruction workers (default from config)")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print one JSON object per game")
	return cmd
}

func reconstructFiles(ctx context.Context, out io.Writer, cfg *config.Config, flags *ReconstructFlags, files []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Get().Named("reconstruct")

	var store repository.Store = repository.NewMemoryStore(ctx)
	if flags.DB != "" {
		sq, err := repository.OpenSQLite(ctx, flags.DB)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store = sq
	}

	var (
		mu      sync.Mutex
		reports = make(map[string]*gameReport, len(files))
	)
	hook := func(j queue.Job, res *engine.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		r, ok := reports[j.ID]
		if !ok {
			return
		}
		if err != nil {
			r.Error = err.Error()
			return
		}
		fillReport(r, res)
	}

	workers := cfg.WorkerCount
	if flags.Workers > 0 {
		workers = flags.Workers
	}
	svc := app.New(
		app.WithWorkerCount(workers),
		app.WithQueueSize(max(len(files), 1)),
		app.WithDedupeSize(-1),
		app.WithStore(store),
		app.WithResultHook(hook),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	ordered := make([]*gameReport, 0, len(files))
	for _, path := range files {
		r := &gameReport{File: path}
		ordered = append(ordered, r)

		f, err := os.Open(path)
		if err != nil {
			r.Error = err.Error()
			continue
		}
		// Hold the lock across Submit so the hook never sees a half-filled report.
		mu.Lock()
		sub, err := svc.Submit(ctx, f)
		switch {
		case err != nil:
			r.Error = err.Error()
		case sub.Duplicate:
			r.GameID, r.Duplicate = sub.GameID, true
		default:
			r.GameID = sub.GameID
			reports[sub.JobID] = r
		}
		mu.Unlock()
		_ = f.Close()
	}

	if err := svc.Stop(ctx); err != nil {
		log.Warn(ctx, "service stopped with errors", logger.Error(err))
	}

	failed := 0
	for _, r := range ordered {
		if r.Error != "" {
			failed++
		}
	}
	if err := printReports(out, ordered, flags.JSON); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d games failed", failed, len(ordered))
	}
	return nil
}

func fillReport(r *gameReport, res *engine.Result) {
	r.GameID = res.Game.ID
	r.End = res.End
	r.Goals = len(res.Goals)
	r.Anomalies = len(res.Anomalies)
	for _, s := range res.Snapshots {
		switch {
		case s.Skaters.Home > s.Skaters.Road:
			r.PowerPlay.Home++
		case s.Skaters.Road > s.Skaters.Home:
			r.PowerPlay.Road++
		}
		if s.Goalies.Home == "" {
			r.EmptyNet.Home++
		}
		if s.Goalies.Road == "" {
			r.EmptyNet.Road++
		}
	}
}

func printReports(out io.Writer, reports []*gameReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, r := range reports {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tGAME\tEND\tGOALS\tANOMALIES\tPP HOME\tPP ROAD\tEN HOME\tEN ROAD\tSTATUS")
	for _, r := range reports {
		status := "ok"
		switch {
		case r.Error != "":
			status = r.Error
		case r.Duplicate:
			status = "duplicate"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.File, r.GameID, r.End, r.Goals, r.Anomalies,
			r.PowerPlay.Home, r.PowerPlay.Road, r.EmptyNet.Home, r.EmptyNet.Road, status)
	}
	return tw.Flush()
}
