package testgames

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rinktime/pkg/logger"
)

const directoryPermission = 0o750

// WriteFiles writes one JSON file per log into dir and returns the paths.
func WriteFiles(ctx context.Context, dir string, logs []Log) ([]string, error) {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	paths := make([]string, 0, len(logs))
	for _, l := range logs {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		data, err := Encode(l)
		if err != nil {
			return paths, fmt.Errorf("encode game %s: %w", l.Game.ID, err)
		}
		path := filepath.Join(dir, l.Game.ID+".json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	logger.Get().Info(ctx, "game logs written", logger.String("dir", dir), logger.Int("games", len(paths)))
	return paths, nil
}

// Submit posts every log to cfg.BaseURL/games with cfg.Workers concurrent clients.
func Submit(ctx context.Context, cfg SubmitConfig, logs []Log) (Stats, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}
	url := cfg.BaseURL + "/games"
	start := time.Now()

	var accepted, duplicate, failed, submitted atomic.Int64
	jobs := make(chan Log, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for l := range jobs {
				submitted.Add(1)
				switch submitOne(ctx, client, url, l) {
				case http.StatusAccepted:
					accepted.Add(1)
				case http.StatusOK:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

feed:
	for _, l := range logs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- l:
		}
	}
	close(jobs)
	wg.Wait()

	stats := Stats{
		Submitted: int(submitted.Load()),
		Accepted:  int(accepted.Load()),
		Duplicate: int(duplicate.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}
	logger.Get().Info(ctx, "game submission completed",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
	)
	return stats, ctx.Err()
}

// submitOne posts a log and returns the response status, or 0 on transport errors.
func submitOne(ctx context.Context, client *http.Client, url string, l Log) int {
	data, err := Encode(l)
	if err != nil {
		return 0
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		logger.Get().Debug(ctx, "submit failed", logger.String("game_id", l.Game.ID), logger.Error(err))
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}
