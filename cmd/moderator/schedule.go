package main

import (
	"context"
	"log/slog"
	"time"
)

// runPeriodically runs fn once, then every interval until ctx ends.
// A zero interval runs it exactly once. Failures of later runs are logged
// and the loop continues.
func runPeriodically(ctx context.Context, interval time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fn(); err != nil {
				slog.Error("Scheduled run failed", "interval", interval, "error", err)
			}
		}
	}
}
