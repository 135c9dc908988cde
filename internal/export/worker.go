package export

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// SnapshotWorker periodically writes the current week's grid to disk, so an
// up-to-date XLSX snapshot survives even when nobody asks for an export.
type SnapshotWorker struct {
	exporter *Exporter
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger
}

func NewSnapshotWorker(exporter *Exporter, schedule string, retry RetryPolicy, logger *zerolog.Logger) *SnapshotWorker {
	interval := 24 * time.Hour
	if schedule != "" {
		if d, err := time.ParseDuration(schedule); err == nil {
			interval = d
		} else {
			logger.Warn().Err(err).Str("schedule", schedule).Msg("Failed to parse snapshot schedule, using default 24h")
		}
	}

	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SnapshotWorker{
		exporter: exporter,
		interval: interval,
		retry:    retry,
		logger:   logger,
	}
}

// Start launches the snapshot loop; stops when ctx is done.
func (w *SnapshotWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("snapshot worker started")
	defer w.logger.Info().Msg("snapshot worker stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.snapshot(ctx)
		}
	}
}

func (w *SnapshotWorker) snapshot(ctx context.Context) {
	for attempt := 1; attempt <= w.retry.MaxRetries; attempt++ {
		path, err := w.exporter.ExportWeek(ctx, time.Now())
		if err == nil {
			w.logger.Debug().Str("path", path).Msg("weekly snapshot written")
			return
		}

		w.logger.Warn().Err(err).Int("attempt", attempt).Msg("snapshot export failed")
		if attempt == w.retry.MaxRetries {
			w.logger.Error().Err(err).Msg("snapshot export giving up")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.NextDelay(attempt)):
		}
	}
}
