package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"stroomweg/internal/broker"
	"stroomweg/internal/models"
	"stroomweg/internal/repository"
	"stroomweg/internal/wire"
)

// Runner drives the periodic ingest cycle: both normalizer paths run
// concurrently and are jointly awaited; a failure in either is logged and the
// next cycle is attempted regardless.
type Runner struct {
	Reference    *ReferenceLoader
	Speeds       *SpeedNormalizer
	JourneyTimes *JourneyTimeNormalizer
	Repo         repository.Repository
	Publisher    *broker.Publisher
	Logger       *zap.Logger
	PollInterval time.Duration

	mu       sync.RWMutex
	mappings map[string]models.IndexMapping
}

// RefreshReference reloads the metadata feed and swaps in the new index
// mapping table. Called once before the first cycle and periodically after.
func (r *Runner) RefreshReference(ctx context.Context) error {
	mappings, err := r.Reference.Load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.mappings = mappings
	r.mu.Unlock()
	return nil
}

func (r *Runner) currentMappings() map[string]models.IndexMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappings
}

// Run loops until ctx is cancelled. Each cycle sleeps only the remainder of
// the interval; an overrunning cycle starts the next one immediately (drift,
// not catch-up). The sleep is cancelled promptly on shutdown.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		cycleStart := time.Now()
		r.runCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		elapsed := time.Since(cycleStart)
		sleep := interval - elapsed
		if sleep <= 0 {
			if r.Logger != nil {
				r.Logger.Warn("cycle overran interval, starting next immediately",
					zap.Duration("elapsed", elapsed),
					zap.Duration("interval", interval),
				)
			}
			continue
		}
		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	cycleStart := time.Now()
	mappings := r.currentMappings()

	var (
		wg         sync.WaitGroup
		speedRows  []models.SpeedReading
		speedErr   error
		jtRows     []models.JourneyTimeReading
		journeyErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		speedRows, speedErr = r.runSpeeds(ctx, mappings)
	}()
	go func() {
		defer wg.Done()
		jtRows, journeyErr = r.runJourneyTimes(ctx)
	}()
	wg.Wait()

	if speedErr != nil && r.Logger != nil {
		r.Logger.Warn("speed path failed", zap.Error(speedErr))
	}
	if journeyErr != nil && r.Logger != nil {
		r.Logger.Warn("journey time path failed", zap.Error(journeyErr))
	}

	// Broadcast is best-effort and independent of persistence: a publish
	// failure never rolls back a successful write.
	if speedErr == nil && len(speedRows) > 0 {
		if err := r.Publisher.PublishSpeeds(ctx, wire.CompactSpeeds(speedRows)); err != nil && r.Logger != nil {
			r.Logger.Warn("speed publish failed", zap.Error(err))
		}
	}
	if journeyErr == nil && len(jtRows) > 0 {
		if err := r.Publisher.PublishJourneyTimes(ctx, wire.CompactJourneyTimes(jtRows)); err != nil && r.Logger != nil {
			r.Logger.Warn("journey time publish failed", zap.Error(err))
		}
	}

	if r.Logger != nil {
		r.Logger.Info("cycle complete",
			zap.Int("speed_rows", len(speedRows)),
			zap.Int("journey_time_rows", len(jtRows)),
			zap.Duration("elapsed", time.Since(cycleStart)),
		)
	}
}

func (r *Runner) runSpeeds(ctx context.Context, mappings map[string]models.IndexMapping) ([]models.SpeedReading, error) {
	rows, err := r.Speeds.Fetch(ctx, mappings)
	if err != nil {
		return nil, err
	}
	if err := r.Repo.InsertSpeedReadings(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Runner) runJourneyTimes(ctx context.Context) ([]models.JourneyTimeReading, error) {
	rows, err := r.JourneyTimes.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Repo.InsertJourneyTimeReadings(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
