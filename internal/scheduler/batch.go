package scheduler

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/domain"
)

// Valuator re-runs the valuation path for a tracked vehicle and returns the
// new blended value.
type Valuator interface {
	RevalueTracked(ctx context.Context, rec *domain.RefreshTrackingRecord) (float64, error)
}

// ShiftObserver receives value deltas that cleared the shift threshold.
type ShiftObserver interface {
	Observe(ctx context.Context, vehicle domain.VehicleDescriptor, deltaPct float64)
}

// BatchResult summarizes one scheduled run. Failed vehicles stay due for the
// next run.
type BatchResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// RunScheduledBatch refreshes every due vehicle, priority-flagged first, in
// bounded batches with a bounded worker pool. The deadline stops the run from
// picking up new vehicles past its triggering window; in-flight work finishes.
func (s *Scheduler) RunScheduledBatch(ctx context.Context, now, deadline time.Time) (BatchResult, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var result BatchResult
	attempted := make(map[string]bool)

	for {
		due, err := s.tracking.ListDue(ctx, now, s.config.BatchSize+len(attempted))
		if err != nil {
			return result, err
		}

		// Failed vehicles remain due; skip anything already tried this run.
		batch := due[:0:0]
		for _, rec := range due {
			if !attempted[rec.VehicleID] {
				attempted[rec.VehicleID] = true
				batch = append(batch, rec)
			}
			if len(batch) == s.config.BatchSize {
				break
			}
		}
		if len(batch) == 0 || ctx.Err() != nil {
			break
		}

		processed, errors := s.processBatch(ctx, batch, now)
		result.Processed += processed
		result.Errors += errors
		if s.metrics != nil {
			s.metrics.BatchProcessed.Add(float64(processed))
			s.metrics.BatchErrors.Add(float64(errors))
		}

		if len(batch) < s.config.BatchSize {
			break
		}
	}

	log.Info().Int("processed", result.Processed).Int("errors", result.Errors).
		Msg("scheduled batch complete")
	return result, nil
}

// processBatch dispatches one batch through the worker pool. The batch
// arrives ordered priority-first and the jobs channel preserves that dispatch
// order.
func (s *Scheduler) processBatch(ctx context.Context, batch []*domain.RefreshTrackingRecord, now time.Time) (processed, failed int) {
	jobs := make(chan *domain.RefreshTrackingRecord)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if err := s.refreshOne(ctx, rec, now); err != nil {
					log.Warn().Err(err).Str("vehicle_id", rec.VehicleID).
						Msg("scheduled refresh failed, vehicle stays due")
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				processed++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, rec := range batch {
		select {
		case <-ctx.Done():
			// Deadline hit: stop feeding, let in-flight work drain.
			break feed
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()
	return processed, failed
}

// refreshOne runs the valuation path for one vehicle, advances its cadence,
// and feeds the delta to the shift detector when it clears the threshold.
func (s *Scheduler) refreshOne(ctx context.Context, rec *domain.RefreshTrackingRecord, now time.Time) error {
	value, err := s.valuator.RevalueTracked(ctx, rec)
	if err != nil {
		return err
	}

	deltaPct := 0.0
	if rec.LastValue > 0 {
		deltaPct = (value - rec.LastValue) / rec.LastValue * 100
	}

	rec.PreviousValue = rec.LastValue
	rec.LastValue = value
	rec.LastAutoRefreshAt = now
	rec.NextScheduledRefreshAt = now.Add(rec.Tier.Interval())

	if err := s.tracking.Put(ctx, rec); err != nil {
		return err
	}

	if s.observer != nil && math.Abs(deltaPct) >= s.config.ShiftThresholdPct {
		s.observer.Observe(ctx, rec.Vehicle, deltaPct)
	}
	return nil
}
