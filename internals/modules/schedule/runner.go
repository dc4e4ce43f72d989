package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Checker runs one check. The dispatcher satisfies this.
type Checker interface {
	Execute(ctx context.Context, snap monitor.Snapshot) check.Result
}

// SnapshotLoader reloads a monitor right before its check so config edits
// land on the next cycle.
type SnapshotLoader interface {
	GetMonitor(ctx context.Context, monitorID uuid.UUID) (monitor.Snapshot, error)
}

// Runner is the in-memory execution mode: a single tick loop sweeping the
// cache and running due checks in bounded batches.
type Runner struct {
	// lifecycle
	interval  time.Duration
	batchSize int
	sweeping  atomic.Bool
	sweepWG   sync.WaitGroup

	// services
	cache     *Cache
	loader    SnapshotLoader
	checker   Checker
	processor *Processor

	// counters
	checksRun      atomic.Int64
	coalescedTicks atomic.Int64
	lastSweepMS    atomic.Int64
	lastSweepAt    atomic.Int64

	// misc
	logger *zerolog.Logger
}

func NewRunner(interval time.Duration, batchSize int, cache *Cache, loader SnapshotLoader, checker Checker, processor *Processor, logger *zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize < 1 {
		batchSize = 10
	}

	return &Runner{
		interval:  interval,
		batchSize: batchSize,
		cache:     cache,
		loader:    loader,
		checker:   checker,
		processor: processor,
		logger:    logger,
	}
}

// Run ticks until the context is cancelled, then drains the sweep in
// flight. Ticks that land while a sweep is still running are dropped, not
// queued; the next free tick picks up everything due by then.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("check runner started")

	ticker := time.NewTicker(r.interval)
	defer func() {
		ticker.Stop()
		r.sweepWG.Wait()
		r.logger.Info().Msg("check runner stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !r.sweeping.CompareAndSwap(false, true) {
				r.coalescedTicks.Add(1)
				continue
			}

			r.sweepWG.Add(1)
			go func() {
				defer r.sweepWG.Done()
				defer r.sweeping.Store(false)
				// a blown sweep loses one tick, never the loop
				defer func() {
					if rec := recover(); rec != nil {
						r.logger.Error().Any("panic", rec).Msg("sweep panicked")
					}
				}()
				r.sweep(ctx)
			}()
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	start := time.Now()
	due := r.cache.DueNow(start)
	if len(due) == 0 {
		return
	}

	for i := 0; i < len(due); i += r.batchSize {
		if ctx.Err() != nil {
			return
		}

		end := min(i+r.batchSize, len(due))

		var wg sync.WaitGroup
		for _, snap := range due[i:end] {
			wg.Add(1)
			go func(snap monitor.Snapshot) {
				defer wg.Done()
				r.runOne(ctx, snap)
			}(snap)
		}
		wg.Wait()
	}

	r.checksRun.Add(int64(len(due)))
	r.lastSweepMS.Store(time.Since(start).Milliseconds())
	r.lastSweepAt.Store(start.UnixMilli())
}

func (r *Runner) runOne(ctx context.Context, scheduled monitor.Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Any("panic", rec).
				Str("monitor_id", scheduled.ID.String()).
				Msg("check panicked")
		}
	}()

	snap, err := r.loader.GetMonitor(ctx, scheduled.ID)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			r.cache.Remove(scheduled.ID)
			return
		}
		// transient load failure; the entry is already rescheduled, so
		// this cycle is simply skipped
		r.logger.Warn().
			Err(err).
			Str("monitor_id", scheduled.ID.String()).
			Msg("failed to load monitor before check, skipping cycle")
		return
	}

	if !snap.Active {
		r.cache.Pause(snap.ID)
		return
	}
	r.cache.Update(snap)

	checkCtx, cancel := context.WithTimeout(ctx, snap.Timeout()+5*time.Second)
	defer cancel()

	res := r.checker.Execute(checkCtx, snap)
	r.processor.Process(ctx, snap, res, time.Now())
}

// RunnerStatus is a point-in-time view for the health endpoint.
type RunnerStatus struct {
	Monitors       int       `json:"monitors"`
	ChecksRun      int64     `json:"checks_run"`
	CoalescedTicks int64     `json:"coalesced_ticks"`
	LastSweepMS    int64     `json:"last_sweep_ms"`
	LastSweepAt    time.Time `json:"last_sweep_at"`
}

func (r *Runner) Status() RunnerStatus {
	return RunnerStatus{
		Monitors:       r.cache.Len(),
		ChecksRun:      r.checksRun.Load(),
		CoalescedTicks: r.coalescedTicks.Load(),
		LastSweepMS:    r.lastSweepMS.Load(),
		LastSweepAt:    time.UnixMilli(r.lastSweepAt.Load()),
	}
}
