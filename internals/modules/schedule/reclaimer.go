package schedule

import (
	"context"
	"time"

	"pulsewatch/config"
	"pulsewatch/pkg/redisstore"

	"github.com/rs/zerolog"
)

// Reclaimer moves monitors whose visibility deadline passed without an ack
// back from inflight to the schedule set. Covers consumer crashes and
// publish failures alike.
type Reclaimer struct {
	// lifecycle
	interval time.Duration
	limit    int

	// services
	redisSvc *redisstore.Client

	// misc
	logger *zerolog.Logger
}

func NewReclaimer(cfg *config.ReclaimerConfig, redisSvc *redisstore.Client, logger *zerolog.Logger) *Reclaimer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	limit := cfg.Limit
	if limit < 1 {
		limit = 100
	}

	return &Reclaimer{
		interval: interval,
		limit:    limit,
		redisSvc: redisSvc,
		logger:   logger,
	}
}

// Run ticks until the context is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Msg("reclaimer started")

	ticker := time.NewTicker(r.interval)
	defer func() {
		ticker.Stop()
		r.logger.Info().Msg("reclaimer stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			r.doWork(ctx)
		}
	}
}

func (r *Reclaimer) doWork(ctx context.Context) {
	count, err := r.redisSvc.ReclaimMonitors(ctx, reclaimMonitorsScript, time.Now(), r.limit)
	if err != nil {
		// transient redis error, log and move on
		r.logger.Error().Err(err).Msg("failed to reclaim monitors")
		return
	}
	if count > 0 {
		r.logger.Info().Int64("count", count).Msg("reclaimed stuck monitors")
	}
}
