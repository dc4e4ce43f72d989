package schedule

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/rabbitmq"
	"pulsewatch/pkg/redisstore"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ActiveLister loads the monitors to seed into the redis schedule.
type ActiveLister interface {
	ListActiveMonitors(ctx context.Context) ([]monitor.Snapshot, error)
}

// Publisher pushes check jobs onto the durable queue.
type Publisher interface {
	PublishBatch(ctx context.Context, bodies [][]byte) error
}

// QueueScheduler is the producer half of the queue-backed execution mode:
// it pops due monitor IDs from the redis schedule set and publishes them as
// jobs. Consumers do the checking and write the next run back.
type QueueScheduler struct {
	// lifecycle
	interval   time.Duration
	batchSize  int
	visibility time.Duration
	staggerMax time.Duration

	// services
	redisSvc  *redisstore.Client
	publisher Publisher
	monitors  ActiveLister

	// misc
	logger *zerolog.Logger
}

func NewQueueScheduler(
	interval time.Duration,
	batchSize int,
	visibility time.Duration,
	staggerMax time.Duration,
	redisSvc *redisstore.Client,
	publisher Publisher,
	monitors ActiveLister,
	logger *zerolog.Logger,
) *QueueScheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize < 1 {
		batchSize = 10
	}
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	if staggerMax <= 0 {
		staggerMax = 10 * time.Second
	}

	return &QueueScheduler{
		interval:   interval,
		batchSize:  batchSize,
		visibility: visibility,
		staggerMax: staggerMax,
		redisSvc:   redisSvc,
		publisher:  publisher,
		monitors:   monitors,
		logger:     logger,
	}
}

// Seed writes every active monitor into the schedule set with a random
// first-run offset, so a fleet restart does not slam every target at once.
// ZADD overwrites scores, which makes re-seeding after a crash idempotent
// enough: at worst a pending run moves a few seconds.
func (qs *QueueScheduler) Seed(ctx context.Context) error {
	snaps, err := qs.monitors.ListActiveMonitors(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	items := make([]redis.Z, 0, len(snaps))
	for _, snap := range snaps {
		offset := time.Duration(rand.Int63n(int64(qs.staggerMax)))
		items = append(items, redis.Z{
			Score:  float64(now.Add(offset).UnixMilli()),
			Member: snap.ID.String(),
		})
	}

	if err := qs.redisSvc.ScheduleBatch(ctx, items); err != nil {
		return err
	}

	qs.logger.Info().
		Int("monitors", len(items)).
		Dur("stagger_max", qs.staggerMax).
		Msg("schedule seeded")
	return nil
}

// Run ticks until the context is cancelled.
func (qs *QueueScheduler) Run(ctx context.Context) {
	qs.logger.Info().
		Dur("interval", qs.interval).
		Int("batch_size", qs.batchSize).
		Msg("queue scheduler started")

	ticker := time.NewTicker(qs.interval)
	defer func() {
		ticker.Stop()
		qs.logger.Info().Msg("queue scheduler stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			qs.doWork(ctx)
		}
	}
}

func (qs *QueueScheduler) doWork(ctx context.Context) {
	ids, err := qs.redisSvc.FetchAndMoveToInflight(ctx, fetchAndMoveToInflightScript, time.Now(), qs.batchSize, qs.visibility)
	if err != nil {
		// transient redis error, log and move on
		qs.logger.Error().Err(err).Msg("failed to fetch due monitors")
		return
	}
	if len(ids) == 0 {
		return
	}

	bodies := make([][]byte, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			// corrupted member, drop it entirely
			qs.logger.Error().Str("member", raw).Msg("non-uuid member in schedule set")
			_ = qs.redisSvc.AckJob(ctx, raw)
			continue
		}

		body, err := json.Marshal(rabbitmq.CheckJob{MonitorID: id})
		if err != nil {
			continue
		}
		bodies = append(bodies, body)
	}

	if err := qs.publisher.PublishBatch(ctx, bodies); err != nil {
		// jobs stay parked inflight; the reclaimer returns them to the
		// schedule after the visibility window
		qs.logger.Error().
			Err(err).
			Int("jobs", len(bodies)).
			Msg("failed to publish check jobs")
		return
	}

	qs.logger.Debug().Int("jobs", len(bodies)).Msg("check jobs published")
}
