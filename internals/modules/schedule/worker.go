package schedule

import (
	"context"
	"encoding/json"
	"time"

	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/rabbitmq"
	"pulsewatch/pkg/redisstore"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	maxCheckAttempts = 3
	baseRetryBackoff = time.Second
)

// CheckJobHandler is the consumer half of the queue-backed mode. Each job
// carries one monitor ID; the handler runs the check, feeds the processor,
// writes the next run back to the schedule set and acks the inflight slot.
type CheckJobHandler struct {
	loader    SnapshotLoader
	checker   Checker
	processor *Processor
	redisSvc  *redisstore.Client
	logger    *zerolog.Logger
}

func NewCheckJobHandler(loader SnapshotLoader, checker Checker, processor *Processor, redisSvc *redisstore.Client, logger *zerolog.Logger) *CheckJobHandler {
	return &CheckJobHandler{
		loader:    loader,
		checker:   checker,
		processor: processor,
		redisSvc:  redisSvc,
		logger:    logger,
	}
}

func (h *CheckJobHandler) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var job rabbitmq.CheckJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		// poison message, ack it away
		h.logger.Error().Err(err).Msg("undecodable check job, dropping")
		return nil
	}

	snap, err := h.loader.GetMonitor(ctx, job.MonitorID)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			h.unschedule(ctx, job)
			return nil
		}
		// transient load failure: leave the inflight slot alone so the
		// reclaimer re-queues the monitor after the visibility window
		return err
	}

	if !snap.Active {
		h.unschedule(ctx, job)
		return nil
	}

	res := h.executeWithRetry(ctx, snap)
	h.processor.Process(ctx, snap, res, time.Now())

	if err := h.redisSvc.Schedule(ctx, snap.ID.String(), time.Now().Add(snap.Interval())); err != nil {
		// keep the job inflight; reclaiming beats silently dropping the
		// monitor off the schedule
		return err
	}

	return h.redisSvc.AckJob(ctx, snap.ID.String())
}

// executeWithRetry reruns a failed check a couple of times with exponential
// backoff before trusting the failure. Cuts blips from flapping the state
// machine; a genuinely down target just fails all attempts.
func (h *CheckJobHandler) executeWithRetry(ctx context.Context, snap monitor.Snapshot) check.Result {
	backoff := baseRetryBackoff

	var res check.Result
	for attempt := 1; attempt <= maxCheckAttempts; attempt++ {
		checkCtx, cancel := context.WithTimeout(ctx, snap.Timeout()+5*time.Second)
		res = h.checker.Execute(checkCtx, snap)
		cancel()

		if res.Success || attempt == maxCheckAttempts {
			break
		}

		h.logger.Debug().
			Str("monitor_id", snap.ID.String()).
			Int("attempt", attempt).
			Str("error", res.Err).
			Msg("check failed, retrying")

		select {
		case <-ctx.Done():
			return res
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return res
}

func (h *CheckJobHandler) unschedule(ctx context.Context, job rabbitmq.CheckJob) {
	id := job.MonitorID.String()
	if err := h.redisSvc.DelSchedule(ctx, id); err != nil {
		h.logger.Warn().Err(err).Str("monitor_id", id).Msg("failed to unschedule monitor")
	}
	if err := h.redisSvc.ClearCheckState(ctx, job.MonitorID); err != nil {
		h.logger.Warn().Err(err).Str("monitor_id", id).Msg("failed to clear check state")
	}
	_ = h.redisSvc.AckJob(ctx, id)
}
