package schedule

import (
	"context"
	"time"

	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/incident"
	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State tracks per-monitor status and failure streak between checks. The
// in-memory Cache backs it in memory mode; redis backs it in queue mode.
// Either way the processor sees the same contract, so the state machine
// behaves identically in both modes.
type State interface {
	Record(ctx context.Context, monitorID uuid.UUID, success bool, responseMS int64, checkedAt time.Time) (prev monitor.Status, failures int, err error)
}

// MonitorStore is the slice of the monitor repository the processor needs.
type MonitorStore interface {
	UpdateMonitorStatus(ctx context.Context, monitorID uuid.UUID, upd monitor.StatusUpdate) error
	AppendHistory(ctx context.Context, rec monitor.CheckRecord) error
}

// Processor turns a raw check result into durable state: the streak update,
// the persisted monitor status, a history row, and whatever the incident
// engine decides. It is shared by the tick runner and the queue consumer.
type Processor struct {
	state    State
	monitors MonitorStore
	engine   *incident.Engine
	logger   *zerolog.Logger
}

func NewProcessor(state State, monitors MonitorStore, engine *incident.Engine, logger *zerolog.Logger) *Processor {
	return &Processor{
		state:    state,
		monitors: monitors,
		engine:   engine,
		logger:   logger,
	}
}

// Process applies one check result. Persistence errors are logged, not
// returned: one monitor's bad cycle must never abort a sweep, and the next
// cycle repairs the row anyway.
func (p *Processor) Process(ctx context.Context, snap monitor.Snapshot, res check.Result, now time.Time) {
	prev, failures, err := p.state.Record(ctx, snap.ID, res.Success, res.ResponseMS, now)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("monitor_id", snap.ID.String()).
			Msg("failed to record check state")
		return
	}

	curr := monitor.StatusDown
	if res.Success {
		curr = monitor.StatusUp
	}

	upd := monitor.StatusUpdate{
		Status:     curr,
		CheckedAt:  now,
		ResponseMS: res.ResponseMS,
		LastError:  res.Err,
		Failures:   failures,
	}
	if res.SSL != nil {
		upd.SSLExpiresAt = res.SSL.NotAfter
		upd.SSLDaysLeft = res.SSL.DaysRemaining
	}

	if err := p.monitors.UpdateMonitorStatus(ctx, snap.ID, upd); err != nil {
		p.logger.Error().
			Err(err).
			Str("monitor_id", snap.ID.String()).
			Msg("failed to persist monitor status")
	}

	if err := p.monitors.AppendHistory(ctx, monitor.CheckRecord{
		MonitorID:  snap.ID,
		Success:    res.Success,
		StatusCode: res.StatusCode,
		ResponseMS: res.ResponseMS,
		Error:      res.Err,
		CheckedAt:  now,
	}); err != nil {
		p.logger.Error().
			Err(err).
			Str("monitor_id", snap.ID.String()).
			Msg("failed to append check history")
	}

	p.engine.Apply(ctx, incident.Transition{
		MonitorID:         snap.ID,
		TeamID:            snap.TeamID,
		MonitorName:       snap.Name,
		Target:            snap.Target,
		Previous:          prev,
		Current:           curr,
		Failures:          failures,
		AlertAfter:        snap.AlertAfter,
		CurrentIncidentID: snap.CurrentIncidentID,
		SSLNotifiedDay:    snap.SSLNotifiedDay,
		Err:               res.Err,
		SSL:               res.SSL,
		Now:               now,
	})
}
