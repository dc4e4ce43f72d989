package monitor

import (
	"context"
	"time"

	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// PingStore is the slice of the repository the passive-ping service needs.
type PingStore interface {
	RecordHeartbeat(ctx context.Context, token string, at time.Time) (uuid.UUID, error)
	RecordCronRun(ctx context.Context, token string, at time.Time, status string, durationMS int64) (uuid.UUID, string, error)
}

type Service struct {
	store  PingStore
	logger *zerolog.Logger
}

func NewService(store PingStore, logger *zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// RecordHeartbeat handles an inbound heartbeat ping. The heartbeat executor
// reads the last_heartbeat field this writes.
func (s *Service) RecordHeartbeat(ctx context.Context, token string) (uuid.UUID, error) {
	return s.store.RecordHeartbeat(ctx, token, time.Now())
}

// RecordCronRun handles an inbound cronjob run report and computes when the
// next run is expected from the monitor's cron expression.
func (s *Service) RecordCronRun(ctx context.Context, token string, status string, durationMS int64) (CronRunAck, error) {
	const op string = "service.monitor.record_cron_run"

	now := time.Now()
	monitorID, expr, err := s.store.RecordCronRun(ctx, token, now, status, durationMS)
	if err != nil {
		return CronRunAck{}, err
	}

	sched, err := cron.ParseStandard(expr)
	if err != nil {
		// expression was validated before the monitor went active, so a
		// parse failure here means the row was mutated out of band
		s.logger.Error().Err(err).Str("monitor_id", monitorID.String()).Msg("stored cron expression no longer parses")
		return CronRunAck{}, apperror.New(apperror.Internal, op, err)
	}

	return CronRunAck{
		MonitorID:       monitorID,
		NextExpectedRun: sched.Next(now),
	}, nil
}
