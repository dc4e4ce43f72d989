package check

import (
	"context"
	"fmt"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/robfig/cron/v3"
)

// Heartbeat and cronjob monitors are passive: no outbound probe is made.
// The executors compare "now" against the last inbound ping recorded by
// the public ping endpoints.

type HeartbeatExecutor struct{}

func NewHeartbeatExecutor() *HeartbeatExecutor {
	return &HeartbeatExecutor{}
}

func (e *HeartbeatExecutor) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	now := time.Now()

	if snap.LastHeartbeat.IsZero() {
		return failure(0, "no heartbeat received yet")
	}

	window := time.Duration(snap.HeartbeatIntervalSec+snap.GraceSec) * time.Second
	elapsed := now.Sub(snap.LastHeartbeat)

	if elapsed <= window {
		return Result{Success: true}
	}

	return failure(0, fmt.Sprintf(
		"no heartbeat for %s (expected every %ds, grace %ds)",
		elapsed.Round(time.Second), snap.HeartbeatIntervalSec, snap.GraceSec,
	))
}

type CronjobExecutor struct{}

func NewCronjobExecutor() *CronjobExecutor {
	return &CronjobExecutor{}
}

func (e *CronjobExecutor) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	now := time.Now()

	sched, err := cron.ParseStandard(snap.CronExpr)
	if err != nil {
		// validated before activation, only reachable after an out-of-band edit
		return failure(0, fmt.Sprintf("invalid cron expression %q: %v", snap.CronExpr, err))
	}

	if snap.LastCronRun.IsZero() {
		return failure(0, "no cron run reported yet")
	}

	grace := time.Duration(snap.GraceSec) * time.Second
	deadline := sched.Next(snap.LastCronRun).Add(grace)

	if now.Before(deadline) || now.Equal(deadline) {
		return Result{Success: true}
	}

	return failure(0, fmt.Sprintf("cron run overdue, expected by %s", deadline.UTC().Format(time.RFC3339)))
}
