package monitor

import "github.com/google/uuid"

type CronRunRequest struct {
	Status     string `json:"status" validate:"omitempty,oneof=success failure"`
	DurationMS int64  `json:"duration_ms" validate:"min=0"`
}

type HeartbeatResponse struct {
	MonitorID uuid.UUID `json:"monitor_id"`
}
