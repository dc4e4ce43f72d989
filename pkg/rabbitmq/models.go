package rabbitmq

import (
	"github.com/google/uuid"
)

// CheckJob is the wire payload for one scheduled check in queue mode.
// Retries happen inside the consumer, so the payload carries only the
// monitor identity.
type CheckJob struct {
	MonitorID uuid.UUID `json:"monitor_id"`
}
