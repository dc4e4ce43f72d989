package schedule

import (
	"context"
	"time"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/redisstore"

	"github.com/google/uuid"
)

// RedisState backs the State contract with the redis hash per monitor, so
// queue-mode consumers on different processes agree on the failure streak.
type RedisState struct {
	store *redisstore.Client
}

func NewRedisState(store *redisstore.Client) *RedisState {
	return &RedisState{store: store}
}

func (r *RedisState) Record(ctx context.Context, monitorID uuid.UUID, success bool, responseMS int64, checkedAt time.Time) (monitor.Status, int, error) {
	prev, failures, err := r.store.RecordCheckState(ctx, monitorID, success, responseMS, checkedAt)
	if err != nil {
		return monitor.StatusPending, 0, err
	}
	return monitor.Status(prev), int(failures), nil
}
