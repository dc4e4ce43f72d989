package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Per-monitor check state for the queue-backed execution mode. The inflight
// visibility window guarantees a single consumer per monitor at a time, so
// the read-modify-write here is not racing with itself.

func stateKey(monitorID uuid.UUID) string {
	return fmt.Sprintf("monitor:state:%v", monitorID)
}

// RecordCheckState stores the outcome of one check and returns the previous
// status plus the consecutive failure count after this check.
func (c *Client) RecordCheckState(ctx context.Context, monitorID uuid.UUID, success bool, responseMS int64, checkedAt time.Time) (string, int64, error) {
	key := stateKey(monitorID)

	prev, err := c.rdb.HGet(ctx, key, "status").Result()
	if errors.Is(err, redis.Nil) {
		prev = "pending"
	} else if err != nil {
		return "", 0, err
	}

	var failures int64

	err = retry(ctx, 2, func() error {
		if success {
			return c.rdb.HSet(ctx, key,
				"status", "up",
				"failures", 0,
				"response_ms", responseMS,
				"checked_at", checkedAt.UnixMilli(),
			).Err()
		}

		var hErr error
		failures, hErr = c.rdb.HIncrBy(ctx, key, "failures", 1).Result()
		if hErr != nil {
			return hErr
		}
		return c.rdb.HSet(ctx, key,
			"status", "down",
			"response_ms", responseMS,
			"checked_at", checkedAt.UnixMilli(),
		).Err()
	})
	if err != nil {
		return "", 0, err
	}

	return prev, failures, nil
}

func (c *Client) ClearCheckState(ctx context.Context, monitorID uuid.UUID) error {
	return retry(ctx, 2, func() error {
		return c.rdb.Del(ctx, stateKey(monitorID)).Err()
	})
}
