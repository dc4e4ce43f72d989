package app

import (
	"context"
)

func StartConsumer(ctx context.Context, c *Container) {

	// runs as a separate goroutine, Consume ranges over the delivery channel
	go func() {
		if err := c.consumer.Consume(ctx, c.jobHandler); err != nil {
			c.Logger.Error().
				Err(err).
				Msg("rabbitmq consumer stopped")
		}
	}()
}
