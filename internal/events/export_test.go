package events

import (
	"context"

	rediscommon "incapacity-claims/common/redis"
)

func consumerGroup(ctx context.Context, c *StreamConsumer) error {
	return rediscommon.CreateConsumerGroup(ctx, c.client, c.stream, c.group)
}
