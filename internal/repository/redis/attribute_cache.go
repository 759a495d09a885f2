package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"

	"match-service/internal/client"
	"match-service/internal/model"
)

const attributePrefix = "user_attr:"

// AttributeCache records each user's currently declared attribute. The
// record is cleared when a fresh declaration cycle starts and on stop.
type AttributeCache struct {
	client *client.RedisClient
}

func NewAttributeCache(client *client.RedisClient) *AttributeCache {
	return &AttributeCache{client: client}
}

func (c *AttributeCache) Set(ctx context.Context, userID int64, attr model.Attribute) error {
	if err := c.client.Set(ctx, attributeKey(userID), string(attr), 0); err != nil {
		return fmt.Errorf("failed to set user attribute: %w", err)
	}
	return nil
}

func (c *AttributeCache) Get(ctx context.Context, userID int64) (model.Attribute, bool, error) {
	val, err := c.client.Get(ctx, attributeKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get user attribute: %w", err)
	}
	attr := model.Attribute(val)
	if !attr.Valid() {
		return "", false, nil
	}
	return attr, true, nil
}

func (c *AttributeCache) Clear(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, attributeKey(userID)); err != nil {
		return fmt.Errorf("failed to clear user attribute: %w", err)
	}
	return nil
}

func attributeKey(userID int64) string {
	return attributePrefix + strconv.FormatInt(userID, 10)
}
