package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poiselabs/poise/internal/domain"
)

// MarketCache implements domain.MarketCache with JSON-serialized MarketInfo
// values keyed by condition ID.
//
// Key schema:
//
//	market:{conditionID} - JSON-encoded domain.MarketInfo
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. Entries
// expire after ttl so abandoned markets age out of the cache.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	return &MarketCache{rdb: c.Underlying(), ttl: ttl}
}

func marketKey(conditionID string) string { return "market:" + conditionID }

// Set stores market info in the cache with the configured TTL.
func (mc *MarketCache) Set(ctx context.Context, info domain.MarketInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", info.ConditionID, err)
	}

	if err := mc.rdb.Set(ctx, marketKey(info.ConditionID), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", info.ConditionID, err)
	}
	return nil
}

// Get retrieves market info by condition ID. It returns domain.ErrNotFound
// when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, conditionID string) (domain.MarketInfo, error) {
	data, err := mc.rdb.Get(ctx, marketKey(conditionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketInfo{}, domain.ErrNotFound
		}
		return domain.MarketInfo{}, fmt.Errorf("redis: get market %s: %w", conditionID, err)
	}

	var info domain.MarketInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return domain.MarketInfo{}, fmt.Errorf("redis: unmarshal market %s: %w", conditionID, err)
	}
	return info, nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
