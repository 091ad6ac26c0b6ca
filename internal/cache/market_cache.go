package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/internal/config"
	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	competitorKeyPrefix   = "market:competitor"
	demandScoreKeyPrefix  = "market:demand_score"
	priceHistoryKeyPrefix = "market:price_history"
	marketScanBatchSize   = 100
)

// MarketCache is the read-through cache in front of the competitor price
// feed and the per-product analytics (demand score, price-change history).
// A miss falls through to the provider and populates the cache. There is no
// stampede protection; read volume does not warrant it.
type MarketCache interface {
	GetCompetitorPrices(ctx context.Context, productID int64) ([]domain.CompetitorPrice, bool, error)
	SetCompetitorPrices(ctx context.Context, productID int64, prices []domain.CompetitorPrice) error
	GetDemandScore(ctx context.Context, productID int64) (float64, bool, error)
	SetDemandScore(ctx context.Context, productID int64, score float64) error
	GetPriceChanges(ctx context.Context, productID int64) ([]domain.PriceChange, bool, error)
	SetPriceChanges(ctx context.Context, productID int64, changes []domain.PriceChange) error
	InvalidateProduct(ctx context.Context, productID int64) error
	InvalidateAll(ctx context.Context) error
}

type redisMarketCache struct {
	client          *redis.Client
	competitorTTL   time.Duration
	demandScoreTTL  time.Duration
	priceHistoryTTL time.Duration
}

type noopMarketCache struct{}

func NewMarketCache(cfg config.CacheConfig) (MarketCache, error) {
	if !cfg.Enabled {
		return &noopMarketCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisMarketCache{
		client:          client,
		competitorTTL:   ttlSeconds(cfg.CompetitorTTLSeconds),
		demandScoreTTL:  ttlSeconds(cfg.DemandScoreTTLSeconds),
		priceHistoryTTL: ttlSeconds(cfg.PriceHistoryTTLSeconds),
	}, nil
}

func NewNoopMarketCache() MarketCache {
	return &noopMarketCache{}
}

func (c *redisMarketCache) GetCompetitorPrices(ctx context.Context, productID int64) ([]domain.CompetitorPrice, bool, error) {
	var prices []domain.CompetitorPrice
	ok, err := c.get(ctx, competitorKey(productID), &prices)
	return prices, ok, err
}

func (c *redisMarketCache) SetCompetitorPrices(ctx context.Context, productID int64, prices []domain.CompetitorPrice) error {
	return c.set(ctx, competitorKey(productID), prices, c.competitorTTL)
}

func (c *redisMarketCache) GetDemandScore(ctx context.Context, productID int64) (float64, bool, error) {
	var score float64
	ok, err := c.get(ctx, demandScoreKey(productID), &score)
	return score, ok, err
}

func (c *redisMarketCache) SetDemandScore(ctx context.Context, productID int64, score float64) error {
	return c.set(ctx, demandScoreKey(productID), score, c.demandScoreTTL)
}

func (c *redisMarketCache) GetPriceChanges(ctx context.Context, productID int64) ([]domain.PriceChange, bool, error) {
	var changes []domain.PriceChange
	ok, err := c.get(ctx, priceHistoryKey(productID), &changes)
	return changes, ok, err
}

func (c *redisMarketCache) SetPriceChanges(ctx context.Context, productID int64, changes []domain.PriceChange) error {
	return c.set(ctx, priceHistoryKey(productID), changes, c.priceHistoryTTL)
}

func (c *redisMarketCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return c.client.Del(ctx,
		competitorKey(productID),
		demandScoreKey(productID),
		priceHistoryKey(productID),
	).Err()
}

func (c *redisMarketCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, "market:", marketScanBatchSize)
}

func (c *redisMarketCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode market cache entry: %w", err)
	}
	return true, nil
}

func (c *redisMarketCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode market cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopMarketCache) GetCompetitorPrices(ctx context.Context, productID int64) ([]domain.CompetitorPrice, bool, error) {
	return nil, false, nil
}

func (n *noopMarketCache) SetCompetitorPrices(ctx context.Context, productID int64, prices []domain.CompetitorPrice) error {
	return nil
}

func (n *noopMarketCache) GetDemandScore(ctx context.Context, productID int64) (float64, bool, error) {
	return 0, false, nil
}

func (n *noopMarketCache) SetDemandScore(ctx context.Context, productID int64, score float64) error {
	return nil
}

func (n *noopMarketCache) GetPriceChanges(ctx context.Context, productID int64) ([]domain.PriceChange, bool, error) {
	return nil, false, nil
}

func (n *noopMarketCache) SetPriceChanges(ctx context.Context, productID int64, changes []domain.PriceChange) error {
	return nil
}

func (n *noopMarketCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return nil
}

func (n *noopMarketCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func competitorKey(productID int64) string {
	return fmt.Sprintf("%s:%d", competitorKeyPrefix, productID)
}

func demandScoreKey(productID int64) string {
	return fmt.Sprintf("%s:%d", demandScoreKeyPrefix, productID)
}

func priceHistoryKey(productID int64) string {
	return fmt.Sprintf("%s:%d", priceHistoryKeyPrefix, productID)
}
