// Package cache provides the Redis-backed cache for monthly reports.
// The cache is read-through: services try it first and fall back to a fresh
// aggregation, and every re-analysis invalidates the upload's keys.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sellerledger/backend-go/internal/config"
	"github.com/sellerledger/backend-go/internal/engine"
)

const reportKeyPrefix = "pnl:report:"

// ReportCache stores computed monthly reports keyed by upload.
type ReportCache interface {
	GetReport(ctx context.Context, uploadID int64, marketplace string) (*engine.Report, bool)
	SetReport(ctx context.Context, uploadID int64, marketplace string, report *engine.Report)
	// InvalidateUpload drops every cached report derived from the upload.
	InvalidateUpload(ctx context.Context, uploadID int64)
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache builds the cache from configuration. When caching is
// disabled or Redis is unreachable, a no-op cache is returned so callers
// never have to branch.
func NewReportCache(cfg config.CacheConfig) ReportCache {
	if !cfg.Enabled {
		return NoopReportCache{}
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("report cache disabled, redis unavailable")
		return NoopReportCache{}
	}

	log.Info().Dur("ttl", ttl).Msg("report cache enabled")
	return &redisReportCache{client: client, ttl: ttl}
}

func reportKey(uploadID int64, marketplace string) string {
	return fmt.Sprintf("%s%d:%s", reportKeyPrefix, uploadID, marketplace)
}

func (c *redisReportCache) GetReport(ctx context.Context, uploadID int64, marketplace string) (*engine.Report, bool) {
	payload, err := c.client.Get(ctx, reportKey(uploadID, marketplace)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Int64("upload_id", uploadID).Msg("report cache read failed")
		return nil, false
	}

	var report engine.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		log.Warn().Err(err).Int64("upload_id", uploadID).Msg("report cache entry corrupt, dropping")
		c.InvalidateUpload(ctx, uploadID)
		return nil, false
	}
	return &report, true
}

func (c *redisReportCache) SetReport(ctx context.Context, uploadID int64, marketplace string, report *engine.Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Int64("upload_id", uploadID).Msg("could not encode report for cache")
		return
	}
	if err := c.client.Set(ctx, reportKey(uploadID, marketplace), payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Int64("upload_id", uploadID).Msg("report cache write failed")
	}
}

func (c *redisReportCache) InvalidateUpload(ctx context.Context, uploadID int64) {
	prefix := fmt.Sprintf("%s%d:", reportKeyPrefix, uploadID)
	if err := deleteKeysWithPrefix(ctx, c.client, prefix, 100); err != nil {
		log.Warn().Err(err).Int64("upload_id", uploadID).Msg("report cache invalidation failed")
	}
}

// NoopReportCache satisfies ReportCache without storing anything.
type NoopReportCache struct{}

func (NoopReportCache) GetReport(context.Context, int64, string) (*engine.Report, bool) {
	return nil, false
}
func (NoopReportCache) SetReport(context.Context, int64, string, *engine.Report) {}
func (NoopReportCache) InvalidateUpload(context.Context, int64)                  {}
