// Package ratelimit bounds the ingest endpoint with redis token buckets,
// keyed per tenant and for the endpoint as a whole. When disabled the
// limiter allows everything, so redis stays optional at runtime.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docupulse/docupulse/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyUsageIngestTenant   = "usage:ingest:tenant:%s"
	keyUsageIngestEndpoint = "usage:ingest:endpoint"
)

type UsageIngestLimiter struct {
	enabled bool

	bucket *TokenBucket

	tenantRate    float64
	tenantBurst   int
	endpointRate  float64
	endpointBurst int
}

func NewUsageIngestLimiter(cfg config.Config) (*UsageIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.IngestTenantRate <= 0 || limitCfg.IngestTenantBurst <= 0 {
		return nil, errors.New("usage ingest tenant rate limit must be positive")
	}
	if limitCfg.IngestEndpointRate <= 0 || limitCfg.IngestEndpointBurst <= 0 {
		return nil, errors.New("usage ingest endpoint rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &UsageIngestLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		tenantRate:    limitCfg.IngestTenantRate,
		tenantBurst:   limitCfg.IngestTenantBurst,
		endpointRate:  limitCfg.IngestEndpointRate,
		endpointBurst: limitCfg.IngestEndpointBurst,
	}, nil
}

func (l *UsageIngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *UsageIngestLimiter) AllowTenant(ctx context.Context, tenantID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUsageIngestTenant, strings.TrimSpace(tenantID)), l.tenantRate, l.tenantBurst)
}

func (l *UsageIngestLimiter) AllowEndpoint(ctx context.Context) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, keyUsageIngestEndpoint, l.endpointRate, l.endpointBurst)
}
