package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricecast/internal/config"
)

const keyUpload = "sales:upload:%s"

// UploadLimiter throttles the bulk sales upload endpoints per client. A nil
// limiter (rate limiting disabled) allows everything.
type UploadLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewUploadLimiter(cfg config.Config) (*UploadLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.UploadRate <= 0 || limitCfg.UploadBurst <= 0 {
		return nil, errors.New("upload rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &UploadLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.UploadRate,
		burst:  limitCfg.UploadBurst,
	}, nil
}

func (l *UploadLimiter) Enabled() bool {
	return l != nil
}

func (l *UploadLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	key := fmt.Sprintf(keyUpload, strings.TrimSpace(clientKey))
	allowed, _, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	return allowed, err
}
