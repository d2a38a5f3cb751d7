package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/landworks/cadastre/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyPaymentActor = "payment:apply:actor:%s"

// PaymentLimiter throttles payment application per acting user. It is
// disabled entirely when no redis address is configured.
type PaymentLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewPaymentLimiter(cfg config.Config) (*PaymentLimiter, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, nil
	}
	if cfg.PaymentRateLimit <= 0 || cfg.PaymentRateWindow <= 0 {
		return nil, fmt.Errorf("payment rate limit must be positive, got %d per %ds", cfg.PaymentRateLimit, cfg.PaymentRateWindow)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	window := time.Duration(cfg.PaymentRateWindow) * time.Second
	return &PaymentLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(cfg.PaymentRateLimit) / window.Seconds(),
		burst:   int(cfg.PaymentRateLimit),
	}, nil
}

func (l *PaymentLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *PaymentLimiter) AllowActor(ctx context.Context, actorID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPaymentActor, strings.TrimSpace(actorID)), l.rate, l.burst)
}
