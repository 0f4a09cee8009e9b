package security

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist 记录已注销的令牌，键在令牌过期后由 redis 自动清除
type RedisDenylist struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedisDenylist(client *redis.Client, prefix string, timeout time.Duration) *RedisDenylist {
	return &RedisDenylist{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
	}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// 已经过期的令牌无需记录
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.client.Set(ctx, d.prefix+tokenID, 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
