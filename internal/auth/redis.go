package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ RevocationStore = (*RedisRevocations)(nil)

// RedisRevocations keeps revoked token digests in Redis with a TTL
// matching the token's remaining lifetime, so entries disappear on
// their own and no sweep is needed.
type RedisRevocations struct {
	client *redis.Client
}

// OpenRedisRevocations connects to Redis and verifies the connection.
func OpenRedisRevocations(ctx context.Context, redisURL string) (*RedisRevocations, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisRevocations{client: client}, nil
}

func (r *RedisRevocations) Close() error { return r.client.Close() }

func revocationKey(digest string) string { return "revoked:" + digest }

func (r *RedisRevocations) Revoke(ctx context.Context, digest string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past natural expiry; nothing to track.
		return nil
	}
	return r.client.Set(ctx, revocationKey(digest), "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, digest string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(digest)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: Redis expires entries natively.
func (r *RedisRevocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
