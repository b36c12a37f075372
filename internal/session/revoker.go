package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/student-auth/studentauth/internal/errors"
)

// Revoker records revoked token ids.
type Revoker interface {
	// Revoke marks the token id as revoked for ttl.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether the token id has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker keeps revoked ids in process memory.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevoker creates an empty in-memory revocation list.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks the token id as revoked.
func (r *MemoryRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, until := range r.revoked {
		if !now.Before(until) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether the token id is still revoked.
func (r *MemoryRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.revoked[tokenID]
	return ok && r.now().Before(until), nil
}

// RedisRevoker stores revoked ids in Redis with a TTL, so the list is
// shared between server instances and cleans itself up.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisRevoker creates a revoker backed by the given client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "studentauth:revoked:"}
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.NewServerUnavailable(addr, fmt.Sprintf("redis ping failed: %v", err))
	}
	return client, nil
}

// Revoke marks the token id as revoked.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}

// Ping checks the Redis connection.
func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
