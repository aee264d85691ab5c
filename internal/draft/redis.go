package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "offer:draft:"

// RedisStore keeps drafts in redis with a TTL equal to the restore window,
// so stale drafts expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a draft store. A non-positive ttl uses DefaultWindow.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultWindow
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			return nil, fmt.Errorf("redis ping failed: %w (also failed to close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Save writes the snapshot for id and resets its TTL.
func (s *RedisStore) Save(ctx context.Context, id string, snap Snapshot) error {
	snap.SavedAt = snap.SavedAt.UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Load returns the snapshot for id.
func (s *RedisStore) Load(ctx context.Context, id string) (Snapshot, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading draft: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding draft: %w", err)
	}
	return snap, nil
}

// Delete removes the draft for id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}
