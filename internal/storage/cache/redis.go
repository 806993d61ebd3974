package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/vadiminshakov/sbl/internal/sbscan"
)

const (
	keyPrefix = "sbl:scan:"
	// batches outlive their freshness window so they can serve as a stale fallback
	retention = 24 * time.Hour
)

// RedisStore shares the scan batch between instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addr)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (sbscan.Batch, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sbscan.Batch{}, false, nil
		}
		return sbscan.Batch{}, false, errors.Wrap(err, "redis get failed")
	}

	var batch sbscan.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return sbscan.Batch{}, false, errors.Wrap(err, "failed to decode cached batch")
	}

	return batch, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, batch sbscan.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return errors.Wrap(err, "failed to encode batch")
	}

	if err := s.client.Set(ctx, keyPrefix+key, data, retention).Err(); err != nil {
		return errors.Wrap(err, "redis set failed")
	}

	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
