package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/errors"
)

// RedisConfig configures the Redis snapshot backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address  string
	Password string
	Database int

	// Prefix is prepended to all keys (e.g., "bpmnctx:")
	Prefix string

	// TTL is the time-to-live for record keys (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	PoolSize     int
	MinIdleConns int
}

// RedisConfigFrom builds a RedisConfig from the store config section.
func RedisConfigFrom(cfg config.RedisStoreConfig) RedisConfig {
	return RedisConfig{
		Address:      cfg.Addr,
		Password:     cfg.Password,
		Database:     cfg.DB,
		Prefix:       cfg.Prefix,
		TTL:          cfg.TTL,
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisBackend stores records as JSON strings with a sorted-set index
// scored by creation time.
type RedisBackend struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		// CLIENT SETINFO is unknown before Redis 7.2
		DisableIndentity: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, storeFailed(err, "redis", "connect", "")
	}

	return &RedisBackend{
		cfg:    cfg,
		client: client,
	}, nil
}

func (b *RedisBackend) key(id string) string {
	return b.cfg.Prefix + "snapshot:" + id
}

func (b *RedisBackend) indexKey() string {
	return b.cfg.Prefix + "index"
}

// Save writes the record and its index entry in one pipeline.
func (b *RedisBackend) Save(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return storeFailed(err, b.Name(), "marshal record", rec.ID)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.key(rec.ID), data, b.cfg.TTL)
	pipe.ZAdd(ctx, b.indexKey(), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return storeFailed(err, b.Name(), "save record", rec.ID)
	}
	return nil
}

// Load retrieves a record.
func (b *RedisBackend) Load(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.SnapshotNotFound(b.Name(), id)
		}
		return nil, storeFailed(err, b.Name(), "load record", id)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storeFailed(err, b.Name(), "decode record", id)
	}
	return &rec, nil
}

// Delete removes the record and its index entry.
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	pipe := b.client.TxPipeline()
	del := pipe.Del(ctx, b.key(id))
	pipe.ZRem(ctx, b.indexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return storeFailed(err, b.Name(), "delete record", id)
	}
	if del.Val() == 0 {
		return errors.SnapshotNotFound(b.Name(), id)
	}
	return nil
}

// List walks the index oldest first. Expired records are pruned from the index.
func (b *RedisBackend) List(ctx context.Context) ([]*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	ids, err := b.client.ZRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, storeFailed(err, b.Name(), "list records", "")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.key(id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeFailed(err, b.Name(), "list records", "")
	}

	var records []*Record
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	if len(stale) > 0 {
		b.client.ZRem(ctx, b.indexKey(), stale...)
	}

	sortRecords(records)
	return records, nil
}

// Name returns "redis".
func (b *RedisBackend) Name() string {
	return "redis"
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	return b.client.Ping(ctx).Err()
}
