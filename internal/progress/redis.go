package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds Redis tracker settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// DefaultRedisConfig returns the default tracker settings. The TTL bounds
// how long a stale marker can outlive a crashed stage execution.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		TTL:  10 * time.Minute,
	}
}

// RedisTracker stores markers in Redis so status queries survive process
// restarts and work across replicas.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig, logger *zap.Logger) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRedisConfig().TTL
	}
	return &RedisTracker{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "progress")),
	}, nil
}

func key(conversationID string) string {
	return "roundwise:progress:" + conversationID
}

func (t *RedisTracker) Set(ctx context.Context, conversationID, stage string) error {
	return t.client.Set(ctx, key(conversationID), stage, t.ttl).Err()
}

func (t *RedisTracker) Clear(ctx context.Context, conversationID string) error {
	return t.client.Del(ctx, key(conversationID)).Err()
}

func (t *RedisTracker) Get(ctx context.Context, conversationID string) (string, error) {
	val, err := t.client.Get(ctx, key(conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Close releases the Redis connection.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}
