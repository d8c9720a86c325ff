package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this service writes
const keyPrefix = "webdriver:"

// RedisClient wraps the redis client with helper methods
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient connects to Redis and verifies the connection with PING
func NewRedisClient(addr string, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 2,

		// Timeout settings
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ping tests the connection
func (r *RedisClient) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

func sessionKey(sessionID string) string {
	return keyPrefix + "session:" + sessionID
}

func capabilitiesKey(sessionID string) string {
	return sessionKey(sessionID) + ":capabilities"
}

func activeSessionsKey() string {
	return keyPrefix + "sessions:active"
}

// sessionNameKey holds the id of the session owning name. Each name has its
// own key so it can expire together with the session hash.
func sessionNameKey(name string) string {
	return keyPrefix + "session_name:" + name
}
