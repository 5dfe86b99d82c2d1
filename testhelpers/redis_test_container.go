package testhelpers

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RedisContainer struct {
	*redis.RedisContainer
	ConnectionString string
}

func CreateRedisContainer(ctx context.Context) (*RedisContainer, error) {
	redisContainer, err := redis.Run(ctx,
		"redis:7.2",
		redis.WithLogLevel(redis.LogLevelVerbose),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis container: %w", err)
	}
	host, err := redisContainer.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}

	mappedPort, err := redisContainer.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to get redis mapped port: %w", err)
	}

	return &RedisContainer{
		RedisContainer:   redisContainer,
		ConnectionString: fmt.Sprintf("%s:%s", host, mappedPort.Port()),
	}, nil
}

// NewClient returns a client bound to the container, capped at 10mb with LRU
// eviction like the deployed instance.
func (c *RedisContainer) NewClient(ctx context.Context) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr: c.ConnectionString,
		DB:   0,
	})
	client.ConfigSet(ctx, "maxmemory", "10mb")
	client.ConfigSet(ctx, "maxmemory-policy", "allkeys-lru")
	return client
}
