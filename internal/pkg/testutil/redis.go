package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

func resolveTestRedis(t *testing.T) (string, string) {
	t.Helper()

	hosts := uniqueNonEmpty(env.GetEnv("CACHE_HOST", ""), "cache", "localhost", "127.0.0.1")
	ports := uniqueNonEmpty(env.GetEnv("CACHE_PORT", "6379"), "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, host := range hosts {
		for _, port := range ports {
			addr := fmt.Sprintf("%s:%s", host, port)
			client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			_, err := client.Ping(ctx).Result()
			cancel()
			_ = client.Close()
			if err == nil {
				return addr, password
			}
			lastErr = err
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return "", ""
}

func uniqueNonEmpty(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NewTestRedis returns a client on an empty Redis database db, or skips the
// test when no Redis server is reachable. The database is flushed again when
// the test ends, so packages running in parallel should use distinct dbs.
func NewTestRedis(t *testing.T, db int) *redis.Client {
	t.Helper()

	addr, password := resolveTestRedis(t)
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err := client.Ping(ctx).Result()
	cancel()
	if err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: isolated DB ping failed (%v)", err)
	}

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}
