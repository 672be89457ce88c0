package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/jariassh/dropcost-master/internal/pkg/cache"
)

const billingCountersKey = "billing:counters"

// Counters keeps monitoring counters in a Redis hash, one field per name.
type Counters struct {
	client *redis.Client
	key    string
}

// New returns counters stored under billing:counters.
func New(client *redis.Client) *Counters {
	return &Counters{client: client, key: billingCountersKey}
}

// Default uses the shared cache client.
func Default() *Counters {
	return New(cache.GetClient())
}

// Incr adds one to name. Redis errors are logged, not returned.
func (c *Counters) Incr(ctx context.Context, name string) {
	if err := c.client.HIncrBy(ctx, c.key, name, 1).Err(); err != nil {
		log.Warnf("[Counters] failed to increment %s: %v", name, err)
	}
}

// Snapshot returns the current value of every counter.
func (c *Counters) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// Drain returns the counters and resets them. Increments that race with the
// drain land in the fresh hash.
func (c *Counters) Drain(ctx context.Context) (map[string]int64, error) {
	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", c.key, time.Now().UnixNano())
	if err := c.client.Rename(ctx, c.key, tmpKey).Err(); err != nil {
		if isNoSuchKey(err) {
			return map[string]int64{}, nil
		}
		return nil, err
	}
	defer c.client.Del(ctx, tmpKey)

	data, err := c.client.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

func parseCounts(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for name, raw := range data {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[name] = n
	}
	return out
}

func isNoSuchKey(err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such key")
}
