package counter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jariassh/dropcost-master/internal/pkg/testutil"
)

const counterTestRedisDB = 13

func TestCounters_IncrAndSnapshot(t *testing.T) {
	c := New(testutil.NewTestRedis(t, counterTestRedisDB))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Incr(ctx, "payments_settled")
		}()
	}
	wg.Wait()
	c.Incr(ctx, "fx_fallback")

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap["payments_settled"])
	assert.Equal(t, int64(1), snap["fx_fallback"])
}

func TestCounters_Drain(t *testing.T) {
	c := New(testutil.NewTestRedis(t, counterTestRedisDB))
	ctx := context.Background()

	empty, err := c.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	c.Incr(ctx, "commission_credited")
	c.Incr(ctx, "commission_credited")

	drained, err := c.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), drained["commission_credited"])

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}
