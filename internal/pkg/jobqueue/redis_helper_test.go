package jobqueue

import (
	"context"
	"testing"

	"github.com/jariassh/dropcost-master/internal/pkg/testutil"
)

const isolatedJobQueueTestRedisDB = 14

func setupRedisQueue(t *testing.T) (*Queue, context.Context) {
	t.Helper()
	client := testutil.NewTestRedis(t, isolatedJobQueueTestRedisDB)
	return NewQueueWithClient(client, 1), context.Background()
}
