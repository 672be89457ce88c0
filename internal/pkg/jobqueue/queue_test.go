package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueueWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), tt.workers)

			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.NotNil(t, queue.handlers)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestQueue_EnqueueJob_PipelineError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:0",
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolTimeout:  100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	queue := NewQueueWithClient(client, 1)

	job, err := queue.EnqueueJob(context.Background(), JobTypeSendNotification, map[string]interface{}{"k": "v"})
	require.Error(t, err)
	assert.Nil(t, job)
}

func TestQueue_EnqueueJob(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job, err := queue.EnqueueJob(ctx, JobTypeArchivePayment, map[string]interface{}{"external_id": "PAY-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)

	size, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	stored, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobTypeArchivePayment, stored.Type)

	stats, err := queue.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusPending])
}

func TestQueue_ProcessJob_Success(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	var seen string
	queue.RegisterHandler(JobTypeSendNotification, func(_ context.Context, job *Job) error {
		seen = job.ID
		return nil
	})

	created, err := EnqueueNotification(ctx, queue, "SUBSCRIPTION_ACTIVATED", map[string]string{"user_id": "U1"})
	require.NoError(t, err)

	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	queue.processJob(ctx, job)

	assert.Equal(t, created.ID, seen)
	_, err = queue.GetJob(ctx, created.ID)
	assert.ErrorIs(t, err, redis.Nil)

	processing, err := queue.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, processing)

	stats, err := queue.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusCompleted])
}

func TestQueue_NotificationIsNotRetried(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	calls := 0
	queue.RegisterHandler(JobTypeSendNotification, func(context.Context, *Job) error {
		calls++
		return errors.New("smtp down")
	})

	created, err := EnqueueNotification(ctx, queue, "SUBSCRIPTION_ACTIVATED", map[string]string{"user_id": "U1"})
	require.NoError(t, err)
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	queue.processJob(ctx, job)

	assert.Equal(t, 1, calls)
	stored, err := queue.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, "smtp down", stored.ErrorMsg)

	size, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, size)

	stats, err := queue.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusFailed])
}

func TestQueue_ArchiveIsRetried(t *testing.T) {
	queue, ctx := setupRedisQueue(t)
	prev := retryDelay
	retryDelay = 10 * time.Millisecond
	t.Cleanup(func() { retryDelay = prev })

	queue.RegisterHandler(JobTypeArchivePayment, func(context.Context, *Job) error {
		return errors.New("bucket unavailable")
	})

	created, err := queue.EnqueueJob(ctx, JobTypeArchivePayment, map[string]interface{}{"external_id": "PAY-1"})
	require.NoError(t, err)
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	queue.processJob(ctx, job)

	stored, err := queue.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	assert.Eventually(t, func() bool {
		size, err := queue.GetQueueSize(ctx)
		return err == nil && size == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueue_UnknownJobType(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	created, err := queue.EnqueueJob(ctx, JobTypeSendNotification, map[string]interface{}{"event": "X"})
	require.NoError(t, err)
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	queue.processJob(ctx, job)

	stored, err := queue.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMsg, ErrNoHandler.Error())
}

func TestQueue_SweepStuck(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	notification, err := EnqueueNotification(ctx, queue, "SUBSCRIPTION_ACTIVATED", map[string]string{"user_id": "U1"})
	require.NoError(t, err)
	archive, err := queue.EnqueueJob(ctx, JobTypeArchivePayment, map[string]interface{}{"external_id": "PAY-1"})
	require.NoError(t, err)

	// Simulate a worker that crashed mid-job for both.
	for i := 0; i < 2; i++ {
		job, err := queue.dequeueJob(ctx)
		require.NoError(t, err)
		job.MarkAsProcessing()
		queue.updateJob(ctx, job)
	}

	queue.sweepStuck(ctx, time.Now().Add(time.Hour), 10*time.Minute)

	processing, err := queue.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, processing)

	pending, err := queue.client.LRange(ctx, JobQueueKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{archive.ID}, pending)

	dropped, err := queue.GetJob(ctx, notification.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, dropped.Status)

	recovered, err := queue.GetJob(ctx, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, recovered.Status)
}

func TestQueue_StartStopProcessesJobs(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	done := make(chan string, 1)
	queue.RegisterHandler(JobTypeSendNotification, func(_ context.Context, job *Job) error {
		done <- job.ID
		return nil
	})

	queue.Start()
	assert.True(t, queue.running)

	created, err := EnqueueNotification(ctx, queue, "REFERRAL_COMMISSION_EARNED", map[string]string{"user_id": "R1"})
	require.NoError(t, err)

	select {
	case id := <-done:
		assert.Equal(t, created.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}

	queue.Stop()
	assert.False(t, queue.running)
}
