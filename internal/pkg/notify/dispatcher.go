package notify

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/jariassh/dropcost-master/internal/pkg/jobqueue"
)

const defaultEnqueueTimeout = 5 * time.Second

// Enqueuer is the slice of the job queue the dispatcher uses.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// FailureCounter counts notifications that never reached the queue.
type FailureCounter interface {
	Incr(ctx context.Context, name string)
}

// Dispatcher hands user-facing events to the job queue from a detached
// goroutine so the caller never waits on Redis.
type Dispatcher struct {
	queue   Enqueuer
	metrics FailureCounter
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(queue Enqueuer, metrics FailureCounter) *Dispatcher {
	return &Dispatcher{queue: queue, metrics: metrics, timeout: defaultEnqueueTimeout}
}

// Dispatch queues a single send_notification job for event. Failures are
// logged and counted, never returned.
func (d *Dispatcher) Dispatch(event string, payload map[string]string) {
	data := make(map[string]string, len(payload))
	for k, v := range payload {
		data[k] = v
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("[Notify] panic while dispatching %s: %v", event, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		job := jobqueue.NotificationJobPayload{Event: event, Data: data}
		if _, err := d.queue.EnqueueJob(ctx, jobqueue.JobTypeSendNotification, job.ToMap()); err != nil {
			log.Errorf("[Notify] failed to queue %s for user %s: %v", event, data["user_id"], err)
			if d.metrics != nil {
				d.metrics.Incr(ctx, "notification_failed")
			}
		}
	}()
}

// Wait blocks until every dispatched event has been handed to the queue or
// has failed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
