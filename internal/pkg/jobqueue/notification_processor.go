package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// NotificationSender delivers one rendered event to its recipient.
type NotificationSender interface {
	Send(ctx context.Context, event string, data map[string]string) error
}

// NewNotificationHandler returns the handler for send_notification jobs.
func NewNotificationHandler(sender NotificationSender) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := NotificationJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}
		if payload.Event == "" {
			return fmt.Errorf("notification job %s has no event", job.ID)
		}

		if err := sender.Send(ctx, payload.Event, payload.Data); err != nil {
			return fmt.Errorf("send %s: %w", payload.Event, err)
		}
		log.Infof("[JobQueue] Delivered %s for user %s", payload.Event, payload.Data["user_id"])
		return nil
	}
}

// EnqueueNotification queues a single delivery attempt of event.
func EnqueueNotification(ctx context.Context, q *Queue, event string, data map[string]string) (*Job, error) {
	payload := NotificationJobPayload{Event: event, Data: data}
	return q.EnqueueJob(ctx, JobTypeSendNotification, payload.ToMap())
}
