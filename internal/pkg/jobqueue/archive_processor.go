package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jariassh/dropcost-master/internal/pkg/s3archive"
)

// ObjectStore is the part of the archive bucket client the processor needs.
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, body []byte) error
}

// NewArchiveHandler returns the handler for archive_payment jobs.
func NewArchiveHandler(store ObjectStore) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := ArchivePaymentJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid archive payload: %w", err)
		}
		if payload.ExternalID == "" || payload.RawJSON == "" {
			return fmt.Errorf("archive job %s is missing payment data", job.ID)
		}

		settledAt := payload.SettledAt
		if settledAt.IsZero() {
			settledAt = job.CreatedAt
		}
		key := s3archive.ObjectKey(payload.ExternalID, settledAt.UTC())
		return store.PutJSON(ctx, key, []byte(payload.RawJSON))
	}
}

// PaymentArchiver queues archive_payment jobs for settled payments.
type PaymentArchiver struct {
	Queue *Queue
	Now   func() time.Time
}

// ArchivePayment enqueues the raw gateway JSON of a settled payment.
func (a *PaymentArchiver) ArchivePayment(ctx context.Context, externalID string, raw []byte) error {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	payload := ArchivePaymentJobPayload{
		ExternalID: externalID,
		RawJSON:    string(raw),
		SettledAt:  now(),
	}
	_, err := a.Queue.EnqueueJob(ctx, JobTypeArchivePayment, payload.ToMap())
	return err
}
