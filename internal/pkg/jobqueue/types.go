package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSendNotification JobType = "send_notification"
	JobTypeArchivePayment   JobType = "archive_payment"
)

// MaxRetries returns how often a failed job of this type is retried.
// Notifications are at-most-once.
func (t JobType) MaxRetries() int {
	switch t {
	case JobTypeSendNotification:
		return 0
	default:
		return DefaultMaxRetries
	}
}

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// NotificationJobPayload carries one user-facing event.
type NotificationJobPayload struct {
	Event string            `json:"event"`
	Data  map[string]string `json:"data"`
}

// ToMap converts the payload to a map for storage
func (p NotificationJobPayload) ToMap() map[string]interface{} {
	data := make(map[string]interface{}, len(p.Data))
	for k, v := range p.Data {
		data[k] = v
	}
	return map[string]interface{}{
		"event": p.Event,
		"data":  data,
	}
}

// NotificationJobPayloadFromMap creates a payload from a map
func NotificationJobPayloadFromMap(data map[string]interface{}) (*NotificationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload NotificationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ArchivePaymentJobPayload contains the authoritative gateway JSON of a
// settled payment.
type ArchivePaymentJobPayload struct {
	ExternalID string    `json:"external_id"`
	RawJSON    string    `json:"raw_json"`
	SettledAt  time.Time `json:"settled_at"`
}

// ToMap converts the payload to a map for storage
func (p ArchivePaymentJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"external_id": p.ExternalID,
		"raw_json":    p.RawJSON,
		"settled_at":  p.SettledAt.UTC().Format(time.RFC3339Nano),
	}
}

// ArchivePaymentJobPayloadFromMap creates a payload from a map
func ArchivePaymentJobPayloadFromMap(data map[string]interface{}) (*ArchivePaymentJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ArchivePaymentJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount <= j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
