package entitlement

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task types for partner lifecycle events consumed by the worker.
const (
	TaskAPIKeyApproved     = "partner:apikey:approved"
	TaskAPIKeyUpdated      = "partner:apikey:updated"
	TaskPartnerUpdated     = "partner:updated"
	TaskPolicyUpdated      = "partner:policy:updated"
	TaskMispLicenseUpdated = "misp:license:updated"
)

// Event data section names, as published by the partner management service.
const (
	sectionPartnerData     = "partnerData"
	sectionAPIKeyData      = "apiKeyData"
	sectionPolicyData      = "policyData"
	sectionMispLicenseData = "mispLicenseData"
)

// topicTasks maps the externally published topic names to the worker task
// types they fan into.
var topicTasks = map[string]string{
	"APIKEY_APPROVED":      TaskAPIKeyApproved,
	"APIKEY_UPDATED":       TaskAPIKeyUpdated,
	"PARTNER_UPDATED":      TaskPartnerUpdated,
	"POLICY_UPDATED":       TaskPolicyUpdated,
	"MISP_LICENSE_UPDATED": TaskMispLicenseUpdated,
}

// TaskForTopic resolves the worker task type for an inbound callback topic.
func TaskForTopic(topic string) (string, bool) {
	taskType, ok := topicTasks[topic]
	return taskType, ok
}

// Event is the inner payload of a lifecycle notification. Data maps section
// names to the raw sub-documents for each record kind.
type Event struct {
	ID            string                     `json:"id"`
	TransactionID string                     `json:"transactionId"`
	Data          map[string]json.RawMessage `json:"data"`
}

// EventModel is the lifecycle notification envelope. Delivery semantics
// (ordering, at-least-once) are owned by the publisher, not this module.
type EventModel struct {
	Publisher   string    `json:"publisher"`
	Topic       string    `json:"topic"`
	PublishedOn time.Time `json:"publishedOn"`
	Event       Event     `json:"event"`
}

// section decodes one data sub-document into v. A missing section or a
// sub-document that does not convert to the expected record shape is a
// payload deserialization failure.
func (m *EventModel) section(name string, v any) error {
	raw, ok := m.Event.Data[name]
	if !ok {
		return newPayloadError(name, nil)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newPayloadError(name, err)
	}
	return nil
}

// NewSyncTask wraps a lifecycle event into an asynq task of the given type.
func NewSyncTask(taskType string, m EventModel) (*asynq.Task, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	), nil
}
