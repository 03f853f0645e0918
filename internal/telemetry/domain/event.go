package domain

import (
	"encoding/json"
	"time"
)

// Event types emitted by the provisioning orchestrator.
const (
	EventStepCompleted         = "provisioning.step_completed"
	EventProvisioningSucceeded = "provisioning.succeeded"
	EventProvisioningFailed    = "provisioning.failed"
)

// SourceProvisioner is the Source of events emitted by cmd/provision.
const SourceProvisioner = "provisioner"

// Event is a provisioning telemetry event. The JSON form is the Kafka message value.
type Event struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	RunID      string          `json:"runId,omitempty"`
	EventType  string          `json:"eventType"`
	Source     string          `json:"source"`
	Step       string          `json:"step,omitempty"`
	ItemID     int64           `json:"itemId,omitempty"`
	Error      string          `json:"error,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
