package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies alerts and drives the escalation action map.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// AlertMetadata carries the measurement that raised the alert. Typed
// fields instead of a free-form blob so the collaborator boundary can
// validate them.
type AlertMetadata struct {
	Metric    string  `json:"metric,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Alert is a time-stamped severity-classified event referencing a device.
type Alert struct {
	ID           uuid.UUID     `json:"id"`
	DeviceID     uuid.UUID     `json:"device_id"`
	Hostname     string        `json:"hostname"`
	Severity     Severity      `json:"severity"`
	Message      string        `json:"message"`
	TriggeredAt  time.Time     `json:"triggered_at"`
	Acknowledged bool          `json:"acknowledged"`
	Active       bool          `json:"active"`
	Metadata     AlertMetadata `json:"metadata"`

	// Escalation idempotency marker, analogous to the ticket's.
	Escalated          bool       `json:"escalated"`
	EscalationTicketID *uuid.UUID `json:"escalation_ticket_id,omitempty"`
}

// DeviceReport is the most recent resource snapshot for a device, owned by
// the external report store.
type DeviceReport struct {
	DeviceID      uuid.UUID `json:"device_id"`
	Hostname      string    `json:"hostname"`
	CollectedAt   time.Time `json:"collected_at"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskPercent   float64   `json:"disk_percent"`
}

// HealthResult is the per-device outcome of a fleet health check. A fetch
// failure yields Healthy=false with Err set rather than an error return.
type HealthResult struct {
	DeviceID uuid.UUID     `json:"device_id"`
	Hostname string        `json:"hostname,omitempty"`
	Healthy  bool          `json:"healthy"`
	Report   *DeviceReport `json:"report,omitempty"`
	Err      string        `json:"error,omitempty"`
}
