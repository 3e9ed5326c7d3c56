package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus represents the lifecycle status of a ticket.
// The state machine itself is owned by the ticket store; the engine only
// reads the status to decide SLA eligibility.
type TicketStatus string

const (
	StatusNew        TicketStatus = "new"
	StatusAssigned   TicketStatus = "assigned"
	StatusInProgress TicketStatus = "in_progress"
	StatusPaused     TicketStatus = "paused"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusCancelled  TicketStatus = "cancelled"
)

// Terminal reports whether the status ends SLA evaluation for the ticket.
func (s TicketStatus) Terminal() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusCancelled
}

// TicketType classifies a ticket.
type TicketType string

const (
	TypeIncident TicketType = "incident"
	TypeRequest  TicketType = "request"
	TypeProblem  TicketType = "problem"
	TypeChange   TicketType = "change"
)

// Priority represents ticket priority.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Ticket is the SLA-relevant view of a ticket. The full entity is owned by
// the ticket store; the engine reads this view and writes back through
// SLAFieldUpdate patches only.
type Ticket struct {
	ID       uuid.UUID    `json:"id"`
	Number   string       `json:"number"`
	Title    string       `json:"title"`
	Type     TicketType   `json:"type"`
	Priority Priority     `json:"priority"`
	Impact   string       `json:"impact"`
	Urgency  string       `json:"urgency"`
	Category string       `json:"category"`
	Status   TicketStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`

	// SLA tracking fields, mutated only through the engine.
	PolicyID           *uuid.UUID `json:"policy_id,omitempty"`
	ResponseDue        *time.Time `json:"response_due,omitempty"`
	ResolutionDue      *time.Time `json:"resolution_due,omitempty"`
	FirstResponseAt    *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ResponseBreached   bool       `json:"response_breached"`
	ResolutionBreached bool       `json:"resolution_breached"`

	// Pause accounting. Paused tickets are excluded from elapsed-time
	// accrual until resumed.
	Paused       bool       `json:"paused"`
	PauseReason  string     `json:"pause_reason,omitempty"`
	PausedAt     *time.Time `json:"paused_at,omitempty"`
	PausedMinutes int       `json:"paused_minutes"`

	// Escalation idempotency marker. Stored on the record, not in engine
	// memory, so a restarted engine does not escalate twice.
	Escalated          bool       `json:"escalated"`
	EscalationTicketID *uuid.UUID `json:"escalation_ticket_id,omitempty"`
}
