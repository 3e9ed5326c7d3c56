// Package store defines the narrow collaborator interfaces the engine
// calls outward through, plus in-memory implementations used by tests and
// the default wiring. The real ticket/alert/device stores live outside
// this module.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/slaengine/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// SLAFieldUpdate is a patch of ticket SLA fields. Only non-nil fields are
// applied; ClearPausedAt clears the paused-at timestamp explicitly since a
// nil pointer means "unchanged".
type SLAFieldUpdate struct {
	PolicyID           *uuid.UUID
	ResponseDue        *time.Time
	ResolutionDue      *time.Time
	ResponseBreached   *bool
	ResolutionBreached *bool
	Paused             *bool
	PauseReason        *string
	PausedAt           *time.Time
	ClearPausedAt      bool
	PausedMinutes      *int
}

// IncidentRequest describes an incident ticket to create during escalation.
type IncidentRequest struct {
	Title          string
	Description    string
	Priority       models.Priority
	Category       string
	Requester      string
	RelatedAlertID *uuid.UUID
	RelatedTicketID *uuid.UUID
}

// PolicyStore exposes the externally owned SLA policy configuration.
type PolicyStore interface {
	ActivePolicies(ctx context.Context) ([]models.SLAPolicy, error)
}

// TicketStore is the engine's view of the ticket collaborator.
// MarkEscalated is a conditional test-and-set: it sets the escalation
// marker and reports whether it was already set, so concurrent sweeps
// cannot both win.
type TicketStore interface {
	TicketsNeedingEvaluation(ctx context.Context) ([]models.Ticket, error)
	Ticket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	UpdateSLAFields(ctx context.Context, id uuid.UUID, update SLAFieldUpdate) error
	CreateIncident(ctx context.Context, req IncidentRequest) (uuid.UUID, error)
	MarkEscalated(ctx context.Context, id, incidentID uuid.UUID) (already bool, err error)
}

// AlertStore is the engine's view of the alert collaborator.
type AlertStore interface {
	ActiveBySeverityOlderThan(ctx context.Context, severity models.Severity, minutes int) ([]models.Alert, error)
	MarkEscalated(ctx context.Context, id, ticketID uuid.UUID) (already bool, err error)
}

// DeviceStore exposes the most recent report per device.
type DeviceStore interface {
	LatestReport(ctx context.Context, deviceID uuid.UUID) (*models.DeviceReport, error)
}
