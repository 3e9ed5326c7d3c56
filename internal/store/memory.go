package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/slaengine/internal/models"
)

// MemoryPolicyStore is an in-memory PolicyStore.
type MemoryPolicyStore struct {
	mu       sync.RWMutex
	policies map[uuid.UUID]*models.SLAPolicy
}

// NewMemoryPolicyStore creates an empty in-memory policy store.
func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{policies: make(map[uuid.UUID]*models.SLAPolicy)}
}

// AddPolicy seeds a policy, assigning an ID when missing.
func (s *MemoryPolicyStore) AddPolicy(policy models.SLAPolicy) models.SLAPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	stored := policy
	s.policies[policy.ID] = &stored
	return policy
}

// ActivePolicies returns all active policies.
func (s *MemoryPolicyStore) ActivePolicies(ctx context.Context) ([]models.SLAPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var policies []models.SLAPolicy
	for _, p := range s.policies {
		if p.Active {
			policies = append(policies, *p)
		}
	}
	return policies, nil
}

// MemoryTicketStore is an in-memory TicketStore. Incident tickets created
// through it are stored alongside the seeded tickets.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]*models.Ticket
	nextNum int
}

// NewMemoryTicketStore creates an empty in-memory ticket store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[uuid.UUID]*models.Ticket), nextNum: 1}
}

// AddTicket seeds a ticket, assigning an ID when missing.
func (s *MemoryTicketStore) AddTicket(t models.Ticket) models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Number == "" {
		t.Number = fmt.Sprintf("T-%06d", s.nextNum)
	}
	s.nextNum++
	stored := t
	s.tickets[t.ID] = &stored
	return t
}

// TicketsNeedingEvaluation returns non-terminal tickets.
func (s *MemoryTicketStore) TicketsNeedingEvaluation(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tickets []models.Ticket
	for _, t := range s.tickets {
		if !t.Status.Terminal() {
			tickets = append(tickets, *t)
		}
	}
	return tickets, nil
}

// Ticket returns a copy of the ticket, or ErrNotFound.
func (s *MemoryTicketStore) Ticket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tickets[id]
	if !exists {
		return nil, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	result := *t
	return &result, nil
}

// UpdateSLAFields applies a patch atomically for the single ticket.
func (s *MemoryTicketStore) UpdateSLAFields(ctx context.Context, id uuid.UUID, update SLAFieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tickets[id]
	if !exists {
		return fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	if update.PolicyID != nil {
		t.PolicyID = update.PolicyID
	}
	if update.ResponseDue != nil {
		t.ResponseDue = update.ResponseDue
	}
	if update.ResolutionDue != nil {
		t.ResolutionDue = update.ResolutionDue
	}
	if update.ResponseBreached != nil {
		t.ResponseBreached = *update.ResponseBreached
	}
	if update.ResolutionBreached != nil {
		t.ResolutionBreached = *update.ResolutionBreached
	}
	if update.Paused != nil {
		t.Paused = *update.Paused
	}
	if update.PauseReason != nil {
		t.PauseReason = *update.PauseReason
	}
	if update.PausedAt != nil {
		t.PausedAt = update.PausedAt
	}
	if update.ClearPausedAt {
		t.PausedAt = nil
	}
	if update.PausedMinutes != nil {
		t.PausedMinutes = *update.PausedMinutes
	}
	return nil
}

// CreateIncident creates an incident ticket and returns its ID.
func (s *MemoryTicketStore) CreateIncident(ctx context.Context, req IncidentRequest) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.tickets[id] = &models.Ticket{
		ID:        id,
		Number:    fmt.Sprintf("T-%06d", s.nextNum),
		Title:     req.Title,
		Type:      models.TypeIncident,
		Priority:  req.Priority,
		Category:  req.Category,
		Status:    models.StatusNew,
		CreatedAt: time.Now(),
	}
	s.nextNum++
	return id, nil
}

// MarkEscalated sets the escalation marker and back-reference, returning
// whether the marker was already set. The test-and-set happens under one
// lock so concurrent sweeps see a single winner.
func (s *MemoryTicketStore) MarkEscalated(ctx context.Context, id, incidentID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tickets[id]
	if !exists {
		return false, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	if t.Escalated {
		return true, nil
	}
	t.Escalated = true
	if incidentID != uuid.Nil {
		ref := incidentID
		t.EscalationTicketID = &ref
	}
	return false, nil
}

// MemoryAlertStore is an in-memory AlertStore.
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*models.Alert
}

// NewMemoryAlertStore creates an empty in-memory alert store.
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{alerts: make(map[uuid.UUID]*models.Alert)}
}

// AddAlert seeds an alert, assigning an ID when missing.
func (s *MemoryAlertStore) AddAlert(a models.Alert) models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stored := a
	s.alerts[a.ID] = &stored
	return a
}

// Alert returns a copy of the alert, or ErrNotFound. Used by tests.
func (s *MemoryAlertStore) Alert(id uuid.UUID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.alerts[id]
	if !exists {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	result := *a
	return &result, nil
}

// ActiveBySeverityOlderThan returns active, unacknowledged, non-escalated
// alerts of the severity triggered at least minutes ago.
func (s *MemoryAlertStore) ActiveBySeverityOlderThan(ctx context.Context, severity models.Severity, minutes int) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
	var alerts []models.Alert
	for _, a := range s.alerts {
		if a.Active && !a.Acknowledged && !a.Escalated && a.Severity == severity && !a.TriggeredAt.After(cutoff) {
			alerts = append(alerts, *a)
		}
	}
	return alerts, nil
}

// MarkEscalated sets the escalation marker and back-reference, returning
// whether the marker was already set.
func (s *MemoryAlertStore) MarkEscalated(ctx context.Context, id, ticketID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.alerts[id]
	if !exists {
		return false, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if a.Escalated {
		return true, nil
	}
	a.Escalated = true
	if ticketID != uuid.Nil {
		ref := ticketID
		a.EscalationTicketID = &ref
	}
	return false, nil
}

// MemoryDeviceStore is an in-memory DeviceStore holding the latest report
// per device.
type MemoryDeviceStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*models.DeviceReport
}

// NewMemoryDeviceStore creates an empty in-memory device store.
func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{reports: make(map[uuid.UUID]*models.DeviceReport)}
}

// PutReport stores the latest report for a device.
func (s *MemoryDeviceStore) PutReport(r models.DeviceReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := r
	s.reports[r.DeviceID] = &stored
}

// DeviceIDs returns every device with a report.
func (s *MemoryDeviceStore) DeviceIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.reports))
	for id := range s.reports {
		ids = append(ids, id)
	}
	return ids
}

// LatestReport returns a copy of the latest report, or ErrNotFound.
func (s *MemoryDeviceStore) LatestReport(ctx context.Context, deviceID uuid.UUID) (*models.DeviceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reports[deviceID]
	if !exists {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	result := *r
	return &result, nil
}
