// Package escalation detects breached or near-breach tickets and alerts
// and performs the corresponding escalation action exactly once per breach
// event.
package escalation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xeonx/timeago"

	"github.com/gotrs-io/slaengine/internal/breaker"
	"github.com/gotrs-io/slaengine/internal/events"
	"github.com/gotrs-io/slaengine/internal/metrics"
	"github.com/gotrs-io/slaengine/internal/models"
	"github.com/gotrs-io/slaengine/internal/sla"
	"github.com/gotrs-io/slaengine/internal/store"
	"github.com/gotrs-io/slaengine/internal/timeutil"
)

// ActionKind is the escalation side effect for a severity tier.
type ActionKind string

const (
	ActionCreateIncident ActionKind = "create_incident"
	ActionNotify         ActionKind = "notify"
	ActionLog            ActionKind = "log"
)

// actionForSeverity is the static severity-tier to action map.
var actionForSeverity = map[models.Severity]ActionKind{
	models.SeverityCritical: ActionCreateIncident,
	models.SeverityHigh:     ActionNotify,
	models.SeverityWarning:  ActionLog,
}

// SweepResult summarizes one escalation sweep.
type SweepResult struct {
	Scanned    int `json:"scanned"`
	Escalated  int `json:"escalated"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
}

func (r *SweepResult) merge(other SweepResult) {
	r.Scanned += other.Scanned
	r.Escalated += other.Escalated
	r.Suppressed += other.Suppressed
	r.Failed += other.Failed
}

// Config holds the sweep thresholds.
type Config struct {
	// AlertEscalationMinutes is how long an alert may stay unacknowledged
	// before it escalates.
	AlertEscalationMinutes int
	// Requester identity recorded on incident tickets the engine creates.
	Requester string
}

// WithCalendar gates non-critical alert escalation to business hours.
// Critical alerts always escalate.
func WithCalendar(c *timeutil.BusinessCalendar) Option {
	return func(s *Service) { s.calendar = c }
}

// Service runs escalation sweeps. Idempotency is carried by the escalation
// marker on each entity record, not by engine memory, so a restarted
// engine does not escalate the same breach twice.
type Service struct {
	alerts      store.AlertStore
	tickets     store.TicketStore
	evaluator   *sla.Evaluator
	hub         *events.Hub
	persistence *breaker.Breaker
	logger      *log.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time
	calendar    *timeutil.BusinessCalendar
	cfg         Config
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithBreaker guards calls into the alert and ticket stores.
func WithBreaker(b *breaker.Breaker) Option {
	return func(s *Service) { s.persistence = b }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates an escalation service over the given collaborators.
func NewService(alerts store.AlertStore, tickets store.TicketStore, evaluator *sla.Evaluator, hub *events.Hub, cfg Config, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.AlertEscalationMinutes <= 0 {
		cfg.AlertEscalationMinutes = 15
	}
	if cfg.Requester == "" {
		cfg.Requester = "system"
	}
	s := &Service{
		alerts:    alerts,
		tickets:   tickets,
		evaluator: evaluator,
		hub:       hub,
		logger:    logger,
		clock:     time.Now,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) guarded(op func() error) error {
	if s.persistence == nil {
		return op()
	}
	return s.persistence.Do(op)
}

// CheckAndEscalate runs one full sweep over alerts and tickets
// synchronously and returns the merged result.
func (s *Service) CheckAndEscalate(ctx context.Context) (SweepResult, error) {
	s.metrics.IncSweep()

	var result SweepResult
	alertResult, err := s.SweepAlerts(ctx)
	result.merge(alertResult)
	if err != nil {
		return result, err
	}
	ticketResult, err := s.SweepTickets(ctx)
	result.merge(ticketResult)
	return result, err
}

// SweepAlerts scans for aged, unacknowledged, non-escalated alerts and
// performs the tier action for each. A single alert's failure is logged
// and the sweep continues; the alert stays unmarked for the next sweep.
func (s *Service) SweepAlerts(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	for _, severity := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityWarning} {
		// Outside business hours only critical alerts escalate; the rest
		// are picked up by the first sweep after the window opens.
		if severity != models.SeverityCritical && s.calendar != nil && !s.calendar.IsWorkingTime(s.clock()) {
			continue
		}
		var alerts []models.Alert
		err := s.guarded(func() error {
			var err error
			alerts, err = s.alerts.ActiveBySeverityOlderThan(ctx, severity, s.cfg.AlertEscalationMinutes)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("failed to scan %s alerts: %w", severity, err)
		}

		for i := range alerts {
			result.Scanned++
			outcome, err := s.escalateAlert(ctx, &alerts[i])
			if err != nil {
				result.Failed++
				s.logger.Printf("escalation: alert %s failed: %v", alerts[i].ID, err)
				continue
			}
			if outcome {
				result.Escalated++
			} else {
				result.Suppressed++
			}
		}
	}
	return result, nil
}

// escalateAlert performs the tier action for one alert, then sets the
// escalation marker conditionally. The mark reports whether another sweep
// already handled the alert; in that case this sweep's action is counted
// as suppressed. A crash between act and mark can duplicate the action on
// restart, a known limitation of marker-based idempotency.
func (s *Service) escalateAlert(ctx context.Context, alert *models.Alert) (escalated bool, err error) {
	action, ok := actionForSeverity[alert.Severity]
	if !ok {
		action = ActionLog
	}

	age := timeago.English.FormatReference(alert.TriggeredAt, s.clock())
	incidentID := uuid.Nil

	switch action {
	case ActionCreateIncident:
		err := s.guarded(func() error {
			var err error
			incidentID, err = s.tickets.CreateIncident(ctx, store.IncidentRequest{
				Title:          fmt.Sprintf("Critical alert on %s: %s", alert.Hostname, alert.Message),
				Description:    fmt.Sprintf("Alert %s on device %s (%s) has been unacknowledged since it triggered %s.", alert.ID, alert.Hostname, alert.Severity, age),
				Priority:       models.PriorityCritical,
				Category:       "monitoring",
				Requester:      s.cfg.Requester,
				RelatedAlertID: &alert.ID,
			})
			return err
		})
		if err != nil {
			return false, fmt.Errorf("failed to create incident: %w", err)
		}
	case ActionNotify:
		s.publish(ctx, events.Event{
			Kind:     events.KindSLAWarning,
			AlertID:  &alert.ID,
			DeviceID: &alert.DeviceID,
			Severity: string(alert.Severity),
			Message:  fmt.Sprintf("Alert on %s unacknowledged, triggered %s: %s", alert.Hostname, age, alert.Message),
		})
	default:
		s.logger.Printf("escalation: %s alert %s on %s unacknowledged, triggered %s", alert.Severity, alert.ID, alert.Hostname, age)
	}

	var already bool
	err = s.guarded(func() error {
		var err error
		already, err = s.alerts.MarkEscalated(ctx, alert.ID, incidentID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark escalated: %w", err)
	}
	if already {
		// A concurrent sweep won the marker; this sweep's action is a
		// duplicate within the documented race window.
		s.logger.Printf("escalation: alert %s already escalated by a concurrent sweep", alert.ID)
		return false, nil
	}

	s.metrics.IncEscalation(string(alert.Severity))
	if action == ActionCreateIncident {
		s.publish(ctx, events.Event{
			Kind:     events.KindAlertEscalated,
			AlertID:  &alert.ID,
			TicketID: &incidentID,
			DeviceID: &alert.DeviceID,
			Severity: string(alert.Severity),
			Message:  fmt.Sprintf("Created incident for alert on %s", alert.Hostname),
		})
	}
	return true, nil
}

// SweepTickets scans for tickets past their resolution due date in a
// non-terminal, non-paused state and escalates each at most once.
func (s *Service) SweepTickets(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	var tickets []models.Ticket
	err := s.guarded(func() error {
		var err error
		tickets, err = s.tickets.TicketsNeedingEvaluation(ctx)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("failed to scan tickets: %w", err)
	}

	now := s.clock()
	for i := range tickets {
		t := &tickets[i]
		if t.Escalated || t.Paused || t.Status.Terminal() {
			continue
		}
		// Tickets that never went through evaluation have no due date yet;
		// derive one so a breached ticket cannot hide behind a nil field.
		if t.ResolutionDue == nil && s.evaluator != nil {
			update, err := s.evaluator.Evaluate(ctx, t)
			if err != nil {
				result.Failed++
				s.logger.Printf("escalation: ticket %s evaluation failed: %v", t.Number, err)
				continue
			}
			t.ResolutionDue = update.ResolutionDue
		}
		if t.ResolutionDue == nil || now.Before(*t.ResolutionDue) {
			continue
		}

		result.Scanned++
		outcome, err := s.escalateTicket(ctx, t)
		if err != nil {
			result.Failed++
			s.logger.Printf("escalation: ticket %s failed: %v", t.Number, err)
			continue
		}
		if outcome {
			result.Escalated++
		} else {
			result.Suppressed++
		}
	}
	return result, nil
}

// escalateTicket publishes the breach and, for critical tickets, raises a
// follow-up incident, then marks the ticket escalated.
func (s *Service) escalateTicket(ctx context.Context, t *models.Ticket) (escalated bool, err error) {
	overdue := timeago.English.FormatReference(*t.ResolutionDue, s.clock())

	s.publish(ctx, events.Event{
		Kind:     events.KindTicketBreached,
		TicketID: &t.ID,
		Severity: string(t.Priority),
		Message:  fmt.Sprintf("Ticket %s breached its resolution target %s", t.Number, overdue),
	})

	incidentID := uuid.Nil
	if t.Priority == models.PriorityCritical {
		err := s.guarded(func() error {
			var err error
			incidentID, err = s.tickets.CreateIncident(ctx, store.IncidentRequest{
				Title:           fmt.Sprintf("SLA breach on ticket %s: %s", t.Number, t.Title),
				Description:     fmt.Sprintf("Ticket %s missed its resolution deadline %s.", t.Number, overdue),
				Priority:        models.PriorityCritical,
				Category:        "sla",
				Requester:       s.cfg.Requester,
				RelatedTicketID: &t.ID,
			})
			return err
		})
		if err != nil {
			return false, fmt.Errorf("failed to create incident: %w", err)
		}
	}

	var already bool
	err = s.guarded(func() error {
		var err error
		already, err = s.tickets.MarkEscalated(ctx, t.ID, incidentID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark escalated: %w", err)
	}
	if already {
		s.logger.Printf("escalation: ticket %s already escalated by a concurrent sweep", t.Number)
		return false, nil
	}

	s.metrics.IncEscalation(string(t.Priority))
	s.publish(ctx, events.Event{
		Kind:     events.KindTicketEscalated,
		TicketID: &t.ID,
		Severity: string(t.Priority),
		Message:  fmt.Sprintf("Ticket %s escalated", t.Number),
	})
	return true, nil
}

// publish fans an event out; delivery is best-effort and never fails the
// sweep.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.hub == nil {
		return
	}
	event.At = s.clock()
	s.hub.Publish(ctx, event)
}
