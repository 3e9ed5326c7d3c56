// Package sla selects service level policies for tickets and keeps their
// due dates, pause accounting and breach flags current.
package sla

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/slaengine/internal/batch"
	"github.com/gotrs-io/slaengine/internal/breaker"
	"github.com/gotrs-io/slaengine/internal/metrics"
	"github.com/gotrs-io/slaengine/internal/models"
	"github.com/gotrs-io/slaengine/internal/store"
	"github.com/gotrs-io/slaengine/internal/timeutil"
)

// Evaluator computes SLA due dates and breach state for tickets. Breach
// flags are recomputed lazily on every evaluation, never by a background
// timer, so a ticket resolved before its due date is never marked breached
// no matter when it is next evaluated.
type Evaluator struct {
	policies    store.PolicyStore
	tickets     store.TicketStore
	persistence *breaker.Breaker
	logger      *log.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time
	batchOpts   batch.Options

	mu        sync.Mutex
	calendars map[uuid.UUID]*timeutil.BusinessCalendar
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithClock injects the time source. Tests use this to pin "now".
func WithClock(clock func() time.Time) Option {
	return func(e *Evaluator) { e.clock = clock }
}

// WithBreaker guards calls into the ticket and policy stores.
func WithBreaker(b *breaker.Breaker) Option {
	return func(e *Evaluator) { e.persistence = b }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// WithBatchOptions tunes the fleet evaluation batches.
func WithBatchOptions(opts batch.Options) Option {
	return func(e *Evaluator) { e.batchOpts = opts }
}

// NewEvaluator creates an evaluator over the given collaborators.
func NewEvaluator(policies store.PolicyStore, tickets store.TicketStore, logger *log.Logger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = log.Default()
	}
	e := &Evaluator{
		policies:  policies,
		tickets:   tickets,
		logger:    logger,
		clock:     time.Now,
		calendars: make(map[uuid.UUID]*timeutil.BusinessCalendar),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.batchOpts.Logger = logger
	return e
}

// guarded runs a collaborator call through the persistence breaker when
// one is configured.
func (e *Evaluator) guarded(op func() error) error {
	if e.persistence == nil {
		return op()
	}
	return e.persistence.Do(op)
}

// SelectPolicy returns the most specific active policy matching the
// ticket, or nil when nothing matches and the default matrix applies.
// Ties are broken by fewest wildcarded fields, then by ID for determinism.
func (e *Evaluator) SelectPolicy(ctx context.Context, t *models.Ticket) (*models.SLAPolicy, error) {
	var policies []models.SLAPolicy
	err := e.guarded(func() error {
		var err error
		policies, err = e.policies.ActivePolicies(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	var matched []models.SLAPolicy
	for _, p := range policies {
		if p.Matches(t) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	sort.Slice(matched, func(i, j int) bool {
		si, sj := matched[i].Specificity(), matched[j].Specificity()
		if si != sj {
			return si > sj
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	best := matched[0]
	return &best, nil
}

// targets resolves response/resolution minutes from the policy, falling
// back to the built-in default matrix. Missing policies are a data
// inconsistency resolved locally, never an error.
func (e *Evaluator) targets(t *models.Ticket, policy *models.SLAPolicy) models.SLATargets {
	if policy != nil {
		return models.SLATargets{
			ResponseMinutes:   policy.ResponseMinutes,
			ResolutionMinutes: policy.ResolutionMinutes,
		}
	}
	return models.DefaultTargets(t.Priority, t.Type)
}

// policyCalendar returns the business calendar for a business-hours-only
// policy, or nil for flat calendar arithmetic. Calendars are cached per
// policy; an unparsable window degrades to flat arithmetic with a log line.
func (e *Evaluator) policyCalendar(policy *models.SLAPolicy) *timeutil.BusinessCalendar {
	if policy == nil || !policy.BusinessHoursOnly {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.calendars[policy.ID]; ok {
		return c
	}
	c, err := timeutil.NewWindowCalendar(policy.BusinessStart, policy.BusinessEnd, policy.BusinessDays)
	if err != nil {
		e.logger.Printf("sla: policy %s has invalid business window, using calendar time: %v", policy.Name, err)
	}
	e.calendars[policy.ID] = c
	return c
}

// ComputeDueDates derives both due dates for a ticket under a policy.
// Resolution due includes accumulated paused minutes. Business-hours-only
// policies walk the due dates forward through the policy's business window.
func (e *Evaluator) ComputeDueDates(t *models.Ticket, policy *models.SLAPolicy) (responseDue, resolutionDue time.Time) {
	targets := e.targets(t, policy)
	resolutionMinutes := targets.ResolutionMinutes + t.PausedMinutes

	if c := e.policyCalendar(policy); c != nil {
		return c.AddWorkingTime(t.CreatedAt, targets.ResponseMinutes),
			c.AddWorkingTime(t.CreatedAt, resolutionMinutes)
	}
	return timeutil.CalculateDueDate(t.CreatedAt, targets.ResponseMinutes),
		timeutil.CalculateDueDate(t.CreatedAt, resolutionMinutes)
}

// Evaluate recomputes a ticket's SLA fields and returns the patch to
// apply. It does not write to the store.
func (e *Evaluator) Evaluate(ctx context.Context, t *models.Ticket) (store.SLAFieldUpdate, error) {
	policy, err := e.SelectPolicy(ctx, t)
	if err != nil {
		return store.SLAFieldUpdate{}, err
	}

	now := e.clock()
	responseDue, resolutionDue := e.ComputeDueDates(t, policy)

	update := store.SLAFieldUpdate{
		ResponseDue:   &responseDue,
		ResolutionDue: &resolutionDue,
	}
	if policy != nil {
		id := policy.ID
		update.PolicyID = &id
	}

	// Paused tickets are excluded from breach evaluation until resumed.
	if t.Paused {
		e.metrics.IncEvaluation()
		return update, nil
	}

	responseBreached := breachedAt(t.FirstResponseAt, responseDue, now)
	update.ResponseBreached = &responseBreached
	if responseBreached && !t.ResponseBreached {
		e.metrics.IncBreach("response")
	}

	// A terminal status reached before the due date can never breach.
	resolutionBreached := false
	if t.Status.Terminal() {
		resolutionBreached = t.ResolvedAt != nil && t.ResolvedAt.After(resolutionDue)
	} else {
		resolutionBreached = breachedAt(t.ResolvedAt, resolutionDue, now)
	}
	update.ResolutionBreached = &resolutionBreached
	if resolutionBreached && !t.ResolutionBreached {
		e.metrics.IncBreach("resolution")
	}

	e.metrics.IncEvaluation()
	return update, nil
}

// breachedAt reports whether a milestone missed its due date: either it
// has not happened and the due date passed, or it happened late.
func breachedAt(milestone *time.Time, due, now time.Time) bool {
	if milestone != nil {
		return milestone.After(due)
	}
	return !now.Before(due)
}

// EvaluateAll evaluates every ticket the store flags as needing SLA
// evaluation and writes the updates back. A single ticket's failure never
// aborts the run. Returns the number of tickets evaluated successfully.
func (e *Evaluator) EvaluateAll(ctx context.Context) (int, error) {
	var tickets []models.Ticket
	err := e.guarded(func() error {
		var err error
		tickets, err = e.tickets.TicketsNeedingEvaluation(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list tickets: %w", err)
	}

	results := batch.Process(ctx, e.batchOpts, tickets, func(ctx context.Context, t models.Ticket) (uuid.UUID, error) {
		update, err := e.Evaluate(ctx, &t)
		if err != nil {
			return uuid.Nil, err
		}
		if err := e.guarded(func() error {
			return e.tickets.UpdateSLAFields(ctx, t.ID, update)
		}); err != nil {
			return uuid.Nil, err
		}
		return t.ID, nil
	})
	e.metrics.AddBatchItemFailures(len(tickets) - len(results))
	return len(results), nil
}

// Pause excludes a ticket from SLA accrual, recording the reason and the
// pause start. Pausing an already-paused ticket is a no-op.
func (e *Evaluator) Pause(ctx context.Context, id uuid.UUID, reason string) error {
	var t *models.Ticket
	err := e.guarded(func() error {
		var err error
		t, err = e.tickets.Ticket(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if t.Paused {
		return nil
	}

	now := e.clock()
	paused := true
	return e.guarded(func() error {
		return e.tickets.UpdateSLAFields(ctx, id, store.SLAFieldUpdate{
			Paused:      &paused,
			PauseReason: &reason,
			PausedAt:    &now,
		})
	})
}

// Resume ends a pause: the paused interval is added to the accumulated
// paused minutes and the resolution due date shifts forward accordingly.
// Resuming a ticket that is not paused is a no-op, so a double resume
// never double-counts the interval.
func (e *Evaluator) Resume(ctx context.Context, id uuid.UUID) error {
	var t *models.Ticket
	err := e.guarded(func() error {
		var err error
		t, err = e.tickets.Ticket(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !t.Paused || t.PausedAt == nil {
		return nil
	}

	now := e.clock()
	total := t.PausedMinutes + timeutil.MinutesBetween(*t.PausedAt, now)

	policy, err := e.SelectPolicy(ctx, t)
	if err != nil {
		return err
	}
	shifted := *t
	shifted.PausedMinutes = total
	_, resolutionDue := e.ComputeDueDates(&shifted, policy)

	paused := false
	reason := ""
	return e.guarded(func() error {
		return e.tickets.UpdateSLAFields(ctx, id, store.SLAFieldUpdate{
			Paused:        &paused,
			PauseReason:   &reason,
			ClearPausedAt: true,
			PausedMinutes: &total,
			ResolutionDue: &resolutionDue,
		})
	})
}

// DashboardData aggregates fleet-wide SLA standing. When the underlying
// stores fail the dashboard degrades to zeroed metrics instead of
// surfacing an error, so operators see "no data" rather than a crash.
func (e *Evaluator) DashboardData(ctx context.Context) models.DashboardData {
	var tickets []models.Ticket
	err := e.guarded(func() error {
		var err error
		tickets, err = e.tickets.TicketsNeedingEvaluation(ctx)
		return err
	})
	if err != nil {
		e.logger.Printf("sla: dashboard degraded, failed to list tickets: %v", err)
		return models.DashboardData{}
	}

	var data models.DashboardData
	for i := range tickets {
		t := &tickets[i]
		update, err := e.Evaluate(ctx, t)
		if err != nil {
			e.logger.Printf("sla: dashboard skipping ticket %s: %v", t.Number, err)
			continue
		}
		data.TotalTicketsWithSLA++
		responseBreached := update.ResponseBreached != nil && *update.ResponseBreached
		resolutionBreached := update.ResolutionBreached != nil && *update.ResolutionBreached
		if responseBreached {
			data.ResponseBreaches++
		}
		if resolutionBreached {
			data.ResolutionBreaches++
		}
		if responseBreached || resolutionBreached {
			data.Breached++
		} else {
			data.OnTrack++
		}
	}
	if data.TotalTicketsWithSLA > 0 {
		data.CompliancePercent = float64(data.OnTrack) / float64(data.TotalTicketsWithSLA) * 100
	}
	return data
}
