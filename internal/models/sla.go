package models

import (
	"time"

	"github.com/google/uuid"
)

// SLAPolicy is an immutable service level rule. Match fields are pointers:
// nil means wildcard (the field does not constrain applicability).
// Policies are owned and edited by an external configuration collaborator;
// the engine only reads them.
type SLAPolicy struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	TicketType *string `json:"ticket_type,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	Impact     *string `json:"impact,omitempty"`
	Urgency    *string `json:"urgency,omitempty"`
	Category   *string `json:"category,omitempty"`

	ResponseMinutes   int `json:"response_minutes"`
	ResolutionMinutes int `json:"resolution_minutes"`

	// Business window. When BusinessHoursOnly is set, due dates are walked
	// forward through this window instead of wall-clock time.
	BusinessHoursOnly bool           `json:"business_hours_only"`
	BusinessStart     string         `json:"business_start,omitempty"` // "HH:MM"
	BusinessEnd       string         `json:"business_end,omitempty"`   // "HH:MM"
	BusinessDays      []time.Weekday `json:"business_days,omitempty"`

	Active bool `json:"active"`
}

// Matches reports whether the policy applies to the ticket. Each match
// field is either nil (wildcard) or must equal the ticket's value.
func (p *SLAPolicy) Matches(t *Ticket) bool {
	if p.TicketType != nil && *p.TicketType != string(t.Type) {
		return false
	}
	if p.Priority != nil && *p.Priority != string(t.Priority) {
		return false
	}
	if p.Impact != nil && *p.Impact != t.Impact {
		return false
	}
	if p.Urgency != nil && *p.Urgency != t.Urgency {
		return false
	}
	if p.Category != nil && *p.Category != t.Category {
		return false
	}
	return true
}

// Specificity counts non-wildcard match fields. Higher wins ties during
// policy selection.
func (p *SLAPolicy) Specificity() int {
	n := 0
	for _, f := range []*string{p.TicketType, p.Priority, p.Impact, p.Urgency, p.Category} {
		if f != nil {
			n++
		}
	}
	return n
}

// SLATargets holds response/resolution targets in minutes.
type SLATargets struct {
	ResponseMinutes   int `json:"response_minutes"`
	ResolutionMinutes int `json:"resolution_minutes"`
}

// defaultMatrix maps priority to fallback targets used when no policy
// matches. Incidents get tighter resolution windows than other types.
var defaultMatrix = map[Priority]struct {
	response           int
	incidentResolution int
	otherResolution    int
}{
	PriorityCritical: {15, 120, 240},
	PriorityHigh:     {60, 480, 960},
	PriorityMedium:   {240, 1440, 2880},
	PriorityLow:      {480, 2880, 5760},
}

// DefaultTargets returns the built-in fallback targets for a priority and
// ticket type. Unknown priorities fall back to medium.
func DefaultTargets(priority Priority, ticketType TicketType) SLATargets {
	row, ok := defaultMatrix[priority]
	if !ok {
		row = defaultMatrix[PriorityMedium]
	}
	resolution := row.otherResolution
	if ticketType == TypeIncident {
		resolution = row.incidentResolution
	}
	return SLATargets{ResponseMinutes: row.response, ResolutionMinutes: resolution}
}

// DashboardData summarizes fleet-wide SLA standing for operator views.
type DashboardData struct {
	TotalTicketsWithSLA int     `json:"total_tickets_with_sla"`
	ResponseBreaches    int     `json:"response_breaches"`
	ResolutionBreaches  int     `json:"resolution_breaches"`
	OnTrack             int     `json:"on_track"`
	Breached            int     `json:"breached"`
	CompliancePercent   float64 `json:"compliance_percent"`
}
