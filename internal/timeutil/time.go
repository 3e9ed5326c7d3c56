// Package timeutil provides pure time and business-calendar helpers used
// across SLA evaluation and escalation.
package timeutil

import (
	"fmt"
	"time"

	"github.com/xeonx/timeago"
)

// DefaultOnlineThresholdMinutes is the heartbeat age below which a device
// is considered online.
const DefaultOnlineThresholdMinutes = 5

// MinutesBetween returns the absolute number of whole minutes between two
// times. Symmetric in argument order.
func MinutesBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(d.Minutes())
}

// HoursBetween returns the absolute number of whole hours between two times.
func HoursBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(d.Hours())
}

// IsOnline reports whether a heartbeat is recent enough. A nil lastSeen
// means the device has never reported and is offline.
func IsOnline(lastSeen *time.Time, now time.Time, thresholdMinutes int) bool {
	if lastSeen == nil {
		return false
	}
	if thresholdMinutes <= 0 {
		thresholdMinutes = DefaultOnlineThresholdMinutes
	}
	return MinutesBetween(*lastSeen, now) < thresholdMinutes
}

// MinutesSince returns the whole minutes elapsed since t, or nil for a nil
// timestamp.
func MinutesSince(t *time.Time, now time.Time) *int {
	if t == nil {
		return nil
	}
	m := MinutesBetween(*t, now)
	return &m
}

// FormatDuration renders minutes as the largest sensible unit combination:
// minutes alone, hours plus minutes, or days plus hours.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	switch {
	case minutes < 60:
		return plural(minutes, "minute")
	case minutes < 24*60:
		h, m := minutes/60, minutes%60
		if m == 0 {
			return plural(h, "hour")
		}
		return plural(h, "hour") + " " + plural(m, "minute")
	default:
		d, h := minutes/(24*60), (minutes%(24*60))/60
		if h == 0 {
			return plural(d, "day")
		}
		return plural(d, "day") + " " + plural(h, "hour")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// IsWithinSLA reports whether the elapsed minutes between start and end
// stay within the SLA target.
func IsWithinSLA(start, end time.Time, slaMinutes int) bool {
	return MinutesBetween(start, end) <= slaMinutes
}

// CalculateDueDate returns start plus slaMinutes of calendar time.
// Business-hours expansion is the policy evaluator's concern, not this
// helper's.
func CalculateDueDate(start time.Time, slaMinutes int) time.Time {
	return start.Add(time.Duration(slaMinutes) * time.Minute)
}

// Countdown describes distance to an SLA deadline.
type Countdown struct {
	Breached         bool   `json:"breached"`
	MinutesRemaining int    `json:"minutes_remaining"`
	Formatted        string `json:"formatted"`
}

// TimeToBreach computes breach state and a human-readable countdown for a
// due date. A nil due date yields an unbreached zero countdown.
func TimeToBreach(due *time.Time, now time.Time) Countdown {
	if due == nil {
		return Countdown{Formatted: "no deadline"}
	}
	if !now.Before(*due) {
		return Countdown{
			Breached:  true,
			Formatted: "breached " + timeago.English.FormatReference(*due, now),
		}
	}
	remaining := MinutesBetween(now, *due)
	return Countdown{
		MinutesRemaining: remaining,
		Formatted:        FormatDuration(remaining) + " remaining",
	}
}
