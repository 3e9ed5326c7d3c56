package timeutil

import (
	"testing"
	"time"
)

func TestMinutesBetween(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same instant", base, base, 0},
		{"ninety minutes", base, base.Add(90 * time.Minute), 90},
		{"reversed order", base.Add(90 * time.Minute), base, 90},
		{"sub-minute truncates", base, base.Add(59 * time.Second), 0},
		{"partial minute floors", base, base.Add(150 * time.Second), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinutesBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("MinutesBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHoursBetween(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if got := HoursBetween(base, base.Add(150*time.Minute)); got != 2 {
		t.Errorf("HoursBetween() = %d, want 2", got)
	}
	if got := HoursBetween(base.Add(150*time.Minute), base); got != 2 {
		t.Errorf("HoursBetween() reversed = %d, want 2", got)
	}
}

func TestIsOnline(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Minute)
	stale := now.Add(-10 * time.Minute)

	tests := []struct {
		name      string
		lastSeen  *time.Time
		threshold int
		want      bool
	}{
		{"nil last seen", nil, 5, false},
		{"recent heartbeat", &recent, 5, true},
		{"stale heartbeat", &stale, 5, false},
		{"zero threshold uses default", &recent, 0, true},
		{"exactly at threshold", &stale, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnline(tt.lastSeen, now, tt.threshold); got != tt.want {
				t.Errorf("IsOnline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMinutesSince(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if got := MinutesSince(nil, now); got != nil {
		t.Errorf("MinutesSince(nil) = %v, want nil", got)
	}
	past := now.Add(-45 * time.Minute)
	got := MinutesSince(&past, now)
	if got == nil || *got != 45 {
		t.Errorf("MinutesSince() = %v, want 45", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{1, "1 minute"},
		{45, "45 minutes"},
		{60, "1 hour"},
		{90, "1 hour 30 minutes"},
		{120, "2 hours"},
		{1440, "1 day"},
		{1500, "1 day 1 hour"},
		{2880, "2 days"},
		{0, "0 minutes"},
		{-5, "0 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.minutes); got != tt.want {
				t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
			}
		})
	}
}

func TestIsWithinSLA(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !IsWithinSLA(start, start.Add(60*time.Minute), 60) {
		t.Error("elapsed equal to target should be within SLA")
	}
	if IsWithinSLA(start, start.Add(61*time.Minute), 60) {
		t.Error("elapsed past target should not be within SLA")
	}
}

func TestCalculateDueDate(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	if got := CalculateDueDate(start, 480); !got.Equal(want) {
		t.Errorf("CalculateDueDate() = %v, want %v", got, want)
	}
}

func TestTimeToBreach(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("nil due date", func(t *testing.T) {
		got := TimeToBreach(nil, now)
		if got.Breached || got.MinutesRemaining != 0 || got.Formatted != "no deadline" {
			t.Errorf("TimeToBreach(nil) = %+v", got)
		}
	})

	t.Run("future due date", func(t *testing.T) {
		due := now.Add(90 * time.Minute)
		got := TimeToBreach(&due, now)
		if got.Breached {
			t.Error("future due date should not be breached")
		}
		if got.MinutesRemaining != 90 {
			t.Errorf("MinutesRemaining = %d, want 90", got.MinutesRemaining)
		}
		if got.Formatted != "1 hour 30 minutes remaining" {
			t.Errorf("Formatted = %q", got.Formatted)
		}
	})

	t.Run("past due date", func(t *testing.T) {
		due := now.Add(-15 * time.Minute)
		got := TimeToBreach(&due, now)
		if !got.Breached {
			t.Error("past due date should be breached")
		}
		if got.MinutesRemaining != 0 {
			t.Errorf("MinutesRemaining = %d, want 0", got.MinutesRemaining)
		}
	})

	t.Run("exactly at due date", func(t *testing.T) {
		due := now
		if got := TimeToBreach(&due, now); !got.Breached {
			t.Error("due date equal to now should count as breached")
		}
	})
}
