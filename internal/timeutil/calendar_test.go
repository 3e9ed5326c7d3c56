package timeutil

import (
	"testing"
	"time"
)

func weekdays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

func TestWindowCalendarAddWorkingTime(t *testing.T) {
	c, err := NewWindowCalendar("09:00", "17:00", weekdays())
	if err != nil {
		t.Fatalf("NewWindowCalendar() error: %v", err)
	}

	tests := []struct {
		name     string
		start    time.Time
		minutes  int
		wantDay  int
		wantHour int
	}{
		{
			name:     "within one work day",
			start:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), // Monday 10:00
			minutes:  60,
			wantDay:  2,
			wantHour: 11,
		},
		{
			name:     "crosses end of day",
			start:    time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC), // Monday 16:00
			minutes:  120,
			wantDay:  3, // Tuesday
			wantHour: 10,
		},
		{
			name:     "crosses weekend",
			start:    time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC), // Friday 16:00
			minutes:  120,
			wantDay:  9, // Monday
			wantHour: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AddWorkingTime(tt.start, tt.minutes)
			if got.Day() != tt.wantDay || got.Hour() != tt.wantHour {
				t.Errorf("AddWorkingTime() = %v, want day %d hour %d", got, tt.wantDay, tt.wantHour)
			}
		})
	}
}

func TestWindowCalendarIsWorkingTime(t *testing.T) {
	c, err := NewWindowCalendar("08:00", "18:00", weekdays())
	if err != nil {
		t.Fatalf("NewWindowCalendar() error: %v", err)
	}

	tests := []struct {
		name string
		time time.Time
		want bool
	}{
		{"Monday mid-morning", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), true},
		{"Monday before window", time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC), false},
		{"Monday after window", time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC), false},
		{"Saturday", time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsWorkingTime(tt.time); got != tt.want {
				t.Errorf("IsWorkingTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowCalendarErrors(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"bad format", "nine", "17:00"},
		{"end before start", "17:00", "09:00"},
		{"out of range hour", "25:00", "17:00"},
		{"out of range minute", "09:61", "17:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWindowCalendar(tt.start, tt.end, weekdays()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestBusinessCalendarFromConfig(t *testing.T) {
	workingHours := `
Mon: [9,10,11,12,13,14,15,16]
Tue: [9,10,11,12,13,14,15,16]
Wed: [9,10,11,12,13,14,15,16]
Thu: [9,10,11,12,13,14,15,16]
Fri: [9,10,11,12,13,14,15,16]
Sat: []
Sun: []
`
	holidays := `
12: { 25: "Christmas" }
`
	c, err := NewBusinessCalendarFromConfig(workingHours, holidays, "")
	if err != nil {
		t.Fatalf("NewBusinessCalendarFromConfig() error: %v", err)
	}

	// Work hours cover 09:00 up to the end of hour 16, i.e. 17:00.
	if !c.IsWorkingTime(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Error("Monday 10:00 should be working time")
	}
	if c.IsWorkingTime(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)) {
		t.Error("Saturday should not be working time")
	}
	if c.IsWorkingTime(time.Date(2026, 12, 25, 10, 0, 0, 0, time.UTC)) {
		t.Error("Christmas should not be working time")
	}
}

func TestBusinessCalendarFromConfigOneTime(t *testing.T) {
	oneTime := `
2026: { 3: { 2: "Inventory day" } }
`
	c, err := NewBusinessCalendarFromConfig("", "", oneTime)
	if err != nil {
		t.Fatalf("NewBusinessCalendarFromConfig() error: %v", err)
	}
	if c.IsWorkingTime(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Error("one-time holiday should not be working time")
	}
	if !c.IsWorkingTime(time.Date(2027, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Error("the same date next year should be working time")
	}
}

func TestWorkingMinutesBetween(t *testing.T) {
	c, err := NewWindowCalendar("09:00", "17:00", weekdays())
	if err != nil {
		t.Fatalf("NewWindowCalendar() error: %v", err)
	}
	start := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)   // Friday 09:00
	end := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)    // Monday 17:00
	if got := c.WorkingMinutesBetween(start, end); got != 16*60 {
		t.Errorf("WorkingMinutesBetween() = %d, want %d", got, 16*60)
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  int
	}{
		{"int", 42, 42},
		{"int64", int64(42), 42},
		{"float64", float64(42.9), 42},
		{"string valid", "42", 42},
		{"string invalid", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toInt(tt.input); got != tt.want {
				t.Errorf("toInt(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
