package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"gopkg.in/yaml.v3"
)

// BusinessCalendar wraps rickar/cal with the engine's minute-based
// arithmetic and the configuration document formats.
type BusinessCalendar struct {
	cal *cal.BusinessCalendar
}

// NewBusinessCalendar returns a calendar with the library defaults
// (Mon-Fri workweek).
func NewBusinessCalendar() *BusinessCalendar {
	return &BusinessCalendar{cal: cal.NewBusinessCalendar()}
}

// NewBusinessCalendarFromConfig builds a calendar from YAML documents:
// working hours as a per-day hour list ({ Mon: [8,9,...,17], Sat: [] }),
// recurring holidays ({ 12: { 25: "Christmas" } }) and one-time holidays
// ({ 2026: { 1: { 2: "Bridge day" } } }). Empty documents are skipped.
func NewBusinessCalendarFromConfig(workingHours, holidays, oneTimeHolidays string) (*BusinessCalendar, error) {
	c := cal.NewBusinessCalendar()
	if workingHours != "" {
		if err := applyWorkingHours(workingHours, c); err != nil {
			return nil, fmt.Errorf("failed to apply working hours: %w", err)
		}
	}
	if holidays != "" {
		applyHolidays(holidays, c)
	}
	if oneTimeHolidays != "" {
		applyOneTimeHolidays(oneTimeHolidays, c)
	}
	return &BusinessCalendar{cal: c}, nil
}

// NewWindowCalendar builds a calendar for a policy business window:
// start/end time-of-day in "HH:MM" form plus the applicable weekdays.
func NewWindowCalendar(start, end string, days []time.Weekday) (*BusinessCalendar, error) {
	startD, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("invalid window start %q: %w", start, err)
	}
	endD, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("invalid window end %q: %w", end, err)
	}
	if endD <= startD {
		return nil, fmt.Errorf("window end %q not after start %q", end, start)
	}

	c := cal.NewBusinessCalendar()
	c.SetWorkHours(startD, endD)
	workday := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		workday[d] = true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		c.SetWorkday(d, workday[d])
	}
	return &BusinessCalendar{cal: c}, nil
}

// AddWorkingTime adds working minutes to a start time and returns the
// destination time.
func (b *BusinessCalendar) AddWorkingTime(start time.Time, minutes int) time.Time {
	if b == nil || b.cal == nil {
		return start.Add(time.Duration(minutes) * time.Minute)
	}
	return b.cal.AddWorkHours(start, time.Duration(minutes)*time.Minute)
}

// WorkingMinutesBetween calculates working minutes between two times.
func (b *BusinessCalendar) WorkingMinutesBetween(start, end time.Time) int {
	if b == nil || b.cal == nil {
		return MinutesBetween(start, end)
	}
	return int(b.cal.WorkHoursInRange(start, end).Minutes())
}

// IsWorkingTime checks if a given time is within working hours.
func (b *BusinessCalendar) IsWorkingTime(t time.Time) bool {
	if b == nil || b.cal == nil {
		return true
	}
	return b.cal.IsWorkTime(t)
}

// applyWorkingHours parses the per-day hour-list document and configures
// the calendar. Days with an empty list are non-workdays.
func applyWorkingHours(yamlStr string, c *cal.BusinessCalendar) error {
	var hours map[string][]interface{}
	if err := yaml.Unmarshal([]byte(yamlStr), &hours); err != nil {
		return err
	}

	dayMap := map[string]time.Weekday{
		"Mon": time.Monday,
		"Tue": time.Tuesday,
		"Wed": time.Wednesday,
		"Thu": time.Thursday,
		"Fri": time.Friday,
		"Sat": time.Saturday,
		"Sun": time.Sunday,
	}

	minHour, maxHour := 24, 0
	for dayName, hourList := range hours {
		weekday, ok := dayMap[dayName]
		if !ok {
			continue
		}
		if len(hourList) == 0 {
			c.SetWorkday(weekday, false)
			continue
		}
		c.SetWorkday(weekday, true)
		for _, h := range hourList {
			hour := toInt(h)
			if hour < minHour {
				minHour = hour
			}
			if hour > maxHour {
				maxHour = hour
			}
		}
	}

	// The hour list names full working hours, so the range ends at the end
	// of the last listed hour.
	if minHour < 24 && maxHour >= 0 {
		c.SetWorkHours(time.Duration(minHour)*time.Hour, time.Duration(maxHour+1)*time.Hour)
	}
	return nil
}

// applyHolidays adds recurring holidays: { month: { day: name } }.
func applyHolidays(yamlStr string, c *cal.BusinessCalendar) {
	var days map[interface{}]map[interface{}]string
	if err := yaml.Unmarshal([]byte(yamlStr), &days); err != nil {
		return
	}
	for monthKey, dayMap := range days {
		month := time.Month(toInt(monthKey))
		if month < 1 || month > 12 {
			continue
		}
		for dayKey, name := range dayMap {
			day := toInt(dayKey)
			if day < 1 || day > 31 {
				continue
			}
			c.AddHoliday(&cal.Holiday{
				Name:  name,
				Type:  cal.ObservancePublic,
				Month: month,
				Day:   day,
				Func:  cal.CalcDayOfMonth,
			})
		}
	}
}

// applyOneTimeHolidays adds one-time holidays: { year: { month: { day: name } } }.
func applyOneTimeHolidays(yamlStr string, c *cal.BusinessCalendar) {
	var days map[interface{}]map[interface{}]map[interface{}]string
	if err := yaml.Unmarshal([]byte(yamlStr), &days); err != nil {
		return
	}
	for yearKey, monthMap := range days {
		year := toInt(yearKey)
		if year == 0 {
			continue
		}
		for monthKey, dayMap := range monthMap {
			month := time.Month(toInt(monthKey))
			if month < 1 || month > 12 {
				continue
			}
			for dayKey, name := range dayMap {
				day := toInt(dayKey)
				if day < 1 || day > 31 {
					continue
				}
				c.AddHoliday(&cal.Holiday{
					Name:      name,
					Type:      cal.ObservancePublic,
					Month:     month,
					Day:       day,
					Func:      cal.CalcDayOfMonth,
					StartYear: year,
					EndYear:   year,
				})
			}
		}
	}
}

// parseClock parses an "HH:MM" time-of-day into a duration from midnight.
func parseClock(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// toInt converts various YAML scalar types to int.
func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return 0
}
