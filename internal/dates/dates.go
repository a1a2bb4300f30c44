package dates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrBadDateInput = errors.New("date must be YYYY-MM-DD or a number of days from today")
	ErrBadClock     = errors.New("time must be HH:MM in 24-hour form")
)

// Date is a canonical calendar date with no time component. The zero
// value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a normalized Date; out-of-range components roll over the
// same way time.Date rolls them.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime extracts the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrBadDateInput, s)
	}
	return FromTime(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) toTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.toTime().AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.toTime().Before(o.toTime())
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// DaysUntil returns the number of whole days from d to o, negative when
// o is in the past relative to d.
func (d Date) DaysUntil(o Date) int {
	return int(o.toTime().Sub(d.toTime()) / (24 * time.Hour))
}

// ResolveDueDate turns raw user input into a canonical due date. Input
// is either a non-negative day offset ("0", "3") or a literal
// YYYY-MM-DD date. A resolved date earlier than today is clamped
// forward to today; past-dated tasks never persist as overdue from
// creation.
func ResolveDueDate(input string, today Date) (Date, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty input", ErrBadDateInput)
	}
	if isDigits(s) {
		days, err := strconv.Atoi(s)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrBadDateInput, input)
		}
		return today.AddDays(days), nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	if d.Before(today) {
		return today, nil
	}
	return d, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DisplayLabel buckets the distance between today and the due date into
// the fixed labels shown beside every task line. A nil due date has its
// own label.
func DisplayLabel(due *Date, today Date) string {
	if due == nil {
		return "No due date"
	}
	delta := today.DaysUntil(*due)
	switch {
	case delta < 0:
		return fmt.Sprintf("Overdue (%s)", due)
	case delta == 0:
		return "Today"
	case delta == 1:
		return "Tomorrow"
	case delta == 2:
		return "In 2 days"
	default:
		return fmt.Sprintf("Due: %s", due)
	}
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses HH:MM in 24-hour form.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}
