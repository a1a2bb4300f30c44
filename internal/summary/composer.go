// Package summary builds the reminder message body for one user:
// tasks due today first, the soonest upcoming tasks as a fallback,
// or an empty result the caller may suppress or announce.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/models"
)

// Kind tells the caller which branch produced the summary.
type Kind int

const (
	// DueToday lists tasks whose due date is the user's current date.
	DueToday Kind = iota
	// Upcoming is the fallback list of soonest tasks when nothing is
	// due today.
	Upcoming
	// Empty means the user has no tasks at all. The daily tick
	// suppresses delivery on Empty; the startup greeting announces it.
	Empty
)

func (k Kind) String() string {
	switch k {
	case DueToday:
		return "due_today"
	case Upcoming:
		return "upcoming"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Summary is one composed reminder body.
type Summary struct {
	Kind   Kind
	Header string
	Lines  []string
}

// Text renders the summary as a single message body.
func (s Summary) Text() string {
	if len(s.Lines) == 0 {
		return s.Header
	}
	return s.Header + "\n" + strings.Join(s.Lines, "\n")
}

// TaskLister is the slice of the task store the composer reads.
type TaskLister interface {
	ListDueOn(owner string, date dates.Date) ([]models.Task, error)
	ListTop(owner string, limit int) ([]models.Task, error)
}

// NameResolver turns a user id into a display name. It never fails;
// unresolvable ids come back as a fallback label.
type NameResolver interface {
	DisplayName(ctx context.Context, userID string) string
}

const (
	headerDueToday = "Here are the tasks due today:"
	headerUpcoming = "No tasks due today. Here are your upcoming tasks:"
)

// Composer builds reminder summaries from the task store.
type Composer struct {
	tasks         TaskLister
	names         NameResolver
	upcomingLimit int
}

func NewComposer(tasks TaskLister, names NameResolver, upcomingLimit int) *Composer {
	if upcomingLimit <= 0 {
		upcomingLimit = 5
	}
	return &Composer{
		tasks:         tasks,
		names:         names,
		upcomingLimit: upcomingLimit,
	}
}

// Compose picks the due-today list first, falls back to the soonest
// upcoming tasks, and reports Empty when the user has nothing at all.
func (c *Composer) Compose(ctx context.Context, userID string, today dates.Date) (Summary, error) {
	tasks, err := c.tasks.ListDueOn(userID, today)
	if err != nil {
		return Summary{}, fmt.Errorf("listing tasks due on %s: %w", today, err)
	}
	if len(tasks) > 0 {
		return Summary{
			Kind:   DueToday,
			Header: headerDueToday,
			Lines:  c.lines(ctx, tasks, today),
		}, nil
	}

	tasks, err = c.tasks.ListTop(userID, c.upcomingLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("listing upcoming tasks: %w", err)
	}
	if len(tasks) > 0 {
		return Summary{
			Kind:   Upcoming,
			Header: headerUpcoming,
			Lines:  c.lines(ctx, tasks, today),
		}, nil
	}

	return Summary{Kind: Empty}, nil
}

func (c *Composer) lines(ctx context.Context, tasks []models.Task, today dates.Date) []string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, c.Line(ctx, t, today))
	}
	return lines
}

// Line renders a single task entry. Tasks received from another user
// carry an attribution suffix naming the assigner.
func (c *Composer) Line(ctx context.Context, t models.Task, today dates.Date) string {
	line := fmt.Sprintf("- [ID: %d] %s (%s)", t.ID, t.Name, dates.DisplayLabel(t.DueDate, today))
	if !t.SelfAssigned() {
		line += fmt.Sprintf(" (from %s)", c.names.DisplayName(ctx, t.AssignerID))
	}
	return line
}
