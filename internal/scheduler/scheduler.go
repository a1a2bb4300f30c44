// Package scheduler decides, once a minute, whose daily reminder
// should fire right now. A user's reminder fires when their local
// wall-clock matches their configured reminder time, at most once per
// local calendar day.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/repository"
	"github.com/taskping/taskping/internal/summary"
)

// SettingsReader is the slice of the settings store the scheduler
// reads on every tick.
type SettingsReader interface {
	Get(userID, key string) (string, bool, error)
	ListUsersWithSettings() ([]string, error)
}

// TaskRoller advances overdue due dates before a summary is composed.
type TaskRoller interface {
	Rollover(owner string, cutoff dates.Date) error
}

// SummaryComposer builds the message body for one user.
type SummaryComposer interface {
	Compose(ctx context.Context, userID string, today dates.Date) (summary.Summary, error)
}

// Deps are the scheduler's collaborators. Now defaults to time.Now
// and exists so tests can pin the clock.
type Deps struct {
	Settings SettingsReader
	Tasks    TaskRoller
	Composer SummaryComposer
	Sink     notify.Sink
	Now      func() time.Time
}

type Config struct {
	TickInterval time.Duration // evaluation cadence
	DefaultClock dates.Clock   // reminder time for users without a valid one
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Minute,
		DefaultClock: dates.Clock{Hour: 8, Minute: 0},
	}
}

const (
	dailyPrefix   = "Daily Reminder! "
	startupPrefix = "I am online! "
	startupEmpty  = "No tasks found at all."
)

// Scheduler owns the dispatch memory and runs the per-user evaluation.
type Scheduler struct {
	deps   Deps
	cfg    Config
	logger *log.Logger
	memory *DispatchMemory
}

func New(deps Deps, cfg Config, logger *log.Logger) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		memory: NewDispatchMemory(),
	}
}

// Run drives ticks until ctx is canceled. Ticks run sequentially on
// this goroutine, so a pass always finishes before the next starts.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Printf("scheduler started: interval=%s", s.cfg.TickInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("scheduler stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every registered user once. A failure for one user is
// logged and never blocks the rest of the pass.
func (s *Scheduler) Tick(ctx context.Context) {
	users, err := s.deps.Settings.ListUsersWithSettings()
	if err != nil {
		s.logger.Printf("scheduler: listing users: %v", err)
		return
	}
	for _, userID := range users {
		if err := s.evaluate(ctx, userID); err != nil {
			s.logger.Printf("scheduler: user %s: %v", userID, err)
		}
	}
}

// evaluate runs the skip chain for one user and dispatches when the
// user's local wall-clock matches their reminder time.
func (s *Scheduler) evaluate(ctx context.Context, userID string) error {
	disabled, err := s.reminderDisabled(userID)
	if err != nil {
		return err
	}
	if disabled {
		return nil
	}

	zone, ok, err := s.deps.Settings.Get(userID, repository.KeyTimezone)
	if err != nil {
		return fmt.Errorf("reading timezone: %w", err)
	}
	if !ok || zone == "" {
		return nil // no timezone, no reminder
	}

	localDate, hour, minute, err := dates.LocalNow(zone, s.deps.Now())
	if err != nil {
		return fmt.Errorf("resolving zone %q: %w", zone, err)
	}

	clock := s.reminderClock(userID)
	if hour != clock.Hour || minute != clock.Minute {
		return nil
	}
	if s.memory.AlreadySent(userID, localDate) {
		return nil
	}

	s.dispatch(ctx, userID, localDate)
	return nil
}

// dispatch runs one user's daily sequence: rollover, compose, deliver,
// record. Recording happens even when delivery fails, so a broken sink
// costs the day's reminder instead of a retry every minute.
func (s *Scheduler) dispatch(ctx context.Context, userID string, localDate dates.Date) {
	defer s.memory.MarkSent(userID, localDate)

	if err := s.deps.Tasks.Rollover(userID, localDate); err != nil {
		s.logger.Printf("scheduler: rollover for %s: %v", userID, err)
	}

	sum, err := s.deps.Composer.Compose(ctx, userID, localDate)
	if err != nil {
		s.logger.Printf("scheduler: composing summary for %s: %v", userID, err)
		return
	}
	if sum.Kind == summary.Empty {
		return // nothing due, nothing upcoming: stay quiet until tomorrow
	}

	if err := s.deps.Sink.Deliver(ctx, userID, dailyPrefix+sum.Text(), nil); err != nil {
		s.logger.Printf("scheduler: delivering reminder to %s: %v", userID, err)
	}
}

// Greet sends every configured user a summary immediately, announcing
// the process is back. Unlike the daily tick it speaks even when the
// user has nothing at all, and it does not count as the day's dispatch.
func (s *Scheduler) Greet(ctx context.Context) {
	users, err := s.deps.Settings.ListUsersWithSettings()
	if err != nil {
		s.logger.Printf("scheduler: greet: listing users: %v", err)
		return
	}
	for _, userID := range users {
		if err := s.greetUser(ctx, userID); err != nil {
			s.logger.Printf("scheduler: greet %s: %v", userID, err)
		}
	}
}

func (s *Scheduler) greetUser(ctx context.Context, userID string) error {
	disabled, err := s.reminderDisabled(userID)
	if err != nil {
		return err
	}
	if disabled {
		return nil
	}

	zone, ok, err := s.deps.Settings.Get(userID, repository.KeyTimezone)
	if err != nil {
		return fmt.Errorf("reading timezone: %w", err)
	}
	if !ok || zone == "" {
		return nil
	}

	localDate, _, _, err := dates.LocalNow(zone, s.deps.Now())
	if err != nil {
		return fmt.Errorf("resolving zone %q: %w", zone, err)
	}

	if err := s.deps.Tasks.Rollover(userID, localDate); err != nil {
		s.logger.Printf("scheduler: rollover for %s: %v", userID, err)
	}

	sum, err := s.deps.Composer.Compose(ctx, userID, localDate)
	if err != nil {
		return fmt.Errorf("composing summary: %w", err)
	}

	content := startupPrefix + sum.Text()
	if sum.Kind == summary.Empty {
		content = startupPrefix + startupEmpty
	}
	if err := s.deps.Sink.Deliver(ctx, userID, content, nil); err != nil {
		return fmt.Errorf("delivering greeting: %w", err)
	}
	return nil
}

// reminderDisabled reports whether the user opted out of reminders.
// A missing flag counts as enabled.
func (s *Scheduler) reminderDisabled(userID string) (bool, error) {
	enabled, ok, err := s.deps.Settings.Get(userID, repository.KeyReminderEnabled)
	if err != nil {
		return false, fmt.Errorf("reading reminder_enabled: %w", err)
	}
	return ok && enabled == "false", nil
}

// reminderClock reads the user's configured reminder time, falling
// back to the default when the setting is missing or malformed.
func (s *Scheduler) reminderClock(userID string) dates.Clock {
	raw, ok, err := s.deps.Settings.Get(userID, repository.KeyReminderTime)
	if err != nil || !ok || raw == "" {
		return s.cfg.DefaultClock
	}
	clock, err := dates.ParseClock(raw)
	if err != nil {
		s.logger.Printf("scheduler: user %s has reminder_time %q, using default", userID, raw)
		return s.cfg.DefaultClock
	}
	return clock
}
