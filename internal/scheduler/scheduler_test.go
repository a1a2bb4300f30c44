package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/repository"
	"github.com/taskping/taskping/internal/summary"
)

type fakeSettings struct {
	values  map[string]map[string]string
	listErr error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]map[string]string)}
}

func (f *fakeSettings) add(userID string, kv map[string]string) *fakeSettings {
	f.values[userID] = kv
	return f
}

func (f *fakeSettings) Get(userID, key string) (string, bool, error) {
	v, ok := f.values[userID][key]
	return v, ok, nil
}

func (f *fakeSettings) ListUsersWithSettings() ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	users := make([]string, 0, len(f.values))
	for u := range f.values {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

type rolloverCall struct {
	owner  string
	cutoff dates.Date
}

type fakeRoller struct {
	calls []rolloverCall
}

func (f *fakeRoller) Rollover(owner string, cutoff dates.Date) error {
	f.calls = append(f.calls, rolloverCall{owner, cutoff})
	return nil
}

type fakeComposer struct {
	summaries map[string]summary.Summary
	errs      map[string]error
	calls     map[string]int
}

func newFakeComposer() *fakeComposer {
	return &fakeComposer{
		summaries: make(map[string]summary.Summary),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeComposer) Compose(_ context.Context, userID string, _ dates.Date) (summary.Summary, error) {
	f.calls[userID]++
	if err := f.errs[userID]; err != nil {
		return summary.Summary{}, err
	}
	return f.summaries[userID], nil
}

type delivery struct {
	userID  string
	content string
}

type fakeSink struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (f *fakeSink) Deliver(_ context.Context, userID, content string, _ *notify.Controls) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, delivery{userID, content})
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

func (f *fakeSink) at(i int) delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deliveries[i]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func utcSettings(reminderTime string) map[string]string {
	return map[string]string{
		repository.KeyTimezone:        "UTC",
		repository.KeyReminderTime:    reminderTime,
		repository.KeyReminderEnabled: "true",
	}
}

func dueTodaySummary(lines ...string) summary.Summary {
	return summary.Summary{
		Kind:   summary.DueToday,
		Header: "Here are the tasks due today:",
		Lines:  lines,
	}
}

func newTestScheduler(settings SettingsReader, tasks TaskRoller, comp SummaryComposer, sink notify.Sink, now func() time.Time) *Scheduler {
	deps := Deps{Settings: settings, Tasks: tasks, Composer: comp, Sink: sink, Now: now}
	cfg := Config{TickInterval: time.Minute, DefaultClock: dates.Clock{Hour: 8}}
	return New(deps, cfg, discard())
}

func TestTickDispatchesAtReminderMinute(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("08:00"))
	roller := &fakeRoller{}
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] file taxes (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, roller, comp, sink, clock.Now)
	s.Tick(context.Background())

	if sink.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", sink.count())
	}
	got := sink.at(0)
	if got.userID != "A" {
		t.Errorf("delivered to %q, want A", got.userID)
	}
	want := "Daily Reminder! Here are the tasks due today:\n- [ID: 1] file taxes (Today)"
	if got.content != want {
		t.Errorf("content = %q, want %q", got.content, want)
	}
	if len(roller.calls) != 1 || roller.calls[0] != (rolloverCall{"A", dates.New(2026, 3, 10)}) {
		t.Errorf("rollover calls = %v, want one for A on 2026-03-10", roller.calls)
	}
}

func TestTickDispatchesAtMostOncePerLocalDay(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] file taxes (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 5, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)

	// Many ticks inside the matching minute: only the first dispatches.
	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
	}
	if sink.count() != 1 {
		t.Fatalf("deliveries after repeated ticks = %d, want 1", sink.count())
	}

	// The next minute no longer matches.
	clock.set(time.Date(2026, 3, 10, 8, 1, 5, 0, time.UTC))
	s.Tick(context.Background())
	if sink.count() != 1 {
		t.Fatalf("deliveries after 08:01 tick = %d, want 1", sink.count())
	}

	// The next local day dispatches again.
	clock.set(time.Date(2026, 3, 11, 8, 0, 5, 0, time.UTC))
	s.Tick(context.Background())
	if sink.count() != 2 {
		t.Fatalf("deliveries after next-day tick = %d, want 2", sink.count())
	}
}

func TestTickUsesEachUsersLocalClock(t *testing.T) {
	settings := newFakeSettings().
		add("A", utcSettings("08:00")).
		add("B", map[string]string{
			repository.KeyTimezone:        "Asia/Tokyo",
			repository.KeyReminderTime:    "08:00",
			repository.KeyReminderEnabled: "true",
		})
	roller := &fakeRoller{}
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	comp.summaries["B"] = dueTodaySummary("- [ID: 2] b (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, roller, comp, sink, clock.Now)

	// 08:00 UTC is 17:00 in Tokyo: only A fires.
	s.Tick(context.Background())
	if sink.count() != 1 || sink.at(0).userID != "A" {
		t.Fatalf("deliveries at 08:00 UTC = %v, want exactly A", sink.deliveries)
	}

	// 23:00 UTC is 08:00 next day in Tokyo: B fires with Tokyo's date.
	clock.set(time.Date(2026, 3, 10, 23, 0, 30, 0, time.UTC))
	s.Tick(context.Background())
	if sink.count() != 2 || sink.at(1).userID != "B" {
		t.Fatalf("deliveries at 23:00 UTC = %v, want A then B", sink.deliveries)
	}
	last := roller.calls[len(roller.calls)-1]
	if last != (rolloverCall{"B", dates.New(2026, 3, 11)}) {
		t.Errorf("rollover for B = %v, want owner B cutoff 2026-03-11", last)
	}
}

func TestTickSkipsDisabledUsers(t *testing.T) {
	off := utcSettings("08:00")
	off[repository.KeyReminderEnabled] = "false"
	settings := newFakeSettings().
		add("A", off).
		add("B", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	comp.summaries["B"] = dueTodaySummary("- [ID: 2] b (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Tick(context.Background())

	if sink.count() != 1 || sink.at(0).userID != "B" {
		t.Fatalf("deliveries = %v, want exactly B", sink.deliveries)
	}
}

func TestTickSkipsUsersWithoutTimezone(t *testing.T) {
	settings := newFakeSettings().add("A", map[string]string{
		repository.KeyReminderTime: "08:00",
	})
	roller := &fakeRoller{}
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, roller, newFakeComposer(), sink, clock.Now)
	s.Tick(context.Background())

	if sink.count() != 0 {
		t.Errorf("deliveries = %d, want 0 for a user with no timezone", sink.count())
	}
	if len(roller.calls) != 0 {
		t.Errorf("rollover called %d times, want 0", len(roller.calls))
	}
}

func TestTickIsolatesUnknownZone(t *testing.T) {
	settings := newFakeSettings().
		add("A", map[string]string{
			repository.KeyTimezone:     "Mars/Olympus",
			repository.KeyReminderTime: "08:00",
		}).
		add("B", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["B"] = dueTodaySummary("- [ID: 2] b (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Tick(context.Background())

	if sink.count() != 1 || sink.at(0).userID != "B" {
		t.Fatalf("deliveries = %v, want exactly B despite A's bad zone", sink.deliveries)
	}
}

func TestTickMalformedReminderTimeFallsBackToDefault(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("25:99"))
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)

	// 09:15 does not match the 08:00 default.
	s.Tick(context.Background())
	if sink.count() != 0 {
		t.Fatalf("deliveries at 09:15 = %d, want 0", sink.count())
	}

	clock.set(time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC))
	s.Tick(context.Background())
	if sink.count() != 1 {
		t.Fatalf("deliveries at default 08:00 = %d, want 1", sink.count())
	}
}

func TestTickRecordsDayEvenWhenDeliveryFails(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	sink := &fakeSink{err: errors.New("gateway down")}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)

	s.Tick(context.Background())
	s.Tick(context.Background())

	if sink.count() != 1 {
		t.Errorf("delivery attempts = %d, want 1 (failed attempt still counts for the day)", sink.count())
	}
}

func TestTickIsolatesComposerFailure(t *testing.T) {
	settings := newFakeSettings().
		add("A", utcSettings("08:00")).
		add("B", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.errs["A"] = errors.New("db locked")
	comp.summaries["B"] = dueTodaySummary("- [ID: 2] b (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Tick(context.Background())

	if sink.count() != 1 || sink.at(0).userID != "B" {
		t.Fatalf("deliveries = %v, want exactly B despite A's compose failure", sink.deliveries)
	}

	// The failed attempt still consumed A's day.
	s.Tick(context.Background())
	if comp.calls["A"] != 1 {
		t.Errorf("compose calls for A = %d, want 1", comp.calls["A"])
	}
}

func TestTickSuppressesEmptySummary(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["A"] = summary.Summary{Kind: summary.Empty}
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Tick(context.Background())

	if sink.count() != 0 {
		t.Fatalf("deliveries = %d, want 0 for an empty summary", sink.count())
	}

	// The quiet day is still recorded; a later task does not resurrect it.
	comp.summaries["A"] = dueTodaySummary("- [ID: 9] late arrival (Today)")
	s.Tick(context.Background())
	if sink.count() != 0 {
		t.Errorf("deliveries = %d, want 0 after the day was recorded", sink.count())
	}
}

func TestGreetAnnouncesEveryone(t *testing.T) {
	settings := newFakeSettings().
		add("A", utcSettings("08:00")).
		add("B", utcSettings("08:00")).
		add("C", map[string]string{repository.KeyReminderTime: "08:00"})
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	comp.summaries["B"] = summary.Summary{Kind: summary.Empty}
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Greet(context.Background())

	if sink.count() != 2 {
		t.Fatalf("greet deliveries = %d, want 2 (C has no timezone)", sink.count())
	}
	wantA := "I am online! Here are the tasks due today:\n- [ID: 1] a (Today)"
	if got := sink.at(0); got.userID != "A" || got.content != wantA {
		t.Errorf("greet A = %+v, want %q", got, wantA)
	}
	wantB := "I am online! No tasks found at all."
	if got := sink.at(1); got.userID != "B" || got.content != wantB {
		t.Errorf("greet B = %+v, want %q", got, wantB)
	}
}

func TestGreetDoesNotConsumeTheDailyDispatch(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 7, 59, 0, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Greet(context.Background())

	clock.set(time.Date(2026, 3, 10, 8, 0, 10, 0, time.UTC))
	s.Tick(context.Background())

	if sink.count() != 2 {
		t.Fatalf("deliveries = %d, want greeting plus daily reminder", sink.count())
	}
}

func TestGreetSkipsDisabledUsers(t *testing.T) {
	off := utcSettings("08:00")
	off[repository.KeyReminderEnabled] = "false"
	settings := newFakeSettings().add("A", off)
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	s := newTestScheduler(settings, &fakeRoller{}, comp, sink, clock.Now)
	s.Greet(context.Background())

	if sink.count() != 0 {
		t.Errorf("greet deliveries = %d, want 0 for a disabled user", sink.count())
	}
}

func TestRunTicksUntilCanceled(t *testing.T) {
	settings := newFakeSettings().add("A", utcSettings("08:00"))
	comp := newFakeComposer()
	comp.summaries["A"] = dueTodaySummary("- [ID: 1] a (Today)")
	sink := &fakeSink{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)}

	deps := Deps{Settings: settings, Tasks: &fakeRoller{}, Composer: comp, Sink: sink, Now: clock.Now}
	cfg := Config{TickInterval: 5 * time.Millisecond, DefaultClock: dates.Clock{Hour: 8}}
	s := New(deps, cfg, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("no delivery within 2s of starting Run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	// Dispatch memory holds across every tick Run performed.
	if sink.count() != 1 {
		t.Errorf("deliveries = %d, want 1 across all ticks", sink.count())
	}
}

func TestDispatchMemory(t *testing.T) {
	m := NewDispatchMemory()
	day := dates.New(2026, 3, 10)

	if m.AlreadySent("A", day) {
		t.Error("AlreadySent true before any MarkSent")
	}
	m.MarkSent("A", day)
	if !m.AlreadySent("A", day) {
		t.Error("AlreadySent false after MarkSent")
	}
	if m.AlreadySent("B", day) {
		t.Error("AlreadySent leaked across users")
	}
	if m.AlreadySent("A", day.AddDays(1)) {
		t.Error("AlreadySent true for a different date")
	}
}
