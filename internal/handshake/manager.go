// Package handshake coordinates two-party task offers: a requester
// proposes a task to a target, who accepts or declines before a fixed
// timeout lapses. Exactly one terminal outcome ever takes effect for
// an offer, no matter how a response races the timeout.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/notify"
)

var (
	ErrNoSuchOffer   = errors.New("offer not found or already resolved")
	ErrNotTarget     = errors.New("only the offered user can respond")
	ErrEmptyTaskName = errors.New("task name must not be empty")
)

// Offer is a snapshot of one handshake. Offers live in memory only; a
// restart abandons whatever was open.
type Offer struct {
	ID        string
	Requester string
	Target    string
	TaskName  string
	DueDate   *dates.Date
	CreatedAt time.Time
	State     State

	timer *time.Timer
}

// Tasks is the slice of the task layer the manager needs: adding the
// accepted task (with write-time due-date clamping) and the reference
// date offers are resolved against.
type Tasks interface {
	AddResolved(owner, name string, due *dates.Date, assigner string) (int64, error)
	ReferenceToday() dates.Date
}

// NameResolver renders user ids for offer messages. Never fails.
type NameResolver interface {
	DisplayName(ctx context.Context, userID string) string
}

// Manager owns all open offers and their timeout timers.
type Manager struct {
	tasks   Tasks
	sink    notify.Sink
	names   NameResolver
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time

	mu     sync.Mutex
	offers map[string]*Offer
}

func NewManager(tasks Tasks, sink notify.Sink, names NameResolver, timeout time.Duration, logger *log.Logger) *Manager {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		tasks:   tasks,
		sink:    sink,
		names:   names,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
		offers:  make(map[string]*Offer),
	}
}

// Open resolves the raw due date, registers the offer, prompts the
// target, and arms the timeout. Bad input aborts before any offer
// state exists.
func (m *Manager) Open(ctx context.Context, requester, target, taskName, rawDue string) (Offer, error) {
	taskName = strings.TrimSpace(taskName)
	if taskName == "" {
		return Offer{}, ErrEmptyTaskName
	}

	today := m.tasks.ReferenceToday()
	var due *dates.Date
	if strings.TrimSpace(rawDue) != "" {
		d, err := dates.ResolveDueDate(rawDue, today)
		if err != nil {
			return Offer{}, err
		}
		due = &d
	}

	o := &Offer{
		ID:        uuid.New().String(),
		Requester: requester,
		Target:    target,
		TaskName:  taskName,
		DueDate:   due,
		CreatedAt: m.now(),
		State:     StateOffered,
	}

	m.mu.Lock()
	m.offers[o.ID] = o
	o.timer = time.AfterFunc(m.timeout, func() { m.expire(o.ID) })
	snapshot := *o
	m.mu.Unlock()

	prompt := fmt.Sprintf("%s wants to assign you a task: %s (%s)",
		m.names.DisplayName(ctx, requester), taskName, dates.DisplayLabel(due, today))
	if err := m.sink.Deliver(ctx, target, prompt, &notify.Controls{OfferID: o.ID}); err != nil {
		// The offer stays open; the timeout reaps it if the target
		// never saw the prompt.
		m.logger.Printf("handshake: offer %s: prompting %s: %v", o.ID, target, err)
	}

	return snapshot, nil
}

// Respond applies the target's accept or decline. The transition is
// atomic against the timeout timer: whichever arrives first wins and
// the loser is a no-op. Responses from anyone but the recorded target
// are rejected without a state change.
func (m *Manager) Respond(ctx context.Context, offerID, responder string, accept bool) (State, error) {
	m.mu.Lock()
	o, ok := m.offers[offerID]
	if !ok || o.State != StateOffered {
		m.mu.Unlock()
		return "", ErrNoSuchOffer
	}
	if o.Target != responder {
		m.mu.Unlock()
		return "", ErrNotTarget
	}

	o.timer.Stop()
	if accept {
		o.State = StateAccepted
	} else {
		o.State = StateDeclined
	}
	delete(m.offers, offerID)
	snapshot := *o
	m.mu.Unlock()

	if accept {
		m.finishAccept(ctx, snapshot)
	} else {
		m.finishDecline(ctx, snapshot)
	}
	return snapshot.State, nil
}

// OpenCount reports how many offers are still awaiting a response.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.offers)
}

func (m *Manager) finishAccept(ctx context.Context, o Offer) {
	id, err := m.tasks.AddResolved(o.Target, o.TaskName, o.DueDate, o.Requester)
	if err != nil {
		m.logger.Printf("handshake: offer %s: storing accepted task: %v", o.ID, err)
		m.deliver(ctx, o.Target, fmt.Sprintf("Could not save the task %s. Please add it yourself.", o.TaskName))
		return
	}

	label := dates.DisplayLabel(o.DueDate, m.tasks.ReferenceToday())
	m.deliver(ctx, o.Target, fmt.Sprintf("Task added: %s (%s) (ID: %d)", o.TaskName, label, id))
	m.deliver(ctx, o.Requester, fmt.Sprintf("%s accepted your task: %s",
		m.names.DisplayName(ctx, o.Target), o.TaskName))
}

func (m *Manager) finishDecline(ctx context.Context, o Offer) {
	m.deliver(ctx, o.Target, fmt.Sprintf("Declined: %s", o.TaskName))
	m.deliver(ctx, o.Requester, fmt.Sprintf("%s declined your task: %s",
		m.names.DisplayName(ctx, o.Target), o.TaskName))
}

// expire is the timeout path. It quietly loses when a response already
// resolved the offer.
func (m *Manager) expire(offerID string) {
	m.mu.Lock()
	o, ok := m.offers[offerID]
	if !ok || o.State != StateOffered {
		m.mu.Unlock()
		return
	}
	o.State = StateTimedOut
	delete(m.offers, offerID)
	snapshot := *o
	m.mu.Unlock()

	ctx := context.Background()
	m.deliver(ctx, snapshot.Requester, fmt.Sprintf("Your offer to %s expired without a response: %s (sent %s)",
		m.names.DisplayName(ctx, snapshot.Target), snapshot.TaskName, humanize.Time(snapshot.CreatedAt)))
}

// deliver is best effort; offer outcomes never fail on a sink error.
func (m *Manager) deliver(ctx context.Context, userID, content string) {
	if err := m.sink.Deliver(ctx, userID, content, nil); err != nil {
		m.logger.Printf("handshake: notifying %s: %v", userID, err)
	}
}
