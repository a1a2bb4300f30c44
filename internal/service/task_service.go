package service

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/repository"
)

var ErrEmptyName = errors.New("task name must not be empty")

// TaskService owns the task operations behind the chat commands and
// the HTTP adapter. Every due date that reaches the store has been
// resolved and clamped against the reference frame's current date.
type TaskService struct {
	tasks         *repository.TaskRepository
	settings      *repository.SettingsRepository
	reference     *time.Location
	upcomingLimit int
	logger        *log.Logger

	now func() time.Time
	rng *rand.Rand
}

func NewTaskService(
	tasks *repository.TaskRepository,
	settings *repository.SettingsRepository,
	reference *time.Location,
	upcomingLimit int,
	logger *log.Logger,
) *TaskService {
	if reference == nil {
		reference = time.UTC
	}
	if upcomingLimit <= 0 {
		upcomingLimit = 5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TaskService{
		tasks:         tasks,
		settings:      settings,
		reference:     reference,
		upcomingLimit: upcomingLimit,
		logger:        logger,
		now:           time.Now,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ReferenceToday is "today" in the store's reference frame, the date
// raw due-date input is resolved and clamped against.
func (s *TaskService) ReferenceToday() dates.Date {
	return dates.FromTime(s.now().In(s.reference))
}

// Add resolves the raw due-date input and stores a self-assigned task.
func (s *TaskService) Add(owner, name, rawDue string) (*models.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var due *dates.Date
	if strings.TrimSpace(rawDue) != "" {
		d, err := dates.ResolveDueDate(rawDue, s.ReferenceToday())
		if err != nil {
			return nil, err
		}
		due = &d
	}

	id, err := s.AddResolved(owner, name, due, "")
	if err != nil {
		return nil, err
	}
	return &models.Task{
		ID:         id,
		UserID:     owner,
		Name:       name,
		DueDate:    due,
		CreatedAt:  s.now(),
		AssignerID: owner,
	}, nil
}

// AddResolved stores a task whose due date is already canonical,
// re-clamping it in case it went stale between resolution and the
// write. The assignment handshake lands accepted tasks through here.
func (s *TaskService) AddResolved(owner, name string, due *dates.Date, assigner string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	if due != nil {
		if today := s.ReferenceToday(); due.Before(today) {
			clamped := today
			due = &clamped
		}
	}

	id, err := s.tasks.Add(owner, name, due, assigner)
	if err != nil {
		return 0, fmt.Errorf("adding task: %w", err)
	}

	// Seed default settings so the scheduler knows about this user.
	if err := s.settings.EnsureInitialized(owner); err != nil {
		s.logger.Printf("service: initializing settings for %s: %v", owner, err)
	}
	return id, nil
}

// Complete removes the task. False means no task with that id belongs
// to the owner.
func (s *TaskService) Complete(owner string, id int64) (bool, error) {
	return s.tasks.Delete(owner, id)
}

// CompleteMany removes a batch and reports how many actually went.
func (s *TaskService) CompleteMany(owner string, ids []int64) (int64, error) {
	return s.tasks.DeleteMany(owner, ids)
}

// Upcoming returns the soonest tasks, at most the configured limit.
func (s *TaskService) Upcoming(owner string) ([]models.Task, error) {
	return s.tasks.ListTop(owner, s.upcomingLimit)
}

// All returns every task in display order.
func (s *TaskService) All(owner string) ([]models.Task, error) {
	return s.tasks.ListAllSorted(owner)
}

// Focus picks one task to work on: a random due-today-or-overdue task
// first, then a random task from the earliest future due date, then a
// random dateless one. Returns nil when the owner has no tasks; the
// string explains why the task was picked.
func (s *TaskService) Focus(owner string) (*models.Task, string, error) {
	tasks, err := s.tasks.ListAllSorted(owner)
	if err != nil {
		return nil, "", fmt.Errorf("listing tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil, "", nil
	}

	today := s.ReferenceToday()
	var priority, dateless []models.Task
	buckets := make(map[dates.Date][]models.Task)
	for _, t := range tasks {
		switch {
		case t.DueDate == nil:
			dateless = append(dateless, t)
		case !t.DueDate.After(today):
			priority = append(priority, t)
		default:
			buckets[*t.DueDate] = append(buckets[*t.DueDate], t)
		}
	}

	if len(priority) > 0 {
		return s.pick(priority), "due today (or overdue)", nil
	}
	if len(buckets) > 0 {
		var earliest dates.Date
		first := true
		for d := range buckets {
			if first || d.Before(earliest) {
				earliest = d
				first = false
			}
		}
		return s.pick(buckets[earliest]), fmt.Sprintf("due on %s", earliest), nil
	}
	return s.pick(dateless), "from your backlog", nil
}

func (s *TaskService) pick(tasks []models.Task) *models.Task {
	t := tasks[s.rng.Intn(len(tasks))]
	return &t
}
