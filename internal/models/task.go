package models

import (
	"time"

	"github.com/taskping/taskping/internal/dates"
)

// Task is a single tracked item owned by one user. AssignerID equals
// UserID for self-added tasks and names the requesting user for tasks
// received through an assignment handshake.
type Task struct {
	ID         int64
	UserID     string
	Name       string
	DueDate    *dates.Date
	CreatedAt  time.Time
	AssignerID string
}

// SelfAssigned reports whether the task was added by its owner.
func (t Task) SelfAssigned() bool {
	return t.AssignerID == "" || t.AssignerID == t.UserID
}
