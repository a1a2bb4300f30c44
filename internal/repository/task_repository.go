package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/models"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskColumns is the select list every query scans in this order.
const taskColumns = `id, user_id, name, due_date, created_at, assigner_id`

// listOrder keeps listings deterministic: soonest due date first with
// dateless tasks last, self-assigned before received on ties, then
// assigner and id.
const listOrder = `
        ORDER BY CASE WHEN due_date IS NULL THEN 1 ELSE 0 END,
                 due_date ASC,
                 CASE WHEN assigner_id = user_id THEN 0 ELSE 1 END,
                 assigner_id ASC,
                 id ASC`

// Add inserts a task and returns its store-assigned id. An empty
// assigner defaults to the owner, marking the task self-added.
func (r *TaskRepository) Add(owner, name string, due *dates.Date, assigner string) (int64, error) {
	if assigner == "" {
		assigner = owner
	}

	query := `
        INSERT INTO tasks (user_id, name, due_date, assigner_id)
        VALUES (?, ?, ?, ?)
    `

	result, err := r.db.Exec(query, owner, name, dueValue(due), assigner)
	if err != nil {
		return 0, fmt.Errorf("add task: %w", err)
	}

	return result.LastInsertId()
}

// Delete removes the task if it belongs to owner and reports whether a
// row was deleted.
func (r *TaskRepository) Delete(owner string, id int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, owner)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return affected > 0, nil
}

// DeleteMany removes the owner's tasks matching ids and returns how
// many rows were deleted.
func (r *TaskRepository) DeleteMany(owner string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`DELETE FROM tasks WHERE user_id = ? AND id IN (%s)`,
		strings.Join(placeholders, ","),
	)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}

	return result.RowsAffected()
}

// ListTop returns up to limit tasks in listing order.
func (r *TaskRepository) ListTop(owner string, limit int) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?` + listOrder + ` LIMIT ?`

	rows, err := r.db.Query(query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list top tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListAllSorted returns every task the owner has, in listing order.
func (r *TaskRepository) ListAllSorted(owner string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?` + listOrder

	rows, err := r.db.Query(query, owner)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListDueOn returns the owner's tasks due exactly on date, by ascending
// id.
func (r *TaskRepository) ListDueOn(owner string, date dates.Date) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND due_date = ? ORDER BY id ASC`

	rows, err := r.db.Query(query, owner, date.String())
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// Rollover advances every due date of the owner that is earlier than
// cutoff up to cutoff. ISO dates compare correctly as text.
func (r *TaskRepository) Rollover(owner string, cutoff dates.Date) error {
	query := `
        UPDATE tasks SET due_date = ?
        WHERE user_id = ? AND due_date IS NOT NULL AND due_date < ?
    `

	if _, err := r.db.Exec(query, cutoff.String(), owner, cutoff.String()); err != nil {
		return fmt.Errorf("rollover tasks: %w", err)
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func scanTask(rows *sql.Rows) (models.Task, error) {
	var (
		t        models.Task
		due      sql.NullString
		assigner sql.NullString
	)

	err := rows.Scan(&t.ID, &t.UserID, &t.Name, &due, &t.CreatedAt, &assigner)
	if err != nil {
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}

	if due.Valid {
		d, err := dates.ParseDate(due.String)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %d has malformed due date %q: %w", t.ID, due.String, err)
		}
		t.DueDate = &d
	}
	if assigner.Valid {
		t.AssignerID = assigner.String
	} else {
		t.AssignerID = t.UserID
	}

	return t, nil
}

func dueValue(d *dates.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
