package repository

import (
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys the rest of the system understands.
const (
	KeyTimezone        = "timezone"
	KeyReminderTime    = "reminder_time"
	KeyReminderEnabled = "reminder_enabled"
)

// Values seeded by EnsureInitialized.
const (
	DefaultTimezone     = "UTC"
	DefaultReminderTime = "08:00"
	DefaultEnabled      = "true"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored value and whether the key is present for the
// user.
func (r *SettingsRepository) Get(user, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(
		`SELECT value FROM settings WHERE user_id = ? AND key = ?`,
		user, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s/%s: %w", user, key, err)
	}
	return value, true, nil
}

// Set stores the value, replacing any previous one.
func (r *SettingsRepository) Set(user, key, value string) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO settings (user_id, key, value) VALUES (?, ?, ?)`,
		user, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s/%s: %w", user, key, err)
	}
	return nil
}

// ListUsersWithSettings returns every user id that has at least one
// settings row.
func (r *SettingsRepository) ListUsersWithSettings() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM settings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// EnsureInitialized seeds the default settings rows for a user without
// touching values already set.
func (r *SettingsRepository) EnsureInitialized(user string) error {
	defaults := []struct {
		key   string
		value string
	}{
		{KeyTimezone, DefaultTimezone},
		{KeyReminderTime, DefaultReminderTime},
		{KeyReminderEnabled, DefaultEnabled},
	}

	for _, d := range defaults {
		_, err := r.db.Exec(
			`INSERT OR IGNORE INTO settings (user_id, key, value) VALUES (?, ?, ?)`,
			user, d.key, d.value,
		)
		if err != nil {
			return fmt.Errorf("ensure settings for %s: %w", user, err)
		}
	}
	return nil
}
