package service

import (
	"errors"
	"fmt"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/repository"
)

var (
	ErrUnknownKey = errors.New("unknown setting key")
	ErrBadFlag    = errors.New("reminder_enabled must be \"true\" or \"false\"")
)

var settingDefaults = map[string]string{
	repository.KeyTimezone:        repository.DefaultTimezone,
	repository.KeyReminderTime:    repository.DefaultReminderTime,
	repository.KeyReminderEnabled: repository.DefaultEnabled,
}

// SettingsService validates and stores per-user settings.
type SettingsService struct {
	settings *repository.SettingsRepository
}

func NewSettingsService(settings *repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// SetTimezone normalizes common zone aliases, validates the zone and
// stores the canonical name, which is returned.
func (s *SettingsService) SetTimezone(userID, zone string) (string, error) {
	normalized, err := dates.NormalizeZone(zone)
	if err != nil {
		return "", err
	}
	if err := s.settings.Set(userID, repository.KeyTimezone, normalized); err != nil {
		return "", fmt.Errorf("saving timezone: %w", err)
	}
	return normalized, nil
}

// SetReminderTime validates HH:MM input and stores it canonically.
func (s *SettingsService) SetReminderTime(userID, raw string) (dates.Clock, error) {
	clock, err := dates.ParseClock(raw)
	if err != nil {
		return dates.Clock{}, err
	}
	if err := s.settings.Set(userID, repository.KeyReminderTime, clock.String()); err != nil {
		return dates.Clock{}, fmt.Errorf("saving reminder time: %w", err)
	}
	return clock, nil
}

// SetReminderEnabled flips the daily-reminder opt-out flag.
func (s *SettingsService) SetReminderEnabled(userID string, enabled bool) error {
	value := "true"
	if !enabled {
		value = "false"
	}
	if err := s.settings.Set(userID, repository.KeyReminderEnabled, value); err != nil {
		return fmt.Errorf("saving reminder flag: %w", err)
	}
	return nil
}

// Get returns the stored value for a known key, or the key's default
// when the user never set it.
func (s *SettingsService) Get(userID, key string) (string, error) {
	def, known := settingDefaults[key]
	if !known {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	value, found, err := s.settings.Get(userID, key)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	if !found || value == "" {
		return def, nil
	}
	return value, nil
}

// Set validates and stores one setting by key, returning the canonical
// stored value.
func (s *SettingsService) Set(userID, key, value string) (string, error) {
	switch key {
	case repository.KeyTimezone:
		return s.SetTimezone(userID, value)
	case repository.KeyReminderTime:
		clock, err := s.SetReminderTime(userID, value)
		if err != nil {
			return "", err
		}
		return clock.String(), nil
	case repository.KeyReminderEnabled:
		if value != "true" && value != "false" {
			return "", fmt.Errorf("%w: got %q", ErrBadFlag, value)
		}
		if err := s.SetReminderEnabled(userID, value == "true"); err != nil {
			return "", err
		}
		return value, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}
