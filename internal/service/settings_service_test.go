package service

import (
	"errors"
	"testing"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/repository"
)

func newTestSettingsService(t *testing.T) *SettingsService {
	t.Helper()
	return NewSettingsService(repository.NewSettingsRepository(openTestDB(t)))
}

func TestSetTimezoneNormalizesAliases(t *testing.T) {
	svc := newTestSettingsService(t)

	stored, err := svc.SetTimezone("U1", "PST")
	if err != nil {
		t.Fatalf("SetTimezone returned error: %v", err)
	}
	if stored != "US/Pacific" {
		t.Errorf("stored zone = %q, want US/Pacific", stored)
	}

	got, err := svc.Get("U1", repository.KeyTimezone)
	if err != nil || got != "US/Pacific" {
		t.Errorf("Get timezone = %q, %v", got, err)
	}
}

func TestSetTimezoneRejectsUnknownZones(t *testing.T) {
	svc := newTestSettingsService(t)

	if _, err := svc.SetTimezone("U1", "Mars/Olympus"); !errors.Is(err, dates.ErrUnknownZone) {
		t.Errorf("error = %v, want ErrUnknownZone", err)
	}
}

func TestSetReminderTimeCanonicalizes(t *testing.T) {
	svc := newTestSettingsService(t)

	clock, err := svc.SetReminderTime("U1", "9:5")
	if err != nil {
		t.Fatalf("SetReminderTime returned error: %v", err)
	}
	if clock != (dates.Clock{Hour: 9, Minute: 5}) {
		t.Errorf("clock = %+v", clock)
	}

	got, err := svc.Get("U1", repository.KeyReminderTime)
	if err != nil || got != "09:05" {
		t.Errorf("Get reminder_time = %q, %v, want 09:05", got, err)
	}

	if _, err := svc.SetReminderTime("U1", "25:00"); !errors.Is(err, dates.ErrBadClock) {
		t.Errorf("error = %v, want ErrBadClock", err)
	}
}

func TestSetDispatchesByKey(t *testing.T) {
	svc := newTestSettingsService(t)

	if _, err := svc.Set("U1", repository.KeyReminderEnabled, "maybe"); !errors.Is(err, ErrBadFlag) {
		t.Errorf("error = %v, want ErrBadFlag", err)
	}

	stored, err := svc.Set("U1", repository.KeyReminderEnabled, "false")
	if err != nil || stored != "false" {
		t.Fatalf("Set reminder_enabled = %q, %v", stored, err)
	}
	got, err := svc.Get("U1", repository.KeyReminderEnabled)
	if err != nil || got != "false" {
		t.Errorf("Get reminder_enabled = %q, %v, want false", got, err)
	}

	if _, err := svc.Set("U1", "favorite_color", "green"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("error = %v, want ErrUnknownKey", err)
	}
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := newTestSettingsService(t)

	got, err := svc.Get("brand-new-user", repository.KeyReminderTime)
	if err != nil || got != "08:00" {
		t.Errorf("default reminder_time = %q, %v, want 08:00", got, err)
	}
	if _, err := svc.Get("brand-new-user", "favorite_color"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("error = %v, want ErrUnknownKey", err)
	}
}
