package services

import (
	"context"
	"testing"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/config"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/database"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

// fakeJobScheduler records Enqueue/Cancel calls instead of touching a
// real Valkey-backed queue, the same stand-in role the bot's own
// tests give a fake transport/provider.
type fakeJobScheduler struct {
	enqueued map[string]time.Time
	canceled map[string]bool
}

func newFakeJobScheduler() *fakeJobScheduler {
	return &fakeJobScheduler{enqueued: map[string]time.Time{}, canceled: map[string]bool{}}
}

func (f *fakeJobScheduler) Enqueue(ctx context.Context, reminderID string, occurrenceUTC time.Time) error {
	f.enqueued[reminderID] = occurrenceUTC
	return nil
}

func (f *fakeJobScheduler) Cancel(ctx context.Context, reminderID string) error {
	f.canceled[reminderID] = true
	return nil
}

func newTestReminderService(t *testing.T, now time.Time) (*ReminderService, *clock.Frozen, *fakeJobScheduler) {
	t.Helper()

	dbPath := t.TempDir() + "/reminders.db"
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dbPath})
	if err != nil {
		t.Fatalf("database.Open() unexpected error: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("repository.Migrate() unexpected error: %v", err)
	}

	frozen := clock.NewFrozen(now)
	jobs := newFakeJobScheduler()
	return NewReminderService(repository.NewReminderRepository(db), frozen, jobs), frozen, jobs
}

// TestReminderService_Create_LeadTimeFromQuotedEvent mirrors spec.md
// §8 scenario 4: a reminder created "a day before" a quoted event's
// start resolves to start-1440min with lead_time_minutes=1440.
func TestReminderService_Create_LeadTimeFromQuotedEvent(t *testing.T) {
	now := time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC)
	svc, clk, jobs := newTestReminderService(t, now)

	eventStart := time.Date(2025, 11, 8, 7, 0, 0, 0, time.UTC)
	lead := 1440

	rem, err := svc.Create(context.Background(), CreateReminderInput{
		UserID:          "u1",
		Title:           "תזכיר לי יום לפני",
		EventStartUTC:   &eventStart,
		LeadTimeMinutes: &lead,
		Now:             clk.Now(),
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	want := eventStart.Add(-1440 * time.Minute)
	if !rem.ReminderTSUTC.Equal(want) {
		t.Fatalf("Create() reminder_ts_utc = %v, want %v", rem.ReminderTSUTC, want)
	}
	if rem.LeadTimeMinutes == nil || *rem.LeadTimeMinutes != 1440 {
		t.Fatalf("Create() lead_time_minutes = %v, want 1440", rem.LeadTimeMinutes)
	}
	if got, ok := jobs.enqueued[rem.ID]; !ok || !got.Equal(want) {
		t.Fatalf("Create() did not enqueue the delivery job at the expected instant")
	}
}

// TestReminderService_Create_NumericHourLeadTime mirrors spec.md §8
// scenario 5: "5 hours before" resolves to lead_time_minutes=300.
func TestReminderService_Create_NumericHourLeadTime(t *testing.T) {
	now := time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC)
	svc, clk, _ := newTestReminderService(t, now)

	eventStart := time.Date(2025, 10, 11, 11, 0, 0, 0, time.UTC)
	lead := 300

	rem, err := svc.Create(context.Background(), CreateReminderInput{
		UserID:          "u1",
		Title:           "תזכיר לי 5 שעות לפני",
		EventStartUTC:   &eventStart,
		LeadTimeMinutes: &lead,
		Now:             clk.Now(),
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if *rem.LeadTimeMinutes != 300 {
		t.Fatalf("Create() lead_time_minutes = %d, want 300", *rem.LeadTimeMinutes)
	}
	want := eventStart.Add(-5 * time.Hour)
	if !rem.ReminderTSUTC.Equal(want) {
		t.Fatalf("Create() reminder_ts_utc = %v, want %v", rem.ReminderTSUTC, want)
	}
}

func TestReminderService_Create_RejectsPastLeadTimeWithoutRecurrence(t *testing.T) {
	now := time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC)
	svc, clk, _ := newTestReminderService(t, now)

	eventStart := clk.Now().Add(time.Hour)
	lead := 180 // 3h before a 1h-away event is already in the past

	_, err := svc.Create(context.Background(), CreateReminderInput{
		UserID:          "u1",
		Title:           "too late",
		EventStartUTC:   &eventStart,
		LeadTimeMinutes: &lead,
		Now:             clk.Now(),
	})
	if _, ok := err.(pkgerrors.InvalidArgumentError); !ok {
		t.Fatalf("Create() expected InvalidArgumentError for past-resolving lead time, got %v", err)
	}
}

// TestReminderService_MarkFired_OneShotMarksDone covers the at-most-
// once delivery invariant of spec.md §8 scenario 7: a second
// compare-and-set for the same occurrence never succeeds.
func TestReminderService_MarkFired_OneShotMarksDone(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC)
	svc, clk, _ := newTestReminderService(t, now)

	fireAt := clk.Now().Add(time.Hour)
	rem, err := svc.Create(ctx, CreateReminderInput{
		UserID: "u1", Title: "one-shot", ReminderTSUTC: &fireAt, Now: clk.Now(),
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	claimed, err := svc.MarkFired(ctx, rem.ID, fireAt)
	if err != nil {
		t.Fatalf("MarkFired() first call unexpected error: %v", err)
	}
	if !claimed {
		t.Fatalf("MarkFired() first call expected to claim delivery")
	}

	claimedAgain, err := svc.MarkFired(ctx, rem.ID, fireAt)
	if err != nil {
		t.Fatalf("MarkFired() second call unexpected error: %v", err)
	}
	if claimedAgain {
		t.Fatalf("MarkFired() second call for the same occurrence must not re-claim delivery")
	}

	reminders, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	for _, r := range reminders {
		if r.ID == rem.ID {
			t.Fatalf("MarkFired() one-shot reminder must leave the active set")
		}
	}
}

func TestReminderService_MarkFired_RecurringAdvancesAndReenqueues(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC)
	svc, clk, jobs := newTestReminderService(t, now)

	fireAt := clk.Now().Add(time.Hour)
	rule := "FREQ=DAILY"
	rem, err := svc.Create(ctx, CreateReminderInput{
		UserID: "u1", Title: "daily", ReminderTSUTC: &fireAt, RecurrenceRule: &rule, Now: clk.Now(),
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	claimed, err := svc.MarkFired(ctx, rem.ID, fireAt)
	if err != nil {
		t.Fatalf("MarkFired() unexpected error: %v", err)
	}
	if !claimed {
		t.Fatalf("MarkFired() expected to claim delivery")
	}

	reminders, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("MarkFired() recurring reminder must remain active, got %d active", len(reminders))
	}
	if !reminders[0].ReminderTSUTC.After(fireAt) {
		t.Fatalf("MarkFired() expected reminder_ts_utc advanced past %v, got %v", fireAt, reminders[0].ReminderTSUTC)
	}
	if next, ok := jobs.enqueued[rem.ID]; !ok || !next.Equal(reminders[0].ReminderTSUTC) {
		t.Fatalf("MarkFired() expected the next occurrence re-enqueued")
	}
}
