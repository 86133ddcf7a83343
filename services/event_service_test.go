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

// newTestEventService wires an EventService against a fresh on-disk
// sqlite database in a temp dir, mirroring the bot's own
// newTestBotService helper (usecase/bot_test.go) that swaps
// config.PathStorages for a t.TempDir().
func newTestEventService(t *testing.T, now time.Time) (*EventService, *clock.Frozen) {
	t.Helper()

	dbPath := t.TempDir() + "/events.db"
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dbPath})
	if err != nil {
		t.Fatalf("database.Open() unexpected error: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("repository.Migrate() unexpected error: %v", err)
	}

	frozen := clock.NewFrozen(now)
	repo := repository.NewEventRepository(db)
	contacts := NewContactService(repository.NewContactRepository(db))
	return NewEventService(repo, contacts, frozen, 60), frozen
}

func TestEventService_Create_RejectsEmptyTitle(t *testing.T) {
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))
	_, _, err := svc.Create(context.Background(), CreateEventInput{
		UserID:     "u1",
		Title:      "   ",
		StartTSUTC: clk.Now().Add(time.Hour),
	})
	if _, ok := err.(pkgerrors.InvalidArgumentError); !ok {
		t.Fatalf("Create() expected InvalidArgumentError for blank title, got %v", err)
	}
}

func TestEventService_Create_RejectsPastDates(t *testing.T) {
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))
	_, _, err := svc.Create(context.Background(), CreateEventInput{
		UserID:     "u1",
		Title:      "פגישה",
		StartTSUTC: clk.Now().Add(-time.Hour),
	})
	if _, ok := err.(pkgerrors.InvalidArgumentError); !ok {
		t.Fatalf("Create() expected InvalidArgumentError for past start, got %v", err)
	}
}

func TestEventService_Create_DetectsOverlapThenConfirms(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))

	start := clk.Now().Add(2 * time.Hour)
	first, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "פגישה ראשונה", StartTSUTC: start})
	if err != nil {
		t.Fatalf("Create() first event unexpected error: %v", err)
	}
	if first == nil {
		t.Fatalf("Create() returned nil event")
	}

	overlapStart := start.Add(15 * time.Minute)
	_, overlaps, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "פגישה שנייה", StartTSUTC: overlapStart})
	if _, ok := err.(pkgerrors.ConflictError); !ok {
		t.Fatalf("Create() expected ConflictError for overlapping event, got %v", err)
	}
	if len(overlaps) != 1 || overlaps[0].ID != first.ID {
		t.Fatalf("Create() expected the first event as the overlap, got %+v", overlaps)
	}

	confirmed, _, err := svc.Create(ctx, CreateEventInput{
		UserID: "u1", Title: "פגישה שנייה", StartTSUTC: overlapStart, ConfirmedOverlap: true,
	})
	if err != nil {
		t.Fatalf("Create() with ConfirmedOverlap unexpected error: %v", err)
	}
	if confirmed == nil {
		t.Fatalf("Create() with ConfirmedOverlap returned nil event")
	}
}

// TestEventService_ListInRange_HalfOpenBounds exercises spec.md §8's
// range law: an event starting at S is included, one starting at E is
// not.
func TestEventService_ListInRange_HalfOpenBounds(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))

	rangeStart := clk.Now().Add(time.Hour)
	rangeEnd := rangeStart.Add(24 * time.Hour)

	if _, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "at start", StartTSUTC: rangeStart}); err != nil {
		t.Fatalf("Create() at range start unexpected error: %v", err)
	}
	if _, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "at end", StartTSUTC: rangeEnd}); err != nil {
		t.Fatalf("Create() at range end unexpected error: %v", err)
	}

	events, err := svc.ListInRange(ctx, "u1", rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("ListInRange() unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ListInRange() expected exactly 1 event (the one at S), got %d", len(events))
	}
	if events[0].Title != "at start" {
		t.Fatalf("ListInRange() expected the event at S, got %q", events[0].Title)
	}
}

func TestEventService_ListForWeek_MatchesSundayToSaturday(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Fatalf("LoadLocation() unexpected error: %v", err)
	}
	// 2025-10-10 is a Friday in Asia/Jerusalem.
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))

	inWeekLocal := time.Date(2025, 10, 11, 10, 0, 0, 0, loc) // Saturday, same week
	outOfWeekLocal := time.Date(2025, 10, 13, 10, 0, 0, 0, loc) // next Monday

	if _, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "this week", StartTSUTC: inWeekLocal.UTC(), AllowPastDates: true}); err != nil {
		t.Fatalf("Create() in-week event unexpected error: %v", err)
	}
	if _, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "next week", StartTSUTC: outOfWeekLocal.UTC()}); err != nil {
		t.Fatalf("Create() out-of-week event unexpected error: %v", err)
	}

	week, err := svc.ListForWeek(ctx, "u1", clk.Now(), loc)
	if err != nil {
		t.Fatalf("ListForWeek() unexpected error: %v", err)
	}
	if len(week) != 1 || week[0].Title != "this week" {
		t.Fatalf("ListForWeek() expected only 'this week', got %+v", week)
	}

	direct, err := svc.ListInRange(ctx, "u1",
		time.Date(2025, 10, 5, 0, 0, 0, 0, loc).UTC(),
		time.Date(2025, 10, 12, 0, 0, 0, 0, loc).UTC())
	if err != nil {
		t.Fatalf("ListInRange() unexpected error: %v", err)
	}
	if len(direct) != len(week) {
		t.Fatalf("ListForWeek() must equal ListInRange(sundayMidnight(D), +7d): got %d vs %d", len(week), len(direct))
	}
}

func TestEventService_Delete_IdempotenceReturnsNotFoundSecondTime(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))

	event, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "disposable", StartTSUTC: clk.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, event.ID, "u1"); err != nil {
		t.Fatalf("Delete() first call unexpected error: %v", err)
	}
	err = svc.Delete(ctx, event.ID, "u1")
	if _, ok := err.(pkgerrors.NotFoundError); !ok {
		t.Fatalf("Delete() second call expected NotFoundError, got %v", err)
	}
}

func TestEventService_GetByID_MalformedIDReturnsNotFound(t *testing.T) {
	svc, _ := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))
	_, err := svc.GetByID(context.Background(), "not-a-uuid", "u1")
	if _, ok := err.(pkgerrors.NotFoundError); !ok {
		t.Fatalf("GetByID() expected NotFoundError for malformed id, got %v", err)
	}
}

func TestEventService_Comments_AppendAndDeleteByIndex(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestEventService(t, time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC))

	event, _, err := svc.Create(ctx, CreateEventInput{UserID: "u1", Title: "עם הערות", StartTSUTC: clk.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if _, err := svc.AddComment(ctx, event.ID, "u1", "ראשונה", "", nil); err != nil {
		t.Fatalf("AddComment() unexpected error: %v", err)
	}
	if _, err := svc.AddComment(ctx, event.ID, "u1", "שנייה", "", nil); err != nil {
		t.Fatalf("AddComment() unexpected error: %v", err)
	}

	if err := svc.DeleteCommentByIndex(ctx, event.ID, "u1", 1); err != nil {
		t.Fatalf("DeleteCommentByIndex() unexpected error: %v", err)
	}

	reloaded, err := svc.GetByID(ctx, event.ID, "u1")
	if err != nil {
		t.Fatalf("GetByID() unexpected error: %v", err)
	}
	if len(reloaded.Notes) != 1 || reloaded.Notes[0].Text != "שנייה" {
		t.Fatalf("DeleteCommentByIndex() expected only 'שנייה' left, got %+v", reloaded.Notes)
	}
}
