package nlu

import (
	"context"
	"testing"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/config"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/database"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

type fakeAlerter struct {
	messages []string
}

func (a *fakeAlerter) AlertOperator(ctx context.Context, text string) error {
	a.messages = append(a.messages, text)
	return nil
}

// newTestCostAccountant wires a CostAccountant against a fresh on-disk
// sqlite database, mirroring the services package's own
// newTestEventService temp-dir pattern.
func newTestCostAccountant(t *testing.T, now time.Time) (*CostAccountant, *clock.Frozen, *fakeAlerter) {
	t.Helper()

	dbPath := t.TempDir() + "/cost.db"
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dbPath})
	if err != nil {
		t.Fatalf("database.Open() unexpected error: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("repository.Migrate() unexpected error: %v", err)
	}

	frozen := clock.NewFrozen(now)
	alerter := &fakeAlerter{}
	return NewCostAccountant(repository.NewCostLogRepository(db), alerter, frozen), frozen, alerter
}

// TestCostAccountant_AlertIdempotence exercises spec.md §8's cost-alert
// law: crossing a new $10 multiple fires exactly one alert, further
// entries below the next multiple fire none, and crossing $20 fires
// exactly one more.
func TestCostAccountant_AlertIdempotence(t *testing.T) {
	now := time.Date(2025, 10, 10, 9, 0, 0, 0, time.UTC)
	acc, clk, alerter := newTestCostAccountant(t, now)
	ctx := context.Background()

	acc.Record(ctx, nil, "gpt", "classify", 9.50, 100)
	if len(alerter.messages) != 0 {
		t.Fatalf("expected no alert below $10, got %v", alerter.messages)
	}

	clk.Advance(time.Minute)
	acc.Record(ctx, nil, "gpt", "classify", 0.60, 100) // total 10.10
	if len(alerter.messages) != 1 {
		t.Fatalf("expected exactly one alert crossing $10, got %v", alerter.messages)
	}

	for _, cost := range []float64{1, 1, 1, 1, 1, 1, 1, 1, 1} { // up to 19.10
		clk.Advance(time.Minute)
		acc.Record(ctx, nil, "gpt", "classify", cost, 50)
	}
	if len(alerter.messages) != 1 {
		t.Fatalf("expected no further alerts below $20, got %v", alerter.messages)
	}

	clk.Advance(time.Minute)
	acc.Record(ctx, nil, "gpt", "classify", 1, 50) // total 20.10
	if len(alerter.messages) != 2 {
		t.Fatalf("expected exactly one new alert crossing $20, got %v", alerter.messages)
	}
}

// TestCostAccountant_Record_UsesInjectedClock confirms entries are
// stamped with the injected clock rather than wall-clock time, so
// month-to-date totals stay reproducible across a frozen clock.
func TestCostAccountant_Record_UsesInjectedClock(t *testing.T) {
	now := time.Date(2099, 1, 15, 12, 0, 0, 0, time.UTC)
	acc, _, alerter := newTestCostAccountant(t, now)
	ctx := context.Background()

	acc.Record(ctx, nil, "gpt", "classify", 11, 100)
	if len(alerter.messages) != 1 {
		t.Fatalf("expected one alert using the frozen month, got %v", alerter.messages)
	}
}
