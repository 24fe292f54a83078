package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/parcelboard/mapcluster/internal/timeutil"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "compare.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestComparisonStore_InsertAndList(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	store := NewComparisonStoreWithClock(testDB(t), timeutil.NewMockClock(now))

	run := &ComparisonRun{
		Dataset:          "synthetic-10k",
		Strategy:         "density",
		FeatureCount:     10000,
		ClusterCount:     42,
		UnclusteredCount: 118,
		SkippedCount:     3,
		WallTimeMs:       57,
		ParamsJSON:       json.RawMessage(`{"radius":50}`),
	}
	if err := store.Insert(run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if run.RunID == "" {
		t.Error("expected generated run ID")
	}
	if run.CreatedAt == 0 {
		t.Error("expected created_at to be populated")
	}
	if run.CreatedAt != now.UnixNano() {
		t.Errorf("created_at = %d, want clock time %d", run.CreatedAt, now.UnixNano())
	}

	runs, err := store.ListByDataset("synthetic-10k")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Strategy != "density" || got.ClusterCount != 42 || got.SkippedCount != 3 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if string(got.ParamsJSON) != `{"radius":50}` {
		t.Errorf("params mismatch: %s", got.ParamsJSON)
	}
}

func TestComparisonStore_ListNewestFirst(t *testing.T) {
	store := NewComparisonStore(testDB(t))

	base := time.Now().UnixNano()
	for i, strat := range []string{"grid", "distance", "density"} {
		run := &ComparisonRun{
			Dataset:   "ordering",
			Strategy:  strat,
			CreatedAt: base + int64(i),
		}
		if err := store.Insert(run); err != nil {
			t.Fatalf("insert %s: %v", strat, err)
		}
	}

	runs, err := store.ListByDataset("ordering")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Strategy != "density" || runs[2].Strategy != "grid" {
		t.Errorf("runs not newest first: %s, %s, %s",
			runs[0].Strategy, runs[1].Strategy, runs[2].Strategy)
	}
}

func TestComparisonStore_ListUnknownDataset(t *testing.T) {
	store := NewComparisonStore(testDB(t))
	runs, err := store.ListByDataset("nope")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestRetryOnBusy_RetriesLockedThenSucceeds(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	calls := 0
	err := retryOnBusy(clock, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	// Backoff doubles: 10ms then 20ms.
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != busyInitialDelay || sleeps[1] != 2*busyInitialDelay {
		t.Errorf("unexpected backoff sleeps: %v", sleeps)
	}
}

func TestRetryOnBusy_NonBusyFailsImmediately(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	calls := 0
	wantErr := errors.New("UNIQUE constraint failed")
	err := retryOnBusy(clock, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-busy errors must not retry, got %d attempts", calls)
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("non-busy errors must not back off, slept %v", clock.Sleeps())
	}
}

func TestRetryOnBusy_GivesUpAfterMaxRetries(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	calls := 0
	err := retryOnBusy(clock, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != busyMaxRetries {
		t.Errorf("expected %d attempts, got %d", busyMaxRetries, calls)
	}
}
