package history

import (
	"os"
	"testing"
	"time"

	"github.com/saveward/saveward/internal/engine"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "saveward-history-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecentCycles(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 3; i++ {
		err := db.RecordCycle(engine.CycleReport{
			Trigger:       engine.TriggerSchedule,
			Started:       time.Now().Add(time.Duration(i) * time.Minute),
			Duration:      1500 * time.Millisecond,
			Worlds:        2,
			FilesArchived: i,
		})
		if err != nil {
			t.Fatalf("RecordCycle: %v", err)
		}
	}

	rows, err := db.RecentCycles(2)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Newest first.
	if rows[0].FilesArchived != 2 || rows[1].FilesArchived != 1 {
		t.Errorf("order wrong: %+v", rows)
	}
	if rows[0].Trigger != engine.TriggerSchedule {
		t.Errorf("trigger = %q", rows[0].Trigger)
	}
	if rows[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %s", rows[0].Duration)
	}
}

func TestRecordAndRecentRestores(t *testing.T) {
	db := testDB(t)

	err := db.RecordRestore(engine.RestoreReport{
		World:   "world1",
		Archive: "backup_1.zip",
		Files:   4,
	})
	if err != nil {
		t.Fatalf("RecordRestore: %v", err)
	}

	rows, err := db.RecentRestores(10)
	if err != nil {
		t.Fatalf("RecentRestores: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].World != "world1" || rows[0].Archive != "backup_1.zip" || rows[0].Files != 4 {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestRecentCycles_EmptyDB(t *testing.T) {
	db := testDB(t)
	rows, err := db.RecentCycles(10)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}
