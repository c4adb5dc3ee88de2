package history

import (
	"errors"
	"testing"
	"time"

	"github.com/cobaltcore-dev/consolidator/internal/consolidation"
	"github.com/cobaltcore-dev/consolidator/internal/db"
	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.NewSQLiteDB(":memory:", nil)
	if err != nil {
		t.Fatalf("unexpected error opening in-memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	store, err := NewStore(d)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	return store
}

func TestStoreRecordSuccessfulPass(t *testing.T) {
	store := newTestStore(t)

	host := fleet.NewHost(1, 100, 100, nil)
	vm := &fleet.VM{UID: 7, RequestedTotalMips: 10, RequestedIops: 1}
	migrationMap := consolidation.MigrationMap{{VM: vm, Host: host}}
	phases := map[string][]time.Duration{"total": {2 * time.Second}}

	if err := store.Record(phases, migrationMap, nil); err != nil {
		t.Fatalf("unexpected error recording pass: %v", err)
	}

	var rows []*PassRecord
	if _, err := store.db.Select(&rows, "select * from consolidator_history"); err != nil {
		t.Fatalf("unexpected error reading back rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.PlacementCount != 1 {
		t.Fatalf("expected placement count 1, got %d", row.PlacementCount)
	}
	if row.ErrorMessage != "" {
		t.Fatalf("expected no error message for a successful pass, got %q", row.ErrorMessage)
	}
	if row.PlacementsJSON == "" || row.PlacementsJSON == "[]" {
		t.Fatalf("expected the placement to be serialized, got %q", row.PlacementsJSON)
	}
}

func TestStoreRecordFailedPass(t *testing.T) {
	store := newTestStore(t)

	passErr := errors.New("boom")
	if err := store.Record(nil, nil, passErr); err != nil {
		t.Fatalf("unexpected error recording failed pass: %v", err)
	}

	var rows []*PassRecord
	if _, err := store.db.Select(&rows, "select * from consolidator_history"); err != nil {
		t.Fatalf("unexpected error reading back rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ErrorMessage != "boom" {
		t.Fatalf("expected error message 'boom', got %q", rows[0].ErrorMessage)
	}
	if rows[0].PlacementCount != 0 {
		t.Fatalf("expected placement count 0 for a failed pass, got %d", rows[0].PlacementCount)
	}
}

func TestFlattenDurationsKeepsMostRecentSample(t *testing.T) {
	phases := map[string][]time.Duration{
		"vm_selection": {time.Second, 3 * time.Second},
		"empty":        {},
	}
	got := flattenDurations(phases)
	if got["vm_selection"] != 3 {
		t.Fatalf("expected the most recent sample (3s) kept, got %f", got["vm_selection"])
	}
	if _, ok := got["empty"]; ok {
		t.Fatalf("expected a phase with no samples to be dropped entirely")
	}
}
