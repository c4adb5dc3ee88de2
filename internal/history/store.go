// Package history persists each consolidation pass's traces to a
// relational store, purely as an operational record: the in-memory traces
// in consolidation.History remain the source of truth the core's own
// testable properties are checked against.
package history

import (
	"encoding/json"
	"time"

	"github.com/cobaltcore-dev/consolidator/internal/consolidation"
	"github.com/cobaltcore-dev/consolidator/internal/db"
)

// PassRecord is one row of the consolidator_history table: a snapshot of a
// single pass's phase durations and resulting migration map.
type PassRecord struct {
	ID             int64     `db:"id"`
	RanAt          time.Time `db:"ran_at"`
	DurationsJSON  string    `db:"durations_json"`
	PlacementsJSON string    `db:"placements_json"`
	PlacementCount int       `db:"placement_count"`
	ErrorMessage   string    `db:"error_message"`
}

func (PassRecord) TableName() string { return "consolidator_history" }

type placementRecord struct {
	VmUID  int `json:"vmUid"`
	HostID int `json:"hostId"`
}

// Store appends pass results to the consolidator_history table. It is a
// pure observer: a write failure is logged by the caller but never feeds
// back into the planner's own behavior.
type Store struct {
	db *db.DB
}

func NewStore(d *db.DB) (*Store, error) {
	table := d.AddTable(PassRecord{})
	if err := d.CreateTable(table); err != nil {
		return nil, err
	}
	return &Store{db: d}, nil
}

// Record appends one pass's result. passErr, if non-nil, is stored as the
// error message and the migration map is recorded as empty, since a failed
// pass never produces placements.
func (s *Store) Record(phases map[string][]time.Duration, migrationMap consolidation.MigrationMap, passErr error) error {
	durationsJSON, err := json.Marshal(flattenDurations(phases))
	if err != nil {
		return err
	}

	placements := make([]placementRecord, 0, len(migrationMap))
	for _, p := range migrationMap {
		placements = append(placements, placementRecord{VmUID: p.VM.UID, HostID: p.Host.ID})
	}
	placementsJSON, err := json.Marshal(placements)
	if err != nil {
		return err
	}

	errMsg := ""
	if passErr != nil {
		errMsg = passErr.Error()
	}

	record := &PassRecord{
		RanAt:          time.Now(),
		DurationsJSON:  string(durationsJSON),
		PlacementsJSON: string(placementsJSON),
		PlacementCount: len(migrationMap),
		ErrorMessage:   errMsg,
	}
	return s.db.Insert(record)
}

func flattenDurations(phases map[string][]time.Duration) map[string]float64 {
	out := make(map[string]float64, len(phases))
	for phase, samples := range phases {
		if len(samples) == 0 {
			continue
		}
		out[phase] = samples[len(samples)-1].Seconds()
	}
	return out
}
