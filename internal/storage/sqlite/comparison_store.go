// Package sqlite contains the SQLite repository for strategy
// comparison runs recorded by the cluster-compare tool. Keeping SQL
// here keeps the clustering engine itself free of persistence concerns.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/parcelboard/mapcluster/internal/timeutil"
)

// ComparisonRun is one persisted strategy run over a dataset.
type ComparisonRun struct {
	RunID            string          `json:"run_id"`
	Dataset          string          `json:"dataset"`
	Strategy         string          `json:"strategy"`
	FeatureCount     int             `json:"feature_count"`
	ClusterCount     int             `json:"cluster_count"`
	UnclusteredCount int             `json:"unclustered_count"`
	SkippedCount     int             `json:"skipped_count"`
	WallTimeMs       int64           `json:"wall_time_ms"`
	ParamsJSON       json.RawMessage `json:"params_json,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

// Open opens (creating if needed) the comparison database at path and
// ensures the schema exists.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open comparison db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cluster_runs (
			run_id TEXT PRIMARY KEY,
			dataset TEXT NOT NULL,
			strategy TEXT NOT NULL,
			feature_count INTEGER NOT NULL,
			cluster_count INTEGER NOT NULL,
			unclustered_count INTEGER NOT NULL,
			skipped_count INTEGER NOT NULL,
			wall_time_ms INTEGER NOT NULL,
			params_json TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cluster_runs_dataset
			ON cluster_runs(dataset, created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create comparison schema: %w", err)
	}

	return db, nil
}

// ComparisonStore provides persistence for strategy comparison runs.
type ComparisonStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewComparisonStore creates a ComparisonStore backed by the given database.
func NewComparisonStore(db *sql.DB) *ComparisonStore {
	return NewComparisonStoreWithClock(db, timeutil.RealClock{})
}

// NewComparisonStoreWithClock creates a ComparisonStore with an
// explicit clock, for tests that control timestamps and retry backoff.
func NewComparisonStoreWithClock(db *sql.DB, clock timeutil.Clock) *ComparisonStore {
	return &ComparisonStore{db: db, clock: clock}
}

// Insert persists a new run. If RunID is empty, a UUID is generated.
func (s *ComparisonStore) Insert(run *ComparisonRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	err := retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(`
			INSERT INTO cluster_runs (
				run_id, dataset, strategy, feature_count, cluster_count,
				unclustered_count, skipped_count, wall_time_ms, params_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Dataset, run.Strategy, run.FeatureCount, run.ClusterCount,
			run.UnclusteredCount, run.SkippedCount, run.WallTimeMs, paramsStr, run.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}
	return nil
}

// ListByDataset returns all runs for a dataset, newest first.
func (s *ComparisonStore) ListByDataset(dataset string) ([]*ComparisonRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, dataset, strategy, feature_count, cluster_count,
		       unclustered_count, skipped_count, wall_time_ms, params_json, created_at
		FROM cluster_runs
		WHERE dataset = ?
		ORDER BY created_at DESC`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*ComparisonRun
	for rows.Next() {
		var r ComparisonRun
		var params sql.NullString
		if err := rows.Scan(
			&r.RunID, &r.Dataset, &r.Strategy, &r.FeatureCount, &r.ClusterCount,
			&r.UnclusteredCount, &r.SkippedCount, &r.WallTimeMs, &params, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if params.Valid {
			r.ParamsJSON = json.RawMessage(params.String)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
