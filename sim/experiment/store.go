package experiment

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/inference-sim/qswitch-sim/sim"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS sweeps (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS aggregates (
	sweep_id            TEXT NOT NULL REFERENCES sweeps(id),
	scenario            TEXT NOT NULL,
	runs                INTEGER NOT NULL,
	seed                INTEGER NOT NULL,
	num_leaves          INTEGER NOT NULL,
	connect_size        INTEGER NOT NULL,
	buffer_size         INTEGER NOT NULL,
	states              INTEGER NOT NULL,
	mean_capacity       REAL,
	stderr_capacity     REAL,
	mean_fidelity       REAL,
	stderr_fidelity     REAL,
	analytical_capacity REAL,
	analytical_model    TEXT NOT NULL,
	PRIMARY KEY (sweep_id, scenario)
);
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	sweep_id      TEXT NOT NULL REFERENCES sweeps(id),
	scenario      TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	elapsed_ticks INTEGER NOT NULL,
	generations   INTEGER NOT NULL,
	states        INTEGER NOT NULL,
	capacity      REAL NOT NULL,
	mean_fidelity REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS leaf_stats (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	leaf       INTEGER NOT NULL,
	generated  INTEGER NOT NULL,
	evicted    INTEGER NOT NULL,
	expired    INTEGER NOT NULL,
	states     INTEGER NOT NULL,
	state_rate REAL NOT NULL,
	PRIMARY KEY (run_id, leaf)
);
`

// Store persists sweep results in a SQLite database.
type Store struct {
	conn    *sql.DB
	path    string
	sweepID string
}

// OpenStore opens (creating if needed) the database at path and starts a new sweep in it.
// path may be a file: URI for in-memory databases.
func OpenStore(path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = absPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	// a single connection keeps in-memory databases alive across statements
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping result store: %w", err)
	}
	if _, err := conn.ExecContext(ctx, storeSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply result store schema: %w", err)
	}

	s := &Store{conn: conn, path: path, sweepID: uuid.New().String()}
	if _, err := conn.ExecContext(ctx, `INSERT INTO sweeps (id, created_at) VALUES (?, ?)`,
		s.sweepID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to register sweep: %w", err)
	}
	return s, nil
}

// SweepID identifies the rows written through this Store.
func (s *Store) SweepID() string { return s.sweepID }

// SaveRun stores one run's summary and per-leaf counters in a single transaction.
func (s *Store) SaveRun(ctx context.Context, scenario string, res *sim.Result) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sum := res.Summary
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, sweep_id, scenario, seed, elapsed_ticks, generations, states, capacity, mean_fidelity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, s.sweepID, scenario, res.Seed, res.Elapsed, res.GenerationEvents,
		sum.States, sum.Capacity, sum.MeanFidelity); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.RunID, err)
	}
	for _, l := range sum.Leaves {
		if _, err := tx.ExecContext(ctx, `INSERT INTO leaf_stats
			(run_id, leaf, generated, evicted, expired, states, state_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, int(l.Leaf), l.Generated, l.Evicted, l.Expired, l.States, l.StateRate); err != nil {
			return fmt.Errorf("failed to insert leaf %d of run %s: %w", l.Leaf, res.RunID, err)
		}
	}
	return tx.Commit()
}

// SaveAggregate stores a scenario aggregate. NaN estimates are stored as NULL.
func (s *Store) SaveAggregate(ctx context.Context, a Aggregate) error {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO aggregates
		(sweep_id, scenario, runs, seed, num_leaves, connect_size, buffer_size, states,
		 mean_capacity, stderr_capacity, mean_fidelity, stderr_fidelity, analytical_capacity, analytical_model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.sweepID, a.Scenario, a.Runs, a.Seed, a.NumLeaves, a.ConnectSize, a.BufferSize, a.States,
		nullable(a.Capacity.Mean), nullable(a.Capacity.StdErr),
		nullable(a.Fidelity.Mean), nullable(a.Fidelity.StdErr),
		nullable(a.AnalyticalCapacity), a.AnalyticalModel)
	if err != nil {
		return fmt.Errorf("failed to insert aggregate %q: %w", a.Scenario, err)
	}
	return nil
}

// StoredAggregate is an aggregates row read back from the store.
type StoredAggregate struct {
	Scenario           string
	Runs               int
	States             int
	MeanCapacity       sql.NullFloat64
	MeanFidelity       sql.NullFloat64
	AnalyticalCapacity sql.NullFloat64
	AnalyticalModel    string
}

// Aggregates returns the aggregates of this store's sweep in scenario order.
func (s *Store) Aggregates(ctx context.Context) ([]StoredAggregate, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT scenario, runs, states, mean_capacity, mean_fidelity,
		analytical_capacity, analytical_model FROM aggregates WHERE sweep_id = ? ORDER BY scenario`, s.sweepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var out []StoredAggregate
	for rows.Next() {
		var a StoredAggregate
		if err := rows.Scan(&a.Scenario, &a.Runs, &a.States, &a.MeanCapacity, &a.MeanFidelity,
			&a.AnalyticalCapacity, &a.AnalyticalModel); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RunCount returns the number of runs stored for this sweep.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE sweep_id = ?`, s.sweepID).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
