package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/sherine-k/queuesim/pkg/experiment"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id             TEXT PRIMARY KEY,
	sweep              TEXT NOT NULL,
	rho                REAL NOT NULL,
	arrival_rate       REAL NOT NULL,
	bounded            INTEGER NOT NULL,
	capacity           INTEGER,
	horizon_multiplier REAL NOT NULL,
	horizon            REAL NOT NULL,
	seed               INTEGER NOT NULL,
	mean_occupancy     REAL NOT NULL,
	idle_probability   REAL NOT NULL,
	loss_ratio         REAL,
	arrivals           INTEGER NOT NULL,
	dropped            INTEGER NOT NULL,
	observations       INTEGER NOT NULL,
	elapsed_ns         INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS stability (
	sweep                  TEXT NOT NULL,
	rho                    REAL NOT NULL,
	bounded                INTEGER NOT NULL,
	capacity               INTEGER,
	multiplier             REAL NOT NULL,
	base_run_id            TEXT NOT NULL,
	other_run_id           TEXT NOT NULL,
	mean_occupancy_error   REAL NOT NULL,
	idle_probability_error REAL NOT NULL,
	loss_ratio_error       REAL
);`

const insertRun = `INSERT INTO runs (run_id, sweep, rho, arrival_rate, bounded, capacity,
	horizon_multiplier, horizon, seed, mean_occupancy, idle_probability, loss_ratio,
	arrivals, dropped, observations, elapsed_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertStability = `INSERT INTO stability (sweep, rho, bounded, capacity, multiplier,
	base_run_id, other_run_id, mean_occupancy_error, idle_probability_error, loss_ratio_error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type sweepRow struct {
	sweep string
	row   experiment.Row
}

type sweepStability struct {
	sweep string
	row   experiment.StabilityRow
}

// SQLiteRecorder buffers sweep results and writes them into a SQLite
// database in one transaction per flush.
type SQLiteRecorder struct {
	mu sync.Mutex
	db *sql.DB

	path      string
	runs      []sweepRow
	stability []sweepStability
	closed    bool
}

// NewSQLiteRecorder creates the database file at path. An empty path gets a
// generated name. An existing file is never overwritten.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "queuesim_" + xid.New().String()
	}
	if filepath.Ext(path) == "" {
		path += ".sqlite3"
	}

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logrus.Infof("Database created for recording: %s", path)

	r := &SQLiteRecorder{db: db, path: path}
	atexit.Register(func() {
		if err := r.Close(); err != nil {
			logrus.Errorf("failed to close %s: %v", r.path, err)
		}
	})
	return r, nil
}

// Path returns the database file name.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// RecordTable buffers every row of table.
func (r *SQLiteRecorder) RecordTable(table *experiment.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range table.Rows {
		r.runs = append(r.runs, sweepRow{sweep: table.Name, row: row})
	}
}

// RecordStability buffers the horizon comparison of a sweep.
func (r *SQLiteRecorder) RecordStability(sweep string, rows []experiment.StabilityRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		r.stability = append(r.stability, sweepStability{sweep: sweep, row: row})
	}
}

// Flush writes all buffered rows.
func (r *SQLiteRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *SQLiteRecorder) flushLocked() error {
	if r.closed || (len(r.runs) == 0 && len(r.stability) == 0) {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := r.insertRuns(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := r.insertStability(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	r.runs = nil
	r.stability = nil
	return nil
}

func (r *SQLiteRecorder) insertRuns(tx *sql.Tx) error {
	stmt, err := tx.Prepare(insertRun)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range r.runs {
		row := e.row
		_, err := stmt.Exec(row.RunID, e.sweep, row.Rho, row.ArrivalRate, row.Bounded,
			nullCapacity(row.Bounded, row.Capacity), row.HorizonMultiplier, row.Horizon, row.Seed,
			row.MeanOccupancy, row.IdleProbability, nullFloat(row.LossRatio, row.LossDefined),
			row.Arrivals, row.Dropped, row.Observations, row.Elapsed.Nanoseconds())
		if err != nil {
			return fmt.Errorf("failed to insert run %s: %w", row.RunID, err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) insertStability(tx *sql.Tx) error {
	stmt, err := tx.Prepare(insertStability)
	if err != nil {
		return fmt.Errorf("failed to prepare stability insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range r.stability {
		s := e.row
		_, err := stmt.Exec(e.sweep, s.Rho, s.Bounded, nullCapacity(s.Bounded, s.Capacity), s.Multiplier,
			s.Base.RunID, s.Other.RunID, s.MeanOccupancyError, s.IdleProbabilityError,
			nullFloat(s.LossRatioError, s.Base.LossDefined))
		if err != nil {
			return fmt.Errorf("failed to insert stability row: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the database. It is safe to call more than once.
func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	flushErr := r.flushLocked()
	r.closed = true
	if err := r.db.Close(); err != nil {
		return err
	}
	return flushErr
}

func nullFloat(v float64, valid bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: valid}
}

func nullCapacity(bounded bool, capacity int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(capacity), Valid: bounded}
}
