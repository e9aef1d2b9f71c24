// Package store keeps a history of panel registration measurements in
// SQLite.
//
// Each batch run gets a UUID. A run records one row per panel with the
// overall statistic (NULL when not applicable) and one row per calibrated
// pair, accepted or rejected.
package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/stats"
)

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at_ns INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS panels (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		panel TEXT NOT NULL,
		quadrants INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		pair_count INTEGER NOT NULL,
		mean_offset REAL,
		min_offset REAL,
		max_offset REAL,
		PRIMARY KEY (run_id, panel)
	);

	CREATE TABLE IF NOT EXISTS pairs (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		panel TEXT NOT NULL,
		quadrant TEXT NOT NULL,
		file TEXT NOT NULL,
		ring_id INTEGER NOT NULL,
		hole_id INTEGER NOT NULL,
		pixel_offset REAL,
		physical_offset REAL,
		accepted INTEGER NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pairs_run_panel ON pairs(run_id, panel);
`

// Store provides persistence for measurement runs.
type Store struct {
	db *sql.DB
}

// PanelRecord is one stored panel measurement.
type PanelRecord struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	StartedAt time.Time       `json:"started_at"`
	Panel     string          `json:"panel"`
	Quadrants int             `json:"quadrants"`
	Errors    int             `json:"errors"`
	Statistic stats.Statistic `json:"statistic"`
}

// PairRecord is one stored calibrated pair.
type PairRecord struct {
	Quadrant       panel.Quadrant `json:"quadrant"`
	File           string         `json:"file"`
	RingID         int            `json:"ring_id"`
	HoleID         int            `json:"hole_id"`
	PixelOffset    float64        `json:"pixel_offset"`
	PhysicalOffset float64        `json:"physical_offset"`
	Accepted       bool           `json:"accepted"`
	Reason         string         `json:"reason,omitempty"`
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun registers a new run over source and returns its id.
func (s *Store) StartRun(source string) (string, error) {
	runID := uuid.New().String()
	_, err := s.db.Exec(`INSERT INTO runs (run_id, source, started_at_ns) VALUES (?, ?, ?)`,
		runID, source, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// RecordPanel stores a panel result and all of its calibrated pairs under
// runID in a single transaction.
func (s *Store) RecordPanel(runID string, res *panel.PanelResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	mean, min, max := nullStatistic(res.Statistic)
	_, err = tx.Exec(`
		INSERT INTO panels (run_id, panel, quadrants, errors, pair_count, mean_offset, min_offset, max_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Panel, len(res.Quadrants), len(res.Errors), res.Statistic.Count(), mean, min, max)
	if err != nil {
		return fmt.Errorf("insert panel %s: %w", res.Panel, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO pairs (run_id, panel, quadrant, file, ring_id, hole_id, pixel_offset, physical_offset, accepted, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pairs: %w", err)
	}
	defer stmt.Close()

	for _, q := range panel.Quadrants {
		img, ok := res.Quadrants[q]
		if !ok {
			continue
		}
		for _, p := range img.Calibration.Accepted {
			if _, err := stmt.Exec(runID, res.Panel, string(q), img.Spec.Name,
				p.RingID, p.HoleID, p.PixelOffset, p.PhysicalOffset, 1, nil); err != nil {
				return fmt.Errorf("insert pair: %w", err)
			}
		}
		for _, r := range img.Calibration.Rejected {
			if _, err := stmt.Exec(runID, res.Panel, string(q), img.Spec.Name,
				r.RingID, r.HoleID, nullFinite(r.PixelOffset), nullFinite(r.PhysicalOffset), 0, r.Reason); err != nil {
				return fmt.Errorf("insert pair: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PanelHistory returns every stored measurement of panelID, oldest first.
func (s *Store) PanelHistory(panelID string) ([]PanelRecord, error) {
	rows, err := s.db.Query(`
		SELECT r.run_id, r.source, r.started_at_ns, p.panel, p.quadrants, p.errors,
		       p.pair_count, p.mean_offset, p.min_offset, p.max_offset
		FROM panels p JOIN runs r ON r.run_id = p.run_id
		WHERE p.panel = ?
		ORDER BY r.started_at_ns, r.rowid`, panelID)
	if err != nil {
		return nil, fmt.Errorf("query panel history: %w", err)
	}
	defer rows.Close()

	var records []PanelRecord
	for rows.Next() {
		var rec PanelRecord
		var startedAtNs int64
		var count int
		var mean, min, max sql.NullFloat64
		if err := rows.Scan(&rec.RunID, &rec.Source, &startedAtNs, &rec.Panel, &rec.Quadrants, &rec.Errors,
			&count, &mean, &min, &max); err != nil {
			return nil, fmt.Errorf("scan panel: %w", err)
		}
		rec.StartedAt = time.Unix(0, startedAtNs)
		if mean.Valid && min.Valid && max.Valid {
			rec.Statistic = stats.Summary(mean.Float64, min.Float64, max.Float64, count)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Pairs returns the stored pairs of one panel in a run.
func (s *Store) Pairs(runID, panelID string) ([]PairRecord, error) {
	rows, err := s.db.Query(`
		SELECT quadrant, file, ring_id, hole_id, pixel_offset, physical_offset, accepted, reason
		FROM pairs WHERE run_id = ? AND panel = ?
		ORDER BY rowid`, runID, panelID)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var out []PairRecord
	for rows.Next() {
		var rec PairRecord
		var quadrant string
		var pixel, physical sql.NullFloat64
		var reason sql.NullString
		if err := rows.Scan(&quadrant, &rec.File, &rec.RingID, &rec.HoleID, &pixel, &physical, &rec.Accepted, &reason); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		rec.Quadrant = panel.Quadrant(quadrant)
		rec.PixelOffset = pixel.Float64
		rec.PhysicalOffset = physical.Float64
		rec.Reason = reason.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullStatistic(s stats.Statistic) (mean, min, max sql.NullFloat64) {
	m, lo, hi, ok := s.Value()
	if !ok {
		return
	}
	return sql.NullFloat64{Float64: m, Valid: true},
		sql.NullFloat64{Float64: lo, Valid: true},
		sql.NullFloat64{Float64: hi, Valid: true}
}

// nullFinite maps NaN and infinities to NULL; SQLite has no representation
// for them.
func nullFinite(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
