package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reclab-io/reclab/internal/eval"
)

// ErrRunNotFound reports a lookup for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunStore keeps evaluation run history in sqlite so past experiment
// reports stay queryable after the process exits.
type RunStore struct {
	db *sql.DB
}

func OpenRunStore(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store at %s: %w", path, err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		scorer       TEXT NOT NULL,
		dataset      TEXT NOT NULL,
		started_at   TIMESTAMP NOT NULL,
		elapsed_ms   INTEGER NOT NULL,
		report_json  TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) Save(report *eval.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO runs (id, name, scorer, dataset, started_at, elapsed_ms, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Name, report.Scorer, report.Dataset,
		report.StartedAt, report.ElapsedMs, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *RunStore) Get(runID string) (*eval.Report, error) {
	var data string
	err := s.db.QueryRow(`SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var report eval.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored report: %w", err)
	}
	return &report, nil
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Name      string `json:"name"`
	Scorer    string `json:"scorer"`
	Dataset   string `json:"dataset"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func (s *RunStore) List() ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT id, name, scorer, dataset, elapsed_ms FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Name, &r.Scorer, &r.Dataset, &r.ElapsedMs); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
