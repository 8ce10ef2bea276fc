package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"medallion-pipeline/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS gold_aggregates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_date TEXT NOT NULL,
	state TEXT NOT NULL,
	brewery_type TEXT NOT NULL,
	count INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gold_run_state ON gold_aggregates (run_date, state);
`

// Writer appends aggregate rows to the gold sqlite table, the primary
// (transactional, indexed) storage format. The database is opened per
// invocation; any failure surfaces to the caller, which decides on the
// columnar fallback.
type Writer struct {
	Path string
}

// InsertRows writes all rows inside a single transaction.
func (w *Writer) InsertRows(rows []model.AggregateRow) error {
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create gold dir: %w", err)
	}

	db, err := sql.Open("sqlite3", w.Path)
	if err != nil {
		return fmt.Errorf("open gold db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create gold schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin gold tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO gold_aggregates (run_date, state, brewery_type, count, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare gold insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range rows {
		if _, err := stmt.Exec(row.RunDate, row.State, row.BreweryType, row.Count, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert gold row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gold tx: %w", err)
	}
	return nil
}

// readRows returns the rows stored for one run date, in insertion order.
func readRows(path, runDate string) ([]model.AggregateRow, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open gold db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT run_date, state, brewery_type, count FROM gold_aggregates WHERE run_date = ? ORDER BY id`, runDate)
	if err != nil {
		return nil, fmt.Errorf("query gold rows: %w", err)
	}
	defer rows.Close()

	var out []model.AggregateRow
	for rows.Next() {
		var r model.AggregateRow
		if err := rows.Scan(&r.RunDate, &r.State, &r.BreweryType, &r.Count); err != nil {
			return nil, fmt.Errorf("scan gold row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
