// Package store persists fetch results in SQLite. Each API result is one
// row of the results table, keyed by API name and holding the serialized
// JSON document, so saved runs can be read back with the sqlite client.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentic-research/apiout/internal/serializer"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL,
	record TEXT NOT NULL
);
`

// Writer writes results inside a single transaction committed by Close.
type Writer struct {
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
	mu   sync.Mutex
	now  func() time.Time
}

// Open creates or opens the database at path and starts a transaction.
func Open(path string) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO results (id, fetched_at, record) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &Writer{db: db, tx: tx, stmt: stmt, now: time.Now}, nil
}

// Put stores record under id, replacing an earlier record with the same id.
func (w *Writer) Put(id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.stmt.Exec(id, w.now().Unix(), string(data)); err != nil {
		return fmt.Errorf("insert %s: %w", id, err)
	}
	return nil
}

// Close commits the pending writes and closes the database.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.stmt.Close()
	if err := w.tx.Commit(); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("commit: %w", err)
	}
	return w.db.Close()
}

// Save writes every entry of results to the database at path.
func Save(path string, results *serializer.Object) error {
	w, err := Open(path)
	if err != nil {
		return err
	}
	for p := results.Oldest(); p != nil; p = p.Next() {
		if err := w.Put(p.Key, p.Value); err != nil {
			_ = w.tx.Rollback()
			_ = w.db.Close()
			return err
		}
	}
	return w.Close()
}

// Load reads every stored result back, keyed by id and sorted by id.
func Load(path string) (*serializer.Object, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT id, record FROM results ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	out := serializer.NewObject()
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record, err := serializer.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("parse record %s: %w", id, err)
		}
		out.Set(id, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
