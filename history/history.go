// Package history persists completed queries in an embedded SQLite
// database so past questions and answers survive restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Entry is one completed query as stored.
type Entry struct {
	ID           string
	Question     string
	Answer       string
	Code         string
	DataType     string
	Success      bool
	ErrorCode    int
	GenerationMs float64
	ExecutionMs  float64
	TotalMs      float64
	CreatedAt    time.Time
}

// Store is a SQLite-backed history of queries, pruned to a maximum number
// of entries.
type Store struct {
	conn       *sql.DB
	maxEntries int
	logger     *zap.Logger
}

// New opens (or creates) the history database at path. ":memory:" gives an
// ephemeral store.
func New(path string, maxEntries int, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}
	// WAL lets reads proceed while a write is in flight
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	s := &Store{conn: conn, maxEntries: maxEntries, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS queries (
			id            TEXT PRIMARY KEY,
			question      TEXT NOT NULL,
			answer        TEXT NOT NULL DEFAULT '',
			code          TEXT NOT NULL DEFAULT '',
			data_type     TEXT NOT NULL DEFAULT '',
			success       INTEGER NOT NULL,
			error_code    INTEGER NOT NULL DEFAULT 0,
			generation_ms REAL NOT NULL DEFAULT 0,
			execution_ms  REAL NOT NULL DEFAULT 0,
			total_ms      REAL NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating queries table: %w", err)
	}
	return nil
}

// Save records a completed query and prunes old rows past the cap. The
// entry's ID and CreatedAt are assigned here.
func (s *Store) Save(ctx context.Context, e *Entry) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO queries (id, question, answer, code, data_type, success,
		 error_code, generation_ms, execution_ms, total_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Question, e.Answer, e.Code, e.DataType, e.Success,
		e.ErrorCode, e.GenerationMs, e.ExecutionMs, e.TotalMs, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	if err := s.prune(ctx); err != nil {
		s.logger.Warn("history prune failed", zap.Error(err))
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, question, answer, code, data_type, success, error_code,
		 generation_ms, execution_ms, total_ms, created_at
		 FROM queries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.Code, &e.DataType,
			&e.Success, &e.ErrorCode, &e.GenerationMs, &e.ExecutionMs,
			&e.TotalMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&n)
	return n, err
}

// prune deletes the oldest rows past maxEntries.
func (s *Store) prune(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM queries WHERE id NOT IN (
		   SELECT id FROM queries ORDER BY created_at DESC, id DESC LIMIT ?
		 )`, s.maxEntries)
	return err
}
