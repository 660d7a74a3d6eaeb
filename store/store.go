// Package store persists translation history in a local sqlite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alekhya6767/Avatar-Talk/pipeline"
)

// Store records batch and streaming chunk translation results.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS translations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL DEFAULT 0,
			source_text TEXT NOT NULL,
			translated_text TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			total_seconds REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_translations_session ON translations(session_id, seq);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Record is one persisted translation outcome.
type Record struct {
	ID             int64
	SessionID      string
	Seq            uint64
	SourceText     string
	TranslatedText string
	Success        bool
	Error          string
	TotalSeconds   float64
	CreatedAt      time.Time
}

// RecordChunk persists a streaming chunk result. Satisfies session.Recorder.
func (s *Store) RecordChunk(ctx context.Context, sessionID string, seq uint64, result pipeline.Result) error {
	return s.insert(ctx, sessionID, seq, result)
}

// RecordBatch persists a one-shot translation result.
func (s *Store) RecordBatch(ctx context.Context, result pipeline.Result) error {
	return s.insert(ctx, "", 0, result)
}

func (s *Store) insert(ctx context.Context, sessionID string, seq uint64, result pipeline.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translations (session_id, seq, source_text, translated_text, success, error, total_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, result.SourceText, result.TranslatedText,
		boolToInt(result.Success), result.Error,
		result.Timings[pipeline.StageTotal].Seconds(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert translation record: %w", err)
	}
	return nil
}

// SessionHistory returns the recorded chunks for a session ordered by
// sequence number.
func (s *Store) SessionHistory(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, source_text, translated_text, success, error, total_seconds, created_at
		 FROM translations WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Recent returns the newest records across all sessions, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, source_text, translated_text, success, error, total_seconds, created_at
		 FROM translations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent translations: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var success int
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Seq, &r.SourceText, &r.TranslatedText,
			&success, &r.Error, &r.TotalSeconds, &createdAt); err != nil {
			return nil, fmt.Errorf("scan translation record: %w", err)
		}
		r.Success = success != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation records: %w", err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
