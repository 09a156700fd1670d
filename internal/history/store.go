// Package history records completed utterances in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Entry is one finished utterance.
type Entry struct {
	ID           int64         `json:"id"`
	SessionID    string        `json:"session_id"`
	Provider     string        `json:"provider"`
	RawText      string        `json:"raw_text"`
	Text         string        `json:"text"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	AudioSeconds float64       `json:"audio_seconds"`
	Latency      time.Duration `json:"latency"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store is a SQLite-backed utterance log. A Store opened with history
// disabled accepts every call and persists nothing.
type Store struct {
	db      *sql.DB
	maxRows int
	logger  *zap.Logger
	clock   func() time.Time
}

// Open creates or opens the database at cfg.Path.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (*Store, error) {
	logger = logging.OrNop(logger)
	if !cfg.Enabled {
		return &Store{logger: logger, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, maxRows: cfg.MaxRows, logger: logger, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	if err := s.Prune(ctx); err != nil {
		logger.Warn("history prune on start failed", zap.Error(err))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS utterances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    raw_text TEXT NOT NULL,
    final_text TEXT NOT NULL,
    error_kind TEXT NOT NULL DEFAULT '',
    audio_seconds REAL NOT NULL DEFAULT 0,
    latency_ms INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_utterances_created ON utterances(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether entries are persisted.
func (s *Store) Enabled() bool { return s.db != nil }

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records e and trims the table to the configured row limit.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO utterances(session_id, provider, raw_text, final_text, error_kind, audio_seconds, latency_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Provider, e.RawText, e.Text, e.ErrorKind, e.AudioSeconds,
		e.Latency.Milliseconds(), e.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert utterance: %w", err)
	}
	return s.Prune(ctx)
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, provider, raw_text, final_text, error_kind, audio_seconds, latency_ms, created_at
		 FROM utterances ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query utterances: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			latencyMS int64
			created   int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Provider, &e.RawText, &e.Text, &e.ErrorKind,
			&e.AudioSeconds, &latencyMS, &created); err != nil {
			return nil, err
		}
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes everything but the newest maxRows entries. A non-positive
// limit keeps all rows.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil || s.maxRows <= 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM utterances WHERE id IN (
		   SELECT id FROM utterances ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		 )`, s.maxRows)
	if err != nil {
		return fmt.Errorf("prune utterances: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("pruned history", zap.Int64("rows", n))
	}
	return nil
}
