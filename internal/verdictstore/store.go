// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verdictstore persists article verdicts in SQLite keyed by the
// snapshot fingerprint, so resubmitting identical content within the TTL
// returns the stored verdict instead of re-evaluating it.
package verdictstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/claim-engine/pkg/types"
)

const defaultTTL = 6 * time.Hour

// Entry is a summary row returned by List.
type Entry struct {
	Fingerprint  string    `json:"fingerprint" yaml:"fingerprint"`
	EvaluationID string    `json:"evaluation_id" yaml:"evaluation_id"`
	FinalScore   float64   `json:"final_score" yaml:"final_score"`
	Uncertainty  float64   `json:"uncertainty" yaml:"uncertainty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Store manages the verdict SQLite database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore opens or creates the database at cfg.Path and creates the schema
// if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("verdict store path not configured")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	s := &Store{db: db, ttl: ttl}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// TTL returns how long a stored verdict stays fresh.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS verdicts (
			fingerprint TEXT PRIMARY KEY,
			evaluation_id TEXT NOT NULL,
			final_score REAL NOT NULL,
			uncertainty REAL NOT NULL,
			verdict_json TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_created_at ON verdicts(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the verdict stored for fingerprint if it is younger than the
// TTL at now. A missing or expired row reports false with no error.
func (s *Store) Get(ctx context.Context, fingerprint string, now time.Time) (*types.ArticleVerdict, bool, error) {
	var (
		data    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT verdict_json, created_at FROM verdicts WHERE fingerprint = ?`, fingerprint,
	).Scan(&data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying verdict %s: %w", fingerprint, err)
	}
	if now.Sub(time.Unix(0, created)) >= s.ttl {
		return nil, false, nil
	}

	var v types.ArticleVerdict
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false, fmt.Errorf("decoding verdict %s: %w", fingerprint, err)
	}
	return &v, true, nil
}

// Put stores v under its fingerprint, replacing any earlier verdict.
func (s *Store) Put(ctx context.Context, v *types.ArticleVerdict, now time.Time) error {
	if v.Fingerprint == "" {
		return errors.New("verdict has no fingerprint")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO verdicts (fingerprint, evaluation_id, final_score, uncertainty, verdict_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.Fingerprint, v.EvaluationID, v.FinalScore, v.Uncertainty, string(data), now.UnixNano())
	if err != nil {
		return fmt.Errorf("storing verdict %s: %w", v.Fingerprint, err)
	}
	return nil
}

// List returns summaries of every stored verdict, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, evaluation_id, final_score, uncertainty, created_at
		 FROM verdicts ORDER BY created_at DESC, fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("listing verdicts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.Fingerprint, &e.EvaluationID, &e.FinalScore, &e.Uncertainty, &created); err != nil {
			return nil, fmt.Errorf("scanning verdict row: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge deletes verdicts that have expired at now and reports how many were
// removed.
func (s *Store) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verdicts WHERE created_at <= ?`, now.Add(-s.ttl).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging verdicts: %w", err)
	}
	return res.RowsAffected()
}
