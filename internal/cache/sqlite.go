package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"yourbody/internal/core"
)

// SQLiteStore persists artifacts in the shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the summary cache table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	table := `
	CREATE TABLE IF NOT EXISTS summary_cache (
		cache_key TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		period_type TEXT NOT NULL,
		period_start TEXT NOT NULL,
		tz_offset INTEGER NOT NULL,
		artifact_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		payload TEXT,
		error_detail TEXT
	);`

	if _, err := db.Exec(table); err != nil {
		return nil, fmt.Errorf("failed to create summary_cache table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_user_period ON summary_cache(user_id, period_type, period_start)`); err != nil {
		return nil, fmt.Errorf("failed to create summary_cache index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get retrieves the artifact cached under key.
func (s *SQLiteStore) Get(ctx context.Context, key core.PeriodKey) (core.SummaryArtifact, bool, error) {
	query := `
	SELECT artifact_id, fingerprint, generated_at, status, payload, error_detail
	FROM summary_cache
	WHERE cache_key = ?`

	var (
		artifact    core.SummaryArtifact
		generatedAt int64
		payload     sql.NullString
		errorDetail sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, key.String()).Scan(
		&artifact.ID,
		&artifact.Fingerprint,
		&generatedAt,
		&artifact.Status,
		&payload,
		&errorDetail,
	)
	if err == sql.ErrNoRows {
		return core.SummaryArtifact{}, false, nil
	}
	if err != nil {
		return core.SummaryArtifact{}, false, fmt.Errorf("failed to read summary cache: %w", err)
	}

	artifact.Key = key
	artifact.GeneratedAt = time.UnixMicro(generatedAt).UTC()
	if payload.Valid {
		artifact.Payload = []byte(payload.String)
	}
	if errorDetail.Valid {
		artifact.ErrorDetail = errorDetail.String
	}

	return artifact, true, nil
}

// Put upserts the artifact atomically. The conflict clause keeps writes
// last-write-wins by generated_at, so a racing older computation from another
// process cannot clobber a fresher artifact.
func (s *SQLiteStore) Put(ctx context.Context, artifact core.SummaryArtifact) error {
	query := `
	INSERT INTO summary_cache
	(cache_key, user_id, period_type, period_start, tz_offset, artifact_id, fingerprint, generated_at, status, payload, error_detail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(cache_key) DO UPDATE SET
		artifact_id = excluded.artifact_id,
		fingerprint = excluded.fingerprint,
		generated_at = excluded.generated_at,
		status = excluded.status,
		payload = excluded.payload,
		error_detail = excluded.error_detail
	WHERE excluded.generated_at >= summary_cache.generated_at`

	var payload any
	if len(artifact.Payload) > 0 {
		payload = string(artifact.Payload)
	}

	_, err := s.db.ExecContext(ctx, query,
		artifact.Key.String(),
		artifact.Key.UserID,
		artifact.Key.Type,
		artifact.Key.Start,
		artifact.Key.TZOffsetMinutes,
		artifact.ID,
		artifact.Fingerprint,
		artifact.GeneratedAt.UnixMicro(),
		artifact.Status,
		payload,
		artifact.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}
