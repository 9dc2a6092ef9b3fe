package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sqliteTimeLayout is the datetime format stored in created_at. It
// sorts lexicographically in chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Store records generation attempts in a SQLite database.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates or opens the history database at path, creating parent
// directories and applying pending schema migrations. log may be nil.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := openConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("history store ready", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one generation attempt and returns its ID. An empty ID
// gets a fresh UUID and a zero CreatedAt gets the current UTC time, so
// callers only fill in what they know.
func (s *Store) Record(ctx context.Context, rec GenerationRecord) (string, error) {
	if rec.Status != StatusCompleted && rec.Status != StatusFailed {
		return "", fmt.Errorf("invalid status %q", rec.Status)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO generations (
			id, created_at, prompt, negative_prompt, width, height,
			steps, fps, seed, sampler, scheduler, guidance_scale,
			frame_count, duration_ms, output_dir, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.CreatedAt.UTC().Format(sqliteTimeLayout),
		rec.Prompt,
		nullString(rec.NegativePrompt),
		rec.Width,
		rec.Height,
		rec.Steps,
		rec.FPS,
		rec.Seed,
		rec.Sampler,
		rec.Scheduler,
		rec.GuidanceScale,
		rec.FrameCount,
		rec.DurationMS,
		nullString(rec.OutputDir),
		rec.Status,
		nullString(rec.ErrorMessage),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert generation record: %w", err)
	}

	s.log.Debug("generation recorded",
		zap.String("id", rec.ID),
		zap.String("status", rec.Status))
	return rec.ID, nil
}

// Recent returns the newest records first, at most limit of them.
// A non-positive limit selects 10.
func (s *Store) Recent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, created_at, prompt, COALESCE(negative_prompt, ''),
			   width, height, steps, fps, seed, sampler, scheduler,
			   guidance_scale, frame_count, duration_ms,
			   COALESCE(output_dir, ''), status, COALESCE(error_message, '')
		FROM generations
		ORDER BY created_at DESC, id
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		var createdAt string

		err := rows.Scan(
			&rec.ID,
			&createdAt,
			&rec.Prompt,
			&rec.NegativePrompt,
			&rec.Width,
			&rec.Height,
			&rec.Steps,
			&rec.FPS,
			&rec.Seed,
			&rec.Sampler,
			&rec.Scheduler,
			&rec.GuidanceScale,
			&rec.FrameCount,
			&rec.DurationMS,
			&rec.OutputDir,
			&rec.Status,
			&rec.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}

		rec.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}
	return records, nil
}

// Count returns the total number of recorded generations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return count, nil
}

// nullString converts an empty string to NULL for storage.
func nullString(s string) any {
	if s == "" {
		return sql.NullString{}
	}
	return s
}
