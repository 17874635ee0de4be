package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/snarg/mallok/internal/task"
)

// ErrNotFound is returned when no record matches the task id for the caller.
var ErrNotFound = errors.New("record not found")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// InsertRecord writes the terminal record for a task. A second write for the
// same task id replaces the first only while it is still an error record, so
// a late error write can never clobber a completed result.
func (db *DB) InsertRecord(ctx context.Context, rec *task.Record) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO transcriptions (
			task_id, user_id, status, created_at, language,
			raw_text, corrected_text, characters, transcription_type, engine, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (task_id) DO UPDATE SET
			status = EXCLUDED.status,
			raw_text = EXCLUDED.raw_text,
			corrected_text = EXCLUDED.corrected_text,
			characters = EXCLUDED.characters,
			engine = EXCLUDED.engine,
			error = EXCLUDED.error
		WHERE transcriptions.status = 'error'
	`,
		rec.TaskID, rec.UserID, string(rec.Status), rec.CreatedAt, string(rec.Language),
		rec.RawText, rec.CorrectedText, rec.Characters, string(rec.ContentType), rec.Engine, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.TaskID, err)
	}
	return nil
}

// GetRecord returns the record for taskID if it belongs to userID.
func (db *DB) GetRecord(ctx context.Context, taskID, userID string) (*task.Record, error) {
	var (
		rec                       task.Record
		status, lang, contentType string
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT task_id, user_id, status, created_at, language,
			raw_text, corrected_text, characters, transcription_type, engine, error
		FROM transcriptions
		WHERE task_id = $1 AND user_id = $2
	`, taskID, userID).Scan(
		&rec.TaskID, &rec.UserID, &status, &rec.CreatedAt, &lang,
		&rec.RawText, &rec.CorrectedText, &rec.Characters, &contentType, &rec.Engine, &rec.Error,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", taskID, err)
	}
	rec.Status = task.Status(status)
	rec.Language = task.Language(lang)
	rec.ContentType = task.ContentType(contentType)
	return &rec, nil
}

// ListHistory returns userID's records newest first along with the total
// count, for pagination.
func (db *DB) ListHistory(ctx context.Context, userID string, limit, offset int) ([]task.HistoryEntry, int, error) {
	limit, offset = clampPage(limit, offset)

	rows, err := db.Pool.Query(ctx, `
		SELECT task_id, status, created_at, characters, engine, corrected_text, transcription_type,
			count(*) OVER () AS total
		FROM transcriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, task_id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []task.HistoryEntry{}
	total := 0
	for rows.Next() {
		var (
			e                        task.HistoryEntry
			status, corrected, ctype string
		)
		if err := rows.Scan(&e.TaskID, &status, &e.CreatedAt, &e.Characters, &e.Engine, &corrected, &ctype, &total); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		e.Status = task.Status(status)
		e.ContentType = task.ContentType(ctype)
		e.SummaryPreview = task.Preview(corrected)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	if len(entries) == 0 && offset > 0 {
		// Past the end: the window function saw no rows.
		if err := db.Pool.QueryRow(ctx,
			`SELECT count(*) FROM transcriptions WHERE user_id = $1`, userID,
		).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count history: %w", err)
		}
	}
	return entries, total, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
