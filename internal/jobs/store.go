package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/types"
)

// Store handles SQLite persistence for jobs. Chunks, chunk requests and the
// captured settings are stored as JSON documents; scalar fields get their own
// columns so the orchestrators can overwrite them independently.
type Store struct {
	db *sql.DB
}

// NewStore creates the jobs table if needed.
func NewStore(db *sql.DB) (*Store, error) {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		original_text TEXT NOT NULL,
		mode TEXT NOT NULL,
		chunks TEXT NOT NULL,
		chunk_requests TEXT NOT NULL,
		status TEXT NOT NULL,
		stage TEXT,
		progress INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL,
		processed_chunks INTEGER NOT NULL DEFAULT 0,
		text_length INTEGER NOT NULL,
		audio_path TEXT,
		audio_url TEXT,
		duration_seconds REAL NOT NULL DEFAULT 0,
		error TEXT,
		tts_config TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create jobs table: %v", err)
	}

	return &Store{db: db}, nil
}

// Insert persists a newly created job.
func (s *Store) Insert(j *Job) error {
	chunks, err := json.Marshal(j.Chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %v", err)
	}
	requests, err := json.Marshal(j.ChunkRequests)
	if err != nil {
		return fmt.Errorf("failed to encode chunk requests: %v", err)
	}
	cfg, err := json.Marshal(j.TTSConfig)
	if err != nil {
		return fmt.Errorf("failed to encode tts config: %v", err)
	}

	query := `
	INSERT INTO jobs (
		id, name, original_text, mode, chunks, chunk_requests,
		status, stage, progress, chunk_count, processed_chunks, text_length,
		audio_path, audio_url, duration_seconds, error, tts_config,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		j.ID, j.Name, j.OriginalText, j.Mode, string(chunks), string(requests),
		j.Status, j.Stage, j.Progress, j.ChunkCount, j.ProcessedChunks, j.TextLength,
		j.AudioPath, j.AudioURL, j.DurationSeconds, j.Error, string(cfg),
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %v", err)
	}
	return nil
}

// Get retrieves the full job record by ID.
func (s *Store) Get(id string) (*Job, error) {
	query := `
	SELECT id, name, original_text, mode, chunks, chunk_requests,
		status, stage, progress, chunk_count, processed_chunks, text_length,
		audio_path, audio_url, duration_seconds, error, tts_config,
		created_at, updated_at
	FROM jobs WHERE id = ?
	`

	j, err := scanJob(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %v", err)
	}
	return j, nil
}

// List returns jobs newest first, chunk bodies excluded, plus the total count.
func (s *Store) List(limit, skip int) ([]*Job, int, error) {
	query := `
	SELECT id, name, mode, chunk_requests,
		status, stage, progress, chunk_count, processed_chunks, text_length,
		audio_path, audio_url, duration_seconds, error,
		created_at, updated_at
	FROM jobs ORDER BY created_at DESC LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %v", err)
	}
	defer rows.Close()

	var list []*Job
	for rows.Next() {
		var (
			j         Job
			requests  string
			stage     sql.NullString
			audioPath sql.NullString
			audioURL  sql.NullString
			errMsg    sql.NullString
		)
		err := rows.Scan(
			&j.ID, &j.Name, &j.Mode, &requests,
			&j.Status, &stage, &j.Progress, &j.ChunkCount, &j.ProcessedChunks, &j.TextLength,
			&audioPath, &audioURL, &j.DurationSeconds, &errMsg,
			&j.CreatedAt, &j.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %v", err)
		}
		if err := json.Unmarshal([]byte(requests), &j.ChunkRequests); err != nil {
			return nil, 0, fmt.Errorf("failed to decode chunk requests: %v", err)
		}
		j.Stage = stage.String
		j.AudioPath = audioPath.String
		j.AudioURL = audioURL.String
		j.Error = errMsg.String
		list = append(list, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read jobs: %v", err)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %v", err)
	}

	return list, total, nil
}

// Delete removes a job record.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: job %s", types.ErrNotFound, id)
	}
	return nil
}

// SetStatus overwrites status and stage.
func (s *Store) SetStatus(id, status, stage string) error {
	return s.update(id, map[string]any{"status": status, "stage": stage})
}

// SetProgress overwrites progress and stage.
func (s *Store) SetProgress(id string, progress int, stage string) error {
	return s.update(id, map[string]any{"progress": progress, "stage": stage})
}

// SetStatusProgress overwrites status, progress and stage together.
func (s *Store) SetStatusProgress(id, status string, progress int, stage string) error {
	return s.update(id, map[string]any{"status": status, "progress": progress, "stage": stage})
}

// SetChunkProgress records the chunk request states along with the derived
// processed count, progress and stage after a chunk reaches a terminal
// per-chunk status.
func (s *Store) SetChunkProgress(id string, requests []ChunkRequest, processed, progress int, stage string) error {
	data, err := json.Marshal(requests)
	if err != nil {
		return fmt.Errorf("failed to encode chunk requests: %v", err)
	}
	return s.update(id, map[string]any{
		"chunk_requests":   string(data),
		"processed_chunks": processed,
		"progress":         progress,
		"stage":            stage,
	})
}

// SetChunkRequests records the chunk request states without touching
// progress or stage. Used when a chunk fails, so both freeze at their last
// values.
func (s *Store) SetChunkRequests(id string, requests []ChunkRequest) error {
	data, err := json.Marshal(requests)
	if err != nil {
		return fmt.Errorf("failed to encode chunk requests: %v", err)
	}
	return s.update(id, map[string]any{"chunk_requests": string(data)})
}

// Complete marks a job finished with its artifact location and duration.
func (s *Store) Complete(id, audioPath, audioURL string, durationSeconds float64) error {
	return s.update(id, map[string]any{
		"status":           types.StatusCompleted,
		"stage":            "Complete",
		"progress":         100,
		"audio_path":       audioPath,
		"audio_url":        audioURL,
		"duration_seconds": durationSeconds,
	})
}

// Fail marks a job failed. Stage and progress are deliberately left at their
// last values.
func (s *Store) Fail(id, message string) error {
	return s.update(id, map[string]any{
		"status": types.StatusFailed,
		"error":  message,
	})
}

// update overwrites the given columns and advances updated_at.
func (s *Store) update(id string, fields map[string]any) error {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var (
		set  []string
		args []any
	)
	for _, col := range cols {
		set = append(set, col+" = ?")
		args = append(args, fields[col])
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := "UPDATE jobs SET " + strings.Join(set, ", ") + " WHERE id = ?"
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: job %s", types.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		j         Job
		chunks    string
		requests  string
		cfg       string
		stage     sql.NullString
		audioPath sql.NullString
		audioURL  sql.NullString
		errMsg    sql.NullString
	)

	err := row.Scan(
		&j.ID, &j.Name, &j.OriginalText, &j.Mode, &chunks, &requests,
		&j.Status, &stage, &j.Progress, &j.ChunkCount, &j.ProcessedChunks, &j.TextLength,
		&audioPath, &audioURL, &j.DurationSeconds, &errMsg, &cfg,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(chunks), &j.Chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %v", err)
	}
	if err := json.Unmarshal([]byte(requests), &j.ChunkRequests); err != nil {
		return nil, fmt.Errorf("failed to decode chunk requests: %v", err)
	}
	var ttsConfig settings.Settings
	if err := json.Unmarshal([]byte(cfg), &ttsConfig); err != nil {
		return nil, fmt.Errorf("failed to decode tts config: %v", err)
	}

	j.Stage = stage.String
	j.AudioPath = audioPath.String
	j.AudioURL = audioURL.String
	j.Error = errMsg.String
	j.TTSConfig = ttsConfig

	return &j, nil
}
