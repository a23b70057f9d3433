// Package jobs defines the persisted conversion job record and its SQLite
// store. A job is mutated only by the orchestrator that owns it; once it
// reaches a terminal status it is never written again.
package jobs

import (
	"time"

	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/types"
)

// ChunkRequest tracks one synthesis call within a chunking-mode job.
type ChunkRequest struct {
	Index        int                   `json:"index"`
	VoiceID      string                `json:"voice_id"`
	ModelID      string                `json:"model_id"`
	OutputFormat string                `json:"output_format"`
	Stability    float64               `json:"stability"`
	Similarity   float64               `json:"similarity_boost"`
	Speed        float64               `json:"speed"`
	Style        float64               `json:"style"`
	SpeakerBoost bool                  `json:"speaker_boost"`
	Status       string                `json:"status"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	Error        string                `json:"error,omitempty"`
	AudioPath    string                `json:"audio_path,omitempty"`
}

// Job is one end-to-end text-to-audio conversion request.
type Job struct {
	ID              string
	Name            string
	OriginalText    string
	Mode            string
	Chunks          []string
	ChunkRequests   []ChunkRequest
	Status          string
	Stage           string
	Progress        int
	ChunkCount      int
	ProcessedChunks int
	TextLength      int
	AudioPath       string
	AudioURL        string
	DurationSeconds float64
	Error           string
	TTSConfig       settings.Settings
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New builds a queued job with a pending chunk request per chunk and an
// immutable copy of the current settings.
func New(id, name, text string, chunks []string, cfg settings.Settings) *Job {
	now := time.Now().UTC()

	requests := make([]ChunkRequest, len(chunks))
	for i := range chunks {
		requests[i] = ChunkRequest{
			Index:        i,
			VoiceID:      cfg.VoiceID,
			ModelID:      cfg.ModelID,
			OutputFormat: cfg.OutputFormat,
			Stability:    cfg.Stability,
			Similarity:   cfg.Similarity,
			Speed:        cfg.Speed,
			Style:        cfg.Style,
			SpeakerBoost: cfg.SpeakerBoost,
			Status:       types.ChunkPending,
		}
	}

	return &Job{
		ID:            id,
		Name:          name,
		OriginalText:  text,
		Mode:          cfg.Mode,
		Chunks:        chunks,
		ChunkRequests: requests,
		Status:        types.StatusQueued,
		Stage:         "Waiting in queue...",
		Progress:      0,
		ChunkCount:    len(chunks),
		TextLength:    len(text),
		TTSConfig:     cfg,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return types.IsTerminal(j.Status)
}

// Summary is the job view returned by the list/get endpoints and the
// progress stream; chunk bodies are excluded.
type Summary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Mode            string    `json:"mode"`
	Status          string    `json:"status"`
	Stage           string    `json:"stage,omitempty"`
	Progress        int       `json:"progress"`
	ChunkCount      int       `json:"chunk_count"`
	ProcessedChunks int       `json:"processed_chunks"`
	TextLength      int       `json:"text_length"`
	Error           string    `json:"error,omitempty"`
	AudioURL        string    `json:"audio_url,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Details is the full record view including chunk texts and per-chunk
// request state.
type Details struct {
	Summary
	Chunks        []string          `json:"chunks"`
	ChunkRequests []ChunkRequest    `json:"chunk_requests"`
	TTSConfig     settings.Settings `json:"tts_config"`
}

// Summarize converts a job to its API summary shape.
func Summarize(j *Job) Summary {
	return Summary{
		ID:              j.ID,
		Name:            j.Name,
		Mode:            j.Mode,
		Status:          j.Status,
		Stage:           j.Stage,
		Progress:        j.Progress,
		ChunkCount:      j.ChunkCount,
		ProcessedChunks: j.ProcessedChunks,
		TextLength:      j.TextLength,
		Error:           j.Error,
		AudioURL:        j.AudioURL,
		DurationSeconds: j.DurationSeconds,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

// Describe converts a job to its full details shape.
func Describe(j *Job) Details {
	return Details{
		Summary:       Summarize(j),
		Chunks:        j.Chunks,
		ChunkRequests: j.ChunkRequests,
		TTSConfig:     j.TTSConfig,
	}
}
