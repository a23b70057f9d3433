package types

import "errors"

// Job status constants
const (
	StatusQueued       = "queued"
	StatusChunking     = "chunking"
	StatusTranscribing = "transcribing"
	StatusMerging      = "merging"
	StatusProcessing   = "processing" // studio mode collapses the middle states
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

// Conversion mode constants
const (
	ModeChunking = "chunking"
	ModeStudio   = "studio"
)

// Per-chunk request status constants
const (
	ChunkPending   = "pending"
	ChunkCompleted = "completed"
	ChunkFailed    = "failed"
)

// Sentinel errors shared across the pipeline and the request path.
// Handlers map ErrValidation/ErrInvalidID/ErrNotFound to 400/404 responses;
// everything raised inside an orchestrator only ever surfaces as a failed job.
var (
	ErrValidation      = errors.New("validation error")
	ErrExternalService = errors.New("external service error")
	ErrMerge           = errors.New("merge error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidID       = errors.New("invalid job ID")
)

// IsTerminal reports whether a job status is final.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
