// Package handlers implements the HTTP surface of the service.
package handlers

import (
	"errors"
	"log"
	"os"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/drshumard/Larynx/internal/chunker"
	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/storage"
	"github.com/drshumard/Larynx/internal/types"
)

// MinTextLength is the minimum accepted submission size in characters.
const MinTextLength = 100

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Enqueuer hands a created job to the background workers.
type Enqueuer interface {
	Enqueue(job *jobs.Job)
}

// JobsHandler serves the job endpoints.
type JobsHandler struct {
	store         *jobs.Store
	artifacts     *storage.ArtifactStore
	queue         Enqueuer
	settings      *settings.Store
	maxChunkChars int
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store *jobs.Store, artifacts *storage.ArtifactStore, queue Enqueuer, settingsStore *settings.Store, maxChunkChars int) *JobsHandler {
	return &JobsHandler{
		store:         store,
		artifacts:     artifacts,
		queue:         queue,
		settings:      settingsStore,
		maxChunkChars: maxChunkChars,
	}
}

// CreateRequest is the POST /api/jobs body.
type CreateRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Create validates the submission, chunks the text, persists the queued job
// and hands it to the worker pool. The request never waits on synthesis.
func (h *JobsHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if len(req.Name) < 1 || len(req.Name) > 200 {
		return c.Status(400).JSON(fiber.Map{
			"error": "Name must be between 1 and 200 characters",
			"code":  "ERR_INVALID_NAME",
		})
	}
	if len(req.Text) < MinTextLength {
		return c.Status(400).JSON(fiber.Map{
			"error": "Text must be at least 100 characters",
			"code":  "ERR_TEXT_TOO_SHORT",
		})
	}

	cfg, err := h.settings.Current()
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load settings",
			"code":  "ERR_INTERNAL",
		})
	}

	// Studio mode delegates the whole text; chunking happens here, at
	// submission time, so the record carries its chunk list from birth.
	var chunks []string
	if cfg.Mode == types.ModeStudio {
		chunks = []string{req.Text}
	} else {
		chunks = chunker.Split(req.Text, h.maxChunkChars)
	}
	if len(chunks) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "Text is too short to process",
			"code":  "ERR_NO_CHUNKS",
		})
	}

	job := jobs.New(uuid.New().String(), req.Name, req.Text, chunks, cfg)
	if err := h.store.Insert(job); err != nil {
		log.Printf("Failed to insert job: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to create job",
			"code":  "ERR_INTERNAL",
		})
	}

	h.queue.Enqueue(job)

	return c.JSON(jobs.Summarize(job))
}

// List returns jobs newest first with chunk bodies excluded.
func (h *JobsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	skip := c.QueryInt("skip", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	list, total, err := h.store.List(limit, skip)
	if err != nil {
		log.Printf("Failed to list jobs: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to list jobs",
			"code":  "ERR_INTERNAL",
		})
	}

	summaries := make([]jobs.Summary, 0, len(list))
	for _, job := range list {
		summaries = append(summaries, jobs.Summarize(job))
	}

	return c.JSON(fiber.Map{
		"jobs":  summaries,
		"total": total,
	})
}

// Get returns one job summary.
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, err := h.lookup(c)
	if job == nil {
		return err
	}
	return c.JSON(jobs.Summarize(job))
}

// Details returns the full record including chunk texts and per-chunk
// request state.
func (h *JobsHandler) Details(c *fiber.Ctx) error {
	job, err := h.lookup(c)
	if job == nil {
		return err
	}
	return c.JSON(jobs.Describe(job))
}

// Download streams the merged artifact of a completed job as an attachment.
func (h *JobsHandler) Download(c *fiber.Ctx) error {
	job, err := h.lookup(c)
	if job == nil {
		return err
	}

	if job.Status != types.StatusCompleted {
		return c.Status(400).JSON(fiber.Map{
			"error": "Job is not completed yet",
			"code":  "ERR_NOT_COMPLETED",
		})
	}
	if job.AudioPath == "" {
		return c.Status(404).JSON(fiber.Map{
			"error": "Audio file not found",
			"code":  "ERR_NO_AUDIO",
		})
	}
	if _, err := os.Stat(job.AudioPath); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Audio file not found",
			"code":  "ERR_NO_AUDIO",
		})
	}

	safeName := filenameSanitizer.ReplaceAllString(job.Name, "_")
	if len(safeName) > 50 {
		safeName = safeName[:50]
	}

	return c.Download(job.AudioPath, safeName+".mp3")
}

// ChunkAudio streams one chunk's artifact.
func (h *JobsHandler) ChunkAudio(c *fiber.Ctx) error {
	job, err := h.lookup(c)
	if job == nil {
		return err
	}

	index, err := c.ParamsInt("index")
	if err != nil || index < 0 || index >= len(job.ChunkRequests) {
		return c.Status(404).JSON(fiber.Map{
			"error": "Chunk not found",
			"code":  "ERR_CHUNK_NOT_FOUND",
		})
	}

	path := job.ChunkRequests[index].AudioPath
	if path == "" {
		path = h.artifacts.ChunkAudioPath(job.ID, index)
	}
	if _, err := os.Stat(path); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Chunk audio not found",
			"code":  "ERR_CHUNK_NOT_FOUND",
		})
	}

	return c.SendFile(path)
}

// Delete removes the job record and every artifact it produced.
func (h *JobsHandler) Delete(c *fiber.Ctx) error {
	job, err := h.lookup(c)
	if job == nil {
		return err
	}

	if err := h.artifacts.DeleteJob(job.ID); err != nil {
		log.Printf("Failed to delete artifacts for job %s: %v", job.ID, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete audio files",
			"code":  "ERR_INTERNAL",
		})
	}
	if err := h.store.Delete(job.ID); err != nil {
		log.Printf("Failed to delete job %s: %v", job.ID, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete job",
			"code":  "ERR_INTERNAL",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Job deleted successfully",
	})
}

// lookup parses and resolves the id parameter. On failure it writes the
// error response and returns a nil job with the handler result.
func (h *JobsHandler) lookup(c *fiber.Ctx) (*jobs.Job, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, c.Status(400).JSON(fiber.Map{
			"error": "Invalid job ID",
			"code":  "ERR_INVALID_ID",
		})
	}

	job, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, c.Status(404).JSON(fiber.Map{
				"error": "Job not found",
				"code":  "ERR_NOT_FOUND",
			})
		}
		log.Printf("Failed to get job %s: %v", id, err)
		return nil, c.Status(500).JSON(fiber.Map{
			"error": "Failed to get job",
			"code":  "ERR_INTERNAL",
		})
	}

	return job, nil
}
