package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/drshumard/Larynx/internal/audio"
	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/storage"
	"github.com/drshumard/Larynx/internal/types"
)

// Sequential drives a chunking-mode job: synthesize each chunk in index
// order, merge the results, persist the artifact. Synthesis is strictly
// sequential; chunk i+1 is only attempted after chunk i finished, which
// bounds load on the synthesis API and keeps artifacts in playback order.
type Sequential struct {
	store     *jobs.Store
	synth     Synthesizer
	merger    *audio.Merger
	artifacts *storage.ArtifactStore
	notifier  Notifier
}

// NewSequential wires the chunking-mode orchestrator.
func NewSequential(store *jobs.Store, synth Synthesizer, merger *audio.Merger, artifacts *storage.ArtifactStore, notifier Notifier) *Sequential {
	return &Sequential{
		store:     store,
		synth:     synth,
		merger:    merger,
		artifacts: artifacts,
		notifier:  notifier,
	}
}

// Run processes the job to a terminal state. Errors from any stage resolve
// into the failed status; Run itself never returns one.
func (o *Sequential) Run(ctx context.Context, job *jobs.Job) {
	if err := o.process(ctx, job); err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		if failErr := o.store.Fail(job.ID, err.Error()); failErr != nil {
			log.Printf("Failed to record failure for job %s: %v", job.ID, failErr)
		}
		return
	}

	log.Printf("Job %s completed (%.2fs audio, %d chunks)", job.ID, job.DurationSeconds, job.ChunkCount)
	o.notifier.JobCompleted(job)
}

func (o *Sequential) process(ctx context.Context, job *jobs.Job) error {
	// Chunking already happened at submission; this transition just makes
	// the stage visible to pollers.
	if err := o.store.SetStatus(job.ID, types.StatusChunking, "Analyzing text..."); err != nil {
		return err
	}

	chunkCount := len(job.Chunks)
	stage := fmt.Sprintf("Converting to speech (0/%d)...", chunkCount)
	if err := o.store.SetStatus(job.ID, types.StatusTranscribing, stage); err != nil {
		return err
	}

	audioChunks := make([][]byte, 0, chunkCount)
	for i, chunkText := range job.Chunks {
		log.Printf("Job %s: synthesizing chunk %d/%d", job.ID, i+1, chunkCount)

		data, err := o.synth.Synthesize(ctx, chunkText, job.TTSConfig)
		if err != nil {
			return o.failChunk(job, i, fmt.Errorf("chunk %d: %w", i, err))
		}

		chunkPath, err := o.artifacts.SaveChunkAudio(job.ID, i, data)
		if err != nil {
			return o.failChunk(job, i, fmt.Errorf("chunk %d: %w", i, err))
		}

		now := time.Now().UTC()
		job.ChunkRequests[i].Status = types.ChunkCompleted
		job.ChunkRequests[i].CompletedAt = &now
		job.ChunkRequests[i].AudioPath = chunkPath
		job.ProcessedChunks = i + 1
		job.Progress = (i + 1) * 85 / chunkCount
		job.Stage = fmt.Sprintf("Converting to speech (%d/%d)...", i+1, chunkCount)

		err = o.store.SetChunkProgress(job.ID, job.ChunkRequests, job.ProcessedChunks, job.Progress, job.Stage)
		if err != nil {
			return err
		}

		audioChunks = append(audioChunks, data)
	}

	if err := o.store.SetStatusProgress(job.ID, types.StatusMerging, 90, "Merging audio chunks..."); err != nil {
		return err
	}

	merged, duration, err := o.merger.Merge(audioChunks)
	if err != nil {
		return err
	}

	if err := o.store.SetProgress(job.ID, 95, "Saving audio file..."); err != nil {
		return err
	}

	path, err := o.artifacts.SaveJobAudio(job.ID, merged)
	if err != nil {
		return err
	}

	url := audioURL(job.ID)
	if err := o.store.Complete(job.ID, path, url, duration); err != nil {
		return err
	}

	job.Status = types.StatusCompleted
	job.Progress = 100
	job.AudioPath = path
	job.AudioURL = url
	job.DurationSeconds = duration
	return nil
}

// failChunk records the terminal per-chunk state before surfacing the error.
// Remaining chunks stay pending and no merged artifact is produced.
func (o *Sequential) failChunk(job *jobs.Job, index int, cause error) error {
	now := time.Now().UTC()
	job.ChunkRequests[index].Status = types.ChunkFailed
	job.ChunkRequests[index].CompletedAt = &now
	job.ChunkRequests[index].Error = cause.Error()

	if err := o.store.SetChunkRequests(job.ID, job.ChunkRequests); err != nil {
		log.Printf("Failed to record chunk failure for job %s: %v", job.ID, err)
	}
	return cause
}
