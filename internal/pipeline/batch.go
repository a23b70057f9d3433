package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/drshumard/Larynx/internal/audio"
	"github.com/drshumard/Larynx/internal/chunker"
	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/storage"
	"github.com/drshumard/Larynx/internal/types"
)

// Polling budget: 120 attempts at 5s gives the remote conversion a
// 10-minute ceiling before the job times out.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 120
)

// Remote studio project states.
const (
	stateConverting = "converting"
	stateReady      = "ready"
	stateFailed     = "failed"
)

// Batch drives a studio-mode job: submit the whole text as a project, poll
// it to completion, download the finished artifact.
type Batch struct {
	store     *jobs.Store
	studio    Studio
	prober    audio.Prober
	artifacts *storage.ArtifactStore
	notifier  Notifier

	// PollInterval and PollAttempts default to the production budget;
	// tests shrink them.
	PollInterval time.Duration
	PollAttempts int
}

// NewBatch wires the studio-mode orchestrator.
func NewBatch(store *jobs.Store, studio Studio, prober audio.Prober, artifacts *storage.ArtifactStore, notifier Notifier) *Batch {
	return &Batch{
		store:        store,
		studio:       studio,
		prober:       prober,
		artifacts:    artifacts,
		notifier:     notifier,
		PollInterval: DefaultPollInterval,
		PollAttempts: DefaultPollAttempts,
	}
}

// Run processes the job to a terminal state, mirroring Sequential.Run.
func (o *Batch) Run(ctx context.Context, job *jobs.Job) {
	if err := o.process(ctx, job); err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		if failErr := o.store.Fail(job.ID, err.Error()); failErr != nil {
			log.Printf("Failed to record failure for job %s: %v", job.ID, failErr)
		}
		return
	}

	log.Printf("Job %s completed via studio (%.2fs audio)", job.ID, job.DurationSeconds)
	o.notifier.JobCompleted(job)
}

func (o *Batch) process(ctx context.Context, job *jobs.Job) error {
	if err := o.store.SetStatusProgress(job.ID, types.StatusProcessing, 10, "Submitting to studio..."); err != nil {
		return err
	}

	// Paragraph grouping only structures the submission payload; unlike the
	// chunker it carries no size bound.
	paragraphs := chunker.Paragraphs(job.OriginalText)

	projectID, err := o.studio.CreateProject(ctx, job.Name, paragraphs, job.TTSConfig)
	if err != nil {
		return fmt.Errorf("project creation: %w", err)
	}
	log.Printf("Job %s: studio project %s created (%d paragraphs)", job.ID, projectID, len(paragraphs))

	if err := o.store.SetProgress(job.ID, 30, "Converting in studio..."); err != nil {
		return err
	}

	snapshotID := ""
	for attempt := 1; attempt <= o.PollAttempts; attempt++ {
		time.Sleep(o.PollInterval)

		state, err := o.studio.ProjectState(ctx, projectID)
		if err != nil {
			// Transient poll failures are retried on the next interval;
			// only an explicit remote failure or the timeout is terminal.
			log.Printf("Job %s: poll attempt %d failed: %v", job.ID, attempt, err)
			continue
		}

		if state == stateFailed {
			return fmt.Errorf("%w: studio conversion failed", types.ErrExternalService)
		}

		if state == stateReady {
			snapshotID, err = o.studio.LatestSnapshot(ctx, projectID)
			if err != nil {
				return fmt.Errorf("snapshot lookup: %w", err)
			}
			break
		}

		// Interpolate progress across the attempt budget between 30 and 80.
		progress := 30 + attempt*50/o.PollAttempts
		if err := o.store.SetProgress(job.ID, progress, "Converting in studio..."); err != nil {
			return err
		}
	}

	if snapshotID == "" {
		return fmt.Errorf("%w: studio conversion timed out after %d attempts", types.ErrExternalService, o.PollAttempts)
	}

	if err := o.store.SetProgress(job.ID, 85, "Downloading audio..."); err != nil {
		return err
	}

	data, err := o.studio.DownloadSnapshot(ctx, projectID, snapshotID)
	if err != nil {
		return fmt.Errorf("snapshot download: %w", err)
	}

	if err := o.store.SetProgress(job.ID, 95, "Saving audio file..."); err != nil {
		return err
	}

	path, err := o.artifacts.SaveJobAudio(job.ID, data)
	if err != nil {
		return err
	}

	duration, err := o.prober.Duration(data)
	if err != nil {
		return fmt.Errorf("duration probe: %v", err)
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
