// Package pipeline contains the two job orchestrators. Each drives exactly
// one job to a terminal state and never lets an error escape: any stage
// failure is resolved into the job's failed status.
package pipeline

import (
	"context"

	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/settings"
)

// Synthesizer converts one text segment into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, cfg settings.Settings) ([]byte, error)
}

// Studio is the asynchronous whole-document conversion capability used in
// studio mode.
type Studio interface {
	CreateProject(ctx context.Context, name string, paragraphs []string, cfg settings.Settings) (string, error)
	ProjectState(ctx context.Context, projectID string) (string, error)
	LatestSnapshot(ctx context.Context, projectID string) (string, error)
	DownloadSnapshot(ctx context.Context, projectID, snapshotID string) ([]byte, error)
}

// Notifier delivers the best-effort completion event.
type Notifier interface {
	JobCompleted(job *jobs.Job)
}

// audioURL is the relative download location recorded on completed jobs.
func audioURL(jobID string) string {
	return "/api/jobs/" + jobID + "/download"
}
