package jobs_test

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/types"
)

func newTestStore(t *testing.T) *jobs.Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := jobs.NewStore(db)
	require.NoError(t, err)
	return store
}

func newTestJob(t *testing.T, name string) *jobs.Job {
	t.Helper()

	text := strings.Repeat("A steady test sentence for the conversion pipeline. ", 4)
	return jobs.New(uuid.New().String(), name, text, []string{"chunk one.", "chunk two.", "chunk three."}, settings.Defaults())
}

func TestNewJobShape(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, "Shape")

	assert.Equal(t, types.StatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, 3, job.ChunkCount)
	assert.Equal(t, 0, job.ProcessedChunks)
	assert.Equal(t, len(job.OriginalText), job.TextLength)
	assert.Len(t, job.ChunkRequests, len(job.Chunks))
	for i, req := range job.ChunkRequests {
		assert.Equal(t, i, req.Index)
		assert.Equal(t, types.ChunkPending, req.Status)
		assert.Equal(t, settings.DefaultVoiceID, req.VoiceID)
	}
	assert.False(t, job.Terminal())
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	job := newTestJob(t, "Round trip")
	require.NoError(t, store.Insert(job))

	got, err := store.Get(job.ID)
	require.NoError(t, err)

	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.Name, got.Name)
	assert.Equal(t, job.OriginalText, got.OriginalText)
	assert.Equal(t, job.Mode, got.Mode)
	assert.Equal(t, job.Chunks, got.Chunks)
	assert.Equal(t, job.Status, got.Status)
	assert.Equal(t, job.TTSConfig, got.TTSConfig)
	assert.Len(t, got.ChunkRequests, 3)
}

func TestGetUnknownJob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Get(uuid.New().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListNewestFirstWithoutChunkBodies(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	older := newTestJob(t, "Older")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Insert(older))

	newer := newTestJob(t, "Newer")
	require.NoError(t, store.Insert(newer))

	list, total, err := store.List(50, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Name)
	assert.Equal(t, "Older", list[1].Name)

	// Chunk bodies and the original text are excluded from list views.
	assert.Empty(t, list[0].Chunks)
	assert.Empty(t, list[0].OriginalText)
	assert.Len(t, list[0].ChunkRequests, 3)
}

func TestListPagination(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		job := newTestJob(t, "Paged")
		job.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Insert(job))
	}

	list, total, err := store.List(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, list, 2)

	list, _, err = store.List(2, 4)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStatusAndProgressUpdates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	job := newTestJob(t, "Updates")
	require.NoError(t, store.Insert(job))

	require.NoError(t, store.SetStatus(job.ID, types.StatusTranscribing, "Converting to speech (0/3)..."))
	require.NoError(t, store.SetProgress(job.ID, 28, "Converting to speech (1/3)..."))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusTranscribing, got.Status)
	assert.Equal(t, 28, got.Progress)
	assert.Equal(t, "Converting to speech (1/3)...", got.Stage)
	assert.True(t, got.UpdatedAt.After(job.UpdatedAt) || got.UpdatedAt.Equal(job.UpdatedAt))
}

func TestChunkProgressUpdate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	job := newTestJob(t, "Chunks")
	require.NoError(t, store.Insert(job))

	now := time.Now().UTC()
	job.ChunkRequests[0].Status = types.ChunkCompleted
	job.ChunkRequests[0].CompletedAt = &now
	job.ChunkRequests[0].AudioPath = "/tmp/a.mp3"

	require.NoError(t, store.SetChunkProgress(job.ID, job.ChunkRequests, 1, 28, "Converting to speech (1/3)..."))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ChunkCompleted, got.ChunkRequests[0].Status)
	assert.Equal(t, "/tmp/a.mp3", got.ChunkRequests[0].AudioPath)
	assert.Equal(t, types.ChunkPending, got.ChunkRequests[1].Status)
	assert.Equal(t, 1, got.ProcessedChunks)
	assert.Equal(t, 28, got.Progress)
}

func TestCompleteSetsArtifactFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	job := newTestJob(t, "Complete")
	require.NoError(t, store.Insert(job))

	require.NoError(t, store.Complete(job.ID, "/tmp/out.mp3", "/api/jobs/"+job.ID+"/download", 42.5))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "Complete", got.Stage)
	assert.Equal(t, "/tmp/out.mp3", got.AudioPath)
	assert.Equal(t, "/api/jobs/"+job.ID+"/download", got.AudioURL)
	assert.Equal(t, 42.5, got.DurationSeconds)
	assert.Empty(t, got.Error)
	assert.True(t, got.Terminal())
}

func TestFailFreezesStageAndProgress(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	job := newTestJob(t, "Fail")
	require.NoError(t, store.Insert(job))

	require.NoError(t, store.SetStatusProgress(job.ID, types.StatusTranscribing, 57, "Converting to speech (2/3)..."))
	require.NoError(t, store.Fail(job.ID, "chunk 2: synthesis exploded"))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, "chunk 2: synthesis exploded", got.Error)
	assert.Equal(t, 57, got.Progress)
	assert.Equal(t, "Converting to speech (2/3)...", got.Stage)
	assert.Empty(t, got.AudioPath)
	assert.True(t, got.Terminal())
}

func TestDeleteJob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	job := newTestJob(t, "Delete")
	require.NoError(t, store.Insert(job))

	require.NoError(t, store.Delete(job.ID))

	_, err := store.Get(job.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = store.Delete(job.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateUnknownJob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	err := store.SetStatus(uuid.New().String(), types.StatusChunking, "Analyzing text...")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSummarizeAndDescribe(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, "Views")
	job.Status = types.StatusCompleted
	job.Progress = 100
	job.AudioURL = "/api/jobs/" + job.ID + "/download"
	job.DurationSeconds = 12.25

	summary := jobs.Summarize(job)
	assert.Equal(t, job.ID, summary.ID)
	assert.Equal(t, 100, summary.Progress)
	assert.Equal(t, job.AudioURL, summary.AudioURL)
	assert.Equal(t, 12.25, summary.DurationSeconds)

	details := jobs.Describe(job)
	assert.Equal(t, summary, details.Summary)
	assert.Equal(t, job.Chunks, details.Chunks)
	assert.Equal(t, job.ChunkRequests, details.ChunkRequests)
	assert.Equal(t, job.TTSConfig, details.TTSConfig)
}
