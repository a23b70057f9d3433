// Package notify delivers best-effort completion webhooks. Delivery failures
// are logged and swallowed; they never influence job state.
package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/drshumard/Larynx/internal/jobs"
)

// Payload is the JSON body posted on job completion.
type Payload struct {
	JobID       string `json:"jobId"`
	Name        string `json:"name"`
	AudioURL    string `json:"audioUrl"`
	Status      string `json:"status"`
	TextLength  int    `json:"textLength"`
	ChunkCount  int    `json:"chunkCount"`
	CompletedAt string `json:"completedAt"`
}

// Webhook posts completion events to a configured URL.
type Webhook struct {
	url           string
	publicBaseURL string
	client        *http.Client
}

// NewWebhook creates a notifier. An empty url disables delivery entirely.
// publicBaseURL, when set, is prefixed to the job's relative audio URL.
func NewWebhook(url, publicBaseURL string) *Webhook {
	return &Webhook{
		url:           url,
		publicBaseURL: publicBaseURL,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// JobCompleted sends the completion event. Any 2xx response counts as
// delivered; everything else is logged and dropped.
func (w *Webhook) JobCompleted(job *jobs.Job) {
	if w.url == "" {
		return
	}

	payload := Payload{
		JobID:       job.ID,
		Name:        job.Name,
		AudioURL:    w.publicBaseURL + job.AudioURL,
		Status:      job.Status,
		TextLength:  job.TextLength,
		ChunkCount:  job.ChunkCount,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Webhook payload encoding failed for job %s: %v", job.ID, err)
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Webhook delivery failed for job %s: %v", job.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Webhook for job %s rejected with status %d", job.ID, resp.StatusCode)
		return
	}

	log.Printf("Webhook sent for job %s: %d", job.ID, resp.StatusCode)
}
