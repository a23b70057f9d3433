package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/drshumard/Larynx/internal/jobs"
)

// ProgressHandler pushes job summaries over a WebSocket until the job
// reaches a terminal state, saving clients the polling loop.
type ProgressHandler struct {
	store    *jobs.Store
	interval time.Duration
}

// NewProgressHandler creates a progress handler polling the store at the
// given interval.
func NewProgressHandler(store *jobs.Store, interval time.Duration) *ProgressHandler {
	return &ProgressHandler{
		store:    store,
		interval: interval,
	}
}

// Handle streams summaries for the job in the :id parameter. The connection
// closes after the terminal snapshot is delivered or on any read/write
// failure.
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	log.Printf("Progress stream opened for job %s", id)

	var lastUpdate time.Time
	for {
		job, err := h.store.Get(id)
		if err != nil {
			log.Printf("Progress stream for job %s ended: %v", id, err)
			c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Job not found"}`))
			return
		}

		// Only push when something changed; terminal snapshots always go out.
		if job.Terminal() || job.UpdatedAt.After(lastUpdate) {
			payload, err := json.Marshal(jobs.Summarize(job))
			if err != nil {
				log.Printf("Progress stream encoding failed for job %s: %v", id, err)
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("Progress stream write failed for job %s: %v", id, err)
				return
			}
			lastUpdate = job.UpdatedAt
		}

		if job.Terminal() {
			log.Printf("Progress stream for job %s finished (%s)", id, job.Status)
			return
		}

		time.Sleep(h.interval)
	}
}
