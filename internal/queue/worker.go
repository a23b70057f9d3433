// Package queue runs background job processing. Each job is handed to
// exactly one worker, which runs exactly one orchestrator to a terminal
// state; jobs run concurrently with each other but never share an owner.
package queue

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/types"
)

// Orchestrator drives one job to completion or failure.
type Orchestrator interface {
	Run(ctx context.Context, job *jobs.Job)
}

// WorkerPool manages a pool of workers processing conversion jobs.
type WorkerPool struct {
	jobQueue    chan *jobs.Job
	workerCount int
	store       *jobs.Store
	sequential  Orchestrator
	batch       Orchestrator
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(workerCount int, store *jobs.Store, sequential, batch Orchestrator) *WorkerPool {
	return &WorkerPool{
		jobQueue:    make(chan *jobs.Job, 100), // Buffer of 100 jobs
		workerCount: workerCount,
		store:       store,
		sequential:  sequential,
		batch:       batch,
	}
}

// Start launches all workers. The context only gates shutdown of idle
// workers; a job already picked up always runs to its terminal state.
func (wp *WorkerPool) Start(ctx context.Context) {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(ctx, i)
	}
}

// Enqueue adds a job to the queue.
func (wp *WorkerPool) Enqueue(job *jobs.Job) {
	wp.jobQueue <- job
	log.Printf("Job %s enqueued (mode: %s, name: %s, chunks: %d)", job.ID, job.Mode, job.Name, job.ChunkCount)
}

// worker processes jobs from the queue.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", id)
			return
		case job := <-wp.jobQueue:
			wp.runJob(ctx, id, job)
		}
	}
}

// runJob dispatches the job to its orchestrator with panic recovery, so a
// crashing pipeline still leaves the record in a terminal state.
func (wp *WorkerPool) runJob(ctx context.Context, workerID int, job *jobs.Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
				workerID, job.ID, r, string(debug.Stack()))
			if err := wp.store.Fail(job.ID, fmt.Sprintf("worker panic: %v", r)); err != nil {
				log.Printf("Worker %d: failed to record panic for job %s: %v", workerID, job.ID, err)
			}
		}
	}()

	log.Printf("Worker %d: processing job %s (mode: %s)", workerID, job.ID, job.Mode)

	switch job.Mode {
	case types.ModeStudio:
		wp.batch.Run(ctx, job)
	default:
		wp.sequential.Run(ctx, job)
	}
}
