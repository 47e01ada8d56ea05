package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/services"
)

// Worker processes queued video jobs one at a time
type Worker struct {
	repo         *database.VideoJobRepository
	broadcaster  *services.ProgressBroadcaster
	processor    *Processor
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	once         sync.Once
}

// NewWorker creates a new queue worker
func NewWorker(
	repo *database.VideoJobRepository,
	broadcaster *services.ProgressBroadcaster,
	processor *Processor,
	pollInterval time.Duration,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		repo:         repo,
		broadcaster:  broadcaster,
		processor:    processor,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start begins processing queue items and blocks until Stop
func (w *Worker) Start() {
	defer close(w.done)
	log.Println("Queue worker started")

	if n, err := w.repo.RequeueStale(); err != nil {
		log.Printf("Error requeueing interrupted jobs: %v", err)
	} else if n > 0 {
		log.Printf("Requeued %d interrupted video job(s)", n)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.drain()

	// Then process on interval
	for {
		select {
		case <-w.ctx.Done():
			log.Println("Queue worker stopped")
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// Stop cancels the running job and waits for Start to return
func (w *Worker) Stop() {
	w.once.Do(func() {
		log.Println("Stopping queue worker...")
		w.cancel()
	})
	<-w.done
}

// drain processes queued jobs until the queue is empty or the worker stops
func (w *Worker) drain() {
	for w.ctx.Err() == nil && w.ProcessNext() {
	}
}

// ProcessNext processes the next pending job and reports whether there was one
func (w *Worker) ProcessNext() bool {
	job, err := w.repo.GetNextPending()
	if err != nil {
		log.Printf("Error getting next pending job: %v", err)
		return false
	}

	if job == nil {
		// No jobs to process
		return false
	}

	log.Printf("Processing video job %s (%s)", job.ID, job.Name)

	// Mark as processing
	now := time.Now().UTC()
	job.Status = models.StatusProcessing
	job.StartedAt = &now
	job.Progress = 0
	job.FramesRendered = 0
	job.ErrorMessage = ""
	job.CurrentStep = "Starting"
	if err := w.repo.Update(job); err != nil {
		log.Printf("Error updating video job: %v", err)
		return false
	}

	// Broadcast start
	w.broadcaster.BroadcastFromVideoJob(job, "Processing started")

	if err := w.processor.Process(w.ctx, job); err != nil {
		if w.ctx.Err() != nil {
			// Left as processing; RequeueStale picks it up on the next start.
			log.Printf("Video job %s interrupted by shutdown", job.ID)
			return false
		}
		log.Printf("Error processing video job %s: %v", job.ID, err)
		w.failJob(job, err.Error())
		return true
	}

	// Mark as completed
	completed := time.Now().UTC()
	job.Status = models.StatusCompleted
	job.CompletedAt = &completed
	job.Progress = 100
	job.CurrentStep = "Completed"
	if err := w.repo.Update(job); err != nil {
		log.Printf("Error updating completed video job: %v", err)
		return true
	}

	// Broadcast completion
	w.broadcaster.BroadcastFromVideoJob(job, "Processing completed successfully")
	log.Printf("Video job %s completed successfully: %s", job.ID, job.OutputPath)
	return true
}

// failJob marks a video job as failed
func (w *Worker) failJob(job *models.VideoJob, errorMsg string) {
	job.Status = models.StatusFailed
	job.ErrorMessage = errorMsg
	job.RetryCount++
	completed := time.Now().UTC()
	job.CompletedAt = &completed

	if err := w.repo.Update(job); err != nil {
		log.Printf("Error updating failed video job: %v", err)
		return
	}

	w.broadcaster.BroadcastFromVideoJob(job, "Processing failed")
	log.Printf("Video job %s failed: %s", job.ID, errorMsg)
}
