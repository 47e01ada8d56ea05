package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
)

// ProgressUpdate represents a progress update event
type ProgressUpdate struct {
	JobID          string    `json:"job_id"`
	Name           string    `json:"name,omitempty"`
	Status         string    `json:"status"`
	CurrentStep    string    `json:"current_step"`
	Progress       int       `json:"progress"`
	FrameCount     int       `json:"frame_count,omitempty"`
	FramesRendered int       `json:"frames_rendered,omitempty"`
	Message        string    `json:"message"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProgressBroadcaster manages SSE connections for live progress updates
type ProgressBroadcaster struct {
	clients map[chan ProgressUpdate]bool
	mutex   sync.RWMutex
	sent    uint64
	dropped uint64
}

// NewProgressBroadcaster creates a new progress broadcaster
func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{
		clients: make(map[chan ProgressUpdate]bool),
	}
}

// Subscribe adds a new client to receive progress updates
func (pb *ProgressBroadcaster) Subscribe() chan ProgressUpdate {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	client := make(chan ProgressUpdate, 10)
	pb.clients[client] = true
	log.Printf("Client subscribed to progress updates. Total clients: %d", len(pb.clients))
	return client
}

// Unsubscribe removes a client from receiving updates
func (pb *ProgressBroadcaster) Unsubscribe(client chan ProgressUpdate) {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	if _, ok := pb.clients[client]; ok {
		delete(pb.clients, client)
		close(client)
		log.Printf("Client unsubscribed from progress updates. Total clients: %d", len(pb.clients))
	}
}

// Broadcast sends a progress update to all connected clients.
// Slow clients miss updates rather than blocking the worker.
func (pb *ProgressBroadcaster) Broadcast(update ProgressUpdate) {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	update.Timestamp = time.Now()

	for client := range pb.clients {
		select {
		case client <- update:
			pb.sent++
		default:
			pb.dropped++
			log.Printf("Warning: Client buffer full, skipping update for job_id=%s", update.JobID)
		}
	}
}

// BroadcastFromVideoJob converts a video job to a progress update and broadcasts it
func (pb *ProgressBroadcaster) BroadcastFromVideoJob(job *models.VideoJob, message string) {
	pb.Broadcast(ProgressUpdate{
		JobID:          job.ID,
		Name:           job.Name,
		Status:         job.Status,
		CurrentStep:    job.CurrentStep,
		Progress:       job.Progress,
		FrameCount:     job.FrameCount,
		FramesRendered: job.FramesRendered,
		Message:        message,
		ErrorMessage:   job.ErrorMessage,
	})
}

// ClientCount returns the number of connected clients
func (pb *ProgressBroadcaster) ClientCount() int {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()
	return len(pb.clients)
}

// Stats returns how many updates were delivered and dropped
func (pb *ProgressBroadcaster) Stats() (sent, dropped uint64) {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()
	return pb.sent, pb.dropped
}

// FormatSSE formats a progress update as Server-Sent Event
func FormatSSE(update ProgressUpdate) string {
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("Error marshaling SSE data: %v", err)
		return ""
	}
	return "data: " + string(data) + "\n\n"
}
