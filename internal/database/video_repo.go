package database

import (
	"database/sql"
	"time"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
)

const videoJobColumns = `id, name, format, framerate, width, height,
	lyrics, font_path, background_path, audio_path, opacity, priority,
	status, current_step, progress, frame_count, frames_rendered,
	error_message, retry_count, output_path, output_size, log_path,
	queued_at, started_at, completed_at`

// VideoJobRepository handles video job database operations
type VideoJobRepository struct {
	db *sql.DB
}

// NewVideoJobRepository creates a new video job repository
func NewVideoJobRepository(db *sql.DB) *VideoJobRepository {
	return &VideoJobRepository{db: db}
}

func scanVideoJob(s scanner) (*models.VideoJob, error) {
	var j models.VideoJob
	err := s.Scan(
		&j.ID, &j.Name, &j.Format, &j.Framerate, &j.Width, &j.Height,
		&j.Lyrics, &j.FontPath, &j.BackgroundPath, &j.AudioPath, &j.Opacity, &j.Priority,
		&j.Status, &j.CurrentStep, &j.Progress, &j.FrameCount, &j.FramesRendered,
		&j.ErrorMessage, &j.RetryCount, &j.OutputPath, &j.OutputSize, &j.LogPath,
		&j.QueuedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Create queues a video job
func (r *VideoJobRepository) Create(j *models.VideoJob) error {
	if j.QueuedAt.IsZero() {
		j.QueuedAt = time.Now().UTC()
	}
	query := `INSERT INTO video_jobs (` + videoJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		j.ID, j.Name, j.Format, j.Framerate, j.Width, j.Height,
		j.Lyrics, j.FontPath, j.BackgroundPath, j.AudioPath, j.Opacity, j.Priority,
		j.Status, j.CurrentStep, j.Progress, j.FrameCount, j.FramesRendered,
		j.ErrorMessage, j.RetryCount, j.OutputPath, j.OutputSize, j.LogPath,
		j.QueuedAt, j.StartedAt, j.CompletedAt,
	)
	return err
}

// Update stores the processing state of a video job
func (r *VideoJobRepository) Update(j *models.VideoJob) error {
	query := `UPDATE video_jobs SET status=?, priority=?,
		current_step=?, progress=?, frame_count=?, frames_rendered=?,
		error_message=?, retry_count=?, output_path=?, output_size=?, log_path=?,
		started_at=?, completed_at=?
		WHERE id=?`

	_, err := r.db.Exec(query,
		j.Status, j.Priority,
		j.CurrentStep, j.Progress, j.FrameCount, j.FramesRendered,
		j.ErrorMessage, j.RetryCount, j.OutputPath, j.OutputSize, j.LogPath,
		j.StartedAt, j.CompletedAt,
		j.ID,
	)
	return err
}

// GetByID returns a video job, or nil if there is none
func (r *VideoJobRepository) GetByID(id string) (*models.VideoJob, error) {
	row := r.db.QueryRow(`SELECT `+videoJobColumns+` FROM video_jobs WHERE id = ?`, id)
	j, err := scanVideoJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// GetAll returns video jobs, optionally filtered by status
func (r *VideoJobRepository) GetAll(status string) ([]models.VideoJob, error) {
	query := `SELECT ` + videoJobColumns + ` FROM video_jobs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY queued_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []models.VideoJob{}
	for rows.Next() {
		j, err := scanVideoJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// GetNextPending returns the highest priority, oldest queued job
func (r *VideoJobRepository) GetNextPending() (*models.VideoJob, error) {
	row := r.db.QueryRow(`SELECT `+videoJobColumns+` FROM video_jobs
		WHERE status = ?
		ORDER BY priority DESC, queued_at ASC
		LIMIT 1`, models.StatusQueued)
	j, err := scanVideoJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateProgress records the current step without touching other fields
func (r *VideoJobRepository) UpdateProgress(id, step string, progress, framesRendered int) error {
	_, err := r.db.Exec(`UPDATE video_jobs SET current_step=?, progress=?, frames_rendered=? WHERE id=?`,
		step, progress, framesRendered, id)
	return err
}

// RequeueStale puts jobs left processing by a previous run back in the queue
func (r *VideoJobRepository) RequeueStale() (int64, error) {
	res, err := r.db.Exec(`UPDATE video_jobs SET status=?, current_step='', progress=0, frames_rendered=0, started_at=NULL
		WHERE status=?`, models.StatusQueued, models.StatusProcessing)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus returns the number of jobs in each status
func (r *VideoJobRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM video_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Delete removes a video job
func (r *VideoJobRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM video_jobs WHERE id=?", id)
	return err
}
