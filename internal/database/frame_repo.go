package database

import (
	"database/sql"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
)

const frameJobColumns = `id, text, font_path, background_path, opacity, status,
	output_key, output_path, width, height, line_count,
	error_kind, error_message, created_at, completed_at`

// FrameJobRepository handles frame job database operations
type FrameJobRepository struct {
	db *sql.DB
}

// NewFrameJobRepository creates a new frame job repository
func NewFrameJobRepository(db *sql.DB) *FrameJobRepository {
	return &FrameJobRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFrameJob(s scanner) (*models.FrameJob, error) {
	var j models.FrameJob
	err := s.Scan(
		&j.ID, &j.Text, &j.FontPath, &j.BackgroundPath, &j.Opacity, &j.Status,
		&j.OutputKey, &j.OutputPath, &j.Width, &j.Height, &j.LineCount,
		&j.ErrorKind, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Create inserts a frame job
func (r *FrameJobRepository) Create(j *models.FrameJob) error {
	query := `INSERT INTO frame_jobs (` + frameJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		j.ID, j.Text, j.FontPath, j.BackgroundPath, j.Opacity, j.Status,
		j.OutputKey, j.OutputPath, j.Width, j.Height, j.LineCount,
		j.ErrorKind, j.ErrorMessage, j.CreatedAt, j.CompletedAt,
	)
	return err
}

// Update stores the result fields of a frame job
func (r *FrameJobRepository) Update(j *models.FrameJob) error {
	query := `UPDATE frame_jobs SET status=?, output_key=?, output_path=?,
		width=?, height=?, line_count=?, error_kind=?, error_message=?, completed_at=?
		WHERE id=?`

	_, err := r.db.Exec(query,
		j.Status, j.OutputKey, j.OutputPath,
		j.Width, j.Height, j.LineCount, j.ErrorKind, j.ErrorMessage, j.CompletedAt,
		j.ID,
	)
	return err
}

// GetByID returns a frame job, or nil if there is none
func (r *FrameJobRepository) GetByID(id string) (*models.FrameJob, error) {
	row := r.db.QueryRow(`SELECT `+frameJobColumns+` FROM frame_jobs WHERE id = ?`, id)
	j, err := scanFrameJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// GetAll returns the most recent frame jobs first
func (r *FrameJobRepository) GetAll(limit int) ([]models.FrameJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT `+frameJobColumns+` FROM frame_jobs
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []models.FrameJob{}
	for rows.Next() {
		j, err := scanFrameJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// Delete removes a frame job
func (r *FrameJobRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM frame_jobs WHERE id=?", id)
	return err
}
