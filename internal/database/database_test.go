package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplySchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := ApplySchema(db); err != nil {
		t.Fatalf("second ApplySchema: %v", err)
	}
}

func TestFrameJobRepository(t *testing.T) {
	repo := NewFrameJobRepository(openTestDB(t))

	job := &models.FrameJob{
		ID: "f1", Text: "hello world", FontPath: "builtin:go-regular", BackgroundPath: "/bg.png",
		Opacity: 0.5, Status: models.StatusProcessing, CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	done := time.Now().UTC()
	job.Status = models.StatusCompleted
	job.OutputKey = "single/f1.png"
	job.Width, job.Height, job.LineCount = 1920, 1080, 2
	job.CompletedAt = &done
	if err := repo.Update(job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID("f1")
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Status != models.StatusCompleted || got.Width != 1920 || got.LineCount != 2 || got.Opacity != 0.5 {
		t.Errorf("unexpected job %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not stored")
	}

	missing, err := repo.GetByID("nope")
	if err != nil || missing != nil {
		t.Errorf("missing job = %v, %v", missing, err)
	}

	all, err := repo.GetAll(0)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAll = %v, %v", all, err)
	}

	if err := repo.Delete("f1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.GetByID("f1"); got != nil {
		t.Error("job still present after delete")
	}
}

func newVideoJob(id string, priority int, queued time.Time) *models.VideoJob {
	return &models.VideoJob{
		ID: id, Name: "song_" + id, Format: "mp4", Framerate: 30, Width: 1920, Height: 1080,
		Lyrics: "line one\nline two", FontPath: "builtin:go-regular", BackgroundPath: "/bg.png",
		Opacity: 1, Priority: priority, Status: models.StatusQueued, QueuedAt: queued,
	}
}

func TestVideoJobRepositoryQueueOrder(t *testing.T) {
	repo := NewVideoJobRepository(openTestDB(t))
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, j := range []*models.VideoJob{
		newVideoJob("old-low", 0, base),
		newVideoJob("new-high", 5, base.Add(2*time.Minute)),
		newVideoJob("old-high", 5, base.Add(time.Minute)),
	} {
		if err := repo.Create(j); err != nil {
			t.Fatalf("Create %s: %v", j.ID, err)
		}
	}

	next, err := repo.GetNextPending()
	if err != nil || next == nil {
		t.Fatalf("GetNextPending: %v %v", next, err)
	}
	if next.ID != "old-high" {
		t.Errorf("next = %s, want old-high", next.ID)
	}
	if !next.QueuedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("queued_at = %v", next.QueuedAt)
	}

	started := time.Now().UTC()
	next.Status = models.StatusProcessing
	next.StartedAt = &started
	if err := repo.Update(next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.UpdateProgress(next.ID, "Rendering frames", 40, 3); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	got, _ := repo.GetByID(next.ID)
	if got.CurrentStep != "Rendering frames" || got.Progress != 40 || got.FramesRendered != 3 || got.StartedAt == nil {
		t.Errorf("unexpected job %+v", got)
	}

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.StatusQueued] != 2 || counts[models.StatusProcessing] != 1 {
		t.Errorf("counts = %v", counts)
	}

	processing, err := repo.GetAll(models.StatusProcessing)
	if err != nil || len(processing) != 1 {
		t.Fatalf("GetAll(processing) = %v, %v", processing, err)
	}

	n, err := repo.RequeueStale()
	if err != nil || n != 1 {
		t.Fatalf("RequeueStale = %d, %v", n, err)
	}
	got, _ = repo.GetByID(next.ID)
	if got.Status != models.StatusQueued || got.StartedAt != nil || got.Progress != 0 {
		t.Errorf("requeued job %+v", got)
	}
}

func TestVideoJobRepositoryEmptyQueue(t *testing.T) {
	repo := NewVideoJobRepository(openTestDB(t))
	next, err := repo.GetNextPending()
	if err != nil || next != nil {
		t.Errorf("GetNextPending on empty queue = %v, %v", next, err)
	}
	all, err := repo.GetAll("")
	if err != nil || len(all) != 0 {
		t.Errorf("GetAll = %v, %v", all, err)
	}
}
