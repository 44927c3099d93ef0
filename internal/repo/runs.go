package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// CreateRun inserts a new run in the running state.
func CreateRun(ctx context.Context, db *gorm.DB, poolSize, limit int) (*domain.Run, error) {
	r := &domain.Run{
		ID:        uuid.NewString(),
		Status:    domain.RunRunning,
		PoolSize:  poolSize,
		GameLimit: limit,
		StartedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRunProgress stores running counters for a run that has not finished.
func UpdateRunProgress(ctx context.Context, db *gorm.DB, id string, processed, succeeded, failed int) error {
	return db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("id = ? AND status = ?", id, domain.RunRunning).
		Updates(map[string]any{
			"processed": processed,
			"succeeded": succeeded,
			"failed":    failed,
		}).Error
}

// FinishRun moves a running run to a terminal status and stores its final
// counters. It returns ErrNotFound if the run does not exist or has already
// finished.
func FinishRun(ctx context.Context, db *gorm.DB, run *domain.Run) error {
	if !run.Status.Terminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", run.ID, run.Status)
	}
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res := db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("id = ? AND status = ?", run.ID, domain.RunRunning).
		Updates(map[string]any{
			"status":        run.Status,
			"processed":     run.Processed,
			"succeeded":     run.Succeeded,
			"failed":        run.Failed,
			"batches":       run.Batches,
			"failed_titles": run.FailedTitles,
			"error":         run.Error,
			"finished_at":   finished,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	run.FinishedAt = &finished
	return nil
}

// GetRun fetches a run by id, or ErrNotFound.
func GetRun(ctx context.Context, db *gorm.DB, id string) (*domain.Run, error) {
	var r domain.Run
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRuns returns the number of recorded runs.
func CountRuns(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Run{}).Count(&total).Error
	return total, err
}

// ListRuns returns a page of runs, newest first.
func ListRuns(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Run, error) {
	var out []domain.Run
	err := db.WithContext(ctx).
		Order("started_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// AbortStaleRuns marks runs left in the running state (e.g. by a crashed
// process) as aborted and returns how many were changed.
func AbortStaleRuns(ctx context.Context, db *gorm.DB, reason string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("status = ?", domain.RunRunning).
		Updates(map[string]any{
			"status":      domain.RunAborted,
			"error":       reason,
			"finished_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
