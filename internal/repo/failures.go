package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// UpsertFailure records a failed acquisition for externalID. A failure
// observed at a new time replaces the message and observation time and
// increments Attempts; replaying the same observation leaves the row as is.
func UpsertFailure(ctx context.Context, db *gorm.DB, externalID, message string, at time.Time) error {
	at = at.UTC()
	rec := &domain.Failure{
		ExternalID:   externalID,
		ErrorMessage: message,
		Attempts:     1,
		ObservedAt:   at,
		CreatedAt:    at,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"error_message": message,
			"observed_at":   at,
			"attempts": gorm.Expr("CASE WHEN game_rating_failures.observed_at = excluded.observed_at " +
				"THEN game_rating_failures.attempts ELSE game_rating_failures.attempts + 1 END"),
		}),
	}).Create(rec).Error
}

// CountFailures returns the number of games whose last attempt failed.
func CountFailures(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Failure{}).Count(&total).Error
	return total, err
}

// ListFailures returns a page of failures, most recently observed first.
func ListFailures(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Failure, error) {
	var out []domain.Failure
	err := db.WithContext(ctx).
		Order("observed_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
