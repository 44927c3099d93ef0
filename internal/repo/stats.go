package repo

// Small aggregate queries used for conditional responses (ETag generation)
// in the HTTP layer.

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// RatingsStats returns the number of stored ratings and the greatest
// UpdatedAt among them. With no rows, maxUpdatedAt is nil.
func RatingsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.Rating{}), "updated_at")
}

// FailuresStats returns the number of failure records and the greatest
// ObservedAt among them. With no rows, maxObservedAt is nil.
func FailuresStats(ctx context.Context, db *gorm.DB) (count int64, maxObservedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.Failure{}), "observed_at")
}

func latest(q *gorm.DB, column string) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Ordering instead of MAX() keeps the column type on SQLite (MAX yields TEXT).
	var at []time.Time
	if err := q.Session(&gorm.Session{}).Order(column+" DESC").Limit(1).Pluck(column, &at).Error; err != nil {
		return 0, nil, err
	}
	if len(at) == 0 {
		return count, nil, nil
	}
	return count, &at[0], nil
}
