package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// ratingColumns are overwritten when a rating for the same external id
// already exists.
var ratingColumns = []string{
	"top_critic_average",
	"critics_recommend_percent",
	"player_rating",
	"tier",
	"source_url",
	"updated_at",
}

// UpsertRating inserts rec or replaces the stored rating with the same
// ExternalID (last write wins). UpdatedAt is always set to now. Any failure
// record for the game is removed in the same transaction.
func UpsertRating(ctx context.Context, db *gorm.DB, rec *domain.Rating) error {
	now := time.Now().UTC()
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(ratingColumns),
		}).Create(rec).Error
		if err != nil {
			return err
		}
		return tx.Where("external_id = ?", rec.ExternalID).Delete(&domain.Failure{}).Error
	})
}

// GetRating fetches the rating for externalID, or ErrNotFound.
func GetRating(ctx context.Context, db *gorm.DB, externalID string) (*domain.Rating, error) {
	var r domain.Rating
	err := db.WithContext(ctx).Where("external_id = ?", externalID).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRatings returns the number of stored ratings.
func CountRatings(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Rating{}).Count(&total).Error
	return total, err
}

// ListRatingsPage returns a page of ratings, most recently updated first.
func ListRatingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Rating, error) {
	var out []domain.Rating
	err := db.WithContext(ctx).
		Order("updated_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
