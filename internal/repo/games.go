// Package repo implements the data persistence layer for domain entities,
// backed by GORM.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition.
//
// Error semantics:
//   - Missing rows are reported as gorm.ErrRecordNotFound (also exported
//     here as ErrNotFound).
//   - Other DB errors (constraint violations, connectivity issues, etc.) are
//     propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// pendingScope selects games that have no rating yet. Games with only a
// failure record are still pending.
func pendingScope(db *gorm.DB) *gorm.DB {
	return db.Model(&domain.Game{}).
		Joins("LEFT JOIN game_ratings ON game_ratings.external_id = purchased_games.entitlement_id").
		Where("game_ratings.id IS NULL")
}

// PendingGames returns up to limit games lacking a rating, newest catalogue
// entry first. limit <= 0 returns all of them.
func PendingGames(ctx context.Context, db *gorm.DB, limit int) ([]domain.Game, error) {
	return PendingGamesPage(ctx, db, 0, limit)
}

// PendingGamesPage is PendingGames with an offset, for paginated listings.
func PendingGamesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Game, error) {
	q := pendingScope(db.WithContext(ctx)).
		Select("purchased_games.*").
		Order("purchased_games.id DESC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Game
	err := q.Find(&out).Error
	return out, err
}

// CountPendingGames returns the number of games lacking a rating.
func CountPendingGames(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := pendingScope(db.WithContext(ctx)).Count(&total).Error
	return total, err
}
