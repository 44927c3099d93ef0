package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// RatingRepo defines the read-side repository contract required by
// RatingService.
type RatingRepo interface {
	GetRating(ctx context.Context, db *gorm.DB, externalID string) (*domain.Rating, error)
	CountRatings(ctx context.Context, db *gorm.DB) (int64, error)
	ListRatingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Rating, error)
	RatingsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)

	CountFailures(ctx context.Context, db *gorm.DB) (int64, error)
	ListFailures(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Failure, error)
	FailuresStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)

	CountPendingGames(ctx context.Context, db *gorm.DB) (int64, error)
	PendingGamesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Game, error)
}

// RatingService exposes stored ratings, failures and the pending queue.
type RatingService struct {
	DB   *gorm.DB
	Repo RatingRepo

	// MaxPageSize caps page sizes requested by clients.
	MaxPageSize int
}

// NewRatingService constructs a RatingService with default paging limits.
func NewRatingService(db *gorm.DB, r RatingRepo) *RatingService {
	return &RatingService{DB: db, Repo: r, MaxPageSize: 100}
}

// paging turns a 1-based page and a page size into offset and limit.
func (s *RatingService) paging(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if s.MaxPageSize > 0 && pageSize > s.MaxPageSize {
		pageSize = s.MaxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

// ListPage returns a page of ratings, most recently updated first, and the
// total count.
func (s *RatingService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Rating, int64, error) {
	offset, limit := s.paging(page, pageSize)
	total, err := s.Repo.CountRatings(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Rating{}, 0, nil
	}
	items, err := s.Repo.ListRatingsPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Get returns the rating stored for externalID.
func (s *RatingService) Get(ctx context.Context, externalID string) (*domain.Rating, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrRatingNotFound
	}
	r, err := s.Repo.GetRating(ctx, s.DB, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRatingNotFound
	}
	return r, err
}

// Stats returns the rating count and the latest update time, used to build
// list ETags.
func (s *RatingService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.RatingsStats(ctx, s.DB)
}

// FailureStats returns the failure count and the latest observation time,
// used to build list ETags.
func (s *RatingService) FailureStats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.FailuresStats(ctx, s.DB)
}

// FailuresPage returns a page of failure records, most recent first.
func (s *RatingService) FailuresPage(ctx context.Context, page, pageSize int) ([]domain.Failure, int64, error) {
	offset, limit := s.paging(page, pageSize)
	total, err := s.Repo.CountFailures(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Failure{}, 0, nil
	}
	items, err := s.Repo.ListFailures(ctx, s.DB, offset, limit)
	return items, total, err
}

// PendingPage returns a page of games that still lack a rating, newest
// catalogue entry first.
func (s *RatingService) PendingPage(ctx context.Context, page, pageSize int) ([]domain.Game, int64, error) {
	offset, limit := s.paging(page, pageSize)
	total, err := s.Repo.CountPendingGames(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Game{}, 0, nil
	}
	items, err := s.Repo.PendingGamesPage(ctx, s.DB, offset, limit)
	return items, total, err
}
