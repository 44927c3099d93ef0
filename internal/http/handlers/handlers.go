package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/services"
	"github.com/tbourn/go-ratings-pipeline/internal/utils"
)

//
// Service contracts (context-aware)
//

// RatingService defines the read operations over stored ratings, failures
// and the pending queue.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RatingService interface {
	// ListPage returns a page of ratings and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Rating, int64, error)
	// Get returns the rating for one external id.
	Get(ctx context.Context, externalID string) (*domain.Rating, error)
	// Stats returns the rating count and latest update time.
	Stats(ctx context.Context) (int64, *time.Time, error)
	// FailureStats returns the failure count and latest observation time.
	FailureStats(ctx context.Context) (int64, *time.Time, error)
	// FailuresPage returns a page of failure records and the total count.
	FailuresPage(ctx context.Context, page, pageSize int) ([]domain.Failure, int64, error)
	// PendingPage returns a page of games still lacking a rating.
	PendingPage(ctx context.Context, page, pageSize int) ([]domain.Game, int64, error)
}

// RunService starts pipeline runs and reads their records.
type RunService interface {
	Start(ctx context.Context, req services.RunRequest) (*domain.Run, bool, error)
	Get(ctx context.Context, id string) (*domain.Run, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Run, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for ratings and runs.
type Handlers struct {
	ratings RatingService
	runs    RunService
}

// New constructs a Handlers bound to the given services.
func New(ratings RatingService, runs RunService) *Handlers {
	return &Handlers{ratings: ratings, runs: runs}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRatingsResponse wraps a page of ratings.
type ListRatingsResponse struct {
	Ratings    []domain.Rating `json:"ratings"`
	Pagination Pagination      `json:"pagination"`
}

// ListFailuresResponse wraps a page of failure records.
type ListFailuresResponse struct {
	Failures   []domain.Failure `json:"failures"`
	Pagination Pagination       `json:"pagination"`
}

// ListPendingResponse wraps a page of games awaiting a rating.
type ListPendingResponse struct {
	Games      []domain.Game `json:"games"`
	Pagination Pagination    `json:"pagination"`
}

// ListRunsResponse wraps a page of pipeline runs.
type ListRunsResponse struct {
	Runs       []domain.Run `json:"runs"`
	Pagination Pagination   `json:"pagination"`
}

// StartRunRequest is the optional JSON payload for starting a run.
type StartRunRequest struct {
	// PoolSize is the number of concurrent browser sessions; 0 uses the
	// server default.
	PoolSize int `json:"pool_size" example:"4"`
	// Limit caps how many pending games are processed; 0 means all.
	Limit int `json:"limit" example:"50"`
}

//
// Helpers
//

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return page, pageSize
}

func paginate(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}
