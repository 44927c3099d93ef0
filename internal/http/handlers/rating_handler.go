// Rating HTTP handlers.
//
// This file exposes the read side of the pipeline:
//   - GET /ratings                 (list, paginated, ETag support)
//   - GET /ratings/{external_id}   (single rating)
//   - GET /failures                (games whose last attempt failed, ETag support)
//   - GET /games/pending           (games still lacking a rating)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ratings-pipeline/internal/services"
)

// ListRatings godoc
// @ID          listRatings
// @Summary     List ratings (paginated)
// @Description Returns stored ratings, most recently updated first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Ratings
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"ratings:12:1700000000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRatingsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ratings [get]
func (h *Handlers) ListRatings(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.ratings.Stats(ctx); err == nil && notModifiedSince(c, "ratings", count, maxTS, page, pageSize) {
		return
	}

	items, total, err := h.ratings.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRatingsResponse{
		Ratings:    items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetRating godoc
// @ID          getRating
// @Summary     Get a rating
// @Description Returns the stored rating for one store external id.
// @Tags        Ratings
// @Produce     json
//
// @Param       external_id  path  string  true  "Store external id"  example(EP9000-CUSA00000_00-GAME000000000000)
//
// @Success     200  {object} domain.Rating
// @Failure     404  {object} handlers.ErrorResponse "Rating not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ratings/{external_id} [get]
func (h *Handlers) GetRating(c *gin.Context) {
	r, err := h.ratings.Get(c.Request.Context(), c.Param("external_id"))
	switch {
	case errors.Is(err, services.ErrRatingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "rating not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, r)
}

// ListFailures godoc
// @ID          listFailures
// @Summary     List failed acquisitions (paginated)
// @Description Returns games whose most recent attempt failed, most recent first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Ratings
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"failures:3:1700000000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFailuresResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /failures [get]
func (h *Handlers) ListFailures(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	if count, maxTS, err := h.ratings.FailureStats(ctx); err == nil && notModifiedSince(c, "failures", count, maxTS, page, pageSize) {
		return
	}

	items, total, err := h.ratings.FailuresPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListFailuresResponse{
		Failures:   items,
		Pagination: paginate(page, pageSize, total),
	})
}

// ListPendingGames godoc
// @ID          listPendingGames
// @Summary     List games awaiting a rating (paginated)
// @Description Returns catalogue games without a stored rating, newest first. This is the queue the next run processes.
// @Tags        Games
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPendingResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /games/pending [get]
func (h *Handlers) ListPendingGames(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.ratings.PendingPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPendingResponse{
		Games:      items,
		Pagination: paginate(page, pageSize, total),
	})
}
