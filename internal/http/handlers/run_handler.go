// Run HTTP handlers.
//
//   - POST /runs        (start a run in the background; Idempotency-Key aware)
//   - GET  /runs        (list, paginated)
//   - GET  /runs/{id}   (single run with live counters)
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-ratings-pipeline/internal/http/middleware"
	"github.com/tbourn/go-ratings-pipeline/internal/services"
)

// StartRun godoc
// @ID          startRun
// @Summary     Start a pipeline run
// @Description Starts acquiring ratings for pending games in the background. Returns 202 with the running run. Retrying with the same Idempotency-Key returns the original run with 200.
// @Tags        Runs
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Makes retries return the original run"  example(3f1b7c4e-run-1)
// @Param       body             body    handlers.StartRunRequest  false  "Run options"
//
// @Success     202  {object} domain.Run
// @Success     200  {object} domain.Run "Replayed run"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "A run is already in progress"
// @Failure     503  {object} handlers.ErrorResponse "Shutting down"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /runs [post]
func (h *Handlers) StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	run, replayed, err := h.runs.Start(c.Request.Context(), services.RunRequest{
		PoolSize:       req.PoolSize,
		Limit:          req.Limit,
		IdempotencyKey: key,
	})
	switch {
	case errors.Is(err, services.ErrInvalidPoolSize), errors.Is(err, services.ErrInvalidLimit):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrRunInProgress):
		fail(c, http.StatusConflict, ErrCodeRunInProgress, err.Error())
		return
	case errors.Is(err, services.ErrShuttingDown):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeRunFailed, err.Error())
		return
	}

	// FullPath carries the mounted API prefix, e.g. /api/v1/runs.
	c.Header("Location", strings.TrimSuffix(c.FullPath(), "/")+"/"+run.ID)
	if replayed {
		ok(c, http.StatusOK, run)
		return
	}
	ok(c, http.StatusAccepted, run)
}

// ListRuns godoc
// @ID          listRuns
// @Summary     List pipeline runs (paginated)
// @Description Returns recorded runs, newest first.
// @Tags        Runs
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRunsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /runs [get]
func (h *Handlers) ListRuns(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.runs.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRunsResponse{
		Runs:       items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetRun godoc
// @ID          getRun
// @Summary     Get a pipeline run
// @Description Returns one run. While running, its counters reflect the batches settled so far.
// @Tags        Runs
// @Produce     json
//
// @Param       id  path  string  true  "Run ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Run
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Run not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /runs/{id} [get]
func (h *Handlers) GetRun(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "run id must be a UUID")
		return
	}
	run, err := h.runs.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrRunNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "run not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, run)
}
