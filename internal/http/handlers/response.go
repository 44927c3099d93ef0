// Package handlers provides the HTTP handlers of the ratings API.
//
// This file holds the response helpers every endpoint shares: the error
// envelope, success writers and the conditional-GET support used by the
// ratings and failures lists.
//
// Conventions:
//   - Errors always carry an ErrorResponse with a stable `code` from errors.go,
//     so clients can branch on "run_in_progress" or "not_found" without
//     parsing messages.
//   - `fail()` logs 5xx responses with the request-scoped logger; 4xx are the
//     client's problem and stay out of the error log.
//   - List endpoints that can be cached emit a weak ETag through
//     `notModifiedSince()` and answer 304 when it still matches.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "run_in_progress",
//	  "message": "a run is already in progress"
//	}
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "external_id": "EP9000-CUSA00000_00", "top_critic_average": 92, "tier": "Mighty" }
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ratings-pipeline/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every ratings and runs
// endpoint. The Swagger annotations reference it for all non-2xx responses.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client error to server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable code from errors.go
	Code string `json:"code" example:"not_found"`
	// Human-readable message
	Message string `json:"message" example:"rating not found"`
}

// fail aborts the request with an ErrorResponse. Responses with status >= 500
// are logged through the request-scoped logger with their code and message.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Str("route", c.FullPath()).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is fail for the router's NoRoute and NoMethod handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func notModified(c *gin.Context) {
	c.Status(http.StatusNotModified)
}

// notModifiedSince sets a weak ETag for one page of a list, built from the
// list's row count, its latest timestamp and the requested page. It answers
// 304 and returns true when If-None-Match already names that version.
func notModifiedSince(c *gin.Context, list string, count int64, maxTS *time.Time, page, pageSize int) bool {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d:%d:%d"`, list, count, ts, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		notModified(c)
		return true
	}
	return false
}
