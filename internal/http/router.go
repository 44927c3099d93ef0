// Package httpapi wires the HTTP transport (Gin) to the rating and run
// services, middleware, and route handlers. It centralizes cross-cutting
// concerns such as tracing, correlation IDs, logging, panic recovery,
// compression, metrics, CORS, security headers, idempotency, and rate
// limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-ratings-pipeline/docs" // registers the OpenAPI document
	"github.com/tbourn/go-ratings-pipeline/internal/config"
	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/http/handlers"
	"github.com/tbourn/go-ratings-pipeline/internal/http/middleware"
	"github.com/tbourn/go-ratings-pipeline/internal/repo"
	"github.com/tbourn/go-ratings-pipeline/internal/services"
)

// ratingRepoShim adapts the repository free functions to the
// services.RatingRepo interface expected by the RatingService.
type ratingRepoShim struct{}

func (ratingRepoShim) GetRating(ctx context.Context, db *gorm.DB, externalID string) (*domain.Rating, error) {
	return repo.GetRating(ctx, db, externalID)
}

func (ratingRepoShim) CountRatings(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountRatings(ctx, db)
}

func (ratingRepoShim) ListRatingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Rating, error) {
	return repo.ListRatingsPage(ctx, db, offset, limit)
}

func (ratingRepoShim) RatingsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.RatingsStats(ctx, db)
}

func (ratingRepoShim) CountFailures(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountFailures(ctx, db)
}

func (ratingRepoShim) ListFailures(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Failure, error) {
	return repo.ListFailures(ctx, db, offset, limit)
}

func (ratingRepoShim) FailuresStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.FailuresStats(ctx, db)
}

func (ratingRepoShim) CountPendingGames(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountPendingGames(ctx, db)
}

func (ratingRepoShim) PendingGamesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Game, error) {
	return repo.PendingGamesPage(ctx, db, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with header masking
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (skips /metrics)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, runs *services.RunService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LoggerOptions{
		LogHeaders:  []string{middleware.HeaderIdempotencyKey, "User-Agent"},
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())

	// 64 KiB is plenty for run options.
	r.Use(limitBody(64 << 10))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 128},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP(), "/health", "/metrics")
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health; reports the active run, if any.
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if id, ok := runs.Active(); ok {
			body["active_run"] = id
		}
		c.JSON(http.StatusOK, body)
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	ratingSvc := services.NewRatingService(db, ratingRepoShim{})
	h := handlers.New(ratingSvc, runs)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/ratings", h.ListRatings)
		api.GET("/ratings/:external_id", h.GetRating)
		api.GET("/failures", h.ListFailures)
		api.GET("/games/pending", h.ListPendingGames)

		api.POST("/runs", h.StartRun)
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
	}
}

// useCORS installs gin-contrib/cors. With no allowlist every origin is
// accepted; otherwise allowed origins are echoed back.
func useCORS(r *gin.Engine, c config.CORSConfig) {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(c.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = c.AllowedOrigins
	r.Use(cors.New(base))
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
