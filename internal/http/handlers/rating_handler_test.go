package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/repo"
	"github.com/tbourn/go-ratings-pipeline/internal/services"
)

// ---------- test DB + repo shim ----------

func newRatingsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:rating_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(domain.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testRatingRepo implements services.RatingRepo with the repo package, like
// the router shim.
type testRatingRepo struct{}

func (testRatingRepo) GetRating(ctx context.Context, db *gorm.DB, id string) (*domain.Rating, error) {
	return repo.GetRating(ctx, db, id)
}
func (testRatingRepo) CountRatings(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountRatings(ctx, db)
}
func (testRatingRepo) ListRatingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Rating, error) {
	return repo.ListRatingsPage(ctx, db, offset, limit)
}
func (testRatingRepo) RatingsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.RatingsStats(ctx, db)
}
func (testRatingRepo) CountFailures(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountFailures(ctx, db)
}
func (testRatingRepo) ListFailures(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Failure, error) {
	return repo.ListFailures(ctx, db, offset, limit)
}
func (testRatingRepo) FailuresStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.FailuresStats(ctx, db)
}
func (testRatingRepo) CountPendingGames(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountPendingGames(ctx, db)
}
func (testRatingRepo) PendingGamesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Game, error) {
	return repo.PendingGamesPage(ctx, db, offset, limit)
}

func intp(n int) *int { return &n }

// ---------- ListRatings ----------

func TestListRatings_ETag304_and_Page(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newRatingsDB(t)
	svc := services.NewRatingService(db, testRatingRepo{})
	h := New(svc, stubRunSvc{})

	ctx := context.Background()
	for i, id := range []string{"EP-1", "EP-2", "EP-3"} {
		if err := repo.UpsertRating(ctx, db, &domain.Rating{ExternalID: id, TopCriticAverage: intp(80 + i)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	r := gin.New()
	r.GET("/ratings", h.ListRatings)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratings?page=1&page_size=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	var out ListRatingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Ratings) != 2 || out.Pagination.Total != 3 || out.Pagination.TotalPages != 2 || !out.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", out)
	}
	if out.Ratings[0].ExternalID != "EP-3" {
		t.Fatalf("want newest first, got %s", out.Ratings[0].ExternalID)
	}

	// Matching If-None-Match -> 304
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ratings?page=1&page_size=2", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("want 304, got %d", w.Code)
	}

	// Different page -> different ETag, 200
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ratings?page=2&page_size=2", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("page 2 -> %d", w.Code)
	}

	// A new rating changes the ETag.
	if err := repo.UpsertRating(ctx, db, &domain.Rating{ExternalID: "EP-4"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ratings?page=1&page_size=2", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("expected fresh 200 with new ETag, got %d %q", w.Code, w.Header().Get("ETag"))
	}
}

func TestListRatings_EmptyAndErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Empty list is [] not null.
	h := New(stubRatingSvc{}, stubRunSvc{})
	r := gin.New()
	r.GET("/ratings", h.ListRatings)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratings", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("empty -> %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if _, ok := body["ratings"].([]any); !ok {
		t.Fatalf("ratings should be an array: %s", w.Body.String())
	}

	// Stats failure skips the ETag; list failure -> 500.
	h = New(stubRatingSvc{
		stats: func(context.Context) (int64, *time.Time, error) { return 0, nil, errors.New("stats down") },
		listPage: func(context.Context, int, int) ([]domain.Rating, int64, error) {
			return nil, 0, errors.New("db down")
		},
	}, stubRunSvc{})
	r = gin.New()
	r.GET("/ratings", h.ListRatings)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratings", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", w.Code)
	}
	if w.Header().Get("ETag") != "" {
		t.Fatalf("no ETag expected when stats fail")
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeListFailed {
		t.Fatalf("code=%q", er.Code)
	}
}

// ---------- GetRating ----------

func TestGetRating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tier := domain.TierMighty
	h := New(stubRatingSvc{
		get: func(_ context.Context, id string) (*domain.Rating, error) {
			switch id {
			case "EP-1":
				return &domain.Rating{ExternalID: "EP-1", TopCriticAverage: intp(91), Tier: &tier}, nil
			case "EP-boom":
				return nil, errors.New("boom")
			}
			return nil, services.ErrRatingNotFound
		},
	}, stubRunSvc{})
	r := gin.New()
	r.GET("/ratings/:external_id", h.GetRating)

	cases := []struct {
		path string
		want int
	}{
		{"/ratings/EP-1", http.StatusOK},
		{"/ratings/EP-none", http.StatusNotFound},
		{"/ratings/EP-boom", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s -> %d, want %d", tc.path, w.Code, tc.want)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratings/EP-1", nil))
	var got domain.Rating
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.TopCriticAverage == nil || *got.TopCriticAverage != 91 || got.Tier == nil || *got.Tier != domain.TierMighty {
		t.Fatalf("unexpected rating: %+v", got)
	}
}

// ---------- failures + pending ----------

func TestListFailures_And_Pending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newRatingsDB(t)
	ctx := context.Background()

	games := []domain.Game{
		{ID: 1, Name: "Old", ExternalID: "EP-1"},
		{ID: 2, Name: "Mid", ExternalID: "EP-2"},
		{ID: 3, Name: "New", ExternalID: "EP-3"},
	}
	if err := db.Create(&games).Error; err != nil {
		t.Fatalf("seed games: %v", err)
	}
	if err := repo.UpsertRating(ctx, db, &domain.Rating{ExternalID: "EP-1"}); err != nil {
		t.Fatalf("seed rating: %v", err)
	}
	if err := repo.UpsertFailure(ctx, db, "EP-2", "no match", time.Now()); err != nil {
		t.Fatalf("seed failure: %v", err)
	}

	h := New(services.NewRatingService(db, testRatingRepo{}), stubRunSvc{})
	r := gin.New()
	r.GET("/failures", h.ListFailures)
	r.GET("/games/pending", h.ListPendingGames)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/failures", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("failures -> %d", w.Code)
	}
	var fl ListFailuresResponse
	if err := json.Unmarshal(w.Body.Bytes(), &fl); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(fl.Failures) != 1 || fl.Failures[0].ExternalID != "EP-2" || fl.Failures[0].ErrorMessage != "no match" {
		t.Fatalf("unexpected failures: %+v", fl)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/games/pending", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("pending -> %d", w.Code)
	}
	var pl ListPendingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &pl); err != nil {
		t.Fatalf("json: %v", err)
	}
	if pl.Pagination.Total != 2 || len(pl.Games) != 2 || pl.Games[0].ExternalID != "EP-3" || pl.Games[1].ExternalID != "EP-2" {
		t.Fatalf("unexpected pending: %+v", pl)
	}
}

func TestListFailures_And_Pending_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	boom := errors.New("boom")
	h := New(stubRatingSvc{
		failuresPage: func(context.Context, int, int) ([]domain.Failure, int64, error) { return nil, 0, boom },
		pendingPage:  func(context.Context, int, int) ([]domain.Game, int64, error) { return nil, 0, boom },
	}, stubRunSvc{})
	r := gin.New()
	r.GET("/failures", h.ListFailures)
	r.GET("/games/pending", h.ListPendingGames)

	for _, path := range []string{"/failures", "/games/pending"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s -> %d", path, w.Code)
		}
	}
}

func TestListFailures_ETag304(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newRatingsDB(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.UpsertFailure(ctx, db, "EP-1", "selector timeout", at); err != nil {
		t.Fatalf("seed failure: %v", err)
	}

	h := New(services.NewRatingService(db, testRatingRepo{}), stubRunSvc{})
	r := gin.New()
	r.GET("/failures", h.ListFailures)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/failures", nil))
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"failures:1:`) {
		t.Fatalf("first GET -> %d etag=%q", w.Code, etag)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/failures", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("matching If-None-Match -> %d body=%q", w.Code, w.Body.String())
	}

	// A new observation changes the ETag.
	if err := repo.UpsertFailure(ctx, db, "EP-1", "no match", at.Add(time.Minute)); err != nil {
		t.Fatalf("second failure: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/failures", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("stale If-None-Match -> %d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestListFailures_StatsErrorSkipsETag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(stubRatingSvc{
		failureStats: func(context.Context) (int64, *time.Time, error) { return 0, nil, errors.New("boom") },
	}, stubRunSvc{})
	r := gin.New()
	r.GET("/failures", h.ListFailures)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/failures", nil))
	if w.Code != http.StatusOK || w.Header().Get("ETag") != "" {
		t.Fatalf("-> %d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}
