package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/pipeline"
	"github.com/tbourn/go-ratings-pipeline/internal/scrape"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(domain.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedGames(t *testing.T, db *gorm.DB, names ...string) []domain.Game {
	t.Helper()
	out := make([]domain.Game, 0, len(names))
	for i, n := range names {
		g := domain.Game{ID: uint(i + 1), Name: n, ExternalID: fmt.Sprintf("EP-%d", i+1)}
		if err := db.Create(&g).Error; err != nil {
			t.Fatalf("seed %q: %v", n, err)
		}
		out = append(out, g)
	}
	return out
}

// fakeSession returns a rating for every title except those listed in fail.
// Titles in block wait until the job context is done.
type fakeSession struct {
	id    int
	fail  map[string]bool
	block map[string]bool
	gate  chan struct{}
	// entered receives the title of a blocked job once it is waiting.
	entered chan string
}

func (s *fakeSession) ID() int      { return s.id }
func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) RunJob(ctx context.Context, title string) scrape.Outcome {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return scrape.Outcome{Title: title, Err: ctx.Err()}
		}
	}
	if s.block[title] {
		if s.entered != nil {
			s.entered <- title
		}
		<-ctx.Done()
		return scrape.Outcome{Title: title, Err: ctx.Err()}
	}
	if s.fail[title] {
		return scrape.Outcome{Title: title, Err: &scrape.ScrapeError{Title: title, Stage: scrape.AwaitingResults, Err: scrape.ErrSelectorTimeout}}
	}
	score, tier := 88, "mighty"
	return scrape.Outcome{
		Title:  title,
		Query:  title,
		Rating: &extract.Rating{TopCriticAverage: &score, Tier: &tier, URL: "https://opencritic.com/game/1/x"},
	}
}

type fakeLauncher struct {
	mu        sync.Mutex
	fail      map[string]bool
	block     map[string]bool
	gate      chan struct{}
	entered   chan string
	launchErr error
	launched  int
}

func (l *fakeLauncher) launcher() pipeline.Launcher {
	return pipeline.LauncherFunc(func(ctx context.Context, id int) (pipeline.Session, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.launchErr != nil {
			return nil, l.launchErr
		}
		l.launched++
		return &fakeSession{id: id, fail: l.fail, block: l.block, gate: l.gate, entered: l.entered}, nil
	})
}

var errBrowser = errors.New("chrome not found")

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func getFailure(ctx context.Context, db *gorm.DB, externalID string) (*domain.Failure, error) {
	var f domain.Failure
	if err := db.WithContext(ctx).Where("external_id = ?", externalID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}
