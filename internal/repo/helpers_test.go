package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

// newTestDB opens a unique in-memory database per test and migrates the given
// models; with no models it migrates the full schema.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) == 0 {
		migrate = domain.All()
	}
	if err := db.AutoMigrate(migrate...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newBareDB opens an in-memory database without any tables.
func newBareDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_bare?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func seedGames(t *testing.T, db *gorm.DB, games ...domain.Game) {
	t.Helper()
	for i := range games {
		if err := db.Create(&games[i]).Error; err != nil {
			t.Fatalf("seed game %q: %v", games[i].Name, err)
		}
	}
}

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

func getFailure(ctx context.Context, db *gorm.DB, externalID string) (*domain.Failure, error) {
	var f domain.Failure
	if err := db.WithContext(ctx).Where("external_id = ?", externalID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}
