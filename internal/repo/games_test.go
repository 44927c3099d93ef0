package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
)

func TestPendingGames_ExcludesRatedIncludesFailedAndNew(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedGames(t, db,
		domain.Game{ID: 1, Name: "Rated", ExternalID: "E1"},
		domain.Game{ID: 2, Name: "Failed only", ExternalID: "E2"},
		domain.Game{ID: 3, Name: "Never tried", ExternalID: "E3"},
	)
	if err := UpsertRating(ctx, db, &domain.Rating{ExternalID: "E1", TopCriticAverage: intp(90)}); err != nil {
		t.Fatalf("UpsertRating: %v", err)
	}
	if err := UpsertFailure(ctx, db, "E2", "selector timeout", time.Now()); err != nil {
		t.Fatalf("UpsertFailure: %v", err)
	}

	got, err := PendingGames(ctx, db, 0)
	if err != nil {
		t.Fatalf("PendingGames: %v", err)
	}
	if len(got) != 2 || got[0].ExternalID != "E3" || got[1].ExternalID != "E2" {
		t.Fatalf("unexpected pending set (want E3,E2 by id desc): %+v", got)
	}
	if got[0].Name != "Never tried" {
		t.Fatalf("columns not loaded: %+v", got[0])
	}

	n, err := CountPendingGames(ctx, db)
	if err != nil || n != 2 {
		t.Fatalf("CountPendingGames = %d, %v", n, err)
	}
}

func TestPendingGames_LimitAndOffset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		seedGames(t, db, domain.Game{ID: uint(i), Name: "g", ExternalID: string(rune('A' + i))})
	}

	got, err := PendingGames(ctx, db, 2)
	if err != nil || len(got) != 2 || got[0].ID != 5 || got[1].ID != 4 {
		t.Fatalf("PendingGames limit 2 = %+v, %v", got, err)
	}
	page, err := PendingGamesPage(ctx, db, 3, 10)
	if err != nil || len(page) != 2 || page[0].ID != 2 {
		t.Fatalf("PendingGamesPage(3,10) = %+v, %v", page, err)
	}
}

func TestPendingGames_NoTable(t *testing.T) {
	if _, err := PendingGames(context.Background(), newBareDB(t), 0); err == nil {
		t.Fatalf("expected error when tables are missing")
	}
}
