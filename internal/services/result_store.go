package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-ratings-pipeline/internal/domain"
	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/repo"
)

// ResultStore persists job outcomes into the ratings tables. It satisfies
// pipeline.Store.
type ResultStore struct {
	DB *gorm.DB

	// Now returns the failure observation time; defaults to time.Now.
	Now func() time.Time
}

// NewResultStore returns a ResultStore backed by db.
func NewResultStore(db *gorm.DB) *ResultStore {
	return &ResultStore{DB: db, Now: time.Now}
}

// SaveRating upserts the rating for game and clears any failure record.
func (s *ResultStore) SaveRating(ctx context.Context, game domain.Game, r extract.Rating) error {
	if err := repo.UpsertRating(ctx, s.DB, ratingRecord(game, r)); err != nil {
		return fmt.Errorf("save rating for %s: %w", game.ExternalID, err)
	}
	return nil
}

// SaveFailure upserts the failure record for game.
func (s *ResultStore) SaveFailure(ctx context.Context, game domain.Game, message string) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if err := repo.UpsertFailure(ctx, s.DB, game.ExternalID, message, now()); err != nil {
		return fmt.Errorf("save failure for %s: %w", game.ExternalID, err)
	}
	return nil
}

func ratingRecord(game domain.Game, r extract.Rating) *domain.Rating {
	rec := &domain.Rating{
		ExternalID:       game.ExternalID,
		TopCriticAverage: r.TopCriticAverage,
		CriticsRecommend: r.CriticsRecommend,
		PlayerRating:     r.PlayerRating,
		SourceURL:        r.URL,
	}
	if r.Tier != nil {
		rec.Tier = domain.ParseTier(*r.Tier)
		if rec.Tier != nil && !rec.Tier.Known() {
			log.Warn().Str("external_id", game.ExternalID).Str("tier", string(*rec.Tier)).Msg("unknown tier label stored as-is")
		}
	}
	return rec
}
