// Package domain defines the persistence models for the ratings pipeline:
// catalogue games, acquired ratings, recorded failures and pipeline runs.
// These types are mapped with GORM and shared by the repository, service and
// HTTP layers.
package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Game is a catalogue entry owned by the user. The pipeline only reads it.
//
// Fields:
//   - ID: catalogue primary key; pending games are processed newest first.
//   - Name: title as shown in the store, trademark glyphs and all.
//   - ExternalID: the store entitlement id; stable and unique.
//   - the remaining columns mirror the catalogue import and are optional.
type Game struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	Name       string    `json:"name"        gorm:"type:text;not null"`
	ExternalID string    `json:"external_id" gorm:"column:entitlement_id;type:varchar(128);not null;uniqueIndex"`
	ConceptID  *string   `json:"concept_id,omitempty"  gorm:"type:varchar(64)"`
	ImageURL   *string   `json:"image_url,omitempty"   gorm:"type:text"`
	Platform   *string   `json:"platform,omitempty"    gorm:"type:varchar(32)"`
	ProductID  *string   `json:"product_id,omitempty"  gorm:"type:varchar(128)"`
	TitleID    *string   `json:"title_id,omitempty"    gorm:"type:varchar(64)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Game.
func (Game) TableName() string { return "purchased_games" }

// Tier is the site's qualitative badge for a game.
type Tier string

const (
	TierMighty Tier = "Mighty"
	TierStrong Tier = "Strong"
	TierFair   Tier = "Fair"
	TierWeak   Tier = "Weak"
	TierPoor   Tier = "Poor"
)

var knownTiers = []Tier{TierMighty, TierStrong, TierFair, TierWeak, TierPoor}

// ParseTier maps a badge label to a Tier. Known tiers are matched
// case-insensitively and canonicalized; unknown labels are kept verbatim;
// blank labels yield nil.
func ParseTier(label string) *Tier {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	for _, t := range knownTiers {
		if strings.EqualFold(label, string(t)) {
			t := t
			return &t
		}
	}
	t := Tier(label)
	return &t
}

// Known reports whether t is one of the documented tiers.
func (t Tier) Known() bool {
	for _, k := range knownTiers {
		if t == k {
			return true
		}
	}
	return false
}

// Rating is the latest rating acquired for one game. Upserts on ExternalID
// are last-write-wins and always bump UpdatedAt.
type Rating struct {
	ID               uint      `json:"-"                          gorm:"primaryKey"`
	ExternalID       string    `json:"external_id"                gorm:"type:varchar(128);not null;uniqueIndex"`
	TopCriticAverage *int      `json:"top_critic_average"`
	CriticsRecommend *int      `json:"critics_recommend_percent"  gorm:"column:critics_recommend_percent"`
	PlayerRating     *string   `json:"player_rating"              gorm:"type:varchar(32)"`
	Tier             *Tier     `json:"tier"                       gorm:"type:varchar(32)"`
	SourceURL        string    `json:"source_url"                 gorm:"type:text;not null;default:''"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"                 gorm:"index"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "game_ratings" }

// Failure records the most recent failed acquisition for a game. Attempts
// counts consecutive failures; the row is removed when a rating lands.
type Failure struct {
	ID           uint      `json:"-"             gorm:"primaryKey"`
	ExternalID   string    `json:"external_id"   gorm:"type:varchar(128);not null;uniqueIndex"`
	ErrorMessage string    `json:"error_message" gorm:"type:text;not null"`
	Attempts     int       `json:"attempts"      gorm:"not null;default:1"`
	ObservedAt   time.Time `json:"observed_at"   gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Failure.
func (Failure) TableName() string { return "game_rating_failures" }

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool { return s != RunRunning }

// Run is one execution of the acquisition pipeline and its summary.
type Run struct {
	ID           string                      `json:"id"            gorm:"type:char(36);primaryKey"`
	Status       RunStatus                   `json:"status"        gorm:"type:varchar(16);not null;index;check:status IN ('running','completed','failed','aborted')"`
	PoolSize     int                         `json:"pool_size"     gorm:"not null"`
	GameLimit    int                         `json:"limit"         gorm:"not null;default:0"`
	Processed    int                         `json:"processed"     gorm:"not null;default:0"`
	Succeeded    int                         `json:"succeeded"     gorm:"not null;default:0"`
	Failed       int                         `json:"failed"        gorm:"not null;default:0"`
	Batches      int                         `json:"batches"       gorm:"not null;default:0"`
	FailedTitles datatypes.JSONSlice[string] `json:"failed_titles"`
	Error        string                      `json:"error,omitempty" gorm:"type:text"`
	StartedAt    time.Time                   `json:"started_at"    gorm:"not null;index"`
	FinishedAt   *time.Time                  `json:"finished_at,omitempty"`
}

// TableName returns the database table name for Run.
func (Run) TableName() string { return "scrape_runs" }

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&Game{}, &Rating{}, &Failure{}, &Run{}, &Idempotency{}}
}
