package domain

import "time"

// Idempotency remembers which run a client-supplied Idempotency-Key started,
// so a retried POST /runs returns the original run instead of starting a
// second one.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex"`
	RunID     string    `gorm:"type:char(36);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Expired reports whether the record is past its expiry at now.
func (i Idempotency) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }
