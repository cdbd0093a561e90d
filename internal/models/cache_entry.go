package models

import "time"

// CacheEntry is the database fallback for TTL key-value state: outstanding
// CAPTCHA/OTP challenges and rate-limit counters.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
