package models

import "time"

const (
	AccountStatusActive = "active"
	AccountStatusPaused = "paused"
	AccountStatusError  = "error"
)

type Account struct {
	BaseModel

	Handle string `json:"handle" gorm:"uniqueIndex"`
	URL    string `json:"url"`
	Status string `json:"status" gorm:"default:active"`

	// Fetch cursor. LastShortcode is the newest shortcode ever observed,
	// LastPostAt its publication time; the pair only moves forward.
	LastCheckedAt *time.Time `json:"last_checked_at"`
	LastShortcode *string    `json:"last_shortcode"`
	LastPostAt    *time.Time `json:"last_post_at"`

	FailureStreak int `json:"failure_streak"`

	Posts []Post `json:"posts,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}
