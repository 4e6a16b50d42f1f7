package models

import "time"

type Digest struct {
	BaseModel

	SentAt      *time.Time `json:"sent_at"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`

	Entries []DigestEntry `json:"entries,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// DigestEntry joins a post into the digest it was delivered with.
// The unique index on PostID keeps every post in at most one digest.
type DigestEntry struct {
	BaseModel

	DigestID uint `json:"digest_id" gorm:"index"`
	PostID   uint `json:"post_id" gorm:"uniqueIndex"`
	Post     Post `json:"post,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}
