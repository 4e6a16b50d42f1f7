package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MediaKindImage    = "image"
	MediaKindVideo    = "video"
	MediaKindCarousel = "carousel"
)

type Post struct {
	BaseModel

	// (AccountID, Shortcode) is the idempotency key for reconciliation.
	Shortcode string  `json:"shortcode" gorm:"uniqueIndex:idx_posts_account_shortcode"`
	AccountID uint    `json:"account_id" gorm:"uniqueIndex:idx_posts_account_shortcode"`
	Account   Account `json:"account,omitempty"`

	Caption     string    `json:"caption"`
	Language    string    `json:"language"`
	PublishedAt time.Time `json:"published_at" gorm:"index"`

	LikeCount    *int `json:"like_count,omitempty"`
	CommentCount *int `json:"comment_count,omitempty"`

	// Original provider response, kept verbatim for audit and debugging.
	RawPayload datatypes.JSON `json:"raw_payload,omitempty"`

	Media []Media `json:"media" gorm:"constraint:OnDelete:CASCADE"`
}

type Media struct {
	BaseModel

	PostID uint   `json:"post_id"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`

	Width        *int    `json:"width,omitempty"`
	Height       *int    `json:"height,omitempty"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}
