package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/pemistahl/lingua-go"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReconcileResult summarizes one merge of candidate posts into storage.
type ReconcileResult struct {
	Inserted int
	Skipped  int

	// Watermark is the maximum publication time observed across the
	// candidates, NewestShortcode the shortcode carrying it. Both are
	// reported even when every candidate turned out to be a duplicate.
	Watermark       *time.Time
	NewestShortcode string
}

// ReconcilePosts merges candidates into storage exactly once per
// (account, shortcode) pair. Re-observations are idempotent skips;
// captions and publication times are never rewritten once captured.
func ReconcilePosts(accountID uint, candidates []provider.CandidatePost) (ReconcileResult, error) {
	var result ReconcileResult

	for _, candidate := range candidates {
		if result.Watermark == nil || candidate.PublishedAt.After(*result.Watermark) {
			watermark := candidate.PublishedAt
			result.Watermark = &watermark
			result.NewestShortcode = candidate.Shortcode
		}

		var existing int64
		if err := database.C.Model(&models.Post{}).
			Where("account_id = ? AND shortcode = ?", accountID, candidate.Shortcode).
			Count(&existing).Error; err != nil {
			return result, err
		}
		if existing > 0 {
			result.Skipped++
			continue
		}

		post := buildPost(accountID, candidate)
		if err := database.C.Create(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Another reconciliation got there first; same outcome.
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Inserted++
	}

	log.Debug().
		Uint("account", accountID).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Msg("Reconciled candidate posts.")
	return result, nil
}

func buildPost(accountID uint, candidate provider.CandidatePost) models.Post {
	post := models.Post{
		AccountID:    accountID,
		Shortcode:    candidate.Shortcode,
		Caption:      candidate.Caption,
		Language:     DetectContentLanguage(candidate.Caption),
		PublishedAt:  candidate.PublishedAt,
		LikeCount:    candidate.LikeCount,
		CommentCount: candidate.CommentCount,
	}
	if len(candidate.Raw) > 0 {
		post.RawPayload = datatypes.JSON(candidate.Raw)
	}
	for _, media := range candidate.Media {
		item := models.Media{
			Kind:   media.Kind,
			URL:    media.URL,
			Width:  media.Width,
			Height: media.Height,
		}
		if len(media.ThumbnailURL) > 0 {
			thumbnail := media.ThumbnailURL
			item.ThumbnailURL = &thumbnail
		}
		post.Media = append(post.Media, item)
	}
	return post
}

var languageDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromAllSpokenLanguages().
		Build()
})

func DetectContentLanguage(content string) string {
	if len(strings.TrimSpace(content)) == 0 {
		return ""
	}
	if language, ok := languageDetector().DetectLanguageOf(content); ok {
		return strings.ToLower(language.IsoCode639_1().String())
	}
	return ""
}
