package services

import (
	"testing"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, handle string) models.Account {
	t.Helper()
	account := models.Account{
		Handle: handle,
		URL:    "https://www.instagram.com/" + handle + "/",
		Status: models.AccountStatusActive,
	}
	require.NoError(t, database.C.Create(&account).Error)
	return account
}

func twoCandidates(base time.Time) []provider.CandidatePost {
	return []provider.CandidatePost{
		{
			Shortcode:   "A1",
			Caption:     "first post",
			PublishedAt: base,
			Media: []provider.CandidateMedia{
				{Kind: models.MediaKindImage, URL: "https://cdn.example.com/a1.jpg", Width: lo.ToPtr(1080), Height: lo.ToPtr(1350), ThumbnailURL: "https://cdn.example.com/a1_t.jpg"},
			},
			Raw: []byte(`{"shortcode":"A1"}`),
		},
		{
			Shortcode:   "A2",
			Caption:     "second post",
			PublishedAt: base.Add(time.Hour),
			Media: []provider.CandidateMedia{
				{Kind: models.MediaKindVideo, URL: "https://cdn.example.com/a2.mp4"},
				{Kind: models.MediaKindCarousel, URL: "https://cdn.example.com/a2b.jpg"},
			},
			Raw: []byte(`{"shortcode":"A2"}`),
		},
	}
}

func TestReconcilePostsInsertsOncePerShortcode(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candidates := twoCandidates(base)

	result, err := ReconcilePosts(account.ID, candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, "A2", result.NewestShortcode)
	require.NotNil(t, result.Watermark)
	assert.True(t, result.Watermark.Equal(base.Add(time.Hour)))

	var posts []models.Post
	require.NoError(t, database.C.Preload("Media").
		Where("account_id = ?", account.ID).
		Order("published_at ASC").Find(&posts).Error)
	require.Len(t, posts, 2)
	assert.Equal(t, "A1", posts[0].Shortcode)
	assert.Len(t, posts[0].Media, 1)
	assert.Len(t, posts[1].Media, 2)
	assert.JSONEq(t, `{"shortcode":"A1"}`, string(posts[0].RawPayload))

	// Re-observing the same sequence must not change a single row.
	again, err := ReconcilePosts(account.ID, candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, "A2", again.NewestShortcode)

	var postCount, mediaCount int64
	require.NoError(t, database.C.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, database.C.Model(&models.Media{}).Count(&mediaCount).Error)
	assert.EqualValues(t, 2, postCount)
	assert.EqualValues(t, 3, mediaCount)
}

func TestReconcilePostsDoesNotRewriteCapturedFields(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := []provider.CandidatePost{{
		Shortcode:   "B1",
		Caption:     "original caption",
		PublishedAt: base,
	}}
	_, err := ReconcilePosts(account.ID, first)
	require.NoError(t, err)

	// Same shortcode showing up with an edited caption stays a no-op.
	edited := []provider.CandidatePost{{
		Shortcode:   "B1",
		Caption:     "edited caption",
		PublishedAt: base.Add(time.Minute),
	}}
	result, err := ReconcilePosts(account.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	var post models.Post
	require.NoError(t, database.C.
		Where("account_id = ? AND shortcode = ?", account.ID, "B1").
		First(&post).Error)
	assert.Equal(t, "original caption", post.Caption)
	assert.True(t, post.PublishedAt.Equal(base))
}

func TestReconcilePostsSameShortcodeAcrossAccounts(t *testing.T) {
	setupDatabase(t)
	first := seedAccount(t, "natgeo")
	second := seedAccount(t, "nasa")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candidates := []provider.CandidatePost{{Shortcode: "C1", PublishedAt: base}}

	_, err := ReconcilePosts(first.ID, candidates)
	require.NoError(t, err)
	result, err := ReconcilePosts(second.ID, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	var count int64
	require.NoError(t, database.C.Model(&models.Post{}).
		Where("shortcode = ?", "C1").Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestReconcilePostsEmptySequence(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	result, err := ReconcilePosts(account.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	assert.Nil(t, result.Watermark)
	assert.Empty(t, result.NewestShortcode)
}
