package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/email"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/gorm/clause"
)

// ErrEmptyDigest indicates no unattached post fell inside the requested
// period; nothing was persisted.
var ErrEmptyDigest = errors.New("no posts in the requested period")

var mailer *email.Sender

func SetMailer(sender *email.Sender) {
	mailer = sender
}

// ComposeDigest selects the unattached posts published inside [start, end),
// persists a digest row and attaches them through the join table. Posts that
// already belong to an earlier digest stay with it; first writer wins.
func ComposeDigest(start, end time.Time) (models.Digest, error) {
	var digest models.Digest

	var posts []models.Post
	if err := database.C.
		Where("published_at >= ? AND published_at < ?", start, end).
		Where("NOT EXISTS (SELECT 1 FROM digest_entries WHERE digest_entries.post_id = posts.id)").
		Order("published_at ASC").
		Find(&posts).Error; err != nil {
		return digest, fmt.Errorf("unable to select digest posts: %v", err)
	}
	if len(posts) == 0 {
		return digest, ErrEmptyDigest
	}

	digest = models.Digest{
		PeriodStart: start,
		PeriodEnd:   end,
	}
	if err := database.C.Create(&digest).Error; err != nil {
		return digest, err
	}

	entries := lo.Map(posts, func(item models.Post, _ int) models.DigestEntry {
		return models.DigestEntry{DigestID: digest.ID, PostID: item.ID}
	})
	if err := database.C.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries).Error; err != nil {
		return digest, fmt.Errorf("unable to attach digest posts: %v", err)
	}

	// Reload memberships; conflicting entries stayed with their digest.
	if err := database.C.
		Preload("Entries").
		Preload("Entries.Post").
		Preload("Entries.Post.Account").
		Preload("Entries.Post.Media").
		First(&digest, digest.ID).Error; err != nil {
		return digest, err
	}

	log.Info().
		Uint("digest", digest.ID).
		Int("attached", len(digest.Entries)).
		Int("selected", len(posts)).
		Msg("Composed a digest.")
	return digest, nil
}

// SendDigest renders a persisted digest and hands it to the email
// transport. The digest row is never rolled back on a send failure; a
// resend reuses the same record.
func SendDigest(ctx context.Context, digest *models.Digest) error {
	if mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	recipient := viper.GetString("digest.recipient")
	if len(recipient) == 0 {
		return fmt.Errorf("digest recipient is not configured")
	}

	document := BuildDigestDocument(*digest)
	if err := mailer.SendDigest(ctx, recipient, document); err != nil {
		return fmt.Errorf("unable to send digest #%d: %w", digest.ID, err)
	}

	now := time.Now()
	digest.SentAt = &now
	return database.C.Model(&models.Digest{}).
		Where("id = ?", digest.ID).
		Update("sent_at", now).Error
}

// ComposeAndSendDigest is the record-first entry point used by the
// scheduler and the API shell: the digest and its memberships are
// persisted before the transport is attempted, so a retried send can
// never duplicate digest records.
func ComposeAndSendDigest(ctx context.Context, start, end time.Time) (models.Digest, error) {
	digest, err := ComposeDigest(start, end)
	if err != nil {
		return digest, err
	}

	if err := SendDigest(ctx, &digest); err != nil {
		log.Error().Err(err).Uint("digest", digest.ID).
			Msg("Digest was recorded but could not be delivered; resend it later...")
		return digest, err
	}
	return digest, nil
}

// ResendDigest re-renders an already-recorded digest and sends it again.
func ResendDigest(ctx context.Context, id uint) (models.Digest, error) {
	var digest models.Digest
	if err := database.C.
		Preload("Entries").
		Preload("Entries.Post").
		Preload("Entries.Post.Account").
		Preload("Entries.Post.Media").
		First(&digest, id).Error; err != nil {
		return digest, err
	}

	if err := SendDigest(ctx, &digest); err != nil {
		return digest, err
	}
	return digest, nil
}

// ListDigests returns recent digests, newest first.
func ListDigests(take, offset int) ([]models.Digest, error) {
	if take > 100 {
		take = 100
	}

	var digests []models.Digest
	if err := database.C.
		Preload("Entries").
		Limit(take).Offset(offset).
		Order("created_at DESC").
		Find(&digests).Error; err != nil {
		return digests, err
	}
	return digests, nil
}

// RunScheduledDigest composes and sends the periodic digest according to
// the persisted frequency. Called from the cron entry once a day; weekly
// frequency only fires on Mondays.
func RunScheduledDigest() {
	settings, err := GetSettings()
	if err != nil {
		log.Error().Err(err).Msg("An error occurred when loading settings for the digest run...")
		return
	}

	period := 24 * time.Hour
	if settings.DigestFrequency == models.DigestFrequencyWeekly {
		if time.Now().Weekday() != time.Monday {
			return
		}
		period = 7 * 24 * time.Hour
	}

	end := time.Now()
	start := end.Add(-period)
	if _, err := ComposeAndSendDigest(context.Background(), start, end); err != nil {
		if errors.Is(err, ErrEmptyDigest) {
			log.Debug().Msg("Nothing to digest for this period.")
			return
		}
		log.Error().Err(err).Msg("An error occurred when running the scheduled digest...")
	}
}

// BuildDigestDocument shapes a digest for rendering: accounts ordered by
// their earliest post in the period, posts ascending inside each group.
func BuildDigestDocument(digest models.Digest) email.DigestDocument {
	document := email.DigestDocument{
		DigestID:    digest.ID,
		PeriodStart: digest.PeriodStart,
		PeriodEnd:   digest.PeriodEnd,
	}

	grouped := lo.GroupBy(digest.Entries, func(item models.DigestEntry) uint {
		return item.Post.AccountID
	})

	for _, entries := range grouped {
		posts := lo.Map(entries, func(item models.DigestEntry, _ int) models.Post {
			return item.Post
		})
		sort.Slice(posts, func(i, j int) bool {
			return posts[i].PublishedAt.Before(posts[j].PublishedAt)
		})

		section := email.AccountSection{
			Handle: entries[0].Post.Account.Handle,
			URL:    entries[0].Post.Account.URL,
		}
		for _, post := range posts {
			view := email.PostView{
				Shortcode:   post.Shortcode,
				Caption:     post.Caption,
				PublishedAt: post.PublishedAt,
			}
			for _, media := range post.Media {
				if media.ThumbnailURL != nil {
					view.ThumbnailURL = *media.ThumbnailURL
					break
				}
			}
			section.Posts = append(section.Posts, view)
		}
		document.Sections = append(document.Sections, section)
	}

	// Sections by earliest post of each group.
	sort.Slice(document.Sections, func(i, j int) bool {
		return document.Sections[i].Posts[0].PublishedAt.
			Before(document.Sections[j].Posts[0].PublishedAt)
	})
	return document
}

// notifyNewPosts pushes an instant alert for freshly observed posts when
// the settings flag asks for it. Always best-effort.
func notifyNewPosts(ctx context.Context, account models.Account, inserted int) {
	settings, err := GetSettings()
	if err != nil || !settings.InstantAlerts {
		return
	}
	if mailer == nil {
		return
	}
	recipient := viper.GetString("digest.recipient")
	if len(recipient) == 0 {
		return
	}

	if err := mailer.SendInstantAlert(ctx, recipient, account.Handle, inserted); err != nil {
		log.Warn().Err(err).Str("handle", account.Handle).
			Msg("An error occurred when sending an instant alert...")
	}
}
