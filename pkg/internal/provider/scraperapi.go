package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// ScraperAPIAdapter goes through a hosted scraping API instead of hitting
// the profile endpoint directly. Fallback strategy for when direct access
// gets rate limited into the ground.
type ScraperAPIAdapter struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewScraperAPIAdapter(endpoint, apiKey string) *ScraperAPIAdapter {
	return &ScraperAPIAdapter{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type scraperAPIPost struct {
	Shortcode string    `json:"shortcode"`
	Caption   string    `json:"caption"`
	TakenAt   time.Time `json:"taken_at"`
	Likes     *int      `json:"likes"`
	Comments  *int      `json:"comments"`
	Media     []struct {
		Type      string `json:"type"`
		URL       string `json:"url"`
		Thumbnail string `json:"thumbnail"`
		Width     *int   `json:"width"`
		Height    *int   `json:"height"`
	} `json:"media"`
}

func (v *ScraperAPIAdapter) FetchLatest(ctx context.Context, handleOrURL string, since *time.Time) ([]CandidatePost, error) {
	handle := NormalizeHandle(handleOrURL)

	query := url.Values{}
	query.Set("username", handle)
	if since != nil {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}
	target := fmt.Sprintf("%s/v1/posts?%s", v.endpoint, query.Encode())
	log.Debug().Str("handle", handle).Str("url", target).Msg("Fetching posts via scraper API...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	req.Header.Set("X-API-Key", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to reach scraper API: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to read response body: %v", err))
	}

	if resp.StatusCode != fiber.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var payload struct {
		Posts []jsoniter.RawMessage `json:"posts"`
	}
	if err := jsoniter.Unmarshal(body, &payload); err != nil {
		return nil, Transient(fmt.Errorf("failed to parse scraper API JSON: %v", err))
	}

	var posts []CandidatePost
	for _, raw := range payload.Posts {
		var item scraperAPIPost
		if err := jsoniter.Unmarshal(raw, &item); err != nil {
			log.Warn().Err(err).Str("handle", handle).Msg("Skipping malformed scraper API post...")
			continue
		}
		if since != nil && !item.TakenAt.After(*since) {
			continue
		}

		post := CandidatePost{
			Shortcode:    item.Shortcode,
			Caption:      item.Caption,
			PublishedAt:  item.TakenAt.UTC(),
			LikeCount:    item.Likes,
			CommentCount: item.Comments,
			Raw:          append([]byte(nil), raw...),
		}
		for _, media := range item.Media {
			kind := media.Type
			switch kind {
			case "image", "video", "carousel":
			default:
				kind = "image"
			}
			candidate := CandidateMedia{
				Kind:         kind,
				URL:          media.URL,
				ThumbnailURL: media.Thumbnail,
				Width:        media.Width,
				Height:       media.Height,
			}
			post.Media = append(post.Media, candidate)
		}
		posts = append(posts, post)
	}

	log.Debug().Str("handle", handle).Int("count", len(posts)).Msg("Fetched posts via scraper API.")
	return posts, nil
}
