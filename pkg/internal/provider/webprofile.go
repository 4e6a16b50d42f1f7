package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// WebProfileAdapter scrapes the public web profile endpoint directly.
// It is the primary strategy; no API key involved.
type WebProfileAdapter struct {
	endpoint string
	client   *http.Client
}

func NewWebProfileAdapter() *WebProfileAdapter {
	return &WebProfileAdapter{
		endpoint: "https://www.instagram.com/api/v1/users/web_profile_info",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type webProfileNode struct {
	Shortcode        string `json:"shortcode"`
	TakenAtTimestamp int64  `json:"taken_at_timestamp"`
	IsVideo          bool   `json:"is_video"`
	DisplayURL       string `json:"display_url"`
	VideoURL         string `json:"video_url"`
	ThumbnailSrc     string `json:"thumbnail_src"`
	Dimensions       struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimensions"`
	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	EdgeSidecarToChildren *struct {
		Edges []struct {
			Node webProfileNode `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
	EdgeLikedBy struct {
		Count int `json:"count"`
	} `json:"edge_liked_by"`
	EdgeMediaToComment struct {
		Count int `json:"count"`
	} `json:"edge_media_to_comment"`
}

type webProfileResponse struct {
	Data struct {
		User *struct {
			EdgeOwnerToTimelineMedia struct {
				Edges []struct {
					Node jsoniter.RawMessage `json:"node"`
				} `json:"edges"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

func (v *WebProfileAdapter) FetchLatest(ctx context.Context, handleOrURL string, since *time.Time) ([]CandidatePost, error) {
	handle := NormalizeHandle(handleOrURL)
	target := fmt.Sprintf("%s/?username=%s", v.endpoint, url.QueryEscape(handle))
	log.Debug().Str("handle", handle).Msg("Fetching web profile timeline...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("X-IG-App-ID", webAppID)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to fetch web profile: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to read response body: %v", err))
	}

	if resp.StatusCode != fiber.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var payload webProfileResponse
	if err := jsoniter.Unmarshal(body, &payload); err != nil {
		return nil, Transient(fmt.Errorf("failed to parse web profile JSON: %v", err))
	}
	if payload.Data.User == nil {
		return nil, Permanent(fmt.Errorf("profile not found: %s", handle))
	}

	var posts []CandidatePost
	for _, edge := range payload.Data.User.EdgeOwnerToTimelineMedia.Edges {
		var node webProfileNode
		if err := jsoniter.Unmarshal(edge.Node, &node); err != nil {
			log.Warn().Err(err).Str("handle", handle).Msg("Skipping malformed timeline node...")
			continue
		}
		post := node.toCandidate(edge.Node)
		if since != nil && !post.PublishedAt.After(*since) {
			continue
		}
		posts = append(posts, post)
	}

	log.Debug().Str("handle", handle).Int("count", len(posts)).Msg("Fetched web profile timeline.")
	return posts, nil
}

func (n webProfileNode) toCandidate(raw jsoniter.RawMessage) CandidatePost {
	post := CandidatePost{
		Shortcode:    n.Shortcode,
		PublishedAt:  time.Unix(n.TakenAtTimestamp, 0).UTC(),
		LikeCount:    lo.ToPtr(n.EdgeLikedBy.Count),
		CommentCount: lo.ToPtr(n.EdgeMediaToComment.Count),
		Raw:          append([]byte(nil), raw...),
	}
	if len(n.EdgeMediaToCaption.Edges) > 0 {
		post.Caption = n.EdgeMediaToCaption.Edges[0].Node.Text
	}

	if n.EdgeSidecarToChildren != nil && len(n.EdgeSidecarToChildren.Edges) > 0 {
		for _, child := range n.EdgeSidecarToChildren.Edges {
			media := child.Node.toMedia()
			media.Kind = "carousel"
			post.Media = append(post.Media, media)
		}
	} else {
		post.Media = []CandidateMedia{n.toMedia()}
	}

	return post
}

func (n webProfileNode) toMedia() CandidateMedia {
	media := CandidateMedia{
		Kind:         lo.Ternary(n.IsVideo, "video", "image"),
		URL:          lo.Ternary(n.IsVideo && n.VideoURL != "", n.VideoURL, n.DisplayURL),
		ThumbnailURL: n.ThumbnailSrc,
	}
	if n.Dimensions.Width > 0 {
		media.Width = lo.ToPtr(n.Dimensions.Width)
	}
	if n.Dimensions.Height > 0 {
		media.Height = lo.ToPtr(n.Dimensions.Height)
	}
	return media
}

func classifyStatus(status int, body []byte) *Error {
	switch {
	case status == fiber.StatusNotFound:
		return Permanent(fmt.Errorf("profile not found (status %d)", status))
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		return Permanent(fmt.Errorf("profile access blocked (status %d)", status))
	case status == fiber.StatusTooManyRequests || status >= 500:
		return Transient(fmt.Errorf("unexpected status code: %d", status))
	default:
		return Transient(fmt.Errorf("unexpected status code: %d, response: %s", status, body))
	}
}

// NormalizeHandle reduces a profile URL or raw handle to the bare
// lowercase handle. Handles are case-insensitive upstream.
func NormalizeHandle(handleOrURL string) string {
	handle := strings.TrimSpace(handleOrURL)
	for _, prefix := range []string{"https://", "http://", "www.", "instagram.com/"} {
		handle = strings.TrimPrefix(handle, prefix)
	}
	handle = strings.TrimPrefix(handle, "@")
	if idx := strings.IndexAny(handle, "/?"); idx >= 0 {
		handle = handle[:idx]
	}
	return strings.ToLower(handle)
}

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	webAppID         = "936619743392459"
)
