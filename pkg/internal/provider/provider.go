package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// CandidateMedia is one normalized asset descriptor of a candidate post.
type CandidateMedia struct {
	Kind         string `json:"kind"`
	URL          string `json:"url"`
	Width        *int   `json:"width,omitempty"`
	Height       *int   `json:"height,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CandidatePost is one normalized post as reported by a scraping provider,
// before it is reconciled into storage.
type CandidatePost struct {
	Shortcode    string
	Caption      string
	PublishedAt  time.Time
	Media        []CandidateMedia
	LikeCount    *int
	CommentCount *int

	// Raw keeps the untouched provider response for this post.
	Raw json.RawMessage
}

// Adapter is a single scraping strategy. FetchLatest performs one network
// call and returns the finite set of posts published after since (all posts
// the provider exposes when since is nil).
type Adapter interface {
	FetchLatest(ctx context.Context, handleOrURL string, since *time.Time) ([]CandidatePost, error)
}

type ErrorKind int

const (
	// ErrorTransient covers rate limits, upstream 5xx and timeouts;
	// eligible for retry on a later cycle.
	ErrorTransient ErrorKind = iota
	// ErrorPermanent covers unknown handles and blocked profiles; not
	// retried without operator action.
	ErrorPermanent
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == ErrorPermanent {
		return fmt.Sprintf("permanent provider error: %v", e.Err)
	}
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Transient(err error) *Error { return &Error{Kind: ErrorTransient, Err: err} }
func Permanent(err error) *Error { return &Error{Kind: ErrorPermanent, Err: err} }

func IsPermanent(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrorPermanent
}

func FromConfig() (Adapter, error) {
	switch strategy := viper.GetString("provider.strategy"); strategy {
	case "", "webprofile":
		return NewWebProfileAdapter(), nil
	case "scraperapi":
		return NewScraperAPIAdapter(
			viper.GetString("provider.endpoint"),
			viper.GetString("provider.api_key"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported provider strategy: %s", strategy)
	}
}
