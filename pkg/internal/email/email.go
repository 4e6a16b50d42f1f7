// Package email delivers digests and alerts through a pluggable provider.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Provider is one email sending implementation.
type Provider interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Sender struct {
	provider Provider
}

func NewSender(provider Provider) *Sender {
	return &Sender{provider: provider}
}

func FromConfig() (*Sender, error) {
	switch name := viper.GetString("mailer.provider"); name {
	case "", "mock":
		return NewSender(&MockProvider{}), nil
	case "brevo":
		return NewSender(NewBrevoProvider(
			viper.GetString("mailer.api_key"),
			viper.GetString("mailer.from_address"),
			viper.GetString("mailer.from_name"),
		)), nil
	default:
		return nil, fmt.Errorf("unsupported mailer provider: %s", name)
	}
}

// SendDigest renders and delivers one digest document.
func (s *Sender) SendDigest(ctx context.Context, to string, document DigestDocument) error {
	total := 0
	for _, section := range document.Sections {
		total += len(section.Posts)
	}

	subject := fmt.Sprintf(
		"Your Instagram digest: %d new posts (%s – %s)",
		total,
		document.PeriodStart.Format("Jan 2"),
		document.PeriodEnd.Format("Jan 2"),
	)

	return s.provider.Send(ctx, to, subject, formatDigestBody(document))
}

// SendInstantAlert delivers a short notification about freshly observed
// posts for one account.
func (s *Sender) SendInstantAlert(ctx context.Context, to, handle string, count int) error {
	subject := fmt.Sprintf("@%s posted %d new item(s)", handle, count)
	body := formatAlertBody(handle, count, time.Now())
	return s.provider.Send(ctx, to, subject, body)
}
