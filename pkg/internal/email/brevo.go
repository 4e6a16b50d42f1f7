package email

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// BrevoProvider sends emails through the Brevo transactional API.
type BrevoProvider struct {
	apiKey   string
	fromAddr string
	fromName string
	client   *http.Client
}

func NewBrevoProvider(apiKey, fromAddr, fromName string) *BrevoProvider {
	return &BrevoProvider{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoSendRequest struct {
	Sender  brevoContact   `json:"sender"`
	To      []brevoContact `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"htmlContent"`
}

func (b *BrevoProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := jsoniter.Marshal(brevoSendRequest{
		Sender:  brevoContact{Email: b.fromAddr, Name: b.fromName},
		To:      []brevoContact{{Email: to}},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("unable to marshal send request: %v", err)
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				"https://api.brevo.com/v3/smtp/email", bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("api-key", b.apiKey)

			resp, err := b.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n).Str("to", to).
				Msg("Retrying email delivery...")
		}),
	)
	if err != nil {
		return fmt.Errorf("after retries: %w", err)
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email delivered.")
	return nil
}
