package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// MockProvider records sends instead of performing them. Default in
// development, and what the tests assert against.
type MockProvider struct {
	mu   sync.Mutex
	Sent []MockMessage
}

type MockMessage struct {
	To      string
	Subject string
	Body    string
}

func (m *MockProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MockMessage{To: to, Subject: subject, Body: htmlBody})
	log.Info().Str("to", to).Str("subject", subject).Msg("MOCK EMAIL")
	return nil
}

func (m *MockProvider) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}
