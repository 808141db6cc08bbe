package dummymail

import (
	"log"
	"sync"

	"github.com/jeevaneswaran/examportal/core"
)

// Service records sent messages for assertion in tests. Sending is
// synchronous so tests need no waiting.
type Service struct {
	frontendBaseURL string

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*Service)(nil)

func NewService(frontendBaseURL string) *Service {
	return &Service{frontendBaseURL: frontendBaseURL}
}

func (svc *Service) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if err := msg.Render(svc.frontendBaseURL); err != nil {
			log.Printf("rendering email: %v", err)
			continue
		}
		if msg.HasRecipients() && msg.HasContent() {
			svc.mu.Lock()
			svc.sent = append(svc.sent, *msg)
			svc.mu.Unlock()
		}
	}
}

func (svc *Service) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]core.EmailMessage, len(svc.sent))
	copy(out, svc.sent)
	return out
}
