package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// SentMessage is one message captured by MockService.
type SentMessage struct {
	To   string
	Body string
}

// MockService is an in-process Service for tests and the local console.
// Deliver injects inbound messages; sends are recorded.
type MockService struct {
	mu        sync.Mutex
	sent      []SentMessage
	stopped   bool
	SendErr   error // returned by SendMessage when set
	receipts  chan models.Receipt
	responses chan models.Response
	sentCh    chan SentMessage
}

// NewMockService returns a running MockService.
func NewMockService() *MockService {
	return &MockService{
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
		sentCh:    make(chan SentMessage, DefaultChannelBufferSize),
	}
}

func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

func (m *MockService) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrServiceStopped
	}
	if m.SendErr != nil {
		return m.SendErr
	}
	msg := SentMessage{To: to, Body: body}
	m.sent = append(m.sent, msg)
	select {
	case m.sentCh <- msg:
	default:
	}
	select {
	case m.receipts <- models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()}:
	default:
	}
	return nil
}

func (m *MockService) Start(ctx context.Context) error { return nil }

func (m *MockService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}
	m.stopped = true
	close(m.receipts)
	close(m.responses)
	return nil
}

func (m *MockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *MockService) Responses() <-chan models.Response { return m.responses }

// Deliver queues an inbound message as if a user had sent it.
func (m *MockService) Deliver(r models.Response) {
	m.responses <- r
}

// Sent returns a copy of every message sent so far.
func (m *MockService) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// WaitSent blocks until the next message is sent or timeout passes.
func (m *MockService) WaitSent(timeout time.Duration) (SentMessage, bool) {
	select {
	case msg := <-m.sentCh:
		return msg, true
	case <-time.After(timeout):
		return SentMessage{}, false
	}
}
