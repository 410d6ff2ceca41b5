package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// FailureMessage is sent when a turn cannot be processed.
const FailureMessage = "Something went wrong. Please try again."

// Processor runs one conversational turn. flow.ConversationFlow implements it.
type Processor interface {
	Process(ctx context.Context, sessionID string, uc models.UserContext, text string) ([]models.ChatMessage, error)
}

// ChatBridge answers inbound transport messages through a Processor.
// Each phone number is its own session and user.
type ChatBridge struct {
	svc   Service
	flow  Processor
	dedup store.DedupRepo

	mu      sync.Mutex
	offered map[string][]string // recipient -> quick reply values of the last reply
}

// NewChatBridge creates a bridge. A nil dedup disables duplicate detection.
func NewChatBridge(svc Service, flow Processor, dedup store.DedupRepo) *ChatBridge {
	return &ChatBridge{
		svc:     svc,
		flow:    flow,
		dedup:   dedup,
		offered: make(map[string][]string),
	}
}

// Start consumes responses and receipts until ctx is done or the service closes its channels.
func (b *ChatBridge) Start(ctx context.Context) {
	slog.Info("ChatBridge.Start: processing inbound messages")
	go func() {
		defer slog.Info("ChatBridge.Start: stopped processing inbound messages")
		for {
			select {
			case response, ok := <-b.svc.Responses():
				if !ok {
					return
				}
				if err := b.HandleResponse(ctx, response); err != nil {
					slog.Error("ChatBridge.Start: failed to handle message", "error", err, "from", response.From)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		for {
			select {
			case receipt, ok := <-b.svc.Receipts():
				if !ok {
					return
				}
				slog.Debug("ChatBridge.Start: receipt", "to", receipt.To, "status", receipt.Status)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// HandleResponse runs one inbound message through the conversation and sends the reply.
func (b *ChatBridge) HandleResponse(ctx context.Context, response models.Response) error {
	from, err := b.svc.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	if b.dedup != nil && response.MessageID != "" {
		created, err := b.dedup.RecordInbound(response.MessageID, from)
		if err != nil {
			slog.Error("ChatBridge.HandleResponse: dedup check failed, processing anyway", "error", err, "messageID", response.MessageID)
		} else if !created {
			slog.Info("ChatBridge.HandleResponse: duplicate message dropped", "messageID", response.MessageID, "from", from)
			return nil
		}
	}

	text := b.resolveChoice(from, response.Body)
	msgs, err := b.flow.Process(ctx, from, models.UserContext{UserID: from}, text)
	if err != nil {
		slog.Error("ChatBridge.HandleResponse: turn failed", "error", err, "from", from)
		if sendErr := b.svc.SendMessage(ctx, from, FailureMessage); sendErr != nil {
			slog.Error("ChatBridge.HandleResponse: failed to send failure notice", "error", sendErr, "from", from)
		}
		return fmt.Errorf("turn failed: %w", err)
	}

	b.remember(from, msgs)
	if err := b.svc.SendMessage(ctx, from, RenderText(msgs)); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	if b.dedup != nil && response.MessageID != "" {
		if err := b.dedup.MarkProcessed(response.MessageID); err != nil {
			slog.Warn("ChatBridge.HandleResponse: failed to mark processed", "error", err, "messageID", response.MessageID)
		}
	}
	return nil
}

// resolveChoice maps a bare number to the matching quick reply offered last time.
func (b *ChatBridge) resolveChoice(from, body string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ResolveChoice(b.offered[from], body)
}

// ResolveChoice returns the quick reply value numbered reply in values, or reply
// itself. A number is taken literally when it is one of the values or when every
// value is a number, since the chips are then not numbered.
func ResolveChoice(values []string, reply string) string {
	s := strings.TrimSpace(reply)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > len(values) || numericChoices(values) {
		return reply
	}
	for _, v := range values {
		if strings.TrimSpace(v) == s {
			return reply
		}
	}
	return values[n-1]
}

func numericChoices(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return false
		}
	}
	return true
}

func (b *ChatBridge) remember(from string, msgs []models.ChatMessage) {
	values := QuickReplyValues(msgs)
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(values) == 0 {
		delete(b.offered, from)
		return
	}
	b.offered[from] = values
}

// QuickReplyValues lists the values of every quick reply in msgs, in display order.
func QuickReplyValues(msgs []models.ChatMessage) []string {
	var values []string
	for _, m := range msgs {
		for _, a := range m.Actions {
			values = append(values, a.Value)
		}
	}
	return values
}

// RenderText formats assistant messages for a plain text channel. Quick replies are
// numbered across all messages so that QuickReplyValues()[n-1] answers reply n.
// Purely numeric choices are listed unnumbered and are answered literally.
func RenderText(msgs []models.ChatMessage) string {
	numeric := numericChoices(QuickReplyValues(msgs))
	var sb strings.Builder
	n := 0
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.Text)
		for _, a := range m.Actions {
			n++
			if numeric {
				fmt.Fprintf(&sb, "\n- %s", a.Label)
				continue
			}
			fmt.Fprintf(&sb, "\n%d. %s", n, a.Label)
		}
	}
	switch {
	case n > 0 && numeric:
		sb.WriteString("\n(Type your answer)")
	case n > 0:
		sb.WriteString("\n(Reply with a number or type your answer)")
	}
	return sb.String()
}
