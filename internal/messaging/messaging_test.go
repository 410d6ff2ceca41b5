package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/twiliowhatsapp"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/whatsapp"
)

var (
	_ Service = (*WhatsAppService)(nil)
	_ Service = (*TwilioService)(nil)
	_ Service = (*MockService)(nil)
)

// fakeProcessor answers every turn with a fixed reply and records what it saw.
type fakeProcessor struct {
	mu    sync.Mutex
	turns []string
	users []string
	reply []models.ChatMessage
	err   error
}

func (f *fakeProcessor) Process(ctx context.Context, sessionID string, uc models.UserContext, text string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, text)
	f.users = append(f.users, sessionID+"/"+uc.UserID)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 123-4567", "15551234567", false},
		{"15551234567", "15551234567", false},
		{"", "", true},
		{"abc", "", true},
		{"+123", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalizePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("CanonicalizePhone(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	msgs := []models.ChatMessage{
		{Text: `Delete task "Buy Milk"?`, Actions: []models.ChatAction{
			{Label: "Yes, confirm", Value: "yes"},
			{Label: "Cancel", Value: "cancel"},
		}},
	}
	want := "Delete task \"Buy Milk\"?\n1. Yes, confirm\n2. Cancel\n(Reply with a number or type your answer)"
	if got := RenderText(msgs); got != want {
		t.Errorf("RenderText() = %q, want %q", got, want)
	}

	plain := []models.ChatMessage{{Text: "One"}, {Text: "Two"}}
	if got := RenderText(plain); got != "One\n\nTwo" {
		t.Errorf("RenderText() = %q", got)
	}

	minutes := []models.ChatMessage{{Text: "For how many minutes?", Actions: []models.ChatAction{
		{Label: "5", Value: "5"}, {Label: "10", Value: "10"},
	}}}
	if got := RenderText(minutes); got != "For how many minutes?\n- 5\n- 10\n(Type your answer)" {
		t.Errorf("RenderText() numeric = %q", got)
	}
}

func TestResolveChoice(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		reply  string
		want   string
	}{
		{"maps number to chip", []string{"yes", "cancel"}, " 2 ", "cancel"},
		{"out of range", []string{"yes", "cancel"}, "3", "3"},
		{"not a number", []string{"yes", "cancel"}, "yes please", "yes please"},
		{"nothing offered", nil, "1", "1"},
		{"all numeric options", []string{"5", "10", "15", "30"}, "2", "2"},
		{"number equals an option", []string{"1", "Once", "Daily"}, "1", "1"},
		{"number maps past a mixed option", []string{"1", "Once", "Daily"}, "2", "Once"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveChoice(tt.values, tt.reply); got != tt.want {
				t.Errorf("ResolveChoice(%v, %q) = %q, want %q", tt.values, tt.reply, got, tt.want)
			}
		})
	}
}

func TestChatBridgeKeepsNumericAnswers(t *testing.T) {
	svc := NewMockService()
	proc := &fakeProcessor{reply: []models.ChatMessage{{
		Text:    "Step 1. For how many minutes should I snooze it?",
		Actions: []models.ChatAction{{Label: "5", Value: "5"}, {Label: "10", Value: "10"}, {Label: "15", Value: "15"}},
	}}}
	bridge := NewChatBridge(svc, proc, nil)
	ctx := context.Background()

	for _, body := range []string{"snooze drink water", "2"} {
		if err := bridge.HandleResponse(ctx, models.Response{From: "+15551234567", Body: body}); err != nil {
			t.Fatalf("HandleResponse(%q) failed: %v", body, err)
		}
	}
	if proc.turns[1] != "2" {
		t.Errorf("numeric answer rewritten to %q, want 2", proc.turns[1])
	}
}

func TestChatBridgeMapsNumberToQuickReply(t *testing.T) {
	svc := NewMockService()
	proc := &fakeProcessor{reply: []models.ChatMessage{{
		Text:    "Confirm?",
		Actions: []models.ChatAction{{Label: "Yes", Value: "yes"}, {Label: "Cancel", Value: "cancel"}},
	}}}
	bridge := NewChatBridge(svc, proc, nil)
	ctx := context.Background()

	if err := bridge.HandleResponse(ctx, models.Response{From: "+15551234567", Body: "delete task milk"}); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}
	proc.reply = []models.ChatMessage{{Text: "Done."}}
	if err := bridge.HandleResponse(ctx, models.Response{From: "+15551234567", Body: " 2 "}); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}
	// No quick replies on the last reply, so the number passes through.
	if err := bridge.HandleResponse(ctx, models.Response{From: "+15551234567", Body: "2"}); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}

	want := []string{"delete task milk", "cancel", "2"}
	for i, w := range want {
		if proc.turns[i] != w {
			t.Errorf("turn %d = %q, want %q", i, proc.turns[i], w)
		}
	}
	if proc.users[0] != "15551234567/15551234567" {
		t.Errorf("session/user = %q", proc.users[0])
	}
	sent := svc.Sent()
	if len(sent) != 3 || sent[0].To != "15551234567" || !strings.HasPrefix(sent[0].Body, "Confirm?\n1. Yes") {
		t.Errorf("unexpected sends %+v", sent)
	}
}

func TestChatBridgeDropsDuplicates(t *testing.T) {
	svc := NewMockService()
	proc := &fakeProcessor{reply: []models.ChatMessage{{Text: "Hi"}}}
	bridge := NewChatBridge(svc, proc, store.NewInMemoryStore())
	ctx := context.Background()

	msg := models.Response{MessageID: "wamid-1", From: "+15551234567", Body: "help"}
	for i := 0; i < 2; i++ {
		if err := bridge.HandleResponse(ctx, msg); err != nil {
			t.Fatalf("HandleResponse failed: %v", err)
		}
	}
	if len(proc.turns) != 1 {
		t.Errorf("expected 1 processed turn, got %d", len(proc.turns))
	}
	if len(svc.Sent()) != 1 {
		t.Errorf("expected 1 reply, got %d", len(svc.Sent()))
	}
}

func TestChatBridgeSendsFailureNotice(t *testing.T) {
	svc := NewMockService()
	proc := &fakeProcessor{err: errors.New("database down")}
	bridge := NewChatBridge(svc, proc, nil)

	err := bridge.HandleResponse(context.Background(), models.Response{From: "+15551234567", Body: "add task"})
	if err == nil {
		t.Fatal("expected error")
	}
	sent := svc.Sent()
	if len(sent) != 1 || sent[0].Body != FailureMessage {
		t.Errorf("unexpected sends %+v", sent)
	}
}

func TestChatBridgeRejectsInvalidSender(t *testing.T) {
	bridge := NewChatBridge(NewMockService(), &fakeProcessor{}, nil)
	if err := bridge.HandleResponse(context.Background(), models.Response{From: "bob", Body: "hi"}); err == nil {
		t.Fatal("expected error for sender without digits")
	}
}

func TestChatBridgeStartConsumesResponses(t *testing.T) {
	svc := NewMockService()
	proc := &fakeProcessor{reply: []models.ChatMessage{{Text: "Hello!"}}}
	bridge := NewChatBridge(svc, proc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge.Start(ctx)

	svc.Deliver(models.Response{From: "+15551234567", Body: "hi"})
	msg, ok := svc.WaitSent(2 * time.Second)
	if !ok {
		t.Fatal("no reply sent")
	}
	if msg.Body != "Hello!" {
		t.Errorf("reply = %q", msg.Body)
	}
}

func TestWhatsAppServiceSendAndStop(t *testing.T) {
	client := whatsapp.NewMockClient()
	svc := NewWhatsAppService(client)
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.SendMessage(ctx, "+1 555 123 4567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if got := client.Messages(); len(got) != 1 || got[0].To != "15551234567" {
		t.Errorf("unexpected sends %+v", got)
	}
	select {
	case r := <-svc.Receipts():
		if r.Status != models.MessageStatusSent {
			t.Errorf("receipt status = %s", r.Status)
		}
	default:
		t.Fatal("expected a sent receipt")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("responses channel still open")
	}
	if err := svc.SendMessage(ctx, "15551234567", "late"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestTwilioServiceSend(t *testing.T) {
	client := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(client)
	if err := svc.SendMessage(context.Background(), "whatsapp:+15551234567", "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if got := client.Messages(); len(got) != 1 || got[0].To != "+15551234567" {
		t.Errorf("unexpected sends %+v", got)
	}
}

func TestTwilioWebhook(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"add task pay rent"}, "MessageSid": {"SM123"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.WebhookHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	select {
	case r := <-svc.Responses():
		if r.From != "+15551234567" || r.Body != "add task pay rent" || r.MessageID != "SM123" {
			t.Errorf("unexpected response %+v", r)
		}
	default:
		t.Fatal("expected an inbound response")
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader("From=whatsapp%3A%2B1555"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	svc.WebhookHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing body: status = %d", rec.Code)
	}
}

func TestTwilioWebhookRejectsBadSignature(t *testing.T) {
	v := twiliowhatsapp.NewSignatureValidator("secret")
	svc := NewTwilioService(twiliowhatsapp.NewMockClient(), WithSignatureCheck(v, "https://example.com/webhook/twilio"))

	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "bogus")
	rec := httptest.NewRecorder()
	svc.WebhookHandler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
