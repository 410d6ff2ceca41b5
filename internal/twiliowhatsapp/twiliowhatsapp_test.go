package twiliowhatsapp

import (
	"context"
	"errors"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	if err := mock.SendMessage(ctx, "15551234567", "Hello Test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := mock.Messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", sent[0].Body)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token")); !errors.Is(err, ErrMissingFrom) {
		t.Errorf("expected ErrMissingFrom, got %v", err)
	}

	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token"), WithFrom("+15550000000"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.from != "whatsapp:+15550000000" {
		t.Errorf("from = %q", c.from)
	}
}

func TestAddress(t *testing.T) {
	cases := map[string]string{
		"+15551234567":          "whatsapp:+15551234567",
		"whatsapp:+15551234567": "whatsapp:+15551234567",
		" +15551234567 ":        "whatsapp:+15551234567",
	}
	for in, want := range cases {
		if got := Address(in); got != want {
			t.Errorf("Address(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignatureValidatorRejectsForgery(t *testing.T) {
	v := NewSignatureValidator("secret")
	params := map[string]string{"From": "whatsapp:+15551234567", "Body": "hi"}
	if v.Valid("https://example.com/webhook/twilio", params, "forged") {
		t.Error("forged signature accepted")
	}
}
