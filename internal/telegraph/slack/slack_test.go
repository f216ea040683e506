package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/zulandar/nudgeyard/internal/telegraph"
)

type fakeAPI struct {
	mu        sync.Mutex
	authErr   error
	authCalls int
	failures  []error // returned, one per call, before posts succeed
	channels  []string
}

func (f *fakeAPI) AuthTestContext(context.Context) (*slackapi.AuthTestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &slackapi.AuthTestResponse{UserID: "U_NUDGE"}, nil
}

func (f *fakeAPI) PostMessageContext(_ context.Context, channelID string, _ ...slackapi.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return "", "", err
	}
	f.channels = append(f.channels, channelID)
	return channelID, "1700000000.000100", nil
}

func (f *fakeAPI) posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channels...)
}

func connected(t *testing.T) (*Adapter, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{}
	a, err := New(AdapterOpts{ChannelID: "C_CARE", Client: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return a, fake
}

func TestNew_NeedsTokenOrClient(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("expected error without token")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-test"}); err != nil {
		t.Errorf("New(token) = %v", err)
	}
}

func TestConnect(t *testing.T) {
	a, fake := connected(t)
	if a.BotUserID() != "U_NUDGE" {
		t.Errorf("BotUserID = %q", a.BotUserID())
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if fake.authCalls != 1 {
		t.Errorf("auth calls = %d, want 1", fake.authCalls)
	}

	a.Close()
	if err := a.Connect(context.Background()); err == nil {
		t.Error("Connect after Close should fail")
	}
}

func TestConnect_AuthFailure(t *testing.T) {
	fake := &fakeAPI{authErr: errors.New("invalid_auth")}
	a, _ := New(AdapterOpts{Client: fake})
	err := a.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid_auth") {
		t.Fatalf("Connect = %v, want invalid_auth", err)
	}
	if err := a.Send(context.Background(), telegraph.OutboundMessage{ChannelID: "C1", Text: "x"}); err == nil {
		t.Error("Send should fail when auth failed")
	}
}

func TestSend_Channels(t *testing.T) {
	a, fake := connected(t)
	ctx := context.Background()

	if err := a.Send(ctx, telegraph.OutboundMessage{ChannelID: "D_USER", Text: "Breathe"}); err != nil {
		t.Fatalf("Send explicit: %v", err)
	}
	if err := a.Send(ctx, telegraph.OutboundMessage{Text: "Breathe"}); err != nil {
		t.Fatalf("Send default: %v", err)
	}
	if got := fmt.Sprint(fake.posted()); got != "[D_USER C_CARE]" {
		t.Errorf("channels = %s, want [D_USER C_CARE]", got)
	}
}

func TestSend_NoChannel(t *testing.T) {
	a, _ := New(AdapterOpts{Client: &fakeAPI{}})
	a.Connect(context.Background())
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "hi"}); err == nil {
		t.Fatal("expected error with no channel")
	}
}

func TestSend_AfterClose(t *testing.T) {
	a, _ := connected(t)
	a.Close()
	a.Close()
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "hi"}); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestSend_RetriesRateLimit(t *testing.T) {
	a, fake := connected(t)
	fake.failures = []error{
		&slackapi.RateLimitedError{RetryAfter: time.Millisecond},
		&slackapi.RateLimitedError{RetryAfter: time.Millisecond},
	}
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(fake.posted()); n != 1 {
		t.Errorf("posted = %d, want 1", n)
	}
}

func TestSend_OtherErrorNotRetried(t *testing.T) {
	a, fake := connected(t)
	fake.failures = []error{errors.New("channel_not_found"), nil}
	err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "hi"})
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("Send = %v, want channel_not_found", err)
	}
	if len(fake.failures) != 1 {
		t.Error("non rate-limit error was retried")
	}
}

func TestWithRateLimitRetry_GivesUp(t *testing.T) {
	calls := 0
	err := withRateLimitRetry(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
}

func TestWithRateLimitRetry_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRateLimitRetry(ctx, func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Minute}
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err = %v, calls = %d; want context.Canceled after 1 call", err, calls)
	}
}

func TestRenderBlocks_Intervention(t *testing.T) {
	blocks := renderBlocks([]telegraph.FormattedEvent{{
		Title:    "You are not alone",
		Body:     "**Reach out** now.\n\n1. Call a friend",
		Severity: "error",
		Fields: []telegraph.Field{
			{Name: "Category", Value: "crisis-support", Short: true},
			{Name: "Urgency", Value: "immediate", Short: true},
		},
	}})
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}

	header, ok := blocks[0].(*slackapi.HeaderBlock)
	if !ok {
		t.Fatalf("block 0 = %T, want header", blocks[0])
	}
	if header.Text.Text != ":rotating_light: You are not alone" {
		t.Errorf("header = %q", header.Text.Text)
	}

	body, ok := blocks[1].(*slackapi.SectionBlock)
	if !ok || body.Text == nil {
		t.Fatalf("block 1 = %T, want text section", blocks[1])
	}
	if !strings.HasPrefix(body.Text.Text, "*Reach out* now.") || body.Text.Type != slackapi.MarkdownType {
		t.Errorf("body = %q (%s)", body.Text.Text, body.Text.Type)
	}

	fields, ok := blocks[2].(*slackapi.SectionBlock)
	if !ok || len(fields.Fields) != 2 {
		t.Fatalf("block 2 = %#v, want 2 fields", blocks[2])
	}
	if fields.Fields[0].Text != "*Category*\ncrisis-support" {
		t.Errorf("field 0 = %q", fields.Fields[0].Text)
	}
}

func TestRenderBlocks_DividersAndLimits(t *testing.T) {
	many := make([]telegraph.Field, 14)
	for i := range many {
		many[i] = telegraph.Field{Name: fmt.Sprintf("c%d", i), Value: "1"}
	}
	blocks := renderBlocks([]telegraph.FormattedEvent{
		{Title: strings.Repeat("a", 200)},
		{Title: "digest", Fields: many},
	})
	// header, divider, header, fields
	if len(blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(blocks))
	}
	if _, ok := blocks[1].(*slackapi.DividerBlock); !ok {
		t.Errorf("block 1 = %T, want divider", blocks[1])
	}
	if got := len([]rune(blocks[0].(*slackapi.HeaderBlock).Text.Text)); got != maxHeaderLen {
		t.Errorf("header runes = %d, want %d", got, maxHeaderLen)
	}
	if got := len(blocks[3].(*slackapi.SectionBlock).Fields); got != maxSectionFields {
		t.Errorf("fields = %d, want %d", got, maxSectionFields)
	}
}

func TestMessageOptions_FallbackText(t *testing.T) {
	if got := len(messageOptions(telegraph.OutboundMessage{Text: "hi"})); got != 1 {
		t.Errorf("text only: %d options, want 1", got)
	}
	withEvent := telegraph.OutboundMessage{Events: []telegraph.FormattedEvent{{Title: "Breathe"}}}
	if got := len(messageOptions(withEvent)); got != 2 {
		t.Errorf("with event: %d options, want 2", got)
	}
}

func TestSeverityEmoji(t *testing.T) {
	tests := []struct {
		severity, want string
	}{
		{"error", ":rotating_light: "},
		{"warning", ":warning: "},
		{"info", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := severityEmoji(tt.severity); got != tt.want {
			t.Errorf("severityEmoji(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
