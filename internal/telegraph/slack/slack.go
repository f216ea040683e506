// Package slack posts interventions and digests to Slack using Block Kit.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	slackapi "github.com/slack-go/slack"

	"github.com/zulandar/nudgeyard/internal/telegraph"
)

// Block Kit limits.
const (
	maxHeaderLen     = 150
	maxSectionLen    = 3000
	maxSectionFields = 10
)

const maxRetries = 3

// api is the subset of *slackapi.Client the adapter calls.
type api interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter posts to Slack's Web API. It is send-only.
type Adapter struct {
	api      api
	token    string
	fallback string

	mu    sync.Mutex
	botID string
	state state
}

type state int

const (
	stateNew state = iota
	stateReady
	stateClosed
)

// AdapterOpts configures an Adapter. Client replaces the real API in tests.
type AdapterOpts struct {
	BotToken  string
	ChannelID string // used when a message names no channel
	Client    api
}

// New returns an unconnected Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	return &Adapter{api: opts.Client, token: opts.BotToken, fallback: opts.ChannelID}, nil
}

// Connect checks the token with auth.test and records the bot identity.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateClosed:
		return fmt.Errorf("slack: adapter already closed")
	case stateReady:
		return nil
	}
	if a.api == nil {
		a.api = slackapi.New(a.token)
	}
	auth, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botID = auth.UserID
	a.state = stateReady
	return nil
}

// Send posts msg. Events render as Block Kit sections; Text becomes the
// notification fallback.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	ready := a.state == stateReady
	a.mu.Unlock()
	if !ready {
		return fmt.Errorf("slack: not connected")
	}

	channel := msg.ChannelID
	if channel == "" {
		channel = a.fallback
	}
	if channel == "" {
		return fmt.Errorf("slack: no channel specified")
	}

	opts := messageOptions(msg)
	err := withRateLimitRetry(ctx, func() error {
		_, _, err := a.api.PostMessageContext(ctx, channel, opts...)
		return err
	})
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", channel, err)
	}
	return nil
}

// Close stops further sends. It is safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.state = stateClosed
	a.mu.Unlock()
	return nil
}

// BotUserID is the bot's user id, known after Connect.
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botID
}

func messageOptions(msg telegraph.OutboundMessage) []slackapi.MsgOption {
	text := msg.Text
	if text == "" && len(msg.Events) > 0 {
		text = msg.Events[0].Title
	}
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if blocks := renderBlocks(msg.Events); len(blocks) > 0 {
		opts = append(opts, slackapi.MsgOptionBlocks(blocks...))
	}
	return opts
}

// renderBlocks lays out each event as a header, a body section and a fields
// section, with dividers between events.
func renderBlocks(events []telegraph.FormattedEvent) []slackapi.Block {
	var blocks []slackapi.Block
	for _, evt := range events {
		if len(blocks) > 0 {
			blocks = append(blocks, slackapi.NewDividerBlock())
		}
		if evt.Title != "" {
			title := severityEmoji(evt.Severity) + evt.Title
			blocks = append(blocks, slackapi.NewHeaderBlock(
				slackapi.NewTextBlockObject(slackapi.PlainTextType, truncate(title, maxHeaderLen), true, false)))
		}
		if evt.Body != "" {
			blocks = append(blocks, slackapi.NewSectionBlock(
				slackapi.NewTextBlockObject(slackapi.MarkdownType, truncate(mrkdwn(evt.Body), maxSectionLen), false, false),
				nil, nil))
		}
		if len(evt.Fields) > 0 {
			n := min(len(evt.Fields), maxSectionFields)
			fields := make([]*slackapi.TextBlockObject, 0, n)
			for _, f := range evt.Fields[:n] {
				fields = append(fields, slackapi.NewTextBlockObject(slackapi.MarkdownType,
					fmt.Sprintf("*%s*\n%s", f.Name, f.Value), false, false))
			}
			blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))
		}
	}
	return blocks
}

func severityEmoji(severity string) string {
	switch severity {
	case "error":
		return ":rotating_light: "
	case "warning":
		return ":warning: "
	default:
		return ""
	}
}

// mrkdwn converts double-asterisk bold to Slack's single-asterisk form.
func mrkdwn(s string) string { return strings.ReplaceAll(s, "**", "*") }

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// withRateLimitRetry retries fn on rate-limit errors, waiting the
// Retry-After Slack sends or an exponential fallback.
func withRateLimitRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		var limited *slackapi.RateLimitedError
		if err == nil || !errors.As(err, &limited) || attempt == maxRetries {
			return err
		}
		wait := limited.RetryAfter
		if wait <= 0 {
			wait = time.Second << attempt
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
