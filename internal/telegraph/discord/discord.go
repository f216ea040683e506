// Package discord posts interventions and digests to Discord channels as
// embeds over the REST API. It never opens a gateway connection.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/telegraph"
)

// Embed limits.
const (
	maxTitleLen       = 256
	maxDescriptionLen = 4096
	maxFields         = 25
	maxFieldValueLen  = 1024
)

const (
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second
)

const footerText = "nudgeyard"

// rest is the subset of *discordgo.Session the adapter calls.
type rest interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Adapter posts to Discord. It is send-only.
type Adapter struct {
	rest     rest
	token    string
	fallback string
	log      *logger.Logger
	backoff  func(attempt int) time.Duration

	mu     sync.Mutex
	botID  string
	ready  bool
	closed bool
}

// AdapterOpts configures an Adapter. Session replaces the real client in tests.
type AdapterOpts struct {
	BotToken  string
	ChannelID string // used when a message names no channel
	Log       *logger.Logger
	Session   rest
}

// New returns an unconnected Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	a := &Adapter{
		rest:     opts.Session,
		token:    opts.BotToken,
		fallback: opts.ChannelID,
		log:      opts.Log,
		backoff:  exponential,
	}
	if a.log == nil {
		a.log = logger.Nop()
	}
	return a, nil
}

// Connect checks the token by fetching the bot's own user.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.ready {
		return nil
	}
	if a.rest == nil {
		dg, err := discordgo.New("Bot " + a.token)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		a.rest = dg
	}
	me, err := a.rest.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: verify token: %w", err)
	}
	a.botID = me.ID
	a.ready = true
	return nil
}

// Send posts msg. Events render as embeds; mentions in the content are never
// resolved into pings.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return fmt.Errorf("discord: not connected")
	}

	channel := msg.ChannelID
	if channel == "" {
		channel = a.fallback
	}
	if channel == "" {
		return fmt.Errorf("discord: no channel specified")
	}

	data := messageSend(msg, time.Now())
	err := a.withRateLimitRetry(ctx, func() error {
		_, err := a.rest.ChannelMessageSendComplex(channel, data, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: post to %s: %w", channel, err)
	}
	return nil
}

// Close stops further sends. It is safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.ready = false
	a.mu.Unlock()
	return nil
}

// BotUserID is the bot's user id, known after Connect.
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botID
}

func messageSend(msg telegraph.OutboundMessage, at time.Time) *discordgo.MessageSend {
	data := &discordgo.MessageSend{
		Content:         msg.Text,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	for _, evt := range msg.Events {
		data.Embeds = append(data.Embeds, embed(evt, at))
	}
	return data
}

func embed(evt telegraph.FormattedEvent, at time.Time) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       truncate(evt.Title, maxTitleLen),
		Description: truncate(evt.Body, maxDescriptionLen),
		Color:       parseHexColor(evt.Color),
		Timestamp:   at.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
	for i, f := range evt.Fields {
		if i == maxFields {
			break
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  truncate(f.Value, maxFieldValueLen),
			Inline: f.Short,
		})
	}
	return e
}

// parseHexColor turns "#rrggbb" into an embed color. Bad input gives 0,
// which Discord renders with its default color.
func parseHexColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

func exponential(attempt int) time.Duration {
	return min(baseBackoff<<attempt, maxBackoff)
}

func rateLimited(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusTooManyRequests
}

// withRateLimitRetry retries fn on HTTP 429 with capped exponential backoff.
func (a *Adapter) withRateLimitRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !rateLimited(err) || attempt == maxRetries {
			return err
		}
		wait := a.backoff(attempt)
		a.log.Warn("discord rate limited, retrying", "attempt", attempt+1, "wait", wait.String())

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
