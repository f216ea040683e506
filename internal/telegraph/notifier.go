package telegraph

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/nudge"
)

// ErrNoChannel is returned when a user has no mapped channel and no default
// is configured.
var ErrNoChannel = errors.New("telegraph: no channel for user")

// NotifierOpts configures a Notifier.
type NotifierOpts struct {
	DefaultChannel string
	UserChannels   map[string]string // user id -> channel id
	Log            *logger.Logger
}

// Notifier posts delivered interventions to a chat platform. It satisfies
// the scheduler's Notifier interface.
type Notifier struct {
	adapter  Adapter
	fallback string
	channels map[string]string
	log      *logger.Logger
}

// NewNotifier wraps a connected adapter.
func NewNotifier(adapter Adapter, opts NotifierOpts) (*Notifier, error) {
	if adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		adapter:  adapter,
		fallback: opts.DefaultChannel,
		channels: maps.Clone(opts.UserChannels),
		log:      log,
	}, nil
}

// ChannelFor returns the channel userID's interventions are posted to.
func (n *Notifier) ChannelFor(userID string) string {
	if ch, ok := n.channels[userID]; ok && ch != "" {
		return ch
	}
	return n.fallback
}

// Deliver posts iv to the user's channel.
func (n *Notifier) Deliver(ctx context.Context, iv *nudge.Intervention) error {
	channel := n.ChannelFor(iv.UserID)
	if channel == "" {
		return fmt.Errorf("%w %s", ErrNoChannel, logger.HashID(iv.UserID))
	}
	msg := OutboundMessage{
		ChannelID: channel,
		Text:      iv.Title,
		Events:    []FormattedEvent{FormatIntervention(iv)},
	}
	if err := n.adapter.Send(ctx, msg); err != nil {
		return fmt.Errorf("telegraph: deliver %s: %w", iv.ID, err)
	}
	n.log.Debug("intervention posted", "user", iv.UserID, "intervention", iv.ID, "channel", channel)
	return nil
}
