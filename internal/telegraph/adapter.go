// Package telegraph delivers interventions and care-team digests to chat
// platforms (Slack, Discord).
package telegraph

import "context"

// Adapter is a send-only connection to one chat workspace.
type Adapter interface {
	// Connect verifies credentials. It must be called before Send.
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	Close() error
}

// OutboundMessage is one chat post. An empty ChannelID means the adapter's
// default channel; Text doubles as the notification preview.
type OutboundMessage struct {
	ChannelID string
	Text      string
	Events    []FormattedEvent
}

// FormattedEvent is an intervention or digest laid out as a card. Severity
// is one of info, success, warning or error and Color is its sidebar hex.
type FormattedEvent struct {
	Title    string
	Body     string
	Severity string
	Color    string
	Fields   []Field
}

// Field is a labelled value on a card; Short fields may share a row.
type Field struct {
	Name  string
	Value string
	Short bool
}
