package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// ChannelRouter sends each intervention to the notifier registered for its
// channel, or to the fallback.
type ChannelRouter struct {
	routes   map[nudge.Channel]Notifier
	fallback Notifier
}

// NewChannelRouter returns a router whose unrouted channels go to fallback.
func NewChannelRouter(fallback Notifier) *ChannelRouter {
	return &ChannelRouter{routes: make(map[nudge.Channel]Notifier), fallback: fallback}
}

// Route registers n for ch. A nil n removes the route.
func (r *ChannelRouter) Route(ch nudge.Channel, n Notifier) *ChannelRouter {
	if n == nil {
		delete(r.routes, ch)
		return r
	}
	r.routes[ch] = n
	return r
}

func (r *ChannelRouter) Deliver(ctx context.Context, iv *nudge.Intervention) error {
	n, ok := r.routes[iv.Channel]
	if !ok {
		n = r.fallback
	}
	if n == nil {
		return fmt.Errorf("scheduler: no notifier for channel %q", iv.Channel)
	}
	return n.Deliver(ctx, iv)
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Deliver(ctx context.Context, iv *nudge.Intervention) error {
	var errs []error
	for _, n := range f {
		if err := n.Deliver(ctx, iv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
