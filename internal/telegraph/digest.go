package telegraph

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/nudge"
)

// DefaultDigestSchedule posts the digest every morning at 08:00.
const DefaultDigestSchedule = "0 8 * * *"

// DigestReport summarizes delivered interventions over a period.
type DigestReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Delivered   int
	Completed   int
	Dismissed   int
	Unanswered  int
	Crisis      int
	FollowUps   []FollowUp
	Categories  []CategoryDigest
}

// FollowUp is a crisis intervention that was not completed. Users are
// identified by a hashed reference only.
type FollowUp struct {
	UserRef        string
	InterventionID string
	DeliveredAt    time.Time
	Response       nudge.Response
}

// CategoryDigest holds per-category counts.
type CategoryDigest struct {
	Category  nudge.Category
	Delivered int
	Completed int
}

// BuildDigest aggregates the delivered interventions in history whose
// delivery time falls in [since, until).
func BuildDigest(history []nudge.Intervention, since, until time.Time) DigestReport {
	r := DigestReport{PeriodStart: since, PeriodEnd: until}
	perCat := make(map[nudge.Category]*CategoryDigest)
	for _, iv := range history {
		if !iv.Delivered || iv.DeliveredAt == nil {
			continue
		}
		at := *iv.DeliveredAt
		if at.Before(since) || !at.Before(until) {
			continue
		}
		r.Delivered++
		switch iv.Response {
		case nudge.ResponseCompleted:
			r.Completed++
		case nudge.ResponseDismissed:
			r.Dismissed++
		case nudge.ResponseNone:
			r.Unanswered++
		}
		if iv.Category == nudge.CategoryCrisisSupport {
			r.Crisis++
			if iv.FollowUpRequired || iv.Response == nudge.ResponseNone {
				r.FollowUps = append(r.FollowUps, FollowUp{
					UserRef:        logger.HashID(iv.UserID),
					InterventionID: iv.ID,
					DeliveredAt:    at,
					Response:       iv.Response,
				})
			}
		}
		c, ok := perCat[iv.Category]
		if !ok {
			c = &CategoryDigest{Category: iv.Category}
			perCat[iv.Category] = c
		}
		c.Delivered++
		if iv.Response == nudge.ResponseCompleted {
			c.Completed++
		}
	}

	for _, c := range perCat {
		r.Categories = append(r.Categories, *c)
	}
	slices.SortFunc(r.Categories, func(a, b CategoryDigest) int {
		if a.Delivered != b.Delivered {
			return b.Delivered - a.Delivered
		}
		if a.Category < b.Category {
			return -1
		}
		if a.Category > b.Category {
			return 1
		}
		return 0
	})
	slices.SortFunc(r.FollowUps, func(a, b FollowUp) int { return a.DeliveredAt.Compare(b.DeliveredAt) })
	return r
}

// HistorySource lists interventions delivered at or after since.
type HistorySource func(ctx context.Context, since time.Time) ([]nudge.Intervention, error)

// DigesterOpts configures a Digester.
type DigesterOpts struct {
	Adapter   Adapter
	ChannelID string
	Source    HistorySource
	Schedule  string        // 5-field cron expression; defaults to DefaultDigestSchedule
	Period    time.Duration // defaults to 24h
	Log       *logger.Logger
	Now       func() time.Time
}

// Digester posts a periodic care-team digest of delivered interventions.
type Digester struct {
	adapter  Adapter
	channel  string
	source   HistorySource
	schedule string
	period   time.Duration
	log      *logger.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewDigester validates opts and returns a Digester.
func NewDigester(opts DigesterOpts) (*Digester, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("telegraph: history source is required")
	}
	d := &Digester{
		adapter:  opts.Adapter,
		channel:  opts.ChannelID,
		source:   opts.Source,
		schedule: opts.Schedule,
		period:   opts.Period,
		log:      opts.Log,
		now:      opts.Now,
	}
	if d.schedule == "" {
		d.schedule = DefaultDigestSchedule
	}
	if err := ValidateSchedule(d.schedule); err != nil {
		return nil, fmt.Errorf("telegraph: digest schedule %q: %w", d.schedule, err)
	}
	if d.period <= 0 {
		d.period = 24 * time.Hour
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Post builds the digest for the trailing period and posts it. It reports
// whether a message was sent; quiet periods are suppressed.
func (d *Digester) Post(ctx context.Context) (bool, error) {
	until := d.now()
	since := until.Add(-d.period)
	history, err := d.source(ctx, since)
	if err != nil {
		return false, fmt.Errorf("telegraph: digest history: %w", err)
	}
	report := BuildDigest(history, since, until)
	if report.Delivered == 0 {
		return false, nil
	}
	formatted := FormatDigest(report)
	msg := OutboundMessage{
		ChannelID: d.channel,
		Text:      formatted.Title,
		Events:    []FormattedEvent{formatted},
	}
	if err := d.adapter.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("telegraph: post digest: %w", err)
	}
	return true, nil
}

// Start schedules Post on the configured cron expression. It is a no-op if
// already started.
func (d *Digester) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return nil
	}
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(d.schedule, func() {
		sent, err := d.Post(ctx)
		if err != nil {
			d.log.Warn("digest failed", "error", err)
			return
		}
		if sent {
			d.log.Info("digest posted", "channel", d.channel)
		}
	})
	if err != nil {
		return fmt.Errorf("telegraph: schedule digest: %w", err)
	}
	c.Start()
	d.cron = c
	d.log.Info("digest scheduled", "schedule", d.schedule, "next_in", nextCronDuration(d.schedule).Round(time.Second).String())
	return nil
}

// Stop halts the schedule and waits for a running post to finish.
func (d *Digester) Stop() {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
