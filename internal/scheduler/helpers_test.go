package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/telemetry"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memSnapshots struct {
	mu    sync.Mutex
	snaps map[string]nudge.Snapshot
	err   error
}

func (m *memSnapshots) Snapshot(_ context.Context, userID string) (nudge.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nudge.Snapshot{}, m.err
	}
	s, ok := m.snaps[userID]
	if !ok {
		return nudge.Snapshot{}, errors.New("no snapshot")
	}
	return s, nil
}

func (m *memSnapshots) put(s nudge.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[s.UserID] = s
}

type memConfigs struct {
	mu   sync.Mutex
	cfgs map[string]nudge.UserConfig
}

func (m *memConfigs) LoadConfig(_ context.Context, userID string) (nudge.UserConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cfgs[userID]
	return c, ok, nil
}

func (m *memConfigs) SaveConfig(_ context.Context, cfg nudge.UserConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfgs[cfg.UserID] = cfg
	return nil
}

type memHistory struct {
	mu  sync.Mutex
	ivs map[string]nudge.Intervention
}

func (m *memHistory) Recent(_ context.Context, userID string, since time.Time) ([]nudge.Intervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []nudge.Intervention
	for _, iv := range m.ivs {
		if iv.UserID == userID && iv.DeliveredAt != nil && iv.DeliveredAt.After(since) {
			out = append(out, *iv.Clone())
		}
	}
	return out, nil
}

func (m *memHistory) SaveIntervention(_ context.Context, iv *nudge.Intervention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ivs[iv.ID] = *iv.Clone()
	return nil
}

func (m *memHistory) MarkViewed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.ivs[id]
	if !ok || iv.ViewedAt != nil {
		return nil
	}
	iv.ViewedAt = &at
	m.ivs[id] = iv
	return nil
}

func (m *memHistory) get(id string) (nudge.Intervention, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.ivs[id]
	return iv, ok
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (n *recordingNotifier) Deliver(_ context.Context, iv *nudge.Intervention) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, iv.ID)
	return n.err
}

func (n *recordingNotifier) delivered() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

type harness struct {
	svc      *Service
	clock    *fakeClock
	snaps    *memSnapshots
	configs  *memConfigs
	history  *memHistory
	notifier *recordingNotifier
	events   *telemetry.Recorder
}

func newHarness(t *testing.T, mutate ...func(*Opts)) *harness {
	t.Helper()
	h := &harness{
		clock:    &fakeClock{now: base},
		snaps:    &memSnapshots{snaps: map[string]nudge.Snapshot{}},
		configs:  &memConfigs{cfgs: map[string]nudge.UserConfig{}},
		history:  &memHistory{ivs: map[string]nudge.Intervention{}},
		notifier: &recordingNotifier{},
		events:   &telemetry.Recorder{},
	}
	n := 0
	opts := Opts{
		Snapshots: h.snaps,
		Configs:   h.configs,
		History:   h.history,
		Notifier:  h.notifier,
		Telemetry: h.events,
		Now:       h.clock.Now,
		NewID: func() string {
			n++
			return fmt.Sprintf("iv-%d", n)
		},
	}
	for _, m := range mutate {
		m(&opts)
	}
	svc, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.svc = svc
	return h
}

// calm is a snapshot that triggers no rule at daytime.
func calm(userID string) nudge.Snapshot {
	return nudge.Snapshot{
		UserID:           userID,
		RiskLevel:        nudge.RiskLow,
		StressLevel:      nudge.StressLow,
		EnergyLevel:      50,
		SocialEngagement: 60,
		Locale:           "en",
		TakenAt:          base,
	}
}

func stressed(userID string) nudge.Snapshot {
	s := calm(userID)
	s.StressLevel = nudge.StressHigh
	return s
}

func atRisk(userID string) nudge.Snapshot {
	s := calm(userID)
	s.RiskLevel = nudge.RiskHigh
	return s
}

func queued(id string, u nudge.Urgency, offset time.Duration) *nudge.Intervention {
	return &nudge.Intervention{
		ID:           id,
		UserID:       "u1",
		Category:     nudge.CategoryMindfulness,
		Urgency:      u,
		Channel:      nudge.ChannelPush,
		ScheduledFor: base.Add(offset),
		ExpiresAt:    base.Add(offset + time.Hour),
		CreatedAt:    base.Add(-time.Hour),
	}
}

func deliveredAgo(id string, ago time.Duration) nudge.Intervention {
	at := base.Add(-ago)
	return nudge.Intervention{
		ID:          id,
		UserID:      "u1",
		Category:    nudge.CategoryEnergyBoost,
		Delivered:   true,
		DeliveredAt: &at,
	}
}
