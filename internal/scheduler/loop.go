package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/nudgeyard/internal/logger"
)

// DefaultTickInterval is the delivery loop period.
const DefaultTickInterval = 30 * time.Second

// Loop drives Service.Tick on a fixed period. Start and Stop are idempotent;
// stopping leaves queued interventions in place.
type Loop struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewLoop returns a stopped loop. Intervals under a second are rounded up
// to one second.
func NewLoop(svc *Service, interval time.Duration, log *logger.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if interval < time.Second {
		interval = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loop{svc: svc, interval: interval, log: log}
}

// Start schedules the tick. Calling Start on a running loop does nothing.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		return nil
	}

	cl := cronLogger{l.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	schedule := fmt.Sprintf("@every %s", l.interval)
	if _, err := c.AddFunc(schedule, func() { l.svc.Tick(ctx, l.svc.Now()) }); err != nil {
		cancel()
		return fmt.Errorf("scheduler: schedule %q: %w", schedule, err)
	}
	c.Start()
	l.cron, l.cancel = c, cancel
	l.log.Info("delivery loop started", "interval", l.interval.String())
	return nil
}

// Stop halts the tick, cancels a running tick's context and waits for it
// to return. Calling Stop on a stopped loop does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	c, cancel := l.cron, l.cancel
	l.cron, l.cancel = nil, nil
	l.mu.Unlock()
	if c == nil {
		return
	}
	done := c.Stop()
	cancel()
	<-done.Done()
	l.log.Info("delivery loop stopped")
}

// Running reports whether the loop is started.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cron != nil
}

// Run starts the loop and blocks until ctx is done, then stops it.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	l.Stop()
	return nil
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
