package telegraph

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeAdapter records every message it is asked to send.
type fakeAdapter struct {
	mu      sync.Mutex
	up      bool
	failure error
	msgs    []OutboundMessage
}

func (f *fakeAdapter) Connect(context.Context) error {
	f.mu.Lock()
	f.up = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) Send(_ context.Context, msg OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case !f.up:
		return errors.New("fake: not connected")
	case f.failure != nil:
		return f.failure
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	f.up = false
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) fail(err error) {
	f.mu.Lock()
	f.failure = err
	f.mu.Unlock()
}

func (f *fakeAdapter) messages() []OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OutboundMessage(nil), f.msgs...)
}

func connectedFake(t *testing.T) *fakeAdapter {
	t.Helper()
	f := &fakeAdapter{}
	if err := f.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return f
}
