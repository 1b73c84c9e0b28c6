package utils

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Session is a cancellable lifetime measured against a clock, so tests can
// drive uptime with a fake one.
type Session struct {
	context   context.Context
	cancel    context.CancelFunc
	clock     clockwork.Clock
	startTime time.Time
}

func NewSession(ctx context.Context, clock clockwork.Clock) Session {
	ctx, cancel := context.WithCancel(ctx)
	return Session{
		context:   ctx,
		cancel:    cancel,
		clock:     clock,
		startTime: clock.Now(),
	}
}

func (s *Session) Started() time.Time {
	return s.startTime
}

func (s *Session) Uptime() time.Duration {
	return s.clock.Since(s.startTime)
}

func (s *Session) Ctx() context.Context {
	return s.context
}

func (s *Session) IsDone() bool {
	return s.context.Err() != nil
}

func (s *Session) Cancel() {
	s.cancel()
}
