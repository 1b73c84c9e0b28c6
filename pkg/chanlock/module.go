package chanlock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
)

// Utility for diagnosing a stuck event loop. The loop selects on the channel
// returned by Poll; if it fails to receive a tick within Timeout the last
// mark is logged.
type Chanlock struct {
	log      zerolog.Logger
	clock    clockwork.Clock
	lastMark string
	mutex    deadlock.RWMutex

	Interval time.Duration
	Timeout  time.Duration
	// OnStall is called from the watchdog goroutine.
	OnStall func(mark string)
}

const (
	TIMEOUT_DURATION      = 15 * time.Second
	HEALTH_CHECK_DURATION = 1 * time.Second
)

func New(logger zerolog.Logger, clock clockwork.Clock) *Chanlock {
	return &Chanlock{
		log:      logger,
		clock:    clock,
		Interval: HEALTH_CHECK_DURATION,
		Timeout:  TIMEOUT_DURATION,
	}
}

// Mark records what the loop is about to do.
func (c *Chanlock) Mark(name string) {
	c.mutex.Lock()
	c.lastMark = name
	c.mutex.Unlock()
}

func (c *Chanlock) LastMark() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastMark
}

func (c *Chanlock) Poll(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)
	ticker := c.clock.NewTicker(c.Interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.Chan():
				timeout := c.clock.NewTimer(c.Timeout)
				ok := make(chan struct{}, 1)
				go func() {
					select {
					case <-ctx.Done():
					case <-ok:
					case <-timeout.Chan():
						mark := c.LastMark()
						c.log.Error().Str("mark", mark).Msg("event loop no longer healthy")
						if c.OnStall != nil {
							c.OnStall(mark)
						}
					}
				}()

				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
				timeout.Stop()
				ok <- struct{}{}
				c.Mark("")
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
