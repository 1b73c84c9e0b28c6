package chanlock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestHealthyLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	lock := New(zerolog.Nop(), clock)
	var stalls atomic.Int32
	lock.OnStall = func(string) { stalls.Add(1) }

	health := lock.Poll(ctx)
	received := 0
	assert.Eventually(t, func() bool {
		clock.Advance(lock.Interval)
		select {
		case <-health:
			received++
		default:
		}
		return received >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), stalls.Load())
}

func TestStalledLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	lock := New(zerolog.Nop(), clock)
	marks := make(chan string, 1)
	lock.OnStall = func(mark string) { marks <- mark }
	lock.Mark("MS")

	lock.Poll(ctx)

	// nobody receives from the health channel
	assert.Eventually(t, func() bool {
		clock.Advance(time.Second)
		select {
		case mark := <-marks:
			return mark == "MS"
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}
