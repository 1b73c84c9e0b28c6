// Package timer implements the cancellable, resumable countdowns owned by
// areas and hubs. A Timer is only touched from the event loop; the clock's
// callback goroutine never mutates it directly and instead posts back onto
// the loop.
package timer

import (
	"time"

	"github.com/cfoust/courtroom/pkg/failure"

	"github.com/jonboulle/clockwork"
)

// Owner is the area or hub a timer belongs to.
type Owner interface {
	Alive() bool
}

// Command is a line queued to run when the timer expires, on behalf of the
// client that queued it.
type Command struct {
	Client int
	Line   string
}

// Poster schedules a function on the event loop.
type Poster func(func())

// ExpireFunc receives the timer and the commands that were queued on it.
type ExpireFunc func(t *Timer, queued []Command)

var ErrUnset = failure.Domain("That timer is not set.")

type Timer struct {
	ID int

	clock    clockwork.Clock
	post     Poster
	owner    Owner
	onExpire ExpireFunc

	set     bool
	started bool
	// authoritative while paused
	remaining time.Duration
	// authoritative while started
	deadline time.Time

	pending    clockwork.Timer
	generation uint64
	commands   []Command
}

func New(id int, clock clockwork.Clock, owner Owner, post Poster, onExpire ExpireFunc) *Timer {
	return &Timer{
		ID:       id,
		clock:    clock,
		post:     post,
		owner:    owner,
		onExpire: onExpire,
	}
}

func (t *Timer) IsSet() bool {
	return t.set
}

func (t *Timer) Started() bool {
	return t.set && t.started
}

// TimeLeft is the remaining duration, whichever representation is current.
func (t *Timer) TimeLeft() time.Duration {
	if t == nil || !t.set {
		return 0
	}
	if !t.started {
		return t.remaining
	}
	left := t.deadline.Sub(t.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Set gives the timer a new duration. A started timer keeps counting from
// the new value; an unset or paused timer becomes set and paused.
func (t *Timer) Set(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.set = true
	t.remaining = d
	if t.started {
		t.arm()
	}
}

// Start begins counting down the remaining duration.
func (t *Timer) Start() error {
	if !t.set {
		return ErrUnset
	}
	if t.started {
		return nil
	}
	t.started = true
	t.arm()
	return nil
}

// Pause stops the countdown and keeps what was left. It reports false when
// the timer was not running.
func (t *Timer) Pause() bool {
	if !t.Started() {
		return false
	}
	t.remaining = t.TimeLeft()
	t.started = false
	t.cancel()
	return true
}

// Unset cancels the timer and forgets its queued commands.
func (t *Timer) Unset() {
	t.cancel()
	t.set = false
	t.started = false
	t.remaining = 0
	t.deadline = time.Time{}
	t.commands = nil
}

func (t *Timer) Queue(command Command) {
	t.commands = append(t.commands, command)
}

func (t *Timer) Commands() []Command {
	return t.commands
}

func (t *Timer) ClearCommands() {
	t.commands = nil
}

func (t *Timer) arm() {
	t.cancel()
	t.deadline = t.clock.Now().Add(t.remaining)

	generation := t.generation
	t.pending = t.clock.AfterFunc(t.remaining, func() {
		t.post(func() {
			t.fire(generation)
		})
	})
}

func (t *Timer) cancel() {
	t.generation++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) fire(generation uint64) {
	if generation != t.generation || !t.Started() {
		return
	}
	if t.owner != nil && !t.owner.Alive() {
		t.Unset()
		return
	}

	queued := t.commands
	t.pending = nil
	t.set = false
	t.started = false
	t.remaining = 0
	t.commands = nil

	if t.onExpire != nil {
		t.onExpire(t, queued)
	}
}

// Drain runs queued commands in order. The first error stops the run and the
// rest of the queue is discarded; timers never partially retry.
func Drain(queued []Command, exec func(Command) error) (ran int, err error) {
	for _, command := range queued {
		if err := exec(command); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}
