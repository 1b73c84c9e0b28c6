package gameserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/metrics"
	"github.com/cfoust/courtroom/pkg/timer"
)

// TI commands.
const (
	TimerStart = iota
	TimerPause
	TimerShow
	TimerHide
)

var (
	errQueuerGone = failure.Domain("The client that queued this command left.")
	errAreaGone   = failure.Domain("The area this command ran in was removed.")
)

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// sendTimer sends one timer's state to c.
func sendTimer(c *Client, t *timer.Timer) {
	if !t.IsSet() {
		c.Send("TI", t.ID, TimerHide)
		return
	}
	c.Send("TI", t.ID, TimerShow)
	if t.Started() {
		c.Send("TI", t.ID, TimerStart, millis(t.TimeLeft()))
	} else {
		c.Send("TI", t.ID, TimerPause, millis(t.TimeLeft()))
	}
}

// sendTimers sends the hub timer and every area timer to c.
func (a *Area) sendTimers(c *Client) {
	sendTimer(c, a.hub.Timer)
	for _, t := range a.Timers {
		if t.IsSet() {
			sendTimer(c, t)
		}
	}
}

// Timer returns an area timer by its 1-based slot, or the hub timer for 0.
func (a *Area) Timer(id int) *timer.Timer {
	if id == 0 {
		return a.hub.Timer
	}
	if id < 1 || id > AreaTimers {
		return nil
	}
	return a.Timers[id-1]
}

// broadcastTimer refreshes a timer for whoever can see it.
func (a *Area) broadcastTimer(t *timer.Timer) {
	if t.ID == 0 {
		for _, c := range a.hub.Clients() {
			sendTimer(c, t)
		}
		return
	}
	for _, c := range a.Clients() {
		sendTimer(c, t)
	}
}

func (a *Area) timerExpired(t *timer.Timer, queued []timer.Command) {
	a.server().health.Mark(fmt.Sprintf("timer %d", t.ID))
	metrics.TimersFired.WithLabelValues("area").Inc()
	for _, c := range a.Clients() {
		c.Send("TI", t.ID, TimerPause, 0)
	}
	a.Messagef("Timer %d has expired.", t.ID)
	a.server().runQueued(a, queued)
}

func (h *Hub) timerExpired(t *timer.Timer, queued []timer.Command) {
	h.server.health.Mark("hub timer")
	metrics.TimersFired.WithLabelValues("hub").Inc()
	for _, c := range h.Clients() {
		c.Send("TI", t.ID, TimerPause, 0)
	}
	h.Message("The hub timer has expired.")
	h.server.runQueued(nil, queued)
}

// runQueued executes a timer's queue. Each command runs as the client that
// queued it, inside area (or the client's own area for hub timers). The
// first error is reported and ends the run.
func (s *Server) runQueued(area *Area, queued []timer.Command) {
	var current *Client
	_, err := timer.Drain(queued, func(command timer.Command) error {
		current = s.Clients.Get(command.Client)
		if current == nil {
			return errQueuerGone
		}
		target := area
		if target == nil {
			target = current.Area
		}
		if target == nil {
			return errQueuerGone
		}
		if !target.Alive() {
			return errAreaGone
		}
		return s.Execute(&Invocation{Client: current, Area: target}, command.Line)
	})
	if err == nil {
		return
	}
	if current == nil || errors.Is(err, errAreaGone) {
		logger := s.DefaultHub().Logger()
		logger.Debug().Err(err).Msg("timer queue stopped")
		return
	}
	s.Report(current, err)
}

// runTrigger runs an evidence trigger as c. It does not go through the
// command catch of the packet that caused it, so it reports on its own.
func (s *Server) runTrigger(c *Client, area *Area, line string) {
	if err := s.Execute(&Invocation{Client: c, Area: area}, line); err != nil {
		s.Report(c, err)
	}
}
