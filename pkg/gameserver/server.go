package gameserver

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/cfoust/courtroom/pkg/chanlock"
	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/metrics"
	"github.com/cfoust/courtroom/pkg/utils"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	Software = "courtroom"
)

var Version = "0.1.0"

// BanChecker looks up bans on handshake.
type BanChecker interface {
	Check(ctx context.Context, hdid, host string) (reason string, banned bool, err error)
}

// BanWriter is implemented by ban lists that can record new bans.
type BanWriter interface {
	Ban(ctx context.Context, hdid, host, reason, issuer string, duration time.Duration) error
}

type AreaStatus struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
	Status  string `json:"status"`
	CM      string `json:"cm"`
	Lock    string `json:"lock"`
}

// HubStatus is published every time a hub's ARUP changes.
type HubStatus struct {
	Hub     int          `json:"hub"`
	Name    string       `json:"name"`
	Players int          `json:"players"`
	Areas   []AreaStatus `json:"areas"`
}

// Server owns the whole area graph. Every method that touches it runs on the
// goroutine inside Poll; other goroutines only Post closures.
type Server struct {
	utils.Session
	*Config

	clock  clockwork.Clock
	rng    *rand.Rand
	events chan func()
	health *chanlock.Chanlock

	Clients  *ClientManager
	Hubs     []*Hub
	Commands *ServerCommands
	Bans     BanChecker
	Status   *utils.Topic[HubStatus]

	sessions map[string]*Client
}

func New(ctx context.Context, conf *Config, clock clockwork.Clock) (*Server, error) {
	if len(conf.Hubs) == 0 {
		return nil, errors.New("at least one hub is required")
	}

	s := &Server{
		Session:  utils.NewSession(ctx, clock),
		Config:   conf,
		clock:    clock,
		rng:      rand.New(rand.NewSource(clock.Now().UnixNano())),
		events:   make(chan func(), 256),
		Clients:  &ClientManager{},
		Status:   utils.NewTopic[HubStatus](),
		sessions: make(map[string]*Client),
	}

	s.health = chanlock.New(log.With().Str("component", "loop").Logger(), clock)
	s.health.OnStall = func(string) {
		metrics.LoopStalls.Inc()
	}

	for i, hubConf := range conf.Hubs {
		hub, err := newHub(s, i, hubConf)
		if err != nil {
			return nil, errors.Wrapf(err, "hub %d", i)
		}
		s.Hubs = append(s.Hubs, hub)
	}

	s.Commands = NewCommands(s, DefaultCommands()...)

	return s, nil
}

// Poll runs the event loop until the session is cancelled.
func (s *Server) Poll() {
	health := s.health.Poll(s.Ctx())

	for {
		select {
		case <-s.Ctx().Done():
			return
		case <-health:
			continue
		case event := <-s.events:
			event()
		}
	}
}

// Post schedules f on the event loop.
func (s *Server) Post(f func()) {
	select {
	case s.events <- f:
	case <-s.Ctx().Done():
	}
}

func (s *Server) Clock() clockwork.Clock {
	return s.clock
}

// Accept registers a new connection.
func (s *Server) Accept(conn Connection) {
	s.Post(func() {
		s.connect(conn)
	})
}

// Receive hands complete frames from one connection to the loop. Frames
// from one connection are processed in order.
func (s *Server) Receive(conn Connection, frames []string) {
	s.Post(func() {
		c, ok := s.sessions[conn.SessionID()]
		if !ok {
			return
		}
		for _, frame := range frames {
			if !c.Alive() {
				return
			}
			s.HandleFrame(c, frame)
		}
	})
}

// Drop tells the loop the transport went away.
func (s *Server) Drop(conn Connection, reason string) {
	s.Post(func() {
		if c, ok := s.sessions[conn.SessionID()]; ok {
			s.Disconnect(c, reason)
		}
	})
}

func (s *Server) connect(conn Connection) *Client {
	limit := rate.Limit(s.MessageRate)
	if s.MessageRate <= 0 {
		limit = rate.Inf
	}
	burst := s.MessageBurst
	if burst <= 0 {
		burst = 1
	}

	c := NewClient(0, conn, limit, burst)
	c.server = s
	s.Clients.Add(c)
	s.sessions[conn.SessionID()] = c
	c.Logger = log.With().
		Str("session", conn.SessionID()).
		Int("client", c.ID).
		Str("host", conn.Host()).
		Logger()

	c.Logger.Info().Msg("client connected")
	c.Send("decryptor", 34)
	s.armLiveness(c)
	return c
}

// Disconnect removes the client from the world and closes its connection.
func (s *Server) Disconnect(c *Client, reason string) {
	if !c.Alive() {
		return
	}

	if c.Area != nil {
		area := c.Area
		area.removeClient(c)
		area.hub.SendARUP(ARUPPlayers, ARUPLock)
		area.sendCharsCheck()
	}
	for _, hub := range s.Hubs {
		hub.forget(c)
	}

	if c.liveness != nil {
		c.liveness.Stop()
	}
	c.generation++

	s.Clients.Remove(c)
	delete(s.sessions, c.conn.SessionID())
	c.conn.Close()

	metrics.DisconnectsTotal.WithLabelValues(reason).Inc()
	c.Logger.Info().Str("reason", reason).Msg("client disconnected")
}

func (s *Server) armLiveness(c *Client) {
	if c.liveness != nil {
		c.liveness.Stop()
	}
	c.generation++
	generation := c.generation
	c.liveness = s.clock.AfterFunc(s.TimeoutDuration(), func() {
		s.Post(func() {
			if c.generation != generation || !c.Alive() {
				return
			}
			s.Disconnect(c, "timeout")
		})
	})
}

func (s *Server) CharName(id int) string {
	if id < 0 || id >= len(s.Characters) {
		return ""
	}
	return s.Characters[id]
}

func (s *Server) Hub(id int) *Hub {
	if id < 0 || id >= len(s.Hubs) {
		return nil
	}
	return s.Hubs[id]
}

func (s *Server) DefaultHub() *Hub {
	return s.Hubs[0]
}

// FindHub matches by index or case-insensitive name.
func (s *Server) FindHub(query string) *Hub {
	if id, err := strconv.Atoi(query); err == nil {
		return s.Hub(id)
	}
	for _, hub := range s.Hubs {
		if strings.EqualFold(hub.Name, query) {
			return hub
		}
	}
	return nil
}

const internalMessage = "An internal error occurred. Please report this to the server operator."

// Report is the single place errors become user visible. Domain errors go to
// the client verbatim, internal errors are logged and answered generically,
// and protocol errors are only logged.
func (s *Server) Report(c *Client, err error) {
	if err == nil {
		return
	}

	kind := failure.KindOf(err)
	metrics.ErrorsTotal.WithLabelValues(kind.String()).Inc()

	switch kind {
	case failure.KindDomain:
		c.Message(failure.Message(err))
	case failure.KindProtocol:
		c.Logger.Debug().Err(err).Msg("dropped invalid input")
	default:
		c.Logger.Error().Stack().Err(err).Msg("internal error")
		c.Message(internalMessage)
	}
}

// Shutdown disconnects everyone and stops the loop.
func (s *Server) Shutdown() {
	s.Clients.ForEach(func(c *Client) {
		s.Disconnect(c, "shutdown")
	})
	s.Cancel()
}

func (s *Server) after(d time.Duration, f func()) clockwork.Timer {
	return s.clock.AfterFunc(d, func() {
		s.Post(f)
	})
}
