package ingress

import (
	"context"
	"time"

	"github.com/cfoust/courtroom/pkg/gameserver"
	"github.com/cfoust/courtroom/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

const (
	// How many outbound frames may wait for the writer before the client is
	// considered too slow and dropped.
	CLIENT_MESSAGE_LIMIT int = 256

	writeTimeout = 5 * time.Second
)

type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportWS  Transport = "ws"
)

// Sink is what the ingress reports connections to. The game server
// implements it by posting onto its event loop.
type Sink interface {
	Accept(conn gameserver.Connection)
	Receive(conn gameserver.Connection, frames []string)
	Drop(conn gameserver.Connection, reason string)
}

// Connection is the transport-independent half of a client socket. Send is
// called from the event loop and never blocks it.
type Connection struct {
	id        string
	host      string
	transport Transport
	send      chan []byte
	done      chan struct{}
	// closes the underlying socket; called at most once
	closer func()

	mutex  deadlock.Mutex
	closed bool

	Logger zerolog.Logger
}

var _ gameserver.Connection = (*Connection)(nil)

func NewConnection(transport Transport, host string, closer func()) *Connection {
	id := uuid.New().String()
	return &Connection{
		id:        id,
		host:      host,
		transport: transport,
		send:      make(chan []byte, CLIENT_MESSAGE_LIMIT),
		done:      make(chan struct{}),
		closer:    closer,
		Logger: log.With().
			Str("session", id).
			Str("transport", string(transport)).
			Str("host", host).
			Logger(),
	}
}

func (c *Connection) SessionID() string {
	return c.id
}

func (c *Connection) Host() string {
	return c.host
}

// Send queues an encoded frame. A client whose queue is full is too slow to
// keep up and gets closed.
func (c *Connection) Send(data []byte) {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return
	}
	select {
	case c.send <- data:
		c.mutex.Unlock()
	default:
		c.mutex.Unlock()
		c.Logger.Warn().Msg("client too slow to keep up with messages; closing")
		c.Close()
	}
}

func (c *Connection) Close() {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return
	}
	c.closed = true
	c.mutex.Unlock()

	close(c.done)
	if c.closer != nil {
		c.closer()
	}
}

func (c *Connection) Closed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

// Done is closed once the connection is closed from either side.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Poll writes queued frames until the connection closes. Frames still queued
// at that point are discarded.
func (c *Connection) Poll(ctx context.Context, write func(ctx context.Context, data []byte) error) {
	for {
		select {
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := write(writeCtx, data)
			cancel()
			if err != nil {
				c.Logger.Debug().Err(err).Msg("client missed write timeout; disconnecting")
				c.Close()
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			c.Close()
			return
		}
	}
}

// opened and closed keep the connection gauges in step for one transport.
func opened(transport Transport) {
	metrics.ConnectionsTotal.WithLabelValues(string(transport)).Inc()
	metrics.ConnectionsCurrent.WithLabelValues(string(transport)).Inc()
}

func closed(transport Transport) {
	metrics.ConnectionsCurrent.WithLabelValues(string(transport)).Dec()
}
