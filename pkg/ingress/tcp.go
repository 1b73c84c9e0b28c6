package ingress

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cfoust/courtroom/pkg/metrics"
	"github.com/cfoust/courtroom/pkg/protocol"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

const readBufferSize = 4096

// TCPIngress serves the raw socket protocol desktop clients speak.
type TCPIngress struct {
	sink        Sink
	bufferLimit int

	listener net.Listener
	clients  map[*Connection]struct{}
	mutex    deadlock.Mutex
}

func NewTCPIngress(sink Sink, bufferLimit int) *TCPIngress {
	return &TCPIngress{
		sink:        sink,
		bufferLimit: bufferLimit,
		clients:     make(map[*Connection]struct{}),
	}
}

func (server *TCPIngress) AddClient(c *Connection) {
	server.mutex.Lock()
	server.clients[c] = struct{}{}
	server.mutex.Unlock()
}

func (server *TCPIngress) RemoveClient(c *Connection) {
	server.mutex.Lock()
	delete(server.clients, c)
	server.mutex.Unlock()
}

// Listen binds the port. Serve must be called to start accepting.
func (server *TCPIngress) Listen(port int) error {
	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Error().Err(err).Msg("failed to bind TCP port")
		return err
	}
	server.listener = listen
	log.Info().Msgf("listening on tcp://%v", listen.Addr())
	return nil
}

func (server *TCPIngress) Addr() net.Addr {
	return server.listener.Addr()
}

func (server *TCPIngress) Serve(ctx context.Context) error {
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}
		go server.HandleClient(ctx, conn)
	}
}

func (server *TCPIngress) HandleClient(ctx context.Context, conn net.Conn) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	client := NewConnection(TransportTCP, host, func() {
		conn.Close()
	})
	server.AddClient(client)
	defer server.RemoveClient(client)

	opened(TransportTCP)
	defer closed(TransportTCP)

	client.Logger.Info().Msg("client connected")
	server.sink.Accept(client)

	go client.Poll(ctx, func(ctx context.Context, data []byte) error {
		deadline, _ := ctx.Deadline()
		conn.SetWriteDeadline(deadline)
		_, err := conn.Write(data)
		return err
	})

	reason := server.read(client, conn)
	client.Close()
	server.sink.Drop(client, reason)
	client.Logger.Info().Str("reason", reason).Msg("client left")
}

// read feeds the socket into a decoder until it fails and reports why.
func (server *TCPIngress) read(client *Connection, conn net.Conn) string {
	decoder := protocol.NewDecoder(server.bufferLimit)
	buffer := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			frames, feedErr := decoder.Feed(buffer[:n])
			if feedErr != nil {
				metrics.FramesDropped.WithLabelValues("overflow").Inc()
				client.Logger.Warn().Err(feedErr).Msg("receive buffer overflow")
				return "overflow"
			}
			if len(frames) > 0 {
				server.sink.Receive(client, frames)
			}
		}
		if err != nil {
			if client.Closed() {
				return "closed"
			}
			return "hangup"
		}
	}
}

func (server *TCPIngress) Shutdown() {
	if server.listener != nil {
		server.listener.Close()
	}
	server.mutex.Lock()
	clients := make([]*Connection, 0, len(server.clients))
	for client := range server.clients {
		clients = append(clients, client)
	}
	server.mutex.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
