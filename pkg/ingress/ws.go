package ingress

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/cfoust/courtroom/pkg/metrics"
	"github.com/cfoust/courtroom/pkg/protocol"

	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"nhooyr.io/websocket"
)

// WSIngress serves browser clients, which carry the same frames inside
// websocket text messages.
type WSIngress struct {
	sink        Sink
	bufferLimit int

	clients    map[*Connection]struct{}
	mutex      deadlock.Mutex
	httpServer *http.Server
}

func NewWSIngress(sink Sink, bufferLimit int) *WSIngress {
	return &WSIngress{
		sink:        sink,
		bufferLimit: bufferLimit,
		clients:     make(map[*Connection]struct{}),
	}
}

func (server *WSIngress) AddClient(c *Connection) {
	server.mutex.Lock()
	server.clients[c] = struct{}{}
	server.mutex.Unlock()
}

func (server *WSIngress) RemoveClient(c *Connection) {
	server.mutex.Lock()
	delete(server.clients, c)
	server.mutex.Unlock()
}

func (server *WSIngress) HandleClient(ctx context.Context, c *websocket.Conn, host string, agent string) error {
	c.SetReadLimit(int64(server.bufferLimit))

	client := NewConnection(TransportWS, host, func() {
		// Close waits for the peer's close frame, so it can't run inline.
		go c.Close(websocket.StatusNormalClosure, "")
	})
	server.AddClient(client)
	defer server.RemoveClient(client)

	opened(TransportWS)
	defer closed(TransportWS)

	ua := useragent.Parse(agent)
	client.Logger = client.Logger.With().
		Str("browser", ua.Name).
		Str("os", ua.OS).
		Bool("mobile", ua.Mobile).
		Logger()
	client.Logger.Info().Msg("client connected")

	server.sink.Accept(client)

	go client.Poll(ctx, func(ctx context.Context, data []byte) error {
		return c.Write(ctx, websocket.MessageText, data)
	})

	reason, err := server.read(ctx, client, c)
	client.Close()
	server.sink.Drop(client, reason)
	client.Logger.Info().Str("reason", reason).Msg("client left")
	return err
}

func (server *WSIngress) read(ctx context.Context, client *Connection, c *websocket.Conn) (string, error) {
	decoder := protocol.NewDecoder(server.bufferLimit)
	for {
		_, message, err := c.Read(ctx)
		if err != nil {
			if client.Closed() {
				return "closed", nil
			}
			return "hangup", err
		}

		frames, err := decoder.Feed(message)
		if err != nil {
			metrics.FramesDropped.WithLabelValues("overflow").Inc()
			client.Logger.Warn().Err(err).Msg("receive buffer overflow")
			c.Close(websocket.StatusPolicyViolation, "receive buffer exceeded")
			return "overflow", nil
		}
		if len(frames) > 0 {
			server.sink.Receive(client, frames)
		}
	}
}

func (server *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})

	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault during relay")

	// Proxies put the real address here
	hostname, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		hostname = r.RemoteAddr
	}
	if original, ok := r.Header["X-Forwarded-For"]; ok {
		hostname = original[0]
	}

	err = server.HandleClient(r.Context(), c, hostname, r.UserAgent())
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Debug().Err(err).Msg("websocket client closed abnormally")
	}
}

func (server *WSIngress) Serve(ctx context.Context, port int) error {
	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Error().Err(err).Msg("failed to bind WebSocket port")
		return err
	}

	log.Info().Msgf("listening on ws://%v", listen.Addr())

	server.httpServer = &http.Server{
		Handler: server,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	err = server.httpServer.Serve(listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (server *WSIngress) Shutdown(ctx context.Context) {
	if server.httpServer != nil {
		server.httpServer.Shutdown(ctx)
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
