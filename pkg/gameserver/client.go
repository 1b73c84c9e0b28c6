package gameserver

import (
	"fmt"

	"github.com/cfoust/courtroom/pkg/evidence"
	"github.com/cfoust/courtroom/pkg/protocol"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Connection is the transport side of a client. Send must never block the
// event loop.
type Connection interface {
	// SessionID is unique for the lifetime of the process.
	SessionID() string
	// Host is the remote address used for bans and logs.
	Host() string
	Send(data []byte)
	Close()
}

// Features the client can render, derived from its version.
type Features struct {
	// BN may carry a position field
	BackgroundPos bool
	// BN may carry an overlay field
	Overlay bool
}

// Describes a client.
type Client struct {
	ID int

	// Authed is set once HI has been accepted.
	Authed bool
	// set while the ban check for HI is in flight
	helloPending bool
	// Joined is set once the client has finished loading and entered an area.
	Joined   bool
	HDID     string
	Software string
	Version  string
	Features Features

	Area     *Area
	CharID   int
	Name     string
	Showname string
	Pos      string
	IsMod    bool
	AFK      bool
	Blinded  bool
	// nil means everything is heard
	ListenPos []string
	// authoritative 0-based evidence index the client is hiding in, -1 if none
	HiddenIn  int
	Inventory evidence.Inventory
	// the evidence list exactly as this client was last sent it
	Evidence evidence.View

	LastEmote string
	// character id this client asked to pair with, -1 for none
	pairWith int

	ic    *rate.Limiter
	ooc   *rate.Limiter
	music *rate.Limiter

	liveness   clockwork.Timer
	generation uint64

	conn   Connection
	server *Server
	Logger zerolog.Logger
}

func NewClient(id int, conn Connection, limit rate.Limit, burst int) *Client {
	return &Client{
		ID:       id,
		CharID:   -1,
		HiddenIn: -1,
		pairWith: -1,
		Evidence: evidence.View{Remap: []int{0}},
		ic:       rate.NewLimiter(limit, burst),
		ooc:      rate.NewLimiter(limit, burst),
		music:    rate.NewLimiter(limit, burst),
		conn:     conn,
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%s (%d)", c.DisplayName(), c.ID)
}

// Alive reports whether the client is still connected.
func (c *Client) Alive() bool {
	return c.server != nil && c.server.Clients.Get(c.ID) == c
}

func (c *Client) CharName() string {
	if c.server == nil {
		return ""
	}
	return c.server.CharName(c.CharID)
}

// DisplayName prefers the showname over the character name.
func (c *Client) DisplayName() string {
	if c.Showname != "" {
		return c.Showname
	}
	if name := c.CharName(); name != "" {
		return name
	}
	return "Spectator"
}

func (c *Client) Send(command string, fields ...interface{}) {
	if c.conn == nil {
		return
	}
	c.conn.Send(protocol.Encode(command, fields...))
}

// Message sends a private server OOC message.
func (c *Client) Message(text string) {
	name := "Server"
	if c.server != nil && c.server.Config.Name != "" {
		name = c.server.Config.Name
	}
	c.Send("CT", name, text, 1)
}

func (c *Client) Messagef(format string, args ...interface{}) {
	c.Message(fmt.Sprintf(format, args...))
}

// Hears reports whether a message sent from pos reaches the client.
func (c *Client) Hears(pos string) bool {
	if c.ListenPos == nil {
		return true
	}
	for _, p := range c.ListenPos {
		if p == pos {
			return true
		}
	}
	return false
}

func (c *Client) access() evidence.Access {
	access := evidence.Access{Pos: c.Pos, Mod: c.IsMod}
	if c.Area != nil {
		access.Owner = c.Area.IsStaff(c)
		access.Dark = c.Area.Dark
	}
	return access
}
