package gameserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cfoust/courtroom/pkg/failure"
)

type Role uint8

const (
	RoleNone Role = iota
	// owner of the invocation's area
	RoleCM
	// owner of the invocation's hub
	RoleGM
	RoleMod
)

func (r Role) String() string {
	switch r {
	case RoleCM:
		return "CM"
	case RoleGM:
		return "GM"
	case RoleMod:
		return "moderator"
	default:
		return "player"
	}
}

// Invocation is who runs a command and where. Timer queues run with the
// queuing client transplanted into the timer's area.
type Invocation struct {
	Client *Client
	Area   *Area
}

func (inv *Invocation) Hub() *Hub {
	return inv.Area.hub
}

func (inv *Invocation) Role() Role {
	c := inv.Client
	switch {
	case c.IsMod:
		return RoleMod
	case inv.Area != nil && inv.Area.hub.IsOwner(c):
		return RoleGM
	case inv.Area != nil && inv.Area.IsOwner(c):
		return RoleCM
	default:
		return RoleNone
	}
}

type ServerCommand struct {
	name        string
	argsFormat  string
	aliases     []string
	description string
	minRole     Role
	f           func(s *Server, inv *Invocation, args []string) error
}

func (cmd *ServerCommand) String() string {
	if cmd.argsFormat == "" {
		return "/" + cmd.name
	}
	return fmt.Sprintf("/%s %s", cmd.name, cmd.argsFormat)
}

func (cmd *ServerCommand) Detailed() string {
	aliases := ""
	if len(cmd.aliases) > 0 {
		aliases = fmt.Sprintf(" (alias %s)", strings.Join(cmd.aliases, ", "))
	}
	return fmt.Sprintf("%s%s\n%s", cmd.String(), aliases, cmd.description)
}

func (cmd *ServerCommand) usage() error {
	return failure.Domainf("Usage: %s", cmd.String())
}

type ServerCommands struct {
	s       *Server
	byName  map[string]*ServerCommand
	byAlias map[string]*ServerCommand
}

func NewCommands(s *Server, cmds ...*ServerCommand) *ServerCommands {
	sc := &ServerCommands{
		s:       s,
		byName:  map[string]*ServerCommand{},
		byAlias: map[string]*ServerCommand{},
	}
	for _, cmd := range cmds {
		sc.Register(cmd)
	}
	return sc
}

func (sc *ServerCommands) Register(cmd *ServerCommand) {
	sc.byName[cmd.name] = cmd
	sc.byAlias[cmd.name] = cmd
	for _, alias := range cmd.aliases {
		sc.byAlias[alias] = cmd
	}
}

func (sc *ServerCommands) Unregister(cmd *ServerCommand) {
	for _, alias := range cmd.aliases {
		delete(sc.byAlias, alias)
	}
	delete(sc.byAlias, cmd.name)
	delete(sc.byName, cmd.name)
}

func (sc *ServerCommands) Lookup(name string) (*ServerCommand, bool) {
	cmd, ok := sc.byAlias[strings.ToLower(name)]
	return cmd, ok
}

// Available lists what a role may run, sorted by name.
func (sc *ServerCommands) Available(role Role) []*ServerCommand {
	var cmds []*ServerCommand
	for _, cmd := range sc.byName {
		if role >= cmd.minRole {
			cmds = append(cmds, cmd)
		}
	}
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].name < cmds[j].name
	})
	return cmds
}

// Dispatch runs a command by name or alias. It returns the command's error
// untouched; classifying it is up to the caller.
func (sc *ServerCommands) Dispatch(inv *Invocation, name string, args []string) error {
	cmd, ok := sc.Lookup(name)
	if !ok {
		return failure.Domainf("Unknown command /%s. Use /help to list commands.", name)
	}
	if inv.Role() < cmd.minRole {
		return failure.Domainf("You must be a %s to use /%s.", cmd.minRole, cmd.name)
	}
	return cmd.f(sc.s, inv, args)
}

// Execute parses a `/command args` line and dispatches it. Its error is
// classified by whoever called it, which is HandleFrame for typed commands
// and runQueued or runTrigger for scheduled ones.
func (s *Server) Execute(inv *Invocation, line string) error {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return failure.Domain("Empty command.")
	}
	if inv.Area == nil {
		return failure.Domain("You must be in an area to use commands.")
	}
	inv.Client.Logger.Debug().Str("command", line).Msg("command")
	return s.Commands.Dispatch(inv, parts[0], parts[1:])
}
