package gameserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cfoust/courtroom/pkg/evidence"
	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/timer"

	"github.com/repeale/fp-go/option"
)

var ErrNotStaff = failure.Domain("Only CMs can do that here.")

// findTarget resolves a client anywhere on the server.
func (s *Server) findTarget(query string) (*Client, error) {
	var all []*Client
	s.Clients.ForEach(func(c *Client) {
		if c.Joined {
			all = append(all, c)
		}
	})
	found := Resolve(all, query)
	if opt.IsNone(found) {
		return nil, failure.Domainf("No client matches %q.", query)
	}
	return found.Value, nil
}

// requireStaffIfOwned lets anyone act in an unowned area but only staff in
// an owned one.
func requireStaffIfOwned(inv *Invocation) error {
	if len(inv.Area.owners) > 0 && !inv.Area.IsStaff(inv.Client) {
		return ErrNotStaff
	}
	return nil
}

func parseSwitch(arg string) (bool, bool) {
	switch strings.ToLower(arg) {
	case "on", "1", "true", "yes":
		return true, true
	case "off", "0", "false", "no":
		return false, true
	}
	return false, false
}

// parseDuration accepts plain seconds or a Go duration like 1m30s.
func parseDuration(arg string) (time.Duration, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(arg)
	if err != nil || d < 0 {
		return 0, failure.Domainf("Invalid duration %q.", arg)
	}
	return d, nil
}

var HelpCommand = &ServerCommand{
	name:        "help",
	argsFormat:  "[command]",
	aliases:     []string{"commands"},
	description: "lists commands or describes one",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			var names []string
			for _, cmd := range s.Commands.Available(inv.Role()) {
				names = append(names, "/"+cmd.name)
			}
			inv.Client.Message("Available commands: " + strings.Join(names, ", "))
			return nil
		}
		cmd, ok := s.Commands.Lookup(strings.TrimPrefix(args[0], "/"))
		if !ok {
			return failure.Domainf("Unknown command %q.", args[0])
		}
		inv.Client.Message(cmd.Detailed())
		return nil
	},
}

var AboutCommand = &ServerCommand{
	name:        "about",
	description: "shows the server version and uptime",
	f: func(s *Server, inv *Invocation, args []string) error {
		inv.Client.Messagef(
			"%s %s, up %s, %d players online.",
			Software,
			Version,
			s.Uptime().Round(time.Second),
			s.Clients.Count(),
		)
		return nil
	},
}

var AreaCommand = &ServerCommand{
	name:        "area",
	argsFormat:  "[id|name] [password]",
	description: "lists the hub's areas or moves you to one",
	f: func(s *Server, inv *Invocation, args []string) error {
		hub := inv.Hub()
		if len(args) == 0 {
			lines := []string{fmt.Sprintf("Areas in %s:", hub.Name)}
			for _, area := range hub.Areas() {
				lines = append(lines, fmt.Sprintf("%s: %d users [%s] %s", area, area.Count(), area.Status, area.lockLabel()))
			}
			inv.Client.Message(strings.Join(lines, "\n"))
			return nil
		}
		target := hub.FindArea(args[0])
		if target == nil {
			return failure.Domain("That area does not exist.")
		}
		password := ""
		if len(args) > 1 {
			password = args[1]
		}
		return s.ChangeArea(inv.Client, target, password, false)
	},
}

var HubCommand = &ServerCommand{
	name:        "hub",
	argsFormat:  "[id|name]",
	description: "lists hubs or moves you to a hub's default area",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			lines := []string{"Hubs:"}
			for _, hub := range s.Hubs {
				lines = append(lines, fmt.Sprintf("[%d] %s: %d users", hub.ID, hub.Name, hub.Snapshot().Players))
			}
			inv.Client.Message(strings.Join(lines, "\n"))
			return nil
		}
		hub := s.FindHub(strings.Join(args, " "))
		if hub == nil {
			return failure.Domain("That hub does not exist.")
		}
		return s.ChangeArea(inv.Client, hub.Default(), "", false)
	},
}

var CMCommand = &ServerCommand{
	name:        "cm",
	argsFormat:  "[target]",
	description: "makes you (or, as a CM, someone else) a CM of this area",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		if len(args) == 0 {
			if len(area.owners) > 0 && inv.Role() < RoleGM && !area.IsOwner(inv.Client) {
				return failure.Domain("This area already has a CM. Ask them to add you.")
			}
			return area.AddOwner(inv.Client)
		}
		if inv.Role() < RoleCM {
			return ErrNotStaff
		}
		target, err := s.findTarget(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return area.AddOwner(target)
	},
}

var UnCMCommand = &ServerCommand{
	name:        "uncm",
	argsFormat:  "[target]",
	description: "removes you (or, as a CM, someone else) as a CM of this area",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return inv.Area.RemoveOwner(inv.Client)
		}
		if inv.Role() < RoleCM {
			return ErrNotStaff
		}
		target, err := s.findTarget(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return inv.Area.RemoveOwner(target)
	},
}

var GMCommand = &ServerCommand{
	name:        "gm",
	argsFormat:  "[target]",
	description: "makes you (or, as a GM, someone else) a GM of this hub",
	f: func(s *Server, inv *Invocation, args []string) error {
		hub := inv.Hub()
		if len(args) == 0 {
			if len(hub.owners) > 0 && inv.Role() < RoleGM {
				return failure.Domain("This hub already has a GM.")
			}
			return hub.AddOwner(inv.Client)
		}
		if inv.Role() < RoleGM {
			return failure.Domain("Only GMs can do that.")
		}
		target, err := s.findTarget(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return hub.AddOwner(target)
	},
}

var UnGMCommand = &ServerCommand{
	name:        "ungm",
	argsFormat:  "",
	description: "stops being a GM of this hub",
	f: func(s *Server, inv *Invocation, args []string) error {
		return inv.Hub().RemoveOwner(inv.Client)
	},
}

var LoginCommand = &ServerCommand{
	name:        "login",
	argsFormat:  "<password>",
	description: "logs in as a moderator",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) != 1 {
			return failure.Domain("Usage: /login <password>")
		}
		if s.ModPassword == "" || args[0] != s.ModPassword {
			inv.Client.Logger.Warn().Msg("failed moderator login")
			return failure.Domain("Invalid password.")
		}
		inv.Client.IsMod = true
		inv.Client.Logger.Info().Msg("moderator login")
		inv.Client.Message("Logged in as a moderator.")
		inv.Area.sendEvidence(inv.Client)
		return nil
	},
}

var LockCommand = &ServerCommand{
	name:        "lock",
	description: "locks the area to the clients currently in it",
	f: func(s *Server, inv *Invocation, args []string) error {
		if err := requireStaffIfOwned(inv); err != nil {
			return err
		}
		return inv.Area.Lock()
	},
}

var UnlockCommand = &ServerCommand{
	name:        "unlock",
	description: "unlocks the area",
	f: func(s *Server, inv *Invocation, args []string) error {
		if err := requireStaffIfOwned(inv); err != nil {
			return err
		}
		return inv.Area.Unlock()
	},
}

var MuteCommand = &ServerCommand{
	name:        "mute",
	aliases:     []string{"spectatable"},
	description: "only staff and invited clients may speak in character",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		return inv.Area.Mute()
	},
}

var UnmuteCommand = &ServerCommand{
	name:        "unmute",
	description: "lets everyone speak in character again",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		return inv.Area.Unmute()
	},
}

var InviteCommand = &ServerCommand{
	name:        "invite",
	argsFormat:  "<target>",
	description: "lets a client into a locked area or speak in a muted one",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return failure.Domain("Usage: /invite <target>")
		}
		target, err := s.findTarget(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if err := inv.Area.Invite(target); err != nil {
			return err
		}
		inv.Client.Messagef("%s was invited.", target)
		return nil
	},
}

var UninviteCommand = &ServerCommand{
	name:        "uninvite",
	argsFormat:  "<target>",
	description: "takes an invitation back",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return failure.Domain("Usage: /uninvite <target>")
		}
		target, err := s.findTarget(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if err := inv.Area.Uninvite(target); err != nil {
			return err
		}
		inv.Client.Messagef("%s was uninvited.", target)
		return nil
	},
}

var validStatuses = []string{"IDLE", "RP", "CASING", "LOOKING-FOR-PLAYERS", "LFP", "RECESS", "GAMING"}

var StatusCommand = &ServerCommand{
	name:        "status",
	argsFormat:  "<idle|rp|casing|lfp|recess|gaming>",
	description: "sets the status shown in the area list",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		if len(args) == 0 {
			inv.Client.Messagef("Status of %s: %s", area, area.Status)
			return nil
		}
		if !area.Permissions.ChangeStatus && !area.IsStaff(inv.Client) {
			return failure.Domain("You can't change the status of this area.")
		}
		status := strings.ToUpper(args[0])
		if !contains(validStatuses, status) {
			return failure.Domainf("Status must be one of %s.", strings.Join(validStatuses, ", "))
		}
		if status == "LFP" {
			status = "LOOKING-FOR-PLAYERS"
		}
		area.Status = status
		area.Messagef("%s changed the status to %s.", inv.Client, status)
		area.hub.SendARUP(ARUPStatus)
		return nil
	},
}

var EvidenceModeCommand = &ServerCommand{
	name:        "evidence_mod",
	argsFormat:  "[FFA|Mods|CM|HiddenCM]",
	description: "shows or changes who may edit evidence here",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		if len(args) == 0 {
			inv.Client.Messagef("Evidence mode: %s", area.Evidence.Mode)
			return nil
		}
		mode, ok := evidence.ParseMode(args[0])
		if !ok {
			return failure.Domain("Mode must be one of FFA, Mods, CM, HiddenCM.")
		}
		if mode == evidence.ModeMods && !inv.Client.IsMod {
			return failure.Domain("Only moderators can restrict evidence to moderators.")
		}
		area.Evidence.Mode = mode
		area.MessageOwners(fmt.Sprintf("%s changed the evidence mode to %s.", inv.Client, mode))
		area.sendEvidenceAll()
		return nil
	},
}

var TimerCommand = &ServerCommand{
	name:        "timer",
	argsFormat:  "<0-20> [set <duration>|start|pause|unset|cmd <command>|clear]",
	description: "controls a timer; 0 is the hub timer",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return failure.Domain("Usage: /timer <0-20> [set <duration>|start|pause|unset|cmd <command>|clear]")
		}
		id, err := strconv.Atoi(args[0])
		t := inv.Area.Timer(id)
		if err != nil || t == nil {
			return failure.Domainf("Timer id must be between 0 and %d.", AreaTimers)
		}
		if id == 0 && inv.Role() < RoleGM {
			return failure.Domain("Only GMs can control the hub timer.")
		}

		if len(args) == 1 {
			if !t.IsSet() {
				return timer.ErrUnset
			}
			state := "paused"
			if t.Started() {
				state = "running"
			}
			inv.Client.Messagef("Timer %d is %s with %s left.", id, state, t.TimeLeft().Round(time.Second))
			return nil
		}

		switch strings.ToLower(args[1]) {
		case "set":
			if len(args) < 3 {
				return failure.Domain("Usage: /timer <id> set <duration>")
			}
			d, err := parseDuration(args[2])
			if err != nil {
				return err
			}
			t.Set(d)
		case "start":
			if err := t.Start(); err != nil {
				return err
			}
		case "pause":
			if !t.Pause() {
				return failure.Domain("That timer is not running.")
			}
		case "unset":
			t.Unset()
		case "cmd":
			if len(args) < 3 {
				return failure.Domain("Usage: /timer <id> cmd <command>")
			}
			if !t.IsSet() {
				return timer.ErrUnset
			}
			line := strings.Join(args[2:], " ")
			t.Queue(timer.Command{Client: inv.Client.ID, Line: line})
			inv.Client.Messagef("Queued %q on timer %d.", line, id)
			return nil
		case "clear":
			t.ClearCommands()
			inv.Client.Messagef("Cleared the commands of timer %d.", id)
			return nil
		default:
			return failure.Domainf("Unknown timer action %q.", args[1])
		}

		inv.Area.broadcastTimer(t)
		return nil
	},
}

var TestimonyCommand = &ServerCommand{
	name:        "testimony",
	argsFormat:  "[record <title>|stop|next|prev|<n>|remove|clear]",
	aliases:     []string{"tm"},
	description: "records and plays back testimony",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		t := area.Testimony
		if len(args) == 0 {
			if !t.Open() && !t.Recording {
				return ErrNoTestimony
			}
			inv.Client.Message(t.String())
			return nil
		}

		staffOnly := func() error {
			if !area.IsStaff(inv.Client) {
				return ErrNotStaff
			}
			return nil
		}

		switch strings.ToLower(args[0]) {
		case "record":
			if err := staffOnly(); err != nil {
				return err
			}
			return area.StartRecording(strings.Join(args[1:], " "))
		case "stop":
			if err := staffOnly(); err != nil {
				return err
			}
			if !t.Recording {
				return failure.Domain("No testimony is being recorded.")
			}
			area.stopRecording()
			return nil
		case "next", ">":
			return area.NavigateTestimony(t.Next)
		case "prev", "<":
			return area.NavigateTestimony(t.Prev)
		case "remove":
			if err := staffOnly(); err != nil {
				return err
			}
			if err := t.Remove(); err != nil {
				return err
			}
			area.Message("A statement was removed from the testimony.")
			return nil
		case "clear":
			if err := staffOnly(); err != nil {
				return err
			}
			t.Clear()
			area.Message("The testimony was cleared.")
			return nil
		}

		n, err := strconv.Atoi(args[0])
		if err != nil {
			return failure.Domainf("Unknown testimony action %q.", args[0])
		}
		return area.NavigateTestimony(func() (*ICMessage, error) {
			return t.Jump(n - 1)
		})
	},
}

var MinigameCommand = &ServerCommand{
	name:        "minigame",
	argsFormat:  "[cs|pta <target>|end]",
	description: "shows, starts or ends a debate minigame",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		m := area.Minigame
		if len(args) == 0 {
			if !m.Active() {
				return failure.Domain("There is no minigame in this area.")
			}
			inv.Client.Messagef("%s: %s vs %s, %s left.", m.Kind, area.teamNames(Red), area.teamNames(Blue), m.TimeLeft().Round(time.Second))
			return nil
		}

		switch strings.ToLower(args[0]) {
		case "end":
			if !area.IsStaff(inv.Client) {
				return ErrNotStaff
			}
			return area.EndMinigame()
		case "cs", "pta":
			if len(args) < 2 {
				return failure.Domainf("Usage: /minigame %s <target>", args[0])
			}
			found := Resolve(area.Clients(), strings.Join(args[1:], " "))
			if opt.IsNone(found) {
				return failure.Domain("Nobody in this area matches that.")
			}
			kind := CrossSwords
			if strings.EqualFold(args[0], "pta") {
				kind = PanicTalk
			}
			return area.StartMinigame(kind, inv.Client, found.Value)
		}
		return failure.Domainf("Unknown minigame action %q.", args[0])
	},
}

var JukeboxCommand = &ServerCommand{
	name:        "jukebox",
	argsFormat:  "[on|off|skip]",
	description: "shows the jukebox queue or toggles it",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		if len(args) == 0 {
			if !area.Permissions.Jukebox {
				return failure.Domain("The jukebox is off in this area.")
			}
			lines := []string{"Jukebox:"}
			for _, vote := range area.Jukebox.Votes {
				lines = append(lines, fmt.Sprintf("%s (chance %d)", vote.Song.Name, vote.Chance))
			}
			inv.Client.Message(strings.Join(lines, "\n"))
			return nil
		}
		if !area.IsStaff(inv.Client) {
			return ErrNotStaff
		}

		if strings.EqualFold(args[0], "skip") {
			if area.Jukebox.Current == nil {
				return failure.Domain("The jukebox is not playing anything.")
			}
			area.jukeboxNext()
			return nil
		}
		enabled, ok := parseSwitch(args[0])
		if !ok {
			return failure.Domain("Usage: /jukebox [on|off|skip]")
		}
		area.Permissions.Jukebox = enabled
		if !enabled {
			area.Jukebox.Votes = nil
			area.jukeboxStop()
		}
		area.Messagef("%s turned the jukebox %s.", inv.Client, args[0])
		return nil
	},
}

var PlayCommand = &ServerCommand{
	name:        "play",
	argsFormat:  "<song>",
	description: "plays any song, listed or not",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return failure.Domain("Usage: /play <song>")
		}
		inv.Area.PlayMusic(strings.Join(args, " "), inv.Client.CharID, inv.Client.Showname)
		return nil
	},
}

var AreaAddCommand = &ServerCommand{
	name:        "area_add",
	argsFormat:  "[name]",
	description: "creates a new area at the end of the hub",
	minRole:     RoleGM,
	f: func(s *Server, inv *Invocation, args []string) error {
		area, err := inv.Hub().CreateArea(strings.Join(args, " "))
		if err != nil {
			return err
		}
		inv.Client.Messagef("Created %s.", area)
		return nil
	},
}

var AreaRemoveCommand = &ServerCommand{
	name:        "area_remove",
	argsFormat:  "<id>",
	description: "removes an area, moving its clients out first",
	minRole:     RoleGM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) != 1 {
			return failure.Domain("Usage: /area_remove <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return failure.Domain("Area id must be a number.")
		}
		return inv.Hub().RemoveArea(id)
	},
}

var AreaSwapCommand = &ServerCommand{
	name:        "area_swap",
	argsFormat:  "<id> <id> [positional]",
	description: "swaps two areas; links follow the areas unless positional",
	minRole:     RoleGM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) < 2 {
			return failure.Domain("Usage: /area_swap <id> <id> [positional]")
		}
		a, errA := strconv.Atoi(args[0])
		b, errB := strconv.Atoi(args[1])
		if errA != nil || errB != nil {
			return failure.Domain("Area ids must be numbers.")
		}
		rewrite := !(len(args) > 2 && strings.EqualFold(args[2], "positional"))
		return inv.Hub().SwapArea(a, b, rewrite)
	},
}

var LinkCommand = &ServerCommand{
	name:        "link",
	argsFormat:  "<id> [lock|unlock|hide|unhide|password <pw>|evidence <n...>]",
	description: "creates or changes the passage from this area to another",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		if len(args) == 0 {
			return failure.Domain("Usage: /link <id> [lock|unlock|hide|unhide|password <pw>|evidence <n...>]")
		}
		target := area.hub.FindArea(args[0])
		if target == nil || target == area {
			return failure.Domain("That area does not exist.")
		}
		link, ok := area.Links[target.id]
		if !ok {
			link = &Link{}
			area.Links[target.id] = link
		}

		if len(args) > 1 {
			switch strings.ToLower(args[1]) {
			case "lock":
				link.Locked = true
			case "unlock":
				link.Locked = false
			case "hide":
				link.Hidden = true
			case "unhide":
				link.Hidden = false
			case "password":
				link.Password = strings.Join(args[2:], " ")
			case "evidence":
				link.Evidence = nil
				for _, arg := range args[2:] {
					local, err := strconv.Atoi(arg)
					if err != nil {
						return failure.Domainf("Invalid evidence id %q.", arg)
					}
					i, ok := inv.Client.Evidence.Resolve(local)
					if !ok {
						return evidence.ErrNotFound
					}
					link.Evidence = append(link.Evidence, i)
				}
			default:
				return failure.Domainf("Unknown link action %q.", args[1])
			}
		}
		inv.Client.Messagef("Link to %s updated.", target)
		return nil
	},
}

var UnlinkCommand = &ServerCommand{
	name:        "unlink",
	argsFormat:  "<id>",
	description: "removes the passage from this area to another",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) != 1 {
			return failure.Domain("Usage: /unlink <id>")
		}
		target := inv.Area.hub.FindArea(args[0])
		if target == nil {
			return failure.Domain("That area does not exist.")
		}
		if _, ok := inv.Area.Links[target.id]; !ok {
			return failure.Domain("There is no link to that area.")
		}
		delete(inv.Area.Links, target.id)
		inv.Client.Messagef("Link to %s removed.", target)
		return nil
	},
}

var LinksCommand = &ServerCommand{
	name:        "links",
	description: "lists the passages out of this area",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		staff := area.IsStaff(inv.Client)
		lines := []string{fmt.Sprintf("Links from %s:", area)}
		for _, target := range area.hub.Areas() {
			link, ok := area.Links[target.id]
			if !ok || (link.Hidden && !staff) {
				continue
			}
			flags := ""
			if link.Locked {
				flags += " (locked)"
			}
			if link.Hidden {
				flags += " (hidden)"
			}
			lines = append(lines, target.String()+flags)
		}
		inv.Client.Message(strings.Join(lines, "\n"))
		return nil
	},
}

var ListenPosCommand = &ServerCommand{
	name:        "listen_pos",
	argsFormat:  "[pos...|clear]",
	description: "only hear in character messages from the given positions",
	f: func(s *Server, inv *Invocation, args []string) error {
		c := inv.Client
		if len(args) == 0 || strings.EqualFold(args[0], "clear") {
			c.ListenPos = nil
			c.Message("You now hear every position.")
			return nil
		}
		c.ListenPos = append([]string(nil), args...)
		c.Messagef("You now only hear %s.", strings.Join(args, ", "))
		return nil
	},
}

var BlindCommand = &ServerCommand{
	name:        "blind",
	argsFormat:  "<target> [on|off]",
	description: "stops a client from receiving in character messages",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return failure.Domain("Usage: /blind <target> [on|off]")
		}
		target, err := s.findTarget(args[0])
		if err != nil {
			return err
		}
		blinded := !target.Blinded
		if len(args) > 1 {
			value, ok := parseSwitch(args[1])
			if !ok {
				return failure.Domain("Usage: /blind <target> [on|off]")
			}
			blinded = value
		}
		target.Blinded = blinded
		if blinded {
			target.Message("You have been blinded.")
		} else {
			target.Message("You can see again.")
		}
		inv.Client.Messagef("%s blinded: %t", target, blinded)
		return nil
	},
}

var HideCommand = &ServerCommand{
	name:        "hide",
	argsFormat:  "<evidence id>",
	description: "hides you inside a piece of evidence",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) != 1 {
			return failure.Domain("Usage: /hide <evidence id>")
		}
		local, err := strconv.Atoi(args[0])
		if err != nil {
			return evidence.ErrNotFound
		}
		return inv.Area.Hide(inv.Client, local)
	},
}

var UnhideCommand = &ServerCommand{
	name:        "unhide",
	description: "stops hiding",
	f: func(s *Server, inv *Invocation, args []string) error {
		return inv.Area.Unhide(inv.Client)
	},
}

var InventoryCommand = &ServerCommand{
	name:        "inventory",
	aliases:     []string{"inv"},
	description: "lists the evidence you have taken",
	f: func(s *Server, inv *Invocation, args []string) error {
		if inv.Client.Inventory.Len() == 0 {
			inv.Client.Message("Your inventory is empty.")
			return nil
		}
		inv.Client.Message("Inventory:\n" + inv.Client.Inventory.String())
		return nil
	},
}

var TriggerCommand = &ServerCommand{
	name:        "trigger",
	argsFormat:  "<evidence id> <keyword> [command]",
	description: "runs a command when evidence is presented; no command removes it",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) < 2 {
			return failure.Domain("Usage: /trigger <evidence id> <keyword> [command]")
		}
		local, err := strconv.Atoi(args[0])
		if err != nil {
			return evidence.ErrNotFound
		}
		return inv.Area.SetEvidenceTrigger(inv.Client, local, args[1], strings.Join(args[2:], " "))
	},
}

var BackgroundCommand = &ServerCommand{
	name:        "bg",
	argsFormat:  "<background>",
	description: "changes the area's background",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			inv.Client.Messagef("Background: %s", inv.Area.Background)
			return nil
		}
		if err := requireStaffIfOwned(inv); err != nil {
			return err
		}
		background := strings.Join(args, " ")
		inv.Area.SetBackground(background)
		inv.Area.Messagef("%s changed the background to %s.", inv.Client, background)
		return nil
	},
}

var PosCommand = &ServerCommand{
	name:        "pos",
	argsFormat:  "<position>",
	description: "changes your position",
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) != 1 {
			return failure.Domain("Usage: /pos <position>")
		}
		area := inv.Area
		if len(area.PosLock) > 0 && !contains(area.PosLock, args[0]) {
			return failure.Domainf("Positions are locked to %s.", strings.Join(area.PosLock, ", "))
		}
		inv.Client.Pos = args[0]
		area.sendBackground(inv.Client)
		area.sendEvidence(inv.Client)
		inv.Client.Messagef("Position changed to %s.", args[0])
		return nil
	},
}

var DocCommand = &ServerCommand{
	name:        "doc",
	argsFormat:  "[text]",
	description: "shows or sets the area's document",
	f: func(s *Server, inv *Invocation, args []string) error {
		area := inv.Area
		if len(args) == 0 {
			if area.Doc == "" {
				return failure.Domain("This area has no document.")
			}
			inv.Client.Messagef("Document: %s", area.Doc)
			return nil
		}
		if err := requireStaffIfOwned(inv); err != nil {
			return err
		}
		area.Doc = strings.Join(args, " ")
		area.Messagef("%s changed the document.", inv.Client)
		return nil
	},
}

var AFKCommand = &ServerCommand{
	name:        "afk",
	description: "marks you as away until you next speak",
	f: func(s *Server, inv *Invocation, args []string) error {
		inv.Client.AFK = true
		inv.Area.Messagef("%s is now AFK.", inv.Client)
		return nil
	},
}

var ResetCommand = &ServerCommand{
	name:        "reset",
	description: "restores the area's name, background and documents",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		inv.Area.Reset()
		return nil
	},
}

var permissionFields = map[string]func(*Permissions) *bool{
	"lockable": func(p *Permissions) *bool { return &p.Lockable },
	"shouts":   func(p *Permissions) *bool { return &p.Shouts },
	"music":    func(p *Permissions) *bool { return &p.Music },
	"jukebox":  func(p *Permissions) *bool { return &p.Jukebox },
	"status":   func(p *Permissions) *bool { return &p.ChangeStatus },
}

var PermissionCommand = &ServerCommand{
	name:        "permission",
	argsFormat:  "<lockable|shouts|music|jukebox|status> <on|off> [hub]",
	description: "changes an area permission, or with hub every area's",
	minRole:     RoleCM,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) < 2 {
			return failure.Domain("Usage: /permission <lockable|shouts|music|jukebox|status> <on|off> [hub]")
		}
		field, ok := permissionFields[strings.ToLower(args[0])]
		value, ok2 := parseSwitch(args[1])
		if !ok || !ok2 {
			return failure.Domain("Usage: /permission <lockable|shouts|music|jukebox|status> <on|off> [hub]")
		}

		if len(args) > 2 && strings.EqualFold(args[2], "hub") {
			if inv.Role() < RoleGM {
				return failure.Domain("Only GMs can change hub permissions.")
			}
			hub := inv.Hub()
			p := hub.Permissions
			*field(&p) = value
			hub.SetPermissions(p)
			hub.Message(fmt.Sprintf("%s set %s to %s for the hub.", inv.Client, args[0], args[1]))
			return nil
		}

		*field(&inv.Area.Permissions) = value
		inv.Area.Messagef("%s set %s to %s.", inv.Client, args[0], args[1])
		return nil
	},
}

var KickCommand = &ServerCommand{
	name:        "kick",
	argsFormat:  "<target> [reason]",
	description: "disconnects a client",
	minRole:     RoleMod,
	f: func(s *Server, inv *Invocation, args []string) error {
		if len(args) == 0 {
			return failure.Domain("Usage: /kick <target> [reason]")
		}
		target, err := s.findTarget(args[0])
		if err != nil {
			return err
		}
		reason := strings.Join(args[1:], " ")
		target.Send("KK", reason)
		s.Disconnect(target, "kicked")
		inv.Client.Messagef("Kicked %s.", target)
		return nil
	},
}

var BanCommand = &ServerCommand{
	name:        "ban",
	argsFormat:  "<target> <duration|perma> [reason]",
	description: "disconnects a client and keeps their hardware id and address out",
	minRole:     RoleMod,
	f: func(s *Server, inv *Invocation, args []string) error {
		writer, ok := s.Bans.(BanWriter)
		if !ok {
			return failure.Domain("Bans are not enabled on this server.")
		}
		if len(args) < 2 {
			return failure.Domain("Usage: /ban <target> <duration|perma> [reason]")
		}
		target, err := s.findTarget(args[0])
		if err != nil {
			return err
		}
		var duration time.Duration
		if !strings.EqualFold(args[1], "perma") {
			if duration, err = parseDuration(args[1]); err != nil {
				return err
			}
		}
		reason := strings.Join(args[2:], " ")
		if reason == "" {
			reason = "No reason given."
		}

		hdid, host := target.HDID, target.conn.Host()
		issuer := inv.Client
		target.Send("KB", reason)
		s.Disconnect(target, "banned")

		go func() {
			ctx, cancel := context.WithTimeout(s.Ctx(), banCheckTimeout)
			defer cancel()
			err := writer.Ban(ctx, hdid, host, reason, issuer.DisplayName(), duration)
			s.Post(func() {
				if err != nil {
					issuer.Logger.Error().Err(err).Msg("failed to store ban")
				}
				if !issuer.Alive() {
					return
				}
				if err != nil {
					issuer.Message(internalMessage)
					return
				}
				issuer.Messagef("Banned %s.", hdid)
			})
		}()
		return nil
	},
}

func DefaultCommands() []*ServerCommand {
	return []*ServerCommand{
		HelpCommand,
		AboutCommand,
		AreaCommand,
		HubCommand,
		CMCommand,
		UnCMCommand,
		GMCommand,
		UnGMCommand,
		LoginCommand,
		LockCommand,
		UnlockCommand,
		MuteCommand,
		UnmuteCommand,
		InviteCommand,
		UninviteCommand,
		StatusCommand,
		EvidenceModeCommand,
		TimerCommand,
		TestimonyCommand,
		MinigameCommand,
		JukeboxCommand,
		PlayCommand,
		AreaAddCommand,
		AreaRemoveCommand,
		AreaSwapCommand,
		LinkCommand,
		UnlinkCommand,
		LinksCommand,
		ListenPosCommand,
		BlindCommand,
		HideCommand,
		UnhideCommand,
		InventoryCommand,
		TriggerCommand,
		BackgroundCommand,
		PosCommand,
		DocCommand,
		AFKCommand,
		ResetCommand,
		PermissionCommand,
		KickCommand,
		BanCommand,
	}
}
