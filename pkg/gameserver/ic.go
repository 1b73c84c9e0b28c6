package gameserver

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/protocol"

	"github.com/repeale/fp-go/option"
)

const MaxICLength = 256

// Shout buttons.
const (
	ButtonNone      = 0
	ButtonHoldIt    = 1
	ButtonObjection = 2
)

// ICMessage mirrors the MS packet.
type ICMessage struct {
	DeskMod     string
	Pre         string
	Folder      string
	Anim        string
	Text        string
	Pos         string
	SFX         string
	EmoteMod    int
	CharID      int
	SFXDelay    int
	Button      int
	Evidence    int
	Flip        int
	Realization int
	Color       int

	Showname  string
	PairID    int
	PairName  string
	PairEmote string
	Effect    string

	// requested pairing partner from the client, -1 for none
	pairRequest int
	// authoritative evidence index after resolution, -1 for none
	evidence int
}

// ParseIC builds a message from validated MS fields.
func ParseIC(args protocol.Args) *ICMessage {
	text := []rune(args.Str(4))
	if len(text) > MaxICLength {
		text = text[:MaxICLength]
	}

	m := &ICMessage{
		DeskMod:     args.Str(0),
		Pre:         args.Str(1),
		Folder:      args.Str(2),
		Anim:        args.Str(3),
		Text:        string(text),
		Pos:         args.Str(5),
		SFX:         args.Str(6),
		EmoteMod:    args.Int(7),
		CharID:      args.Int(8),
		SFXDelay:    args.Int(9),
		Button:      args.Int(10),
		Evidence:    args.Int(11),
		Flip:        args.Int(12),
		Realization: args.Int(13),
		Color:       args.Int(14),
		PairID:      -1,
		pairRequest: -1,
		evidence:    -1,
	}
	if args.Has(15) {
		m.Showname = args.Str(15)
	}
	if args.Has(16) {
		if id := args.Int(16); args.Str(16) != "" {
			m.pairRequest = id
		}
	}
	if args.Has(25) {
		m.Effect = args.Str(25)
	}
	return m
}

func (m *ICMessage) clone() *ICMessage {
	c := *m
	return &c
}

func (m *ICMessage) fields(evidence int) []interface{} {
	return []interface{}{
		m.DeskMod, m.Pre, m.Folder, m.Anim, m.Text, m.Pos, m.SFX,
		m.EmoteMod, m.CharID, m.SFXDelay, m.Button, evidence,
		m.Flip, m.Realization, m.Color,
		m.Showname, m.PairID, m.PairName, m.PairEmote, m.Effect,
	}
}

// sendTo delivers m to one recipient, renumbering the evidence reference
// into the recipient's own list.
func (m *ICMessage) sendTo(r *Client) {
	r.Send("MS", m.fields(localEvidence(r, m.evidence))...)
}

func alphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// HandleIC runs an in-character message through the area. A bad detail in
// the message degrades that detail only.
func (a *Area) HandleIC(c *Client, m *ICMessage) error {
	if !a.Has(c) {
		return failure.Protocol("client %d is not in area %d", c.ID, a.id)
	}
	if c.CharID < 0 || m.CharID != c.CharID {
		return failure.Protocol("forged character id %d", m.CharID)
	}
	if !a.CanSpeak(c) && !a.joiningMinigame(c, m) {
		return failure.Domain("This area is muted.")
	}
	if !c.ic.Allow() {
		return failure.Domain("You are sending messages too fast.")
	}

	if c.AFK {
		c.AFK = false
		a.Messagef("%s is no longer AFK.", c)
	}
	if m.Showname == "" {
		m.Showname = c.Showname
	}

	if a.routeTestimony(c, m) {
		return nil
	}

	if m.Button == ButtonHoldIt || m.Button == ButtonObjection {
		if !a.Permissions.Shouts && !a.IsStaff(c) {
			m.Button = ButtonNone
		} else if target, ok := a.shoutTarget(m.Text); ok {
			if !a.challenge(c, target, m.Button) {
				m.Button = ButtonNone
			}
		}
	}

	if m.Evidence > 0 {
		m.evidence = a.presentEvidence(c, m.Evidence)
		if m.evidence < 0 {
			m.Evidence = 0
		}
	}

	a.defaultPosition(c, m)
	a.applyPairing(c, m)
	a.applyTeam(c, m)

	for _, r := range a.Clients() {
		if r.Blinded {
			continue
		}
		if !r.Hears(m.Pos) {
			r.Send("CT", fmt.Sprintf("[%s] %s", m.Pos, c.DisplayName()), m.Text, 0)
			continue
		}
		m.sendTo(r)
	}

	if a.Testimony.Recording {
		if strings.EqualFold(alphanumeric(m.Text), "end") {
			a.stopRecording()
		} else if m.Text != "" {
			a.recordStatement(m)
		}
	}

	c.LastEmote = m.Anim
	a.last = m.clone()
	return nil
}

// defaultPosition fills in a missing position and animation from the last
// message and enforces the area's position lock.
func (a *Area) defaultPosition(c *Client, m *ICMessage) {
	if m.Pos == "" {
		switch {
		case c.Pos != "":
			m.Pos = c.Pos
		case a.last != nil:
			m.Pos = a.last.Pos
		}
	}
	if m.Anim == "" && a.last != nil && a.last.CharID == m.CharID {
		m.Anim = a.last.Anim
	}

	if len(a.PosLock) > 0 && !contains(a.PosLock, m.Pos) {
		m.Pos = a.PosLock[0]
	}
	c.Pos = m.Pos
}

// applyPairing honours a pairing request when the partner asked for us too.
func (a *Area) applyPairing(c *Client, m *ICMessage) {
	c.pairWith = m.pairRequest
	if m.pairRequest < 0 {
		return
	}
	for _, other := range a.Clients() {
		if other != c && other.CharID == m.pairRequest && other.pairWith == c.CharID {
			m.PairID = other.CharID
			m.PairName = other.CharName()
			m.PairEmote = other.LastEmote
			return
		}
	}
}

func (a *Area) shoutTarget(text string) (*Client, bool) {
	found := Resolve(a.Clients(), text)
	if opt.IsNone(found) {
		return nil, false
	}
	return found.Value, true
}

// joiningMinigame lets an outsider past a minigame's mute when their shout
// names someone on a team.
func (a *Area) joiningMinigame(c *Client, m *ICMessage) bool {
	game := a.Minigame
	if !game.Active() || game.Kind == PanicTalk || !a.Permissions.Shouts {
		return false
	}
	if m.Button != ButtonHoldIt && m.Button != ButtonObjection {
		return false
	}
	target, ok := a.shoutTarget(m.Text)
	return ok && target != c && game.TeamOf(target.CharID) != NoTeam
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
