package gameserver

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/metrics"
	"github.com/cfoust/courtroom/pkg/timer"
)

type MinigameKind string

const (
	NoMinigame  MinigameKind = ""
	CrossSwords MinigameKind = "Cross Swords"
	ScrumDebate MinigameKind = "Scrum Debate"
	PanicTalk   MinigameKind = "Panic Talk Action"
)

// CueKey is how the kind is looked up in the cue configuration.
func (k MinigameKind) CueKey() string {
	return strings.ReplaceAll(strings.ToLower(string(k)), " ", "_")
}

type Team int

const (
	NoTeam Team = iota - 1
	Red
	Blue
)

func (t Team) Other() Team {
	switch t {
	case Red:
		return Blue
	case Blue:
		return Red
	default:
		return NoTeam
	}
}

func (t Team) String() string {
	switch t {
	case Red:
		return "red"
	case Blue:
		return "blue"
	default:
		return "none"
	}
}

// Teams are forced into opposing benches with their own text color.
var teamStyle = [2]struct {
	Pos   string
	Color int
}{
	{"def", 2},
	{"pro", 4},
}

const (
	EndExpired  = "expired"
	EndConceded = "conceded"
	EndForced   = "forced"
)

type MinigameResult struct {
	Kind   MinigameKind
	Reason string
	// the conceding team, NoTeam unless Reason is EndConceded
	Loser Team
}

type Minigame struct {
	Kind  MinigameKind
	teams [2]map[int]struct{}
	// character id of each team's most recent speaker, -1 for none
	last     [2]int
	deadline *timer.Timer
	// mute and invite state from before the minigame started
	muted  bool
	invite map[int]struct{}

	Result *MinigameResult
}

func newMinigame(a *Area) *Minigame {
	s := a.server()
	m := &Minigame{}
	m.deadline = timer.New(-1, s.clock, a, s.Post, func(*timer.Timer, []timer.Command) {
		s.health.Mark("minigame deadline")
		metrics.TimersFired.WithLabelValues("minigame").Inc()
		a.endMinigame(EndExpired, NoTeam)
	})
	m.reset()
	return m
}

func (m *Minigame) reset() {
	m.Kind = NoMinigame
	m.teams = [2]map[int]struct{}{{}, {}}
	m.last = [2]int{-1, -1}
	m.invite = nil
}

func (m *Minigame) Active() bool {
	return m.Kind != NoMinigame
}

func (m *Minigame) TeamOf(charID int) Team {
	if charID < 0 {
		return NoTeam
	}
	for i, team := range m.teams {
		if _, ok := team[charID]; ok {
			return Team(i)
		}
	}
	return NoTeam
}

func (m *Minigame) Members(team Team) []int {
	if team == NoTeam {
		return nil
	}
	ids := make([]int, 0, len(m.teams[team]))
	for id := range m.teams[team] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *Minigame) TimeLeft() time.Duration {
	return m.deadline.TimeLeft()
}

// challenge is what a shout aimed at target means for the minigame. It
// reports whether the minigame state changed.
func (a *Area) challenge(c, target *Client, button int) bool {
	m := a.Minigame
	if c.CharID < 0 || target.CharID < 0 {
		return false
	}

	if !m.Active() {
		if target == c {
			return false
		}
		kind := CrossSwords
		if button == ButtonHoldIt {
			kind = PanicTalk
		}
		return a.StartMinigame(kind, c, target) == nil
	}

	mine := m.TeamOf(c.CharID)
	theirs := m.TeamOf(target.CharID)
	switch {
	case mine != NoTeam && target == c:
		a.concede(mine)
		return true
	case mine == NoTeam && theirs != NoTeam:
		return a.joinMinigame(c, theirs.Other()) == nil
	}
	return false
}

func (a *Area) minigameDuration(kind MinigameKind) time.Duration {
	conf := a.server().Minigame
	if kind == PanicTalk {
		return conf.PanicTalk()
	}
	return conf.CrossSwords()
}

// StartMinigame puts red against blue. The area is muted with only the
// teams invited, and the previous mute state is kept for the end.
func (a *Area) StartMinigame(kind MinigameKind, red, blue *Client) error {
	m := a.Minigame
	if m.Active() {
		return failure.Domainf("A %s is already in progress.", m.Kind)
	}
	if red.CharID < 0 || blue.CharID < 0 || red.CharID == blue.CharID {
		return failure.Domain("Both sides need a character.")
	}

	m.muted = a.muted
	m.invite = a.invite

	m.Kind = kind
	m.teams[Red][red.CharID] = struct{}{}
	m.teams[Blue][blue.CharID] = struct{}{}
	m.Result = nil

	a.muted = true
	a.invite = map[int]struct{}{red.ID: {}, blue.ID: {}}

	m.deadline.Unset()
	m.deadline.Set(a.minigameDuration(kind))
	if err := m.deadline.Start(); err != nil {
		return failure.Internal(err)
	}

	a.announceMinigame()
	a.playCue(kind, "start")
	a.hub.SendARUP(ARUPLock)
	return nil
}

// joinMinigame adds c to a side. A Cross Swords gaining a third party turns
// into a Scrum Debate and gets bonus time.
func (a *Area) joinMinigame(c *Client, team Team) error {
	m := a.Minigame
	if m.Kind == PanicTalk {
		return failure.Domain("You can't join a Panic Talk Action.")
	}
	if m.TeamOf(c.CharID) != NoTeam {
		return failure.Domain("You are already in the minigame.")
	}

	m.teams[team][c.CharID] = struct{}{}
	a.invite[c.ID] = struct{}{}

	if m.Kind == CrossSwords {
		m.Kind = ScrumDebate
		m.deadline.Set(m.deadline.TimeLeft() + a.server().Minigame.ScrumBonus())
		a.playCue(ScrumDebate, "start")
	}
	a.announceMinigame()
	return nil
}

func (a *Area) concede(team Team) {
	a.endMinigame(EndConceded, team)
}

// leaveMinigame takes c's character off its team. An emptied team concedes.
func (a *Area) leaveMinigame(c *Client) {
	m := a.Minigame
	team := m.TeamOf(c.CharID)
	if team == NoTeam {
		return
	}
	delete(m.teams[team], c.CharID)
	if m.last[team] == c.CharID {
		m.last[team] = -1
	}
	delete(a.invite, c.ID)
	if len(m.teams[team]) == 0 {
		a.concede(team)
	}
}

// EndMinigame is the forced end.
func (a *Area) EndMinigame() error {
	if !a.Minigame.Active() {
		return failure.Domain("There is no minigame in this area.")
	}
	a.endMinigame(EndForced, NoTeam)
	return nil
}

func (a *Area) endMinigame(reason string, loser Team) {
	m := a.Minigame
	if !m.Active() {
		return
	}
	kind := m.Kind

	m.deadline.Unset()
	a.muted = m.muted
	a.invite = m.invite
	if a.invite == nil {
		a.invite = map[int]struct{}{}
	}
	m.reset()
	m.Result = &MinigameResult{Kind: kind, Reason: reason, Loser: loser}

	switch reason {
	case EndConceded:
		a.Messagef("~%s~ The %s team conceded!", kind, loser)
		a.playCue(kind, "concede")
	case EndExpired:
		a.Messagef("~%s~ Time is up!", kind)
		a.playCue(kind, "end")
	default:
		a.Messagef("~%s~ The minigame was ended.", kind)
		a.playCue(kind, "end")
	}
	a.hub.SendARUP(ARUPLock)
}

func (a *Area) teamNames(team Team) string {
	var names []string
	for _, id := range a.Minigame.Members(team) {
		name := a.server().CharName(id)
		for _, c := range a.Clients() {
			if c.CharID == id {
				name = c.DisplayName()
			}
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func (a *Area) announceMinigame() {
	m := a.Minigame
	a.Messagef(
		"~%s~ %s vs %s (%s left)",
		m.Kind,
		a.teamNames(Red),
		a.teamNames(Blue),
		m.TimeLeft().Round(time.Second),
	)
}

// playCue plays the configured music for a minigame moment, if any.
func (a *Area) playCue(kind MinigameKind, moment string) {
	cues, ok := a.server().Minigame.Cues[kind.CueKey()]
	if !ok {
		return
	}
	var song string
	switch moment {
	case "start":
		song = cues.Start
	case "end":
		song = cues.End
	case "concede":
		song = cues.Concede
	}
	if song != "" {
		a.PlayMusic(song, -1, fmt.Sprintf("~%s~", kind))
	}
}

// applyTeam forces a team member's position and color and pairs them with
// the other side's latest speaker.
func (a *Area) applyTeam(c *Client, msg *ICMessage) {
	m := a.Minigame
	team := m.TeamOf(c.CharID)
	if team == NoTeam {
		return
	}
	msg.Pos = teamStyle[team].Pos
	msg.Color = teamStyle[team].Color
	c.Pos = msg.Pos

	var partner *Client
	var fallback *Client
	other := team.Other()
	for _, r := range a.Clients() {
		if m.TeamOf(r.CharID) != other {
			continue
		}
		if r.CharID == m.last[other] {
			partner = r
		}
		if fallback == nil || r.CharID < fallback.CharID {
			fallback = r
		}
	}
	if partner == nil {
		partner = fallback
	}
	if partner != nil {
		msg.PairID = partner.CharID
		msg.PairName = partner.CharName()
		msg.PairEmote = partner.LastEmote
	}
	m.last[team] = c.CharID
}
