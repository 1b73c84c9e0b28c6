package gameserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cfoust/courtroom/pkg/evidence"
	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/timer"
)

const AreaTimers = 20

type Permissions struct {
	Lockable     bool
	Shouts       bool
	Music        bool
	Jukebox      bool
	ChangeStatus bool
}

func DefaultPermissions() Permissions {
	return Permissions{
		Lockable:     true,
		Shouts:       true,
		Music:        true,
		ChangeStatus: true,
	}
}

func (p PermissionConfig) Apply(base Permissions) Permissions {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.Lockable, p.Lockable)
	set(&base.Shouts, p.Shouts)
	set(&base.Music, p.Music)
	set(&base.Jukebox, p.Jukebox)
	set(&base.ChangeStatus, p.ChangeStatus)
	return base
}

// Link is a directed passage to another area of the same hub.
type Link struct {
	Locked   bool
	Hidden   bool
	Password string
	// authoritative evidence indices; a client must hide in one to pass
	Evidence []int
}

func (l *Link) clone() *Link {
	c := *l
	c.Evidence = append([]int(nil), l.Evidence...)
	return &c
}

// snapshot is what a reset restores.
type snapshot struct {
	Name        string
	Background  string
	Description string
	Doc         string
	Status      string
	PosLock     []string
}

type Area struct {
	hub     *Hub
	id      int
	removed bool

	Name        string
	Background  string
	Overlay     string
	Description string
	Doc         string
	Status      string
	PosLock     []string
	Dark        bool
	Permissions Permissions
	Links       map[int]*Link
	Evidence    *evidence.List
	Timers      [AreaTimers]*timer.Timer
	Testimony   *Testimony
	Minigame    *Minigame
	Jukebox     *Jukebox
	Music       string
	// penalty bars, defense then prosecution
	Health [2]int

	clients map[int]struct{}
	owners  map[int]struct{}
	locked  bool
	muted   bool
	invite  map[int]struct{}
	last    *ICMessage

	original snapshot
}

func newArea(h *Hub, id int, conf AreaConfig) (*Area, error) {
	mode, ok := evidence.ParseMode(conf.EvidenceMode)
	if !ok && conf.EvidenceMode != "" {
		return nil, fmt.Errorf("area %q: unknown evidence mode %q", conf.Name, conf.EvidenceMode)
	}
	if conf.Background == "" {
		conf.Background = "default"
	}

	a := &Area{
		hub:         h,
		id:          id,
		Name:        conf.Name,
		Background:  conf.Background,
		Description: conf.Description,
		Doc:         conf.Doc,
		Status:      conf.Status,
		PosLock:     append([]string(nil), conf.PosLock...),
		Dark:        conf.Dark,
		Permissions: conf.Permissions.Apply(h.Permissions),
		Links:       map[int]*Link{},
		Evidence:    evidence.NewList(mode),
		Testimony:   &Testimony{Cursor: -1},
		Jukebox:     &Jukebox{},
		Health:      [2]int{10, 10},
		clients:     map[int]struct{}{},
		owners:      map[int]struct{}{},
		invite:      map[int]struct{}{},
	}
	if a.Status == "" {
		a.Status = "IDLE"
	}
	a.original = snapshot{
		Name:        a.Name,
		Background:  a.Background,
		Description: a.Description,
		Doc:         a.Doc,
		Status:      a.Status,
		PosLock:     append([]string(nil), a.PosLock...),
	}

	for _, link := range conf.Links {
		a.Links[link.Target] = &Link{
			Locked:   link.Locked,
			Hidden:   link.Hidden,
			Password: link.Password,
			Evidence: append([]int(nil), link.Evidence...),
		}
	}

	s := h.server
	for i := range a.Timers {
		a.Timers[i] = timer.New(i+1, s.clock, a, s.Post, a.timerExpired)
	}
	a.Minigame = newMinigame(a)

	return a, nil
}

func (a *Area) ID() int {
	return a.id
}

func (a *Area) Hub() *Hub {
	return a.hub
}

func (a *Area) String() string {
	return fmt.Sprintf("[%d] %s", a.id, a.Name)
}

// Alive is false once the area has been removed from its hub.
func (a *Area) Alive() bool {
	return !a.removed && a.hub.Alive() && a.hub.Area(a.id) == a
}

func (a *Area) server() *Server {
	return a.hub.server
}

func (a *Area) Count() int {
	return len(a.clients)
}

// Clients returns the area's clients ordered by id.
func (a *Area) Clients() []*Client {
	return resolveIDs(a.server(), a.clients)
}

func (a *Area) Has(c *Client) bool {
	_, ok := a.clients[c.ID]
	return ok
}

func (a *Area) Send(command string, fields ...interface{}) {
	for _, c := range a.Clients() {
		c.Send(command, fields...)
	}
}

// Message broadcasts a server OOC message to the area.
func (a *Area) Message(text string) {
	for _, c := range a.Clients() {
		c.Message(text)
	}
}

func (a *Area) Messagef(format string, args ...interface{}) {
	a.Message(fmt.Sprintf(format, args...))
}

// MessageOwners reaches every owner whether or not they are present.
func (a *Area) MessageOwners(text string) {
	for _, c := range a.Owners() {
		c.Messagef("[%s] %s", a.Name, text)
	}
}

func (a *Area) IsOwner(c *Client) bool {
	_, ok := a.owners[c.ID]
	return ok
}

// IsStaff is true for anyone who bypasses locks and mutes: moderators, area
// owners and hub owners.
func (a *Area) IsStaff(c *Client) bool {
	return c.IsMod || a.IsOwner(c) || a.hub.IsOwner(c)
}

func (a *Area) Owners() []*Client {
	return resolveIDs(a.server(), a.owners)
}

func (a *Area) AddOwner(c *Client) error {
	if a.IsOwner(c) {
		return failure.Domain("You are already a CM in this area.")
	}
	if a.hub.SingleCM && len(a.owners) > 0 {
		return failure.Domain("This area already has a CM.")
	}
	a.owners[c.ID] = struct{}{}
	a.Messagef("%s is now a CM in this area.", c)
	a.hub.SendARUP(ARUPCM)
	a.sendEvidenceAll()
	return nil
}

func (a *Area) RemoveOwner(c *Client) error {
	if !a.IsOwner(c) {
		return failure.Domain("You are not a CM in this area.")
	}
	a.Messagef("%s is no longer a CM in this area.", c)
	a.removeOwner(c)
	return nil
}

func (a *Area) removeOwner(c *Client) {
	delete(a.owners, c.ID)
	if len(a.owners) == 0 && a.hub.SingleCM {
		a.Reset()
	}
	a.hub.SendARUP(ARUPCM)
	a.sendEvidenceAll()
}

func (a *Area) ownerLabel() string {
	owners := a.Owners()
	if len(owners) == 0 {
		return "FREE"
	}
	names := make([]string, len(owners))
	for i, c := range owners {
		names[i] = c.String()
	}
	return strings.Join(names, ", ")
}

func (a *Area) Locked() bool {
	return a.locked
}

func (a *Area) Muted() bool {
	return a.muted
}

func (a *Area) lockLabel() string {
	switch {
	case a.locked:
		return "LOCKED"
	case a.muted:
		return "SPECTATABLE"
	default:
		return "FREE"
	}
}

func (a *Area) Invited(c *Client) bool {
	_, ok := a.invite[c.ID]
	return ok
}

// InviteList returns invited client ids in order.
func (a *Area) InviteList() []int {
	ids := make([]int, 0, len(a.invite))
	for id := range a.invite {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (a *Area) clearInvites() {
	a.invite = map[int]struct{}{}
}

// Lock closes the area to everyone not currently in it.
func (a *Area) Lock() error {
	if !a.Permissions.Lockable {
		return failure.Domain("This area can't be locked.")
	}
	if a.locked {
		return failure.Domain("This area is already locked.")
	}
	a.clearInvites()
	for id := range a.clients {
		a.invite[id] = struct{}{}
	}
	a.locked = true
	a.Message("This area is now locked.")
	a.hub.SendARUP(ARUPLock)
	return nil
}

func (a *Area) Unlock() error {
	if !a.locked {
		return failure.Domain("This area is not locked.")
	}
	a.unlock()
	a.Message("This area is now unlocked.")
	return nil
}

func (a *Area) unlock() {
	a.locked = false
	a.clearInvites()
	a.hub.SendARUP(ARUPLock)
}

// Mute leaves only staff and invited clients able to speak in character.
func (a *Area) Mute() error {
	if a.muted {
		return failure.Domain("This area is already muted.")
	}
	a.muted = true
	a.clearInvites()
	a.Message("This area is now muted.")
	a.hub.SendARUP(ARUPLock)
	return nil
}

func (a *Area) Unmute() error {
	if !a.muted {
		return failure.Domain("This area is not muted.")
	}
	a.muted = false
	a.clearInvites()
	a.Message("This area is no longer muted.")
	a.hub.SendARUP(ARUPLock)
	return nil
}

func (a *Area) Invite(c *Client) error {
	if !a.locked && !a.muted {
		return failure.Domain("This area is neither locked nor muted.")
	}
	if a.Invited(c) {
		return failure.Domainf("%s is already invited.", c)
	}
	a.invite[c.ID] = struct{}{}
	c.Messagef("You were invited to %s.", a)
	return nil
}

func (a *Area) Uninvite(c *Client) error {
	if !a.Invited(c) {
		return failure.Domainf("%s is not invited.", c)
	}
	delete(a.invite, c.ID)
	c.Messagef("You were uninvited from %s.", a)
	return nil
}

// CanSpeak reports whether c may talk in character under the mute state.
func (a *Area) CanSpeak(c *Client) bool {
	return !a.muted || a.Invited(c) || a.IsStaff(c)
}

func (a *Area) admits(c *Client) error {
	if a.locked && !a.Invited(c) && !a.IsStaff(c) {
		return failure.Domain("That area is locked!")
	}
	return nil
}

// passage checks the link from a to target, if a uses links at all.
func (a *Area) passage(c *Client, target *Area, password string) error {
	if len(a.Links) == 0 || a.IsStaff(c) {
		return nil
	}
	link, ok := a.Links[target.id]
	if !ok {
		return failure.Domain("That area is inaccessible from here.")
	}
	if link.Locked {
		return failure.Domain("That passage is locked.")
	}
	if link.Password != "" && link.Password != password {
		return failure.Domain("That passage requires a password.")
	}
	if len(link.Evidence) > 0 {
		for _, index := range link.Evidence {
			if index == c.HiddenIn {
				return nil
			}
		}
		return failure.Domain("You need to be hiding in the right evidence to pass.")
	}
	return nil
}

// Reset restores the area to how the configuration described it.
func (a *Area) Reset() {
	a.Name = a.original.Name
	a.Background = a.original.Background
	a.Description = a.original.Description
	a.Doc = a.original.Doc
	a.Status = a.original.Status
	a.PosLock = append([]string(nil), a.original.PosLock...)
	if a.locked {
		a.unlock()
	}
	a.Message("This area has been reset.")
	for _, c := range a.Clients() {
		a.sendBackground(c)
	}
	a.hub.sendAreaList()
}

func (a *Area) CharAvailable(charID int, except *Client) bool {
	if charID < 0 {
		return true
	}
	for _, c := range a.Clients() {
		if c != except && c.CharID == charID {
			return false
		}
	}
	return true
}

func (a *Area) addClient(c *Client) {
	a.clients[c.ID] = struct{}{}
	c.Area = a
}

func (a *Area) removeClient(c *Client) {
	delete(a.clients, c.ID)
	a.jukeboxRemove(c)
	a.leaveMinigame(c)
	c.HiddenIn = -1
	c.Area = nil

	if len(a.clients) == 0 && a.locked {
		a.unlock()
	}
}

// shutdown cancels everything scheduled on an area that is going away.
func (a *Area) shutdown() {
	for _, t := range a.Timers {
		t.Unset()
	}
	a.Minigame.deadline.Unset()
	a.Minigame.reset()
	a.jukeboxStop()
	a.owners = map[int]struct{}{}
	a.removed = true
}

func (a *Area) SetBackground(background string) {
	a.Background = background
	for _, c := range a.Clients() {
		a.sendBackground(c)
	}
}

// sendBackground emits BN in the shape the client understands.
func (a *Area) sendBackground(c *Client) {
	pos := c.Pos
	switch {
	case c.Features.BackgroundPos && c.Features.Overlay:
		c.Send("BN", a.Background, pos, a.Overlay)
	case c.Features.BackgroundPos:
		c.Send("BN", a.Background, pos)
	case c.Features.Overlay:
		c.Send("BN", a.Background, "", a.Overlay)
	default:
		c.Send("BN", a.Background)
	}
}

func (a *Area) charsCheck() []interface{} {
	taken := make([]interface{}, len(a.server().Characters))
	for i := range taken {
		taken[i] = 0
	}
	for _, c := range a.Clients() {
		if c.CharID >= 0 && c.CharID < len(taken) {
			taken[c.CharID] = -1
		}
	}
	return taken
}

func (a *Area) sendCharsCheck() {
	taken := a.charsCheck()
	for _, c := range a.Clients() {
		c.Send("CharsCheck", taken...)
	}
}

// sendState brings a client that just entered up to date.
func (a *Area) sendState(c *Client) {
	c.Send("HP", 1, a.Health[0])
	c.Send("HP", 2, a.Health[1])
	a.sendBackground(c)
	a.sendEvidence(c)
	if a.Music != "" {
		c.Send("MC", a.Music, -1)
	}
	c.Send("CharsCheck", a.charsCheck()...)
	a.hub.sendARUPTo(c)
	a.sendTimers(c)
	if a.Description != "" {
		c.Message(a.Description)
	}
}
