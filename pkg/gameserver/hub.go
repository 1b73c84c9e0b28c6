package gameserver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/metrics"
	"github.com/cfoust/courtroom/pkg/timer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ARUPKind int

const (
	ARUPPlayers ARUPKind = iota
	ARUPStatus
	ARUPCM
	ARUPLock
)

var allARUP = []ARUPKind{ARUPPlayers, ARUPStatus, ARUPCM, ARUPLock}

// Hub is an ordered list of areas. An area's id is its index in that list,
// so ids shift whenever an area is removed or swapped.
type Hub struct {
	server *Server

	ID          int
	Name        string
	Permissions Permissions
	// nil means the server wide music list
	Music       []MusicCategory
	MaxAreas    int
	SingleCM    bool
	DefaultArea int
	Timer       *timer.Timer

	areas  []*Area
	owners map[int]struct{}
	logger zerolog.Logger
}

func newHub(s *Server, id int, conf HubConfig) (*Hub, error) {
	if len(conf.Areas) == 0 {
		return nil, fmt.Errorf("hub %q has no areas", conf.Name)
	}

	h := &Hub{
		server:      s,
		ID:          id,
		Name:        conf.Name,
		Permissions: conf.Permissions.Apply(DefaultPermissions()),
		Music:       conf.Music,
		MaxAreas:    conf.MaxAreas,
		SingleCM:    conf.SingleCM,
		DefaultArea: conf.DefaultArea,
		owners:      map[int]struct{}{},
		logger:      log.With().Str("hub", conf.Name).Logger(),
	}
	if h.DefaultArea < 0 || h.DefaultArea >= len(conf.Areas) {
		h.DefaultArea = 0
	}
	h.Timer = timer.New(0, s.clock, h, s.Post, h.timerExpired)

	for i, areaConf := range conf.Areas {
		area, err := newArea(h, i, areaConf)
		if err != nil {
			return nil, err
		}
		h.areas = append(h.areas, area)
	}

	return h, nil
}

func (h *Hub) Alive() bool {
	return h.server.Hub(h.ID) == h
}

func (h *Hub) Logger() zerolog.Logger {
	return h.logger
}

func (h *Hub) Areas() []*Area {
	return append([]*Area(nil), h.areas...)
}

func (h *Hub) Len() int {
	return len(h.areas)
}

func (h *Hub) Area(id int) *Area {
	if id < 0 || id >= len(h.areas) {
		return nil
	}
	return h.areas[id]
}

func (h *Hub) Default() *Area {
	return h.Area(h.DefaultArea)
}

// FindArea matches by id or case-insensitive name.
func (h *Hub) FindArea(query string) *Area {
	query = strings.TrimSpace(query)
	if id, err := strconv.Atoi(query); err == nil {
		return h.Area(id)
	}
	for _, area := range h.areas {
		if strings.EqualFold(area.Name, query) {
			return area
		}
	}
	return nil
}

// Clients returns every client in any of the hub's areas.
func (h *Hub) Clients() []*Client {
	var clients []*Client
	for _, area := range h.areas {
		clients = append(clients, area.Clients()...)
	}
	return clients
}

func (h *Hub) Send(command string, fields ...interface{}) {
	for _, c := range h.Clients() {
		c.Send(command, fields...)
	}
}

func (h *Hub) Message(text string) {
	for _, c := range h.Clients() {
		c.Message(text)
	}
}

func (h *Hub) MusicList() []MusicCategory {
	if h.Music != nil {
		return h.Music
	}
	return h.server.Music
}

// FindSong looks a song up in the effective music list.
func (h *Hub) FindSong(name string) (Song, bool) {
	for _, category := range h.MusicList() {
		for _, song := range category.Songs {
			if song.Name == name {
				return song, true
			}
		}
	}
	return Song{}, false
}

func (h *Hub) IsOwner(c *Client) bool {
	_, ok := h.owners[c.ID]
	return ok
}

func (h *Hub) Owners() []*Client {
	return resolveIDs(h.server, h.owners)
}

func (h *Hub) AddOwner(c *Client) error {
	if h.IsOwner(c) {
		return failure.Domain("You are already a GM of this hub.")
	}
	h.owners[c.ID] = struct{}{}
	h.Message(fmt.Sprintf("%s is now a GM of this hub.", c))
	h.SendARUP(ARUPCM)
	return nil
}

func (h *Hub) RemoveOwner(c *Client) error {
	if !h.IsOwner(c) {
		return failure.Domain("You are not a GM of this hub.")
	}
	delete(h.owners, c.ID)
	h.Message(fmt.Sprintf("%s is no longer a GM of this hub.", c))
	h.SendARUP(ARUPCM)
	return nil
}

// forget drops every ownership c held in the hub.
func (h *Hub) forget(c *Client) {
	delete(h.owners, c.ID)
	for _, area := range h.areas {
		if area.IsOwner(c) {
			area.removeOwner(c)
		}
	}
}

// SetPermissions mirrors hub wide permissions onto every area.
func (h *Hub) SetPermissions(p Permissions) {
	h.Permissions = p
	for _, area := range h.areas {
		area.Permissions = p
	}
}

// CreateArea appends a fresh area cloned from the hub's defaults.
func (h *Hub) CreateArea(name string) (*Area, error) {
	if h.MaxAreas > 0 && len(h.areas) >= h.MaxAreas {
		return nil, failure.Domainf("This hub can't hold more than %d areas.", h.MaxAreas)
	}
	if name == "" {
		name = fmt.Sprintf("Area %d", len(h.areas))
	}

	background := "default"
	if def := h.Default(); def != nil {
		background = def.original.Background
	}
	area, err := newArea(h, len(h.areas), AreaConfig{
		Name:       name,
		Background: background,
	})
	if err != nil {
		return nil, failure.Internal(err)
	}
	h.areas = append(h.areas, area)

	h.sendAreaList()
	return area, nil
}

// RemoveArea deletes the area with the given id. Its clients move to the
// default area, or to area 1 (area 0 when area 1 is the default) if the
// default is the one going away.
func (h *Hub) RemoveArea(id int) error {
	area := h.Area(id)
	if area == nil {
		return failure.Domain("That area does not exist.")
	}
	if len(h.areas) == 1 {
		return failure.Domain("You can't remove the only area in a hub.")
	}

	fallback := h.Default()
	if h.DefaultArea == id {
		fallback = h.areas[1]
		if id == 1 {
			fallback = h.areas[0]
		}
	}

	area.shutdown()
	for _, c := range area.Clients() {
		if err := h.server.ChangeArea(c, fallback, "", true); err != nil {
			h.logger.Error().Err(err).Msgf("failed to relocate %s", c)
			continue
		}
		c.Message("The area you were in was removed.")
	}

	h.areas = append(h.areas[:id], h.areas[id+1:]...)
	for i, other := range h.areas {
		other.id = i
		links := make(map[int]*Link, len(other.Links))
		for target, link := range other.Links {
			switch {
			case target == id:
				continue
			case target > id:
				links[target-1] = link
			default:
				links[target] = link
			}
		}
		other.Links = links
	}
	h.DefaultArea = fallback.id

	h.sendAreaList()
	return nil
}

// SwapArea exchanges two positions. With rewriteLinks every link keeps
// pointing at the same logical area; without it links stay positional.
func (h *Hub) SwapArea(a, b int, rewriteLinks bool) error {
	if h.Area(a) == nil || h.Area(b) == nil {
		return failure.Domain("That area does not exist.")
	}
	if a == b {
		return nil
	}

	h.areas[a], h.areas[b] = h.areas[b], h.areas[a]
	h.areas[a].id = a
	h.areas[b].id = b

	if rewriteLinks {
		for _, area := range h.areas {
			linkA, hasA := area.Links[a]
			linkB, hasB := area.Links[b]
			delete(area.Links, a)
			delete(area.Links, b)
			if hasA {
				area.Links[b] = linkA
			}
			if hasB {
				area.Links[a] = linkB
			}
		}
		switch h.DefaultArea {
		case a:
			h.DefaultArea = b
		case b:
			h.DefaultArea = a
		}
	}

	h.sendAreaList()
	return nil
}

// sendAreaList refreshes everything that depends on area order.
func (h *Hub) sendAreaList() {
	for _, c := range h.Clients() {
		h.SendMusicList(c)
	}
	h.SendARUP(allARUP...)
}

// SendMusicList sends the area names followed by the music list.
func (h *Hub) SendMusicList(c *Client) {
	c.Send("FM", h.musicFields()...)
	c.Send("FA", h.areaFields()...)
}

func (h *Hub) areaFields() []interface{} {
	fields := make([]interface{}, 0, len(h.areas))
	for _, area := range h.areas {
		fields = append(fields, area.Name)
	}
	return fields
}

func (h *Hub) musicFields() []interface{} {
	var fields []interface{}
	for _, category := range h.MusicList() {
		fields = append(fields, category.Name)
		for _, song := range category.Songs {
			fields = append(fields, song.Name)
		}
	}
	return fields
}

// areaAndMusicFields is the combined list SM and the paged EM use.
func (h *Hub) areaAndMusicFields() []interface{} {
	return append(h.areaFields(), h.musicFields()...)
}

func (h *Hub) arupValues(kind ARUPKind) []interface{} {
	values := make([]interface{}, 0, len(h.areas)+1)
	values = append(values, int(kind))
	for _, area := range h.areas {
		switch kind {
		case ARUPPlayers:
			values = append(values, area.Count())
		case ARUPStatus:
			values = append(values, area.Status)
		case ARUPCM:
			values = append(values, area.ownerLabel())
		case ARUPLock:
			values = append(values, area.lockLabel())
		}
	}
	return values
}

// SendARUP pushes the given vectors to every client in the hub and
// publishes the hub's status.
func (h *Hub) SendARUP(kinds ...ARUPKind) {
	clients := h.Clients()
	for _, kind := range kinds {
		values := h.arupValues(kind)
		for _, c := range clients {
			if c.Joined {
				c.Send("ARUP", values...)
			}
		}
	}

	status := h.Snapshot()
	metrics.PlayersCurrent.WithLabelValues(h.Name).Set(float64(status.Players))
	h.server.Status.Publish(status)
}

func (h *Hub) sendARUPTo(c *Client) {
	for _, kind := range allARUP {
		c.Send("ARUP", h.arupValues(kind)...)
	}
}

func (h *Hub) Snapshot() HubStatus {
	status := HubStatus{
		Hub:   h.ID,
		Name:  h.Name,
		Areas: make([]AreaStatus, 0, len(h.areas)),
	}
	for _, area := range h.areas {
		status.Players += area.Count()
		status.Areas = append(status.Areas, AreaStatus{
			Name:    area.Name,
			Players: area.Count(),
			Status:  area.Status,
			CM:      area.ownerLabel(),
			Lock:    area.lockLabel(),
		})
	}
	return status
}

func resolveIDs(s *Server, ids map[int]struct{}) []*Client {
	clients := make([]*Client, 0, len(ids))
	for id := range ids {
		if c := s.Clients.Get(id); c != nil {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ID < clients[j].ID
	})
	return clients
}
