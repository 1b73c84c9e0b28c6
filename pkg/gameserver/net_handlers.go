package gameserver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cfoust/courtroom/pkg/failure"
	"github.com/cfoust/courtroom/pkg/metrics"
	P "github.com/cfoust/courtroom/pkg/protocol"

	"github.com/repeale/fp-go/option"
)

// PageSize is how many entries one legacy paging response carries.
const PageSize = 10

const banCheckTimeout = 5 * time.Second

// The features this server advertises in FL.
var serverFeatures = []interface{}{
	"yellowtext", "customobjections", "prezoom", "flipping", "fastloading",
	"noencryption", "deskmod", "evidence", "cccc_ic_support", "arup",
	"casing_alerts", "modcall_reason", "looping_sfx", "additive", "effects",
	"y_offset", "expanded_desk_mods",
}

type handler struct {
	sig P.Signature
	f   func(s *Server, c *Client, args P.Args) error
}

var handlers = map[string]handler{
	"HI":       {P.Sig(P.Str).Unauthed(), handleHello},
	"ID":       {P.Sig(P.StrOrEmpty, P.StrOrEmpty).WithExtra(), handleVersion},
	"FL":       {P.Sig().WithExtra(), handleFeatures},
	"CH":       {P.Sig().WithExtra(), handleKeepalive},
	"askchaa":  {P.Sig(), handleAskCounts},
	"RC":       {P.Sig(), handleRequestChars},
	"RM":       {P.Sig(), handleRequestMusic},
	"RD":       {P.Sig(), handleReady},
	"askchar2": {P.Sig(), handleAskChar2},
	"AN":       {P.Sig(P.Int), handleCharPage},
	"AE":       {P.Sig(P.Int), handleEvidencePage},
	"AM":       {P.Sig(P.Int), handleMusicPage},
	"CC":       {P.Sig(P.Int, P.Int, P.StrOrEmpty).WithExtra(), handleCharSelect},
	"MS": {
		P.Sig(
			P.StrOrEmpty, // desk modifier
			P.StrOrEmpty, // pre-animation
			P.Str,        // folder
			P.Str,        // animation
			P.StrOrEmpty, // text
			P.StrOrEmpty, // position
			P.StrOrEmpty, // sfx
			P.Int,        // animation type
			P.Int,        // char id
			P.Int,        // sfx delay
			P.Int,        // button
			P.Int,        // evidence
			P.Int,        // flip
			P.Int,        // realization
			P.Int,        // color
		).WithExtra(),
		handleIC,
	},
	"CT": {P.Sig(P.Str, P.StrOrEmpty).WithExtra(), handleOOC},
	"MC": {P.Sig(P.Str, P.Int).WithExtra(), handleMusic},
	"HP": {P.Sig(P.Int, P.Int), handlePenalty},
	"RT": {P.Sig(P.Str).WithExtra(), handleJudgeAnimation},
	"PE": {P.Sig(P.Str, P.StrOrEmpty, P.StrOrEmpty), handleAddEvidence},
	"DE": {P.Sig(P.Int), handleDeleteEvidence},
	"EE": {P.Sig(P.Int, P.Str, P.StrOrEmpty, P.StrOrEmpty), handleEditEvidence},
	"ZZ": {P.Sig().WithExtra(), handleModCall},
}

// HandleFrame decodes and runs one frame. Frames that do not parse, name an
// unknown keyword, or fail validation are dropped with no reply.
func (s *Server) HandleFrame(c *Client, frame string) {
	packet, ok := P.ParseFrame(frame)
	if !ok {
		metrics.FramesDropped.WithLabelValues("malformed").Inc()
		return
	}

	h, ok := handlers[packet.Command]
	if !ok {
		metrics.FramesDropped.WithLabelValues("unknown").Inc()
		c.Logger.Debug().Str("keyword", packet.Command).Msg("unknown keyword")
		return
	}

	args, err := h.sig.Validate(packet.Args, c.Authed)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("invalid").Inc()
		c.Logger.Debug().Err(err).Str("keyword", packet.Command).Msg("invalid packet")
		return
	}

	metrics.FramesTotal.WithLabelValues(packet.Command).Inc()
	s.health.Mark(packet.Command)
	s.Report(c, h.f(s, c, args))
}

// currentArea is the area a packet acts on. Packets that need one are only
// valid once the client has joined.
func currentArea(c *Client) (*Area, error) {
	if !c.Joined || c.Area == nil {
		return nil, failure.Protocol("client %d has not joined", c.ID)
	}
	return c.Area, nil
}

// optionalField is a trailing field that older clients leave out.
func optionalField(args P.Args, i int) opt.Option[string] {
	if !args.Has(i) || args.Str(i) == "" {
		return opt.None[string]()
	}
	return opt.Some(args.Str(i))
}

func handleHello(s *Server, c *Client, args P.Args) error {
	if c.Authed || c.helloPending {
		return failure.Protocol("duplicate handshake")
	}
	c.HDID = args.Str(0)

	if s.Bans == nil {
		s.finishHello(c, "", false)
		return nil
	}

	// The lookup may touch disk, so it runs off the loop.
	hdid, host := c.HDID, c.conn.Host()
	c.helloPending = true
	go func() {
		ctx, cancel := context.WithTimeout(s.Ctx(), banCheckTimeout)
		defer cancel()
		reason, banned, err := s.Bans.Check(ctx, hdid, host)
		s.Post(func() {
			c.helloPending = false
			if !c.Alive() {
				return
			}
			if err != nil {
				c.Logger.Error().Err(err).Msg("ban check failed")
			}
			s.finishHello(c, reason, banned)
		})
	}()
	return nil
}

func (s *Server) finishHello(c *Client, reason string, banned bool) {
	if banned {
		c.Logger.Info().Str("hdid", c.HDID).Str("reason", reason).Msg("rejected banned client")
		c.Send("BD", reason)
		s.Disconnect(c, "banned")
		return
	}
	if s.MaxPlayers > 0 && s.Clients.Count() >= s.MaxPlayers {
		c.Message("The server is full.")
		s.Disconnect(c, "full")
		return
	}

	c.Authed = true
	c.Send("ID", c.ID, Software, Version)
	c.Send("PN", s.Clients.Count(), s.MaxPlayers, s.Description)
}

// versionFeatures derives what a client can render from "major.minor.patch".
func versionFeatures(version string) Features {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return Features{}
	}
	major, err := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err != nil || err2 != nil {
		return Features{}
	}
	newer := func(wantMajor, wantMinor int) bool {
		return major > wantMajor || (major == wantMajor && minor >= wantMinor)
	}
	return Features{
		BackgroundPos: newer(2, 9),
		Overlay:       newer(2, 10),
	}
}

func handleVersion(s *Server, c *Client, args P.Args) error {
	c.Software = args.Str(0)
	c.Version = args.Str(1)
	c.Features = versionFeatures(c.Version)
	c.Send("FL", serverFeatures...)
	return nil
}

func handleFeatures(s *Server, c *Client, args P.Args) error {
	for _, feature := range args {
		switch feature {
		case "bg_pos":
			c.Features.BackgroundPos = true
		case "overlay":
			c.Features.Overlay = true
		}
	}
	return nil
}

func handleKeepalive(s *Server, c *Client, args P.Args) error {
	s.armLiveness(c)
	c.Send("CHECK")
	return nil
}

func (s *Server) hubOf(c *Client) *Hub {
	if c.Area != nil {
		return c.Area.hub
	}
	return s.DefaultHub()
}

func handleAskCounts(s *Server, c *Client, args P.Args) error {
	hub := s.hubOf(c)
	c.Send("SI", len(s.Characters), len(c.Evidence.Items), len(hub.areaAndMusicFields()))
	return nil
}

func handleRequestChars(s *Server, c *Client, args P.Args) error {
	fields := make([]interface{}, len(s.Characters))
	for i, name := range s.Characters {
		fields[i] = name
	}
	c.Send("SC", fields...)
	return nil
}

func handleRequestMusic(s *Server, c *Client, args P.Args) error {
	c.Send("SM", s.hubOf(c).areaAndMusicFields()...)
	return nil
}

func handleReady(s *Server, c *Client, args P.Args) error {
	s.join(c)
	return nil
}

func handleAskChar2(s *Server, c *Client, args P.Args) error {
	s.sendCharPage(c, 0)
	return nil
}

func handleCharPage(s *Server, c *Client, args P.Args) error {
	s.sendCharPage(c, args.Int(0))
	return nil
}

func handleEvidencePage(s *Server, c *Client, args P.Args) error {
	page := args.Int(0)
	items := c.Evidence.Items
	start := page * PageSize
	if page < 0 || start >= len(items) {
		s.sendMusicPage(c, 0)
		return nil
	}

	fields := []interface{}{page}
	for i := start; i < len(items) && i < start+PageSize; i++ {
		item := items[i]
		fields = append(fields, P.Raw(strings.Join([]string{
			P.Escape(item.Name),
			P.Escape(item.Description),
			P.Escape(item.Image),
		}, "&")+"&"))
	}
	c.Send("EI", fields...)
	return nil
}

func handleMusicPage(s *Server, c *Client, args P.Args) error {
	s.sendMusicPage(c, args.Int(0))
	return nil
}

// sendCharPage sends one page of the legacy character list. Past the end the
// client is moved on to the music pages.
func (s *Server) sendCharPage(c *Client, page int) {
	start := page * PageSize
	if page < 0 || start >= len(s.Characters) {
		s.sendMusicPage(c, 0)
		return
	}

	var fields []interface{}
	for i := start; i < len(s.Characters) && i < start+PageSize; i++ {
		fields = append(fields, i, P.Raw(P.Escape(s.Characters[i])+"&&0&&&0&"))
	}
	c.Send("CI", fields...)
}

// sendMusicPage sends one page of areas and songs. Past the end the client
// has everything and joins.
func (s *Server) sendMusicPage(c *Client, page int) {
	entries := s.hubOf(c).areaAndMusicFields()
	start := page * PageSize
	if page < 0 || start >= len(entries) {
		s.join(c)
		return
	}

	var fields []interface{}
	for i := start; i < len(entries) && i < start+PageSize; i++ {
		fields = append(fields, i, entries[i])
	}
	c.Send("EM", fields...)
}

func handleCharSelect(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	charID := args.Int(1)
	if charID < -1 || charID >= len(s.Characters) {
		return failure.Protocol("character %d out of range", charID)
	}
	if charID == c.CharID {
		return nil
	}
	if !area.CharAvailable(charID, c) {
		return failure.Domain("Character not available.")
	}

	area.leaveMinigame(c)
	c.CharID = charID
	if hdid := args.Str(2); hdid != "" {
		c.HDID = hdid
	}
	c.Send("PV", c.ID, "CID", charID)
	area.sendCharsCheck()
	c.Logger.Debug().Int("char", charID).Msg("selected character")
	return nil
}

func handleIC(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	return area.HandleIC(c, ParseIC(args))
}

func handleOOC(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args.Str(0))
	text := strings.TrimSpace(args.Str(1))
	if text == "" {
		return nil
	}
	c.Name = name

	if strings.HasPrefix(text, "/") {
		return s.Execute(&Invocation{Client: c, Area: area}, text)
	}
	if !c.ooc.Allow() {
		return failure.Domain("You are sending messages too fast.")
	}
	area.Send("CT", name, text, 0)
	return nil
}

func handleMusic(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	name := args.Str(0)
	hub := area.hub

	// The music list doubles as the area list.
	for _, target := range hub.Areas() {
		if target.Name == name {
			return s.ChangeArea(c, target, "", false)
		}
	}

	if args.Int(1) != c.CharID || c.CharID < 0 {
		return failure.Protocol("music change with character %d", args.Int(1))
	}
	if !area.Permissions.Music && !area.IsStaff(c) {
		return failure.Domain("Music is disabled in this area.")
	}
	if !c.music.Allow() {
		return failure.Domain("You are changing the music too fast.")
	}
	song, ok := hub.FindSong(name)
	if !ok {
		return failure.Domain("Unrecognized song.")
	}

	if area.Permissions.Jukebox {
		return area.JukeboxVote(c, song)
	}

	showname := c.Showname
	if trailer := optionalField(args, 2); !opt.IsNone(trailer) {
		showname = trailer.Value
	}
	area.PlayMusic(song.Name, c.CharID, showname)
	area.Messagef("%s changed the music to %s.", c, song.Name)
	return nil
}

func handlePenalty(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	bar, value := args.Int(0), args.Int(1)
	if bar < 1 || bar > 2 || value < 0 || value > 10 {
		return failure.Protocol("penalty %d=%d out of range", bar, value)
	}
	if !area.CanSpeak(c) {
		return failure.Domain("This area is muted.")
	}
	area.Health[bar-1] = value
	area.Send("HP", bar, value)
	return nil
}

func handleJudgeAnimation(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	if !area.Permissions.Shouts && !area.IsStaff(c) {
		return failure.Domain("Judge animations are disabled in this area.")
	}
	if !area.CanSpeak(c) {
		return failure.Domain("This area is muted.")
	}
	fields := make([]interface{}, len(args))
	for i, arg := range args {
		fields[i] = arg
	}
	area.Send("RT", fields...)
	return nil
}

func handleAddEvidence(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	return area.AddEvidence(c, args.Str(0), args.Str(1), args.Str(2))
}

func handleDeleteEvidence(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	return area.DeleteEvidence(c, args.Int(0))
}

func handleEditEvidence(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	return area.EditEvidence(c, args.Int(0), args.Str(1), args.Str(2), args.Str(3))
}

func handleModCall(s *Server, c *Client, args P.Args) error {
	area, err := currentArea(c)
	if err != nil {
		return err
	}
	reason := strings.TrimSpace(args.Str(0))
	text := c.String() + " called for a moderator in " + area.String()
	if reason != "" {
		text += ": " + reason
	}

	notified := 0
	s.Clients.ForEach(func(mod *Client) {
		if mod.IsMod {
			mod.Send("ZZ", text)
			notified++
		}
	})
	c.Logger.Warn().Str("reason", reason).Int("notified", notified).Msg("moderator call")
	if notified == 0 {
		return failure.Domain("There are no moderators online.")
	}
	c.Message("A moderator has been called.")
	return nil
}
