package gameserver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	P "github.com/cfoust/courtroom/pkg/protocol"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Connection = &testConn{}
	_ BanChecker = &testBans{}
	_ BanWriter  = &testBans{}
)

type testConn struct {
	id   string
	host string

	mutex  sync.Mutex
	frames []string
	closed bool
}

func (t *testConn) SessionID() string { return t.id }

func (t *testConn) Host() string { return t.host }

func (t *testConn) Send(data []byte) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.frames = append(t.frames, strings.TrimSuffix(string(data), P.Delimiter))
}

func (t *testConn) Close() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.closed = true
}

func (t *testConn) Closed() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.closed
}

func (t *testConn) reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.frames = nil
}

// packets returns every packet with the given keyword, decoded.
func (t *testConn) packets(keyword string) []P.Packet {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var packets []P.Packet
	for _, frame := range t.frames {
		packet, ok := P.ParseFrame(frame)
		if ok && packet.Command == keyword {
			packets = append(packets, packet)
		}
	}
	return packets
}

func (t *testConn) last(keyword string) (P.Packet, bool) {
	packets := t.packets(keyword)
	if len(packets) == 0 {
		return P.Packet{}, false
	}
	return packets[len(packets)-1], true
}

// messages lists the text of every OOC message received.
func (t *testConn) messages() []string {
	var texts []string
	for _, packet := range t.packets("CT") {
		if len(packet.Args) > 1 {
			texts = append(texts, packet.Args[1])
		}
	}
	return texts
}

func (t *testConn) heard(text string) bool {
	for _, message := range t.messages() {
		if strings.Contains(message, text) {
			return true
		}
	}
	return false
}

type testBans struct {
	mutex  sync.Mutex
	banned map[string]string
	added  []string
}

func (b *testBans) Check(ctx context.Context, hdid, host string) (string, bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	reason, ok := b.banned[hdid]
	return reason, ok, nil
}

func (b *testBans) Ban(ctx context.Context, hdid, host, reason, issuer string, duration time.Duration) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.banned[hdid] = reason
	b.added = append(b.added, hdid)
	return nil
}

func testConfig() *Config {
	return &Config{
		Name:        "Test",
		Description: "A test server",
		MaxPlayers:  10,
		ModPassword: "hunter2",
		Characters:  []string{"Phoenix", "Edgeworth", "Maya", "Franziska", "Gumshoe"},
		Music: []MusicCategory{
			{
				Name: "== Trial ==",
				Songs: []Song{
					{Name: "trial.opus", Length: 120},
					{Name: "objection.opus", Length: 60},
					{Name: "unknown.opus"},
				},
			},
		},
		Hubs: []HubConfig{
			{
				Name:     "Main",
				MaxAreas: 5,
				Areas: []AreaConfig{
					{Name: "Lobby"},
					{Name: "Courtroom"},
					{Name: "Hallway"},
					{Name: "Basement"},
				},
			},
			{
				Name: "Second",
				Areas: []AreaConfig{
					{Name: "Plaza"},
					{Name: "Alley"},
				},
			},
		},
		Minigame: MinigameConfig{
			Cues: map[string]MinigameCues{
				"cross_swords": {
					Start:   "cs_start.opus",
					End:     "cs_end.opus",
					Concede: "cs_concede.opus",
				},
			},
		},
	}
}

// harness plays the part of the event loop: tests call handlers directly
// and run whatever other goroutines posted.
type harness struct {
	t      *testing.T
	clock  clockwork.FakeClock
	server *Server
	conns  int
}

func newHarness(t *testing.T, conf *Config) *harness {
	clock := clockwork.NewFakeClock()
	server, err := New(context.Background(), conf, clock)
	require.NoError(t, err)
	t.Cleanup(server.Cancel)
	return &harness{t: t, clock: clock, server: server}
}

// drain runs every event that is already queued.
func (h *harness) drain() {
	for {
		select {
		case event := <-h.server.events:
			event()
		default:
			return
		}
	}
}

// await blocks until something is posted to the loop, then drains.
func (h *harness) await() {
	select {
	case event := <-h.server.events:
		event()
	case <-time.After(time.Second):
		h.t.Fatal("nothing was posted to the loop")
	}
	h.drain()
}

// idle asserts nothing gets posted for a short while.
func (h *harness) idle() {
	select {
	case <-h.server.events:
		h.t.Fatal("unexpected event posted to the loop")
	case <-time.After(50 * time.Millisecond):
	}
}

// expire advances the clock and runs the callback that results.
func (h *harness) expire(d time.Duration) {
	h.clock.Advance(d)
	h.await()
}

func (h *harness) connect() (*Client, *testConn) {
	conn := &testConn{
		id:   fmt.Sprintf("session-%d", h.conns),
		host: fmt.Sprintf("10.0.0.%d", h.conns),
	}
	h.conns++
	return h.server.connect(conn), conn
}

func (h *harness) frame(c *Client, frame string) {
	h.server.HandleFrame(c, frame)
}

// join connects a client, completes the handshake and picks a character.
// A negative charID stays a spectator.
func (h *harness) join(charID int) (*Client, *testConn) {
	c, conn := h.connect()
	h.frame(c, "HI#hdid-"+conn.id)
	h.frame(c, "ID#AO2#2.10.1")
	h.frame(c, "RD")
	require.True(h.t, c.Joined)
	if charID >= 0 {
		h.frame(c, fmt.Sprintf("CC#%d#%d#hdid-%s", c.ID, charID, conn.id))
		require.Equal(h.t, charID, c.CharID)
	}
	conn.reset()
	return c, conn
}

func (h *harness) command(c *Client, line string) {
	h.frame(c, "CT#"+c.DisplayName()+"#"+line)
}

func (h *harness) lobby() *Area {
	return h.server.DefaultHub().Area(0)
}

func (h *harness) move(c *Client, area *Area) {
	require.NoError(h.t, h.server.ChangeArea(c, area, "", true))
}

// ms builds an MS frame with the fields tests care about.
func ms(charID int, text, pos string, button, evidence int) string {
	return fmt.Sprintf(
		"MS#chat#-#char#normal#%s#%s#1#0#%d#0#%d#%d#0#0#0",
		P.Escape(text), pos, charID, button, evidence,
	)
}

func TestHandshake(t *testing.T) {
	h := newHarness(t, testConfig())
	c, conn := h.connect()

	decryptor, ok := conn.last("decryptor")
	require.True(t, ok)
	assert.Equal(t, []string{"34"}, decryptor.Args)

	// nothing but HI is accepted before the handshake
	h.frame(c, "RD")
	assert.False(t, c.Joined)

	h.frame(c, "HI#abc")
	assert.True(t, c.Authed)
	id, ok := conn.last("ID")
	require.True(t, ok)
	assert.Equal(t, []string{"0", Software, Version}, id.Args)
	pn, ok := conn.last("PN")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "10", "A test server"}, pn.Args)

	h.frame(c, "ID#AO2#2.9.0")
	assert.True(t, c.Features.BackgroundPos)
	assert.False(t, c.Features.Overlay)
	_, ok = conn.last("FL")
	assert.True(t, ok)

	h.frame(c, "FL#overlay")
	assert.True(t, c.Features.Overlay)

	h.frame(c, "RD")
	assert.True(t, c.Joined)
	assert.Equal(t, h.lobby(), c.Area)
	_, ok = conn.last("DONE")
	assert.True(t, ok)
	bn, ok := conn.last("BN")
	require.True(t, ok)
	assert.Equal(t, []string{"default", "", ""}, bn.Args)
}

func TestLegacyPaging(t *testing.T) {
	conf := testConfig()
	for i := 0; i < 10; i++ {
		conf.Characters = append(conf.Characters, fmt.Sprintf("Extra%d", i))
	}
	h := newHarness(t, conf)
	c, conn := h.connect()
	h.frame(c, "HI#abc")

	h.frame(c, "askchar2")
	ci, ok := conn.last("CI")
	require.True(t, ok)
	assert.Equal(t, "0", ci.Args[0])
	assert.Equal(t, "Phoenix&&0&&&0&", ci.Args[1])
	assert.Len(t, ci.Args, 2*PageSize)

	h.frame(c, "AN#1")
	ci, _ = conn.last("CI")
	assert.Len(t, ci.Args, 2*5)

	// past the last character page comes the first music page
	h.frame(c, "AN#2")
	em, ok := conn.last("EM")
	require.True(t, ok)
	assert.Equal(t, []string{"0", "Lobby"}, em.Args[:2])

	// four areas and four music entries fit on one page
	h.frame(c, "AM#0")
	assert.False(t, c.Joined)
	h.frame(c, "AM#1")
	assert.True(t, c.Joined)
}

func TestInvalidFramesAreDropped(t *testing.T) {
	h := newHarness(t, testConfig())
	c, conn := h.join(0)

	h.frame(c, "XX#1")
	h.frame(c, "CC#a#b#c")
	h.frame(c, "HP#3#5")
	h.frame(c, "")
	assert.Empty(t, conn.packets("CT"))
	assert.True(t, c.Alive())

	// a forged character id is dropped, not answered
	h.frame(c, ms(3, "hello", "def", 0, 0))
	assert.Empty(t, conn.packets("MS"))
	assert.Empty(t, conn.packets("CT"))
}

func TestCharacterSelect(t *testing.T) {
	h := newHarness(t, testConfig())
	c0, _ := h.join(0)
	c1, conn1 := h.join(-1)

	h.frame(c1, "CC#1#0#hdid")
	assert.Equal(t, -1, c1.CharID)
	assert.True(t, conn1.heard("Character not available."))

	h.frame(c1, "CC#1#1#hdid")
	assert.Equal(t, 1, c1.CharID)
	pv, ok := conn1.last("PV")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "CID", "1"}, pv.Args)

	check, ok := conn1.last("CharsCheck")
	require.True(t, ok)
	assert.Equal(t, []string{"-1", "-1", "0", "0", "0"}, check.Args)

	// leaving frees the character
	h.server.Disconnect(c0, "test")
	check, _ = conn1.last("CharsCheck")
	assert.Equal(t, []string{"0", "-1", "0", "0", "0"}, check.Args)
}

func TestDuplicateHello(t *testing.T) {
	h := newHarness(t, testConfig())
	h.server.Bans = &testBans{banned: map[string]string{}}

	c, conn := h.connect()
	h.frame(c, "HI#first")
	h.frame(c, "HI#second")
	h.await()
	h.idle()

	assert.True(t, c.Authed)
	assert.Equal(t, "first", c.HDID)
	assert.Len(t, conn.packets("ID"), 1)
}

func TestLoopMarks(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	c, _ := h.join(0)

	h.frame(c, "CH#0")
	assert.Equal(t, "CH", h.server.health.LastMark())

	lobby.Timer(4).Set(time.Second)
	require.NoError(t, lobby.Timer(4).Start())
	h.expire(time.Second)
	assert.Equal(t, "timer 4", h.server.health.LastMark())
}

func TestKeepalive(t *testing.T) {
	h := newHarness(t, testConfig())
	c, conn := h.join(0)

	h.clock.Advance(200 * time.Second)
	h.frame(c, "CH#0")
	_, ok := conn.last("CHECK")
	assert.True(t, ok)

	h.clock.Advance(100 * time.Second)
	h.idle()
	assert.True(t, c.Alive())

	h.expire(150 * time.Second)
	assert.False(t, c.Alive())
	assert.True(t, conn.Closed())
}

func TestServerFull(t *testing.T) {
	conf := testConfig()
	conf.MaxPlayers = 1
	h := newHarness(t, conf)
	h.join(0)

	c, conn := h.connect()
	h.frame(c, "HI#abc")
	assert.False(t, c.Authed)
	assert.True(t, conn.Closed())
	assert.True(t, conn.heard("The server is full."))
}

func TestBannedHandshake(t *testing.T) {
	h := newHarness(t, testConfig())
	bans := &testBans{banned: map[string]string{"bad": "griefing"}}
	h.server.Bans = bans

	c, conn := h.connect()
	h.frame(c, "HI#bad")
	h.await()
	assert.False(t, c.Authed)
	assert.True(t, conn.Closed())
	bd, ok := conn.last("BD")
	require.True(t, ok)
	assert.Equal(t, []string{"griefing"}, bd.Args)

	c, conn = h.connect()
	h.frame(c, "HI#good")
	h.await()
	assert.True(t, c.Authed)
	_, ok = conn.last("ID")
	assert.True(t, ok)
}

func TestBanCommand(t *testing.T) {
	h := newHarness(t, testConfig())
	bans := &testBans{banned: map[string]string{}}

	mod, modConn := h.join(0)
	target, targetConn := h.join(1)
	h.command(mod, "/login hunter2")
	require.True(t, mod.IsMod)

	h.command(mod, "/ban 1 1h spamming")
	assert.True(t, modConn.heard("Bans are not enabled on this server."))
	assert.True(t, target.Alive())

	h.server.Bans = bans
	hdid := target.HDID
	h.command(mod, "/ban 1 1h spamming")
	assert.False(t, target.Alive())
	kb, ok := targetConn.last("KB")
	require.True(t, ok)
	assert.Equal(t, []string{"spamming"}, kb.Args)

	h.await()
	assert.Equal(t, []string{hdid}, bans.added)
	assert.True(t, modConn.heard("Banned "+hdid+"."))
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	courtroom := h.server.DefaultHub().Area(1)

	// handshake and character selection
	cm, cmConn := h.join(0)
	witness, witnessConn := h.join(1)
	late, lateConn := h.join(2)
	stranger, strangerConn := h.join(3)

	// presenting hidden evidence reveals it to everyone
	h.command(cm, "/cm")
	require.True(t, lobby.IsOwner(cm))
	h.command(cm, "/evidence_mod HiddenCM")
	require.Equal(t, "HiddenCM", string(lobby.Evidence.Mode))

	witness.Pos = "def"
	late.Pos = "wit"
	h.frame(cm, "PE#Knife#<owner=all>\nA knife#knife.png")
	h.frame(cm, "PE#Note#<owner=def>\nA note#note.png")
	require.Equal(t, 2, lobby.Evidence.Len())
	require.Len(t, witness.Evidence.Items, 2)
	require.Len(t, late.Evidence.Items, 1)

	lateConn.reset()
	h.frame(witness, ms(1, "Look at this!", "def", 0, 2))
	note, _ := lobby.Evidence.Get(1)
	assert.True(t, note.Visibility.All)
	le, ok := lateConn.last("LE")
	require.True(t, ok)
	assert.Len(t, le.Args, 2)
	shown, ok := lateConn.last("MS")
	require.True(t, ok)
	assert.Equal(t, "2", shown.Args[11])
	_, ok = witnessConn.last("MS")
	assert.True(t, ok)

	// a locked area keeps out everyone not invited
	h.move(late, courtroom)
	h.move(stranger, courtroom)
	h.command(cm, "/lock")
	require.True(t, lobby.Locked())

	h.command(late, "/area 0")
	assert.Equal(t, courtroom, late.Area)
	assert.True(t, lateConn.heard("That area is locked!"))

	h.command(cm, fmt.Sprintf("/invite %d", late.ID))
	h.command(late, "/area 0")
	assert.Equal(t, lobby, late.Area)

	h.command(stranger, "/area 0")
	assert.Equal(t, courtroom, stranger.Area)
	assert.True(t, strangerConn.heard("That area is locked!"))

	// a self challenge concedes the Cross Swords
	h.command(cm, "/unlock")
	h.command(cm, "/uncm")
	cmConn.reset()
	h.frame(cm, ms(0, "Edgeworth", "def", ButtonObjection, 0))
	require.Equal(t, CrossSwords, lobby.Minigame.Kind)

	h.frame(cm, ms(0, "Phoenix", "def", ButtonObjection, 0))
	assert.False(t, lobby.Minigame.Active())
	require.NotNil(t, lobby.Minigame.Result)
	assert.Equal(t, EndConceded, lobby.Minigame.Result.Reason)
	assert.Equal(t, Red, lobby.Minigame.Result.Loser)

	mc, ok := cmConn.last("MC")
	require.True(t, ok)
	assert.Equal(t, "cs_concede.opus", mc.Args[0])
	for _, packet := range cmConn.packets("MC") {
		assert.NotEqual(t, "cs_end.opus", packet.Args[0])
	}
}
