package gameserver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRoles(t *testing.T) {
	h := newHarness(t, testConfig())
	player, conn := h.join(0)
	target, targetConn := h.join(1)

	h.command(player, "/mute")
	assert.True(t, conn.heard("You must be a CM to use /mute."))
	h.command(player, "/area_add Attic")
	assert.True(t, conn.heard("You must be a GM to use /area_add."))
	h.command(player, "/kick 1")
	assert.True(t, conn.heard("You must be a moderator to use /kick."))
	h.command(player, "/frobnicate")
	assert.True(t, conn.heard("Unknown command /frobnicate. Use /help to list commands."))

	h.command(player, "/login wrong")
	assert.True(t, conn.heard("Invalid password."))
	assert.False(t, player.IsMod)
	h.command(player, "/login hunter2")
	require.True(t, player.IsMod)

	h.command(player, fmt.Sprintf("/kick %d behave", target.ID))
	kick, ok := targetConn.last("KK")
	require.True(t, ok)
	assert.Equal(t, []string{"behave"}, kick.Args)
	assert.True(t, targetConn.Closed())
	assert.False(t, target.Alive())
}

func TestHelp(t *testing.T) {
	h := newHarness(t, testConfig())
	c, conn := h.join(0)

	h.command(c, "/help")
	listing := conn.messages()
	require.NotEmpty(t, listing)
	assert.Contains(t, listing[len(listing)-1], "/about")
	assert.NotContains(t, listing[len(listing)-1], "/kick")

	h.command(c, "/help tm")
	assert.True(t, conn.heard("/testimony"))
	assert.True(t, conn.heard("(alias tm)"))

	h.command(c, "/help nothing")
	assert.True(t, conn.heard(`Unknown command "nothing".`))
}

func TestRegistry(t *testing.T) {
	h := newHarness(t, testConfig())
	commands := h.server.Commands

	cmd, ok := commands.Lookup("TM")
	require.True(t, ok)
	assert.Equal(t, TestimonyCommand, cmd)
	assert.Equal(t, "/testimony [record <title>|stop|next|prev|<n>|remove|clear]", cmd.String())

	commands.Unregister(TestimonyCommand)
	_, ok = commands.Lookup("tm")
	assert.False(t, ok)
	_, ok = commands.Lookup("testimony")
	assert.False(t, ok)
	for _, available := range commands.Available(RoleMod) {
		assert.NotEqual(t, TestimonyCommand, available)
	}

	commands.Register(TestimonyCommand)
	_, ok = commands.Lookup("tm")
	assert.True(t, ok)
}

func TestAbout(t *testing.T) {
	h := newHarness(t, testConfig())
	c, conn := h.join(0)
	h.clock.Advance(time.Minute)

	h.command(c, "/about")
	assert.True(t, conn.heard(fmt.Sprintf("%s %s, up 1m0s, 1 players online.", Software, Version)))
}

func TestTimerQueue(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	cm, cmConn := h.join(0)
	_, watcher := h.join(1)
	h.command(cm, "/cm")

	h.command(cm, "/timer 0 set 10")
	assert.True(t, cmConn.heard("Only GMs can control the hub timer."))

	h.command(cm, "/timer 1 set 30")
	h.command(cm, "/timer 1 cmd /bg night")
	h.command(cm, "/timer 1 cmd /nosuchcommand")
	h.command(cm, "/timer 1 cmd /doc never")
	require.Len(t, lobby.Timer(1).Commands(), 3)

	h.command(cm, "/timer 1 start")
	ti, ok := watcher.last("TI")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "0", "30000"}, ti.Args)

	// the queue stops at the first command that fails
	h.expire(30 * time.Second)
	assert.Equal(t, "night", lobby.Background)
	assert.Equal(t, "", lobby.Doc)
	assert.True(t, cmConn.heard("Unknown command /nosuchcommand."))
	assert.True(t, watcher.heard("Timer 1 has expired."))
	assert.False(t, lobby.Timer(1).IsSet())

	ti, _ = watcher.last("TI")
	assert.Equal(t, []string{"1", "1", "0"}, ti.Args)
}

func TestTimerPause(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	cm, cmConn := h.join(0)
	h.command(cm, "/cm")

	h.command(cm, "/timer 2 start")
	assert.True(t, cmConn.heard("That timer is not set."))

	h.command(cm, "/timer 2 set 1m30s")
	h.command(cm, "/timer 2 start")
	h.clock.Advance(30 * time.Second)
	h.command(cm, "/timer 2 pause")
	assert.Equal(t, time.Minute, lobby.Timer(2).TimeLeft())
	assert.False(t, lobby.Timer(2).Started())

	h.command(cm, "/timer 2")
	assert.True(t, cmConn.heard("Timer 2 is paused with 1m0s left."))
	h.command(cm, "/timer 2 pause")
	assert.True(t, cmConn.heard("That timer is not running."))

	h.command(cm, "/timer 21")
	assert.True(t, cmConn.heard("Timer id must be between 0 and 20."))

	// a paused timer never fires
	h.clock.Advance(2 * time.Minute)
	h.idle()
	assert.True(t, lobby.Timer(2).IsSet())
}

func TestTimerQueuerLeft(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	cm, _ := h.join(0)
	_, watcher := h.join(1)
	h.command(cm, "/cm")

	h.command(cm, "/timer 3 set 10")
	h.command(cm, "/timer 3 cmd /bg night")
	h.command(cm, "/timer 3 start")
	h.server.Disconnect(cm, "test")

	h.expire(10 * time.Second)
	assert.True(t, watcher.heard("Timer 3 has expired."))
	assert.Equal(t, "default", lobby.Background)
}

func TestHubTimer(t *testing.T) {
	h := newHarness(t, testConfig())
	hub := h.server.DefaultHub()
	gm, _ := h.join(0)
	elsewhere, elsewhereConn := h.join(1)
	h.move(elsewhere, hub.Area(2))

	h.command(gm, "/gm")
	h.command(gm, "/timer 0 set 10")
	h.command(gm, "/timer 0 cmd /bg storm")
	h.command(gm, "/timer 0 start")

	ti, ok := elsewhereConn.last("TI")
	require.True(t, ok)
	assert.Equal(t, []string{"0", "0", "10000"}, ti.Args)

	// hub timer commands run in the queuer's own area
	h.move(gm, hub.Area(1))
	h.expire(10 * time.Second)
	assert.True(t, elsewhereConn.heard("The hub timer has expired."))
	assert.Equal(t, "storm", hub.Area(1).Background)
	assert.Equal(t, "default", hub.Area(2).Background)
}

func TestHubCommand(t *testing.T) {
	h := newHarness(t, testConfig())
	c, conn := h.join(0)

	h.command(c, "/hub Nowhere")
	assert.True(t, conn.heard("That hub does not exist."))

	h.command(c, "/hub Second")
	require.NotNil(t, c.Area)
	assert.Equal(t, "Plaza", c.Area.Name)
	fa, ok := conn.last("FA")
	require.True(t, ok)
	assert.Equal(t, []string{"Plaza", "Alley"}, fa.Args)

	h.command(c, "/hub")
	assert.True(t, conn.heard("[1] Second: 1 users"))

	h.command(c, "/area 1")
	assert.Equal(t, "Alley", c.Area.Name)
	h.command(c, "/area")
	assert.True(t, conn.heard("Areas in Second:"))
}

func TestTimerQueueStopsInRemovedArea(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	gm, gmConn := h.join(0)
	h.command(gm, "/gm")

	h.command(gm, "/timer 1 set 10")
	h.command(gm, "/timer 1 cmd /area_remove 0")
	h.command(gm, "/timer 1 cmd /bg night")
	h.command(gm, "/timer 1 start")

	h.expire(10 * time.Second)
	assert.False(t, lobby.Alive())
	assert.Equal(t, "Courtroom", gm.Area.Name)
	assert.Equal(t, "default", lobby.Background)
	assert.Equal(t, "default", gm.Area.Background)
	assert.False(t, gmConn.heard(errAreaGone.Error()))
}
