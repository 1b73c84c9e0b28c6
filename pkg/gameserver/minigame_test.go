package gameserver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeams(t *testing.T) {
	assert.Equal(t, Blue, Red.Other())
	assert.Equal(t, Red, Blue.Other())
	assert.Equal(t, NoTeam, NoTeam.Other())
	assert.Equal(t, "cross_swords", CrossSwords.CueKey())
	assert.Equal(t, "panic_talk_action", PanicTalk.CueKey())
}

func TestScrumPromotion(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	phoenix, _ := h.join(0)
	edgeworth, edgeworthConn := h.join(1)
	maya, _ := h.join(2)

	h.frame(phoenix, ms(0, "Edgeworth", "wit", ButtonObjection, 0))
	game := lobby.Minigame
	require.Equal(t, CrossSwords, game.Kind)
	assert.Equal(t, Red, game.TeamOf(phoenix.CharID))
	assert.Equal(t, Blue, game.TeamOf(edgeworth.CharID))
	assert.Equal(t, NoTeam, game.TeamOf(maya.CharID))
	assert.True(t, lobby.Muted())
	assert.Equal(t, 5*time.Minute, game.TimeLeft())

	// team members are forced onto their bench
	message, ok := edgeworthConn.last("MS")
	require.True(t, ok)
	assert.Equal(t, "def", message.Args[5])
	assert.Equal(t, "2", message.Args[14])

	h.clock.Advance(100 * time.Second)
	before := game.TimeLeft()

	// an outsider objecting to a team member joins the other side
	h.frame(maya, ms(2, "Phoenix", "wit", ButtonObjection, 0))
	require.Equal(t, ScrumDebate, game.Kind)
	assert.Equal(t, Blue, game.TeamOf(maya.CharID))
	assert.Equal(t, before+time.Minute, game.TimeLeft())
	assert.True(t, lobby.Invited(maya))

	message, _ = edgeworthConn.last("MS")
	assert.Equal(t, "pro", message.Args[5])
	assert.Equal(t, "4", message.Args[14])
	assert.Equal(t, "0", message.Args[16], "paired with the other side's last speaker")

	// one side emptying out concedes
	h.server.Disconnect(edgeworth, "test")
	assert.True(t, game.Active())
	h.frame(maya, fmt.Sprintf("CC#%d#4#hdid", maya.ID))
	assert.False(t, game.Active())
	require.NotNil(t, game.Result)
	assert.Equal(t, EndConceded, game.Result.Reason)
	assert.Equal(t, Blue, game.Result.Loser)
	assert.False(t, lobby.Muted())
}

func TestPanicTalkIsClosed(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	phoenix, _ := h.join(0)
	h.join(1)
	maya, mayaConn := h.join(2)

	h.frame(phoenix, ms(0, "Edgeworth", "def", ButtonHoldIt, 0))
	require.Equal(t, PanicTalk, lobby.Minigame.Kind)

	h.frame(maya, ms(2, "Phoenix", "wit", ButtonObjection, 0))
	assert.Equal(t, PanicTalk, lobby.Minigame.Kind)
	assert.Equal(t, NoTeam, lobby.Minigame.TeamOf(maya.CharID))
	assert.True(t, mayaConn.heard("This area is muted."))
}

func TestForcedEndRestoresMute(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	cm, _ := h.join(0)
	rival, rivalConn := h.join(1)
	guest, _ := h.join(2)

	h.command(cm, "/cm")
	h.command(cm, "/mute")
	h.command(cm, fmt.Sprintf("/invite %d", guest.ID))
	require.True(t, lobby.Invited(guest))

	h.command(cm, fmt.Sprintf("/minigame cs %d", rival.ID))
	require.Equal(t, CrossSwords, lobby.Minigame.Kind)
	assert.True(t, lobby.Invited(rival))
	assert.False(t, lobby.Invited(guest))

	h.command(rival, "/minigame end")
	assert.True(t, rivalConn.heard(ErrNotStaff.Error()))
	assert.True(t, lobby.Minigame.Active())

	h.command(cm, "/minigame end")
	assert.False(t, lobby.Minigame.Active())
	assert.Equal(t, EndForced, lobby.Minigame.Result.Reason)

	// the mute from before the minigame survives it
	assert.True(t, lobby.Muted())
	assert.True(t, lobby.Invited(guest))
	assert.False(t, lobby.Invited(rival))
}

func TestMinigameExpires(t *testing.T) {
	conf := testConfig()
	conf.Minigame.CrossSwordsSeconds = 30
	h := newHarness(t, conf)
	lobby := h.lobby()
	red, conn := h.join(0)
	h.join(1)

	h.command(red, "/minigame cs Edgeworth")
	require.True(t, lobby.Minigame.Active())
	assert.Error(t, lobby.StartMinigame(PanicTalk, red, red))

	h.expire(30 * time.Second)
	assert.False(t, lobby.Minigame.Active())
	assert.Equal(t, EndExpired, lobby.Minigame.Result.Reason)
	assert.Equal(t, NoTeam, lobby.Minigame.Result.Loser)

	mc, ok := conn.last("MC")
	require.True(t, ok)
	assert.Equal(t, []string{"cs_end.opus", "-1", "~Cross Swords~"}, mc.Args)
}

func TestLeavingByAreaConcedes(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	courtroom := h.server.DefaultHub().Area(1)
	phoenix, _ := h.join(0)
	edgeworth, edgeworthConn := h.join(1)

	// someone else already plays Edgeworth next door
	holder, _ := h.join(3)
	h.move(holder, courtroom)
	h.frame(holder, fmt.Sprintf("CC#%d#1#hdid", holder.ID))
	require.Equal(t, 1, holder.CharID)

	h.frame(phoenix, ms(0, "Edgeworth", "wit", ButtonObjection, 0))
	game := lobby.Minigame
	require.Equal(t, Blue, game.TeamOf(1))

	h.command(edgeworth, "/area 1")
	assert.Equal(t, courtroom, edgeworth.Area)
	assert.Equal(t, -1, edgeworth.CharID)
	assert.True(t, edgeworthConn.heard("you are now spectating"))

	assert.False(t, game.Active())
	require.NotNil(t, game.Result)
	assert.Equal(t, EndConceded, game.Result.Reason)
	assert.Equal(t, Blue, game.Result.Loser)
	assert.Equal(t, NoTeam, game.TeamOf(1))
	assert.False(t, lobby.Muted())
}
