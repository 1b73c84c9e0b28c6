package gameserver

import (
	"fmt"
	"testing"

	"github.com/cfoust/courtroom/pkg/evidence"
	"github.com/cfoust/courtroom/pkg/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	courtroom := h.server.DefaultHub().Area(1)

	inside, _ := h.join(0)
	also, _ := h.join(1)
	outside, _ := h.join(2)
	h.move(outside, courtroom)

	require.NoError(t, lobby.Lock())
	assert.Equal(t, []int{inside.ID, also.ID}, lobby.InviteList())
	assert.Error(t, lobby.Lock())

	err := h.server.ChangeArea(outside, lobby, "", false)
	assert.Equal(t, "That area is locked!", failure.Message(err))

	require.NoError(t, lobby.Invite(outside))
	assert.Error(t, lobby.Invite(outside))
	require.NoError(t, h.server.ChangeArea(outside, lobby, "", false))

	// the area unlocks itself once it empties out
	h.move(inside, courtroom)
	h.move(also, courtroom)
	assert.True(t, lobby.Locked())
	h.server.Disconnect(outside, "test")
	assert.False(t, lobby.Locked())
	assert.Empty(t, lobby.InviteList())

	lobby.Permissions.Lockable = false
	assert.Equal(t, "This area can't be locked.", failure.Message(lobby.Lock()))
}

func TestMute(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	speaker, speakerConn := h.join(0)
	cm, _ := h.join(1)
	listener, listenerConn := h.join(2)
	h.command(cm, "/cm")
	h.command(cm, "/mute")
	require.True(t, lobby.Muted())

	h.frame(speaker, ms(0, "hello", "def", 0, 0))
	assert.True(t, speakerConn.heard("This area is muted."))
	assert.Empty(t, listenerConn.packets("MS"))

	h.frame(cm, ms(1, "order", "jud", 0, 0))
	assert.Len(t, listenerConn.packets("MS"), 1)

	h.command(cm, "/invite 0")
	h.frame(speaker, ms(0, "thanks", "def", 0, 0))
	assert.Len(t, listenerConn.packets("MS"), 2)

	h.command(listener, "/unmute")
	assert.True(t, lobby.Muted())
	h.command(cm, "/unmute")
	assert.False(t, lobby.Muted())
	assert.Empty(t, lobby.InviteList())
}

func TestICRouting(t *testing.T) {
	h := newHarness(t, testConfig())
	speaker, speakerConn := h.join(0)
	picky, pickyConn := h.join(1)
	blind, blindConn := h.join(2)

	h.command(picky, "/listen_pos wit jud")
	assert.Equal(t, []string{"wit", "jud"}, picky.ListenPos)
	blind.Blinded = true
	pickyConn.reset()

	h.frame(speaker, ms(0, "I object", "def", 0, 0))

	_, ok := speakerConn.last("MS")
	assert.True(t, ok)

	// a filtered position arrives as OOC, never as MS
	assert.Empty(t, pickyConn.packets("MS"))
	ct, ok := pickyConn.last("CT")
	require.True(t, ok)
	assert.Equal(t, []string{"[def] Phoenix", "I object", "0"}, ct.Args)

	assert.Empty(t, blindConn.packets("MS"))
	assert.Empty(t, blindConn.packets("CT"))

	h.frame(speaker, ms(0, "Over here", "wit", 0, 0))
	assert.Len(t, pickyConn.packets("MS"), 1)
}

func TestICDefaults(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	speaker, _ := h.join(0)
	_, listenerConn := h.join(1)

	h.frame(speaker, ms(0, "first", "pro", 0, 0))
	assert.Equal(t, "pro", speaker.Pos)

	// an empty position reuses the speaker's last one
	h.frame(speaker, ms(0, "second", "", 0, 0))
	message, ok := listenerConn.last("MS")
	require.True(t, ok)
	assert.Equal(t, "pro", message.Args[5])

	lobby.PosLock = []string{"wit"}
	h.frame(speaker, ms(0, "third", "def", 0, 0))
	message, _ = listenerConn.last("MS")
	assert.Equal(t, "wit", message.Args[5])

	// shouts are stripped where they are disabled
	lobby.Permissions.Shouts = false
	h.frame(speaker, ms(0, "Objection!", "wit", ButtonObjection, 0))
	message, _ = listenerConn.last("MS")
	assert.Equal(t, "0", message.Args[10])
}

func TestPairing(t *testing.T) {
	h := newHarness(t, testConfig())
	first, _ := h.join(0)
	second, secondConn := h.join(1)

	pair := func(text string, partner int) string {
		return fmt.Sprintf("%s#Nick#%d", ms(0, text, "def", 0, 0), partner)
	}
	h.frame(first, pair("alone", 1))
	message, ok := secondConn.last("MS")
	require.True(t, ok)
	assert.Equal(t, "-1", message.Args[16])

	h.frame(second, ms(1, "ready", "pro", 0, 0)+"##0")
	h.frame(first, pair("together", 1))
	message, _ = secondConn.last("MS")
	assert.Equal(t, "Nick", message.Args[15])
	assert.Equal(t, "1", message.Args[16])
	assert.Equal(t, "Edgeworth", message.Args[17])
}

func TestEvidenceViews(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	cm, cmConn := h.join(0)
	viewer, viewerConn := h.join(1)
	hider, _ := h.join(2)
	h.command(cm, "/cm")
	h.command(cm, "/evidence_mod HiddenCM")
	viewer.Pos = "pro"

	for _, item := range []struct{ name, description string }{
		{"Knife", "<owner=all>\nA knife"},
		{"Letter", "<owner=def>\nA letter"},
		{"Diary", "<owner=hidden>\nA diary"},
		{"Badge", "<owner=all>\nA badge"},
	} {
		require.NoError(t, lobby.AddEvidence(cm, item.name, item.description, ""))
	}

	assert.Len(t, cm.Evidence.Items, 4)
	assert.Equal(t, "<owner=def>\n<can_hide_in=0>\n<dark=0>\nA letter", cm.Evidence.Items[1].Description)
	require.Len(t, viewer.Evidence.Items, 2)
	assert.Equal(t, "Badge", viewer.Evidence.Items[1].Name)
	assert.Equal(t, "A badge", viewer.Evidence.Items[1].Description)

	// the same item is numbered differently for each recipient
	h.frame(viewer, ms(1, "This badge", "pro", 0, 2))
	message, ok := cmConn.last("MS")
	require.True(t, ok)
	assert.Equal(t, "4", message.Args[11])
	message, _ = viewerConn.last("MS")
	assert.Equal(t, "2", message.Args[11])

	// a viewer can't manage evidence in a CM mode
	h.frame(viewer, "DE#0")
	assert.True(t, viewerConn.heard(failure.Message(evidence.ErrNoPermission)))
	assert.Equal(t, 4, lobby.Evidence.Len())

	// presenting reveals the item before the message goes out
	h.frame(cm, ms(0, "And this letter", "def", 0, 2))
	require.Len(t, viewer.Evidence.Items, 3)
	message, _ = viewerConn.last("MS")
	assert.Equal(t, "2", message.Args[11])

	// deleting under HiddenCM takes the item and shifts hiders down
	hider.HiddenIn = 3
	h.frame(cm, "DE#0")
	assert.Equal(t, 3, lobby.Evidence.Len())
	assert.Equal(t, 2, hider.HiddenIn)
	require.Equal(t, 1, cm.Inventory.Len())
	assert.Equal(t, "Knife", cm.Inventory.Items()[0].Name)

	h.frame(viewer, ms(1, "Nothing", "pro", 0, 9))
	message, _ = cmConn.last("MS")
	assert.Equal(t, "0", message.Args[11])
}

func TestEvidenceTrigger(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	c, _ := h.join(0)

	h.frame(c, "PE#Map#A map#map.png")
	h.command(c, "/trigger 1 present /bg crimescene")
	item, _ := lobby.Evidence.Get(0)
	assert.Equal(t, "/bg crimescene", item.Triggers["present"])

	h.frame(c, ms(0, "Look", "def", 0, 1))
	assert.Equal(t, "crimescene", lobby.Background)

	// a failing trigger reports to the presenter and the message still goes out
	h.command(c, "/trigger 1 present /nonsense")
	_, conn := h.join(1)
	h.frame(c, ms(0, "Again", "def", 0, 1))
	_, ok := conn.last("MS")
	assert.True(t, ok)
}

func TestAreaReset(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	c, conn := h.join(0)
	h.command(c, "/cm")

	h.command(c, "/bg night")
	h.command(c, "/status casing")
	h.command(c, "/doc https://example.com/case")
	h.command(c, "/lock")
	assert.Equal(t, "night", lobby.Background)
	assert.Equal(t, "CASING", lobby.Status)

	h.command(c, "/reset")
	assert.Equal(t, "default", lobby.Background)
	assert.Equal(t, "IDLE", lobby.Status)
	assert.Equal(t, "", lobby.Doc)
	assert.False(t, lobby.Locked())
	assert.True(t, conn.heard("This area has been reset."))
}
