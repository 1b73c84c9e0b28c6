package gameserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJukeboxPick(t *testing.T) {
	jukebox := &Jukebox{}
	assert.Nil(t, jukebox.pick(func(int) int { return 0 }))

	first := &JukeboxVote{Client: 0, Chance: 1}
	second := &JukeboxVote{Client: 1, Chance: 1}
	third := &JukeboxVote{Client: 2, Chance: 3}
	jukebox.Votes = []*JukeboxVote{first, second, third}

	var bound int
	roll := func(value int) func(int) int {
		return func(n int) int {
			bound = n
			return value
		}
	}

	assert.Equal(t, third, jukebox.pick(roll(4)))
	assert.Equal(t, 5, bound)
	assert.Equal(t, []int{2, 2, 0}, chances(jukebox))

	assert.Equal(t, first, jukebox.pick(roll(0)))
	assert.Equal(t, []int{0, 3, 1}, chances(jukebox))

	// with no weight at all every vote is equally likely
	for _, vote := range jukebox.Votes {
		vote.Chance = 0
	}
	assert.Equal(t, second, jukebox.pick(roll(1)))
	assert.Equal(t, 3, bound)

	jukebox.Votes = []*JukeboxVote{first}
	assert.Equal(t, first, jukebox.pick(nil))
}

func chances(j *Jukebox) []int {
	var result []int
	for _, vote := range j.Votes {
		result = append(result, vote.Chance)
	}
	return result
}

func TestJukebox(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	lobby.Permissions.Jukebox = true
	c, conn := h.join(0)

	h.frame(c, "MC#unknown.opus#0")
	assert.True(t, conn.heard("That song can't be played by the jukebox."))
	assert.Empty(t, lobby.Jukebox.Votes)

	h.frame(c, "MC#trial.opus#0")
	require.NotNil(t, lobby.Jukebox.Current)
	assert.Equal(t, "trial.opus", lobby.Music)
	assert.Len(t, conn.packets("MC"), 1)

	// the only vote plays again once the song runs out
	h.expire(2 * time.Minute)
	assert.Len(t, conn.packets("MC"), 2)

	h.frame(c, "MC#objection.opus#0")
	require.Len(t, lobby.Jukebox.Votes, 1)
	assert.Equal(t, "objection.opus", lobby.Jukebox.Votes[0].Song.Name)

	// leaving takes the vote and stops the jukebox
	h.server.Disconnect(c, "test")
	assert.Nil(t, lobby.Jukebox.Current)
	assert.Empty(t, lobby.Jukebox.Votes)
	h.clock.Advance(2 * time.Minute)
	h.idle()
}

func TestJukeboxCommand(t *testing.T) {
	h := newHarness(t, testConfig())
	lobby := h.lobby()
	c, conn := h.join(0)

	h.command(c, "/jukebox")
	assert.True(t, conn.heard("The jukebox is off in this area."))

	h.command(c, "/jukebox on")
	assert.True(t, conn.heard(ErrNotStaff.Error()))

	h.command(c, "/cm")
	h.command(c, "/jukebox on")
	require.True(t, lobby.Permissions.Jukebox)

	h.frame(c, "MC#objection.opus#0")
	h.command(c, "/jukebox")
	assert.True(t, conn.heard("objection.opus (chance 0)"))

	h.command(c, "/jukebox off")
	assert.False(t, lobby.Permissions.Jukebox)
	assert.Nil(t, lobby.Jukebox.Current)
	assert.Empty(t, lobby.Jukebox.Votes)
}
