package gameserver

import (
	"time"

	"github.com/cfoust/courtroom/pkg/failure"

	"github.com/jonboulle/clockwork"
)

type JukeboxVote struct {
	Client   int
	CharID   int
	Showname string
	Song     Song
	// grows by one every round the vote is passed over
	Chance int
}

// Jukebox picks the next song from the votes, favouring songs that have
// waited longest.
type Jukebox struct {
	Votes   []*JukeboxVote
	Current *JukeboxVote

	looper     clockwork.Timer
	generation uint64
}

func (j *Jukebox) find(c *Client) int {
	for i, vote := range j.Votes {
		if vote.Client == c.ID {
			return i
		}
	}
	return -1
}

// pick chooses by weight and updates every vote's chance.
func (j *Jukebox) pick(intn func(int) int) *JukeboxVote {
	if len(j.Votes) == 0 {
		return nil
	}

	var picked *JukeboxVote
	if len(j.Votes) == 1 {
		picked = j.Votes[0]
	} else {
		total := 0
		for _, vote := range j.Votes {
			total += vote.Chance
		}
		if total == 0 {
			picked = j.Votes[intn(len(j.Votes))]
		} else {
			roll := intn(total)
			for _, vote := range j.Votes {
				if roll < vote.Chance {
					picked = vote
					break
				}
				roll -= vote.Chance
			}
		}
	}

	for _, vote := range j.Votes {
		if vote == picked {
			vote.Chance = 0
		} else {
			vote.Chance++
		}
	}
	return picked
}

func (j *Jukebox) cancel() {
	j.generation++
	if j.looper != nil {
		j.looper.Stop()
		j.looper = nil
	}
}

// JukeboxVote queues c's song, replacing c's previous vote.
func (a *Area) JukeboxVote(c *Client, song Song) error {
	if song.Length <= 0 {
		return failure.Domain("That song can't be played by the jukebox.")
	}

	j := a.Jukebox
	vote := &JukeboxVote{
		Client:   c.ID,
		CharID:   c.CharID,
		Showname: c.Showname,
		Song:     song,
		Chance:   1,
	}
	if i := j.find(c); i >= 0 {
		j.Votes[i] = vote
	} else {
		j.Votes = append(j.Votes, vote)
	}
	c.Messagef("Your vote for %s was added to the jukebox.", song.Name)

	if j.Current == nil {
		a.jukeboxNext()
	}
	return nil
}

func (a *Area) jukeboxRemove(c *Client) {
	j := a.Jukebox
	i := j.find(c)
	if i < 0 {
		return
	}
	j.Votes = append(j.Votes[:i], j.Votes[i+1:]...)
	if len(j.Votes) == 0 {
		a.jukeboxStop()
	}
}

func (a *Area) jukeboxStop() {
	a.Jukebox.cancel()
	a.Jukebox.Current = nil
}

// jukeboxNext plays the next pick and schedules the one after it.
func (a *Area) jukeboxNext() {
	j := a.Jukebox
	j.cancel()

	vote := j.pick(a.server().rng.Intn)
	j.Current = vote
	if vote == nil {
		return
	}
	a.PlayMusic(vote.Song.Name, vote.CharID, vote.Showname)

	generation := j.generation
	length := time.Duration(vote.Song.Length) * time.Second
	j.looper = a.server().after(length, func() {
		if j.generation != generation || !a.Alive() {
			return
		}
		a.jukeboxNext()
	})
}

// PlayMusic changes the area's song for everyone in it.
func (a *Area) PlayMusic(song string, charID int, showname string) {
	a.Music = song
	if showname != "" {
		a.Send("MC", song, charID, showname)
		return
	}
	a.Send("MC", song, charID)
}
