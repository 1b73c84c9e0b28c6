package gameserver

import (
	"github.com/cfoust/courtroom/pkg/failure"
)

// ChangeArea moves c into target. Without force the target's lock and the
// source's links are enforced; force is for relocation by the server.
func (s *Server) ChangeArea(c *Client, target *Area, password string, force bool) error {
	source := c.Area
	if source == target {
		return failure.Domain("You are already in that area.")
	}

	if !force {
		if err := target.admits(c); err != nil {
			return err
		}
		if source != nil && source.hub == target.hub {
			if err := source.passage(c, target, password); err != nil {
				return err
			}
		}
	}

	available := target.CharAvailable(c.CharID, c)

	// Leaving runs before the character is dropped so team membership is
	// still found by character id.
	if source != nil {
		source.removeClient(c)
		source.sendCharsCheck()
		if source.hub != target.hub {
			source.hub.SendARUP(ARUPPlayers, ARUPLock)
		}
	}

	if !available {
		c.CharID = -1
		c.Send("PV", c.ID, "CID", -1)
		c.Message("Your character is taken in that area, you are now spectating.")
	}

	target.addClient(c)
	if source == nil || source.hub != target.hub {
		target.hub.SendMusicList(c)
	}
	target.sendState(c)
	target.sendCharsCheck()
	target.hub.SendARUP(ARUPPlayers, ARUPLock)

	c.Messagef("Changed area to %s.", target)
	c.Logger.Debug().Str("area", target.Name).Msg("changed area")
	return nil
}

// join places a client that finished loading into its first area.
func (s *Server) join(c *Client) {
	if c.Joined {
		return
	}
	c.Joined = true

	hub := s.DefaultHub()
	if err := s.ChangeArea(c, hub.Default(), "", true); err != nil {
		s.Report(c, err)
		return
	}
	c.Send("DONE")
	if s.MOTD != "" {
		c.Message(s.MOTD)
	}
}
