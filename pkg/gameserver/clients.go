package gameserver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
)

// ClientManager hands out client ids, always reusing the lowest free one.
type ClientManager struct {
	clients []*Client
	mutex   deadlock.RWMutex
}

func (cm *ClientManager) Add(c *Client) *Client {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for id, existing := range cm.clients {
		if existing == nil {
			c.ID = id
			cm.clients[id] = c
			return c
		}
	}
	c.ID = len(cm.clients)
	cm.clients = append(cm.clients, c)
	return c
}

func (cm *ClientManager) Remove(c *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if c.ID < 0 || c.ID >= len(cm.clients) || cm.clients[c.ID] != c {
		return
	}
	cm.clients[c.ID] = nil
	for len(cm.clients) > 0 && cm.clients[len(cm.clients)-1] == nil {
		cm.clients = cm.clients[:len(cm.clients)-1]
	}
}

func (cm *ClientManager) Get(id int) *Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if id < 0 || id >= len(cm.clients) {
		return nil
	}
	return cm.clients[id]
}

func (cm *ClientManager) ForEach(f func(*Client)) {
	cm.mutex.RLock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		if c != nil {
			clients = append(clients, c)
		}
	}
	cm.mutex.RUnlock()

	for _, c := range clients {
		f(c)
	}
}

func (cm *ClientManager) Count() int {
	count := 0
	cm.ForEach(func(c *Client) {
		if c.Authed {
			count++
		}
	})
	return count
}

// Broadcast sends a packet to every client that finished the handshake.
func (cm *ClientManager) Broadcast(command string, fields ...interface{}) {
	cm.ForEach(func(c *Client) {
		if c.Joined {
			c.Send(command, fields...)
		}
	})
}

// Resolve finds a target among candidates by client id, then exact showname,
// then fuzzy character name. Among several character name matches the last
// one wins.
func Resolve(candidates []*Client, query string) opt.Option[*Client] {
	query = strings.TrimSpace(query)
	if query == "" {
		return opt.None[*Client]()
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})

	if id, err := strconv.Atoi(query); err == nil {
		for _, c := range candidates {
			if c.ID == id {
				return opt.Some(c)
			}
		}
	}

	for _, c := range candidates {
		if c.Showname != "" && strings.EqualFold(c.Showname, query) {
			return opt.Some(c)
		}
	}

	var match *Client
	lower := strings.ToLower(query)
	for _, c := range candidates {
		name := strings.ToLower(c.CharName())
		if name == "" {
			continue
		}
		if name == lower {
			match = c
			continue
		}
		if match == nil && strings.Contains(name, lower) {
			match = c
		}
	}
	if match == nil {
		return opt.None[*Client]()
	}
	return opt.Some(match)
}
