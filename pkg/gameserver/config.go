package gameserver

import "time"

type Song struct {
	Name string `yaml:"name"`
	// seconds; 0 means unknown and keeps the song out of the jukebox
	Length int `yaml:"length"`
}

type MusicCategory struct {
	Name  string `yaml:"name"`
	Songs []Song `yaml:"songs"`
}

// PermissionConfig leaves a field nil to inherit from the hub.
type PermissionConfig struct {
	Lockable     *bool `yaml:"lockable"`
	Shouts       *bool `yaml:"shouts"`
	Music        *bool `yaml:"music"`
	Jukebox      *bool `yaml:"jukebox"`
	ChangeStatus *bool `yaml:"changeStatus"`
}

type LinkConfig struct {
	Target   int    `yaml:"target"`
	Locked   bool   `yaml:"locked"`
	Hidden   bool   `yaml:"hidden"`
	Password string `yaml:"password"`
	Evidence []int  `yaml:"evidence"`
}

type AreaConfig struct {
	Name         string           `yaml:"name"`
	Background   string           `yaml:"background"`
	Description  string           `yaml:"description"`
	Doc          string           `yaml:"doc"`
	Status       string           `yaml:"status"`
	EvidenceMode string           `yaml:"evidenceMode"`
	PosLock      []string         `yaml:"posLock"`
	Dark         bool             `yaml:"dark"`
	Permissions  PermissionConfig `yaml:"permissions"`
	Links        []LinkConfig     `yaml:"links"`
}

type HubConfig struct {
	Name        string           `yaml:"name"`
	MaxAreas    int              `yaml:"maxAreas"`
	SingleCM    bool             `yaml:"singleCM"`
	DefaultArea int              `yaml:"defaultArea"`
	Permissions PermissionConfig `yaml:"permissions"`
	Music       []MusicCategory  `yaml:"music"`
	Areas       []AreaConfig     `yaml:"areas"`
}

type MinigameCues struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Concede string `yaml:"concede"`
}

type MinigameConfig struct {
	CrossSwordsSeconds int                     `yaml:"crossSwordsSeconds"`
	PanicTalkSeconds   int                     `yaml:"panicTalkSeconds"`
	ScrumBonusSeconds  int                     `yaml:"scrumBonusSeconds"`
	Cues               map[string]MinigameCues `yaml:"cues"`
}

type Config struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MOTD        string `yaml:"motd"`
	MaxPlayers  int    `yaml:"maxPlayers"`
	// seconds without a keepalive before a connection is dropped
	Timeout     int    `yaml:"timeout"`
	ModPassword string `yaml:"modPassword"`
	// messages per second and burst allowed per client for IC, OOC, and music
	MessageRate  float64 `yaml:"messageRate"`
	MessageBurst int     `yaml:"messageBurst"`

	Characters []string        `yaml:"characters"`
	Music      []MusicCategory `yaml:"music"`
	Hubs       []HubConfig     `yaml:"hubs"`
	Minigame   MinigameConfig  `yaml:"minigame"`
}

func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 250 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func (m MinigameConfig) CrossSwords() time.Duration {
	return seconds(m.CrossSwordsSeconds, 300)
}

func (m MinigameConfig) PanicTalk() time.Duration {
	return seconds(m.PanicTalkSeconds, 300)
}

func (m MinigameConfig) ScrumBonus() time.Duration {
	return seconds(m.ScrumBonusSeconds, 60)
}
