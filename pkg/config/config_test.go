package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestProcess(t *testing.T) {
	// Default config
	config, err := Process([]string{})
	require.NoError(t, err)
	assert.Equal(t, 27016, config.Server.TCPPort)
	assert.NotEmpty(t, config.Game.Hubs)

	dir := t.TempDir()

	// yaml config
	{
		yaml := write(t, dir, "config.yaml", `
server:
  tcpPort: 1234
`)
		config, err := Process([]string{yaml})
		require.NoError(t, err)
		assert.Equal(t, 1234, config.Server.TCPPort)
		// untouched keys keep their defaults
		assert.Equal(t, 50001, config.Server.WSPort)
	}

	// json config
	{
		json := write(t, dir, "config.json", `{
  "server": {
    "wsPort": 1235
  }
}`)
		config, err := Process([]string{json})
		require.NoError(t, err)
		assert.Equal(t, 1235, config.Server.WSPort)
	}

	// multiple yaml
	{
		yaml1 := write(t, dir, "config1.yaml", `
server:
  tcpPort: 1234
`)
		yaml2 := write(t, dir, "config2.yaml", `
game:
  description: "Hello, World!"
  characters: [Phoenix, Edgeworth]
`)
		config, err := Process([]string{yaml1, yaml2})
		require.NoError(t, err)
		assert.Equal(t, 1234, config.Server.TCPPort)
		assert.Equal(t, "Hello, World!", config.Game.Description)
		assert.Equal(t, []string{"Phoenix", "Edgeworth"}, config.Game.Characters)
	}
}

func TestInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Process([]string{filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)

	_, err = Process([]string{write(t, dir, "config.toml", "a = 1")})
	assert.Error(t, err)

	_, err = Process([]string{write(t, dir, "typo.yaml", `
server:
  tcpPrt: 1
`)})
	assert.Error(t, err)

	_, err = Process([]string{write(t, dir, "nohubs.yaml", `
game:
  hubs: []
`)})
	assert.Error(t, err)

	_, err = Process([]string{write(t, dir, "badlink.yaml", `
game:
  hubs:
    - name: Main
      areas:
        - name: Lobby
          links:
            - target: 4
`)})
	assert.Error(t, err)

	_, err = Process([]string{write(t, dir, "badmode.yaml", `
game:
  hubs:
    - name: Main
      areas:
        - name: Lobby
          evidenceMode: Anarchy
`)})
	assert.Error(t, err)
}
