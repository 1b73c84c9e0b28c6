package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cfoust/courtroom/pkg/evidence"
	"github.com/cfoust/courtroom/pkg/gameserver"
	"github.com/cfoust/courtroom/pkg/status"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DEFAULT []byte

type ServerSettings struct {
	TCPPort int `yaml:"tcpPort"`
	WSPort  int `yaml:"wsPort"`
	// 0 disables the metrics endpoint
	MetricsPort int `yaml:"metricsPort"`
	// unconsumed bytes a connection may buffer before it is dropped
	BufferLimit int `yaml:"bufferLimit"`
}

type StorageSettings struct {
	// sqlite path; empty disables ban checks
	BanDB string `yaml:"banDB"`
}

type Config struct {
	Server  ServerSettings       `yaml:"server"`
	Game    gameserver.Config    `yaml:"game"`
	Storage StorageSettings      `yaml:"storage"`
	Redis   status.RedisSettings `yaml:"redis"`
}

// decode merges one document into config. Keys the document leaves out keep
// their current values; lists are replaced wholesale.
func decode(config *Config, name string, data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(config)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not process config file %s: %v", name, err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}

	// JSON is valid YAML, so both go through the same decoder.
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return os.ReadFile(path)
	}

	return nil, fmt.Errorf("config file %s is not in a valid format", path)
}

// Process reads the provided configuration files in order and merges them
// over the default configuration, then validates the result.
func Process(configPaths []string) (*Config, error) {
	config := Config{}
	if err := decode(&config, "<default>", DEFAULT); err != nil {
		return nil, fmt.Errorf("invalid default config file: %v", err)
	}

	for _, path := range configPaths {
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}

		if err := decode(&config, path, data); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	game := c.Game
	if len(game.Characters) == 0 {
		return errors.New("at least one character is required")
	}
	if len(game.Hubs) == 0 {
		return errors.New("at least one hub is required")
	}

	for i, hub := range game.Hubs {
		if len(hub.Areas) == 0 {
			return fmt.Errorf("hub %d (%s) has no areas", i, hub.Name)
		}
		if hub.MaxAreas > 0 && len(hub.Areas) > hub.MaxAreas {
			return fmt.Errorf("hub %d (%s) has more areas than its maximum of %d", i, hub.Name, hub.MaxAreas)
		}
		if hub.DefaultArea < 0 || hub.DefaultArea >= len(hub.Areas) {
			return fmt.Errorf("hub %d (%s) default area %d does not exist", i, hub.Name, hub.DefaultArea)
		}

		for j, area := range hub.Areas {
			if area.Name == "" {
				return fmt.Errorf("hub %d area %d has no name", i, j)
			}
			if _, ok := evidence.ParseMode(area.EvidenceMode); !ok && area.EvidenceMode != "" {
				return fmt.Errorf("area %s: unknown evidence mode %q", area.Name, area.EvidenceMode)
			}
			for _, link := range area.Links {
				if link.Target < 0 || link.Target >= len(hub.Areas) || link.Target == j {
					return fmt.Errorf("area %s links to invalid area %d", area.Name, link.Target)
				}
			}
		}
	}

	if c.Server.BufferLimit < 0 {
		return errors.New("buffer limit can't be negative")
	}
	return nil
}
