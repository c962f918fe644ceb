package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	SweepInterval string           `json:"sweep_interval"`
	Game          GameConfig       `json:"game"`
	Listeners     []ListenerConfig `json:"listeners"`
	Storage       StorageConfig    `json:"storage"`
	Nats          NatsConfig       `json:"nats"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.SweepInterval != "" {
		d, err := time.ParseDuration(c.SweepInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing sweep_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("sweep_interval must be at least 1 second"))
		}
	}

	for i, l := range c.Listeners {
		err := l.Validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Game.Validate())
	el.Add(c.Storage.Validate())
	el.Add(c.Nats.Validate())

	return el.Err()
}

type GameConfig struct {
	// BoardSize is the square board edge length; 0 means the default
	BoardSize int `json:"board_size"`

	// SharedTiles controls whether participants may share a tile;
	// unset means allowed
	SharedTiles *bool `json:"shared_tiles"`
}

func (c *GameConfig) Validate() error {
	el := errors.NewErrorList()

	if c.BoardSize < 0 || c.BoardSize == 1 {
		el.Add(fmt.Errorf("board_size must be at least 2"))
	}

	return el.Err()
}

func (c *GameConfig) AllowSharedTiles() bool {
	return c.SharedTiles == nil || *c.SharedTiles
}
