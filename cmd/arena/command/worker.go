package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-arena/internal/driver"
	"github.com/pixil98/go-arena/internal/match"
	"github.com/pixil98/go-arena/internal/messaging"
	"github.com/pixil98/go-arena/internal/snapshot"
	service "github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Create the message bus
	natsServer, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Build the catalogs
	characters, err := cfg.Storage.BuildCharacterStore()
	if err != nil {
		return nil, fmt.Errorf("creating character store: %w", err)
	}
	dice, err := cfg.Storage.BuildDiceStore()
	if err != nil {
		return nil, fmt.Errorf("creating dice store: %w", err)
	}

	// Durable match documents
	store, err := snapshot.NewStore(cfg.Storage.Matches.Path, characters)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	// Active match registry and engine
	registryOpts := []match.RegistryOpt{
		match.WithSharedTiles(cfg.Game.AllowSharedTiles()),
	}
	if cfg.Game.BoardSize > 0 {
		registryOpts = append(registryOpts, match.WithBoardSize(cfg.Game.BoardSize))
	}
	registry := match.NewRegistry(store, registryOpts...)
	engine := match.NewEngine(registry, store, characters, dice, messaging.NewRoomPublisher(natsServer))

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(engine, natsServer)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Registry sweep driver
	driverOpts := []driver.DriverOpt{}
	if cfg.SweepInterval != "" {
		d, err := time.ParseDuration(cfg.SweepInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing sweep_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	sweeper := driver.NewDriver([]driver.Manager{registry}, driverOpts...)

	// Create a worker list
	return service.WorkerList{
		"nats":      natsServer,
		"driver":    sweeper,
		"listeners": &listeners,
	}, nil
}
