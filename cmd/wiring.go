package cmd

import (
	"github.com/marcus/roster/internal/cache"
	"github.com/marcus/roster/internal/config"
	"github.com/marcus/roster/internal/db"
	"github.com/marcus/roster/internal/events"
	"github.com/marcus/roster/internal/netcheck"
	"github.com/marcus/roster/internal/remote"
	"github.com/marcus/roster/internal/repo"
)

// app bundles the wired component graph behind a command.
type app struct {
	DB     *db.DB
	Store  *repo.Store
	Cached *cache.Cached
	Bus    *events.Bus
}

// Close tears down the cache subscription and the database.
func (a *app) Close() {
	a.Cached.Close()
	a.DB.Close()
}

// openApp wires config, store, remote client, connectivity checker, event
// bus, repository core and caching decorator. forceOffline short-circuits
// connectivity checks for this invocation.
func openApp(forceOffline bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(getBaseDir())
	if err != nil {
		return nil, err
	}

	sessionID, err := config.GetDeviceID()
	if err != nil {
		database.Close()
		return nil, err
	}

	serverURL := cfg.EffectiveServerURL()
	client := remote.New(serverURL, cfg.APIKey)

	var rem repo.Remote = client
	if cfg.Retry {
		rem = remote.NewRetrying(client)
	}

	var checker netcheck.Checker
	if forceOffline || cfg.Offline {
		checker = netcheck.Static(false)
	} else {
		checker = netcheck.NewProber(serverURL)
	}

	bus := events.NewBus()
	store := repo.NewStore(database, rem, checker, bus, sessionID)
	cached := cache.New(store, bus)

	return &app{DB: database, Store: store, Cached: cached, Bus: bus}, nil
}
