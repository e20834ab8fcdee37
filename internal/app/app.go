package app

import (
	"fmt"
	"log/slog"

	"github.com/filerstat/filerstat/internal/collector"
	"github.com/filerstat/filerstat/internal/config"
	"github.com/filerstat/filerstat/internal/counter"
	"github.com/filerstat/filerstat/internal/filer"
)

// App holds the initialized component graph. Everything is constructed
// once here and passed by reference; no package-level state.
type App struct {
	Config  *config.Config
	Client  filer.Client
	Meta    *counter.MetadataCache
	Store   *counter.Store
	Engine  *counter.Engine
	Manager *collector.Manager
}

// New initializes the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	rest := filer.NewRESTClient(filer.RESTConfig{
		Host:          cfg.Filer.Host,
		User:          cfg.Filer.User,
		Password:      cfg.Filer.Password,
		Timeout:       cfg.Filer.Timeout,
		TLSSkipVerify: cfg.Filer.TLSSkipVerify,
	}, logger)
	client := filer.NewRetryClient(rest, cfg.Retry.Attempts, cfg.Retry.Delay, logger)

	meta, err := counter.NewMetadataCache(client, cfg.Cache.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	store, err := counter.NewStore(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	engine := counter.NewEngine(meta, logger)

	groups, instances, err := resolveGroups(cfg.Groups)
	if err != nil {
		return nil, err
	}

	manager := collector.NewManager(client, meta, store, engine, groups, instances, logger)

	return &App{
		Config:  cfg,
		Client:  client,
		Meta:    meta,
		Store:   store,
		Engine:  engine,
		Manager: manager,
	}, nil
}

// resolveGroups maps configured group selections onto the builtin metric
// groups. Unknown group names are a configuration error surfaced before
// any collection work begins.
func resolveGroups(selected []config.GroupConfig) ([]collector.Group, map[string][]string, error) {
	builtin := collector.BuiltinGroups()

	var groups []collector.Group
	instances := make(map[string][]string)
	for _, sel := range selected {
		g, ok := builtin[sel.Name]
		if !ok {
			return nil, nil, fmt.Errorf("unknown metric group %q", sel.Name)
		}
		if len(sel.Instances) > 0 && g.Singleton {
			return nil, nil, fmt.Errorf("metric group %q takes no instances", sel.Name)
		}
		groups = append(groups, g)
		if len(sel.Instances) > 0 {
			instances[g.Object] = sel.Instances
		}
	}
	return groups, instances, nil
}
