package cmd

import (
	"fmt"

	"github.com/rubiojr/msgsearch/pkg/api"
	"github.com/rubiojr/msgsearch/pkg/cache"
	"github.com/rubiojr/msgsearch/pkg/config"
	"github.com/rubiojr/msgsearch/pkg/dispatch"
	"github.com/rubiojr/msgsearch/pkg/refresh"
	"github.com/rubiojr/msgsearch/pkg/search"
	"github.com/rubiojr/msgsearch/pkg/upstream"
)

// app wires the components every command needs around a single cache.
type app struct {
	cfg          *config.Config
	cache        *cache.Cache
	client       *upstream.Client
	orchestrator *refresh.Orchestrator
	engine       *search.Engine
	dispatcher   *dispatch.Dispatcher
}

// newApp seeds a cache from the configured fallback file and builds the
// refresh and search paths on top of it.
func newApp(cfg *config.Config) (*app, error) {
	return newAppWithCache(cfg, cache.NewFromFallback(cfg.FallbackPath))
}

// newAppWithCache builds everything except the cache, which is kept across
// config reloads.
func newAppWithCache(cfg *config.Config, c *cache.Cache) (*app, error) {
	client, err := upstream.NewClient(cfg.UpstreamURL,
		upstream.WithTimeout(cfg.RequestTimeout.Duration),
		upstream.WithRateLimit(cfg.RequestsPerSecond),
	)
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	orchestrator := refresh.NewOrchestrator(client, c, cfg.PageLimit)
	engine := search.NewEngine(c, search.WithMaxPageSize(cfg.MaxPageSize))

	return &app{
		cfg:          cfg,
		cache:        c,
		client:       client,
		orchestrator: orchestrator,
		engine:       engine,
		dispatcher:   dispatch.New(orchestrator, engine),
	}, nil
}

func (a *app) scheduler() *refresh.Scheduler {
	return refresh.NewScheduler(refresh.SchedulerConfig{
		Interval:       a.cfg.RefreshInterval.Duration,
		RefreshOnStart: a.cfg.RefreshOnStart,
	}, a.orchestrator)
}

func (a *app) apiServer(s *refresh.Scheduler) *api.Server {
	server := api.NewServer(a.dispatcher, a.cache)
	if s != nil {
		server = server.WithScheduler(s)
	}
	return server
}
