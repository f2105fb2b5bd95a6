package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/msgsearch/pkg/config"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/rubiojr/msgsearch/pkg/refresh"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search API and refresh the dataset on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides listen_addr)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

// liveHandler lets a config reload swap the API handler under a running server.
type liveHandler struct {
	current atomic.Pointer[http.Handler]
}

func (h *liveHandler) set(handler http.Handler) {
	h.current.Store(&handler)
}

func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*h.current.Load()).ServeHTTP(w, r)
}

// serverState is the reloadable part of the server: everything but the cache
// and the listener.
type serverState struct {
	app       *app
	scheduler *refresh.Scheduler
}

func startServerState(ctx context.Context, a *app, handler *liveHandler) (*serverState, error) {
	s := a.scheduler()
	if err := s.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting scheduler: %w", err)
	}
	handler.set(a.apiServer(s).Handler())
	return &serverState{app: a, scheduler: s}, nil
}

// serve runs the HTTP API until SIGINT or SIGTERM
func serve(ctx context.Context, configPath, listenOverride string) error {
	l := log.ForComponent("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listenOverride != "" {
		cfg.ListenAddr = listenOverride
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := &liveHandler{}
	rt, err := startServerState(runCtx, a, handler)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		l.Infof("listening on http://%s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var reloadMu sync.Mutex
	reload := func(reason string) {
		reloadMu.Lock()
		defer reloadMu.Unlock()

		l.Infof("%s, reloading configuration...", reason)
		next, err := reloadServerState(runCtx, configPath, listenOverride, rt, handler)
		if err != nil {
			l.Errorf("failed to reload configuration, keeping the current one: %v", err)
			return
		}
		rt = next
		l.Infof("configuration reloaded")
	}

	var watchEvents <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				l.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			l.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			l.Infof("watching config file for changes: %s", configPath)
		}
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
	}

	shutdown := func() error {
		rt.scheduler.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}

	for {
		select {
		case err, ok := <-serverErr:
			if !ok {
				serverErr = nil
				continue
			}
			rt.scheduler.Stop()
			return fmt.Errorf("http server: %w", err)
		case <-ctx.Done():
			return shutdown()
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				reload("received SIGHUP")
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nShutting down...")
				return shutdown()
			}
		case event, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			// Editors often replace the file, so rename and remove count too.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					l.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					l.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload(fmt.Sprintf("config file changed (%s)", event.Op))
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			l.Warnf("config file watcher error: %v", err)
		}
	}
}

// reloadServerState builds a new upstream client, orchestrator and scheduler from
// the config file. The cache is carried over so searches keep their dataset.
func reloadServerState(ctx context.Context, configPath, listenOverride string, current *serverState, handler *liveHandler) (*serverState, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if listenOverride != "" {
		cfg.ListenAddr = listenOverride
	}
	if cfg.ListenAddr != current.app.cfg.ListenAddr {
		log.ForComponent("serve").Warnf("listen_addr changed to %s, restart to apply", cfg.ListenAddr)
		cfg.ListenAddr = current.app.cfg.ListenAddr
	}

	a, err := newAppWithCache(cfg, current.app.cache)
	if err != nil {
		return nil, err
	}

	// Let an in-flight refresh finish before the new scheduler starts so
	// refreshes never overlap.
	current.scheduler.Stop()

	next, err := startServerState(ctx, a, handler)
	if err != nil {
		if restartErr := current.scheduler.Start(ctx); restartErr != nil {
			log.ForComponent("serve").Errorf("restarting previous scheduler: %v", restartErr)
		}
		return nil, err
	}
	return next, nil
}
