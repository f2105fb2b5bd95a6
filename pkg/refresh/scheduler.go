package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/msgsearch/pkg/log"
)

// Refresher is anything that can rebuild the dataset.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

type SchedulerConfig struct {
	// Interval between scheduled refreshes. Zero disables the ticker.
	Interval time.Duration
	// RefreshOnStart runs one refresh as soon as the scheduler starts.
	RefreshOnStart bool
}

// Scheduler triggers refreshes on a timer, one at a time.
type Scheduler struct {
	config    SchedulerConfig
	refresher Refresher
	stopCh    chan struct{}
	cancel    context.CancelFunc
	mu        sync.Mutex
	wg        sync.WaitGroup
	running   bool

	lastMu     sync.RWMutex
	lastRun    time.Time
	lastCount  int
	lastErr    error
	runCounter int
}

// Status is the outcome of the most recent scheduled refresh.
type Status struct {
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"last_run"`
	LastCount int       `json:"last_count"`
	LastError string    `json:"last_error,omitempty"`
}

func NewScheduler(config SchedulerConfig, refresher Refresher) *Scheduler {
	return &Scheduler{
		config:    config,
		refresher: refresher,
	}
}

// Start launches the scheduling loop. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}
	if s.config.Interval < 0 {
		return fmt.Errorf("invalid refresh interval %v", s.config.Interval)
	}

	l := log.ForComponent("scheduler")

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.run(loopCtx)

	if s.config.Interval == 0 {
		l.Infof("scheduler started without periodic refresh")
	} else {
		l.Infof("scheduler started, refreshing every %v", s.config.Interval)
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	l := log.ForComponent("scheduler")

	if s.config.RefreshOnStart {
		l.Infof("running initial refresh")
		s.refreshOnce(ctx)
	}

	if s.config.Interval == 0 {
		select {
		case <-ctx.Done():
		case <-s.stopCh:
		}
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Debugf("scheduler context cancelled")
			return
		case <-s.stopCh:
			l.Debugf("scheduler stop signal received")
			return
		case <-ticker.C:
			l.Infof("running scheduled refresh")
			s.refreshOnce(ctx)
		}
	}
}

func (s *Scheduler) refreshOnce(ctx context.Context) {
	count, err := s.refresher.Refresh(ctx)

	s.lastMu.Lock()
	s.runCounter++
	s.lastRun = time.Now().UTC()
	s.lastCount = count
	s.lastErr = err
	s.lastMu.Unlock()

	if err != nil {
		log.ForComponent("scheduler").Errorf("scheduled refresh failed, keeping current dataset: %v", err)
	}
}

// Status returns the result of the last refresh run by the scheduler.
func (s *Scheduler) Status() Status {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	st := Status{
		Runs:      s.runCounter,
		LastRun:   s.lastRun,
		LastCount: s.lastCount,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop ends the loop and waits for an in-flight refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}
