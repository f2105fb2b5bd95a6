// Package cache holds the dataset that searches run against.
//
// A Cache stores exactly one *core.Snapshot at a time. Readers grab the current
// snapshot with Snapshot and keep using it for the whole search; Replace swaps
// in a new snapshot with a single atomic pointer store, so a reader sees either
// the old dataset or the new one and never a mix. Snapshots are never mutated
// after they are installed.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/rubiojr/msgsearch/pkg/core"
	"github.com/rubiojr/msgsearch/pkg/log"
)

// Cache is the process-wide holder of the current dataset snapshot.
type Cache struct {
	current atomic.Pointer[core.Snapshot]
}

// Stats describes the installed snapshot.
type Stats struct {
	Count       int       `json:"count"`
	Source      string    `json:"source"`
	InstalledAt time.Time `json:"installed_at"`
}

// New returns a cache holding snapshot, or an empty snapshot if it is nil.
func New(snapshot *core.Snapshot) *Cache {
	c := &Cache{}
	c.Replace(snapshot)
	return c
}

// NewFromFallback builds a cache seeded from the fallback file at path.
// A missing or unreadable file leaves the cache empty; it never fails.
func NewFromFallback(path string) *Cache {
	l := log.ForComponent("cache")

	if path == "" {
		l.Infof("no fallback file configured, starting empty")
		return New(nil)
	}

	snapshot, err := LoadFallback(path)
	if err != nil {
		l.Warnf("fallback dataset unavailable, starting empty: %v", err)
		return New(nil)
	}

	l.Infof("loaded %d messages from fallback %s", snapshot.Len(), path)
	return New(snapshot)
}

// Snapshot returns the installed snapshot. Callers must not modify it.
func (c *Cache) Snapshot() *core.Snapshot {
	return c.current.Load()
}

// Replace installs snapshot as the current dataset.
func (c *Cache) Replace(snapshot *core.Snapshot) {
	if snapshot == nil {
		snapshot = core.EmptySnapshot()
	}
	c.current.Store(snapshot)
}

// Stats reports on the installed snapshot.
func (c *Cache) Stats() Stats {
	s := c.Snapshot()
	return Stats{
		Count:       s.Len(),
		Source:      s.Source,
		InstalledAt: s.InstalledAt,
	}
}
