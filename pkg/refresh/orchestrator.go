// Package refresh rebuilds the message dataset from the upstream API.
//
// An Orchestrator pulls every upstream page in order and installs the result
// as one new snapshot. A Scheduler runs the orchestrator on a fixed interval
// for the long-running server mode.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/rubiojr/msgsearch/pkg/core"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/rubiojr/msgsearch/pkg/upstream"
)

// DefaultPageLimit is the number of messages requested per upstream page.
const DefaultPageLimit = 100

// PageFetcher reads one page of the upstream dataset.
type PageFetcher interface {
	FetchPage(ctx context.Context, skip, limit int) (*upstream.Page, error)
}

// Installer receives the finished snapshot.
type Installer interface {
	Replace(snapshot *core.Snapshot)
}

// Orchestrator performs full-dataset refreshes.
type Orchestrator struct {
	fetcher   PageFetcher
	installer Installer
	pageLimit int
}

// NewOrchestrator creates an orchestrator that requests pageLimit messages per
// page. A non-positive pageLimit uses DefaultPageLimit.
func NewOrchestrator(fetcher PageFetcher, installer Installer, pageLimit int) *Orchestrator {
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	return &Orchestrator{
		fetcher:   fetcher,
		installer: installer,
		pageLimit: pageLimit,
	}
}

// PageLimit returns the page size used for upstream requests.
func (o *Orchestrator) PageLimit() int {
	return o.pageLimit
}

// maxPrealloc caps the slice capacity reserved from the reported total.
const maxPrealloc = 1 << 16

// Refresh fetches the whole upstream dataset and installs it, returning the
// number of messages installed. If any page fails nothing is installed and the
// error wraps the *upstream.Error.
func (o *Orchestrator) Refresh(ctx context.Context) (int, error) {
	l := log.ForComponent("refresh")
	start := time.Now()

	first, err := o.fetcher.FetchPage(ctx, 0, o.pageLimit)
	if err != nil {
		return 0, fmt.Errorf("fetching first page: %w", err)
	}

	total := first.Total
	pages := total / o.pageLimit
	if total%o.pageLimit != 0 {
		pages++
	}
	l.Debugf("upstream reports %d messages in %d pages of %d", total, pages, o.pageLimit)

	// total comes from upstream, so bound the preallocation and let append
	// grow past it.
	messages := make([]core.Message, 0, min(max(total, 0), maxPrealloc))
	if total > 0 {
		messages = append(messages, first.Items...)
	}

	for k := 1; k < pages; k++ {
		skip := k * o.pageLimit
		page, err := o.fetcher.FetchPage(ctx, skip, o.pageLimit)
		if err != nil {
			return 0, fmt.Errorf("fetching page %d of %d: %w", k+1, pages, err)
		}
		messages = append(messages, page.Items...)
	}

	if len(messages) != total {
		l.Warnf("upstream reported %d messages but returned %d", total, len(messages))
	}

	o.installer.Replace(core.NewSnapshot(messages, core.SourceUpstream))
	l.Infof("installed %d messages from %d pages in %v", len(messages), pages, time.Since(start))

	return len(messages), nil
}
