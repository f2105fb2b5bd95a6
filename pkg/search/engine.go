package search

import (
	"errors"
	"strings"

	"github.com/rubiojr/msgsearch/pkg/core"
)

// ErrInvalidQuery is returned for an empty query.
var ErrInvalidQuery = errors.New("query is required")

const (
	// DefaultPage is used when no page is requested.
	DefaultPage = 1
	// DefaultPageSize is used when no page size is requested.
	DefaultPageSize = 10
)

// SnapshotSource provides the dataset to search.
type SnapshotSource interface {
	Snapshot() *core.Snapshot
}

// Engine executes searches against a SnapshotSource.
type Engine struct {
	source      SnapshotSource
	maxPageSize int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxPageSize caps the page size. Zero means no cap.
func WithMaxPageSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxPageSize = n
		}
	}
}

// NewEngine creates a search engine reading from source.
func NewEngine(source SnapshotSource, opts ...EngineOption) *Engine {
	e := &Engine{source: source}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns one page of messages matching query.
func (e *Engine) Search(query string, page, pageSize int) (*core.Page, error) {
	if query == "" {
		return nil, ErrInvalidQuery
	}

	page, pageSize = e.normalize(page, pageSize)
	snapshot := e.source.Snapshot()

	matches := Filter(snapshot, query)
	total := len(matches)

	items := []core.Message{}
	// Compare in page units first so (page-1)*pageSize cannot overflow.
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	if page-1 < pages {
		start := (page - 1) * pageSize
		end := start + min(pageSize, total-start)
		items = matches[start:end]
	}

	return &core.Page{
		Query:    query,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}, nil
}

func (e *Engine) normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if e.maxPageSize > 0 && pageSize > e.maxPageSize {
		pageSize = e.maxPageSize
	}
	return page, pageSize
}

// Filter returns every message in snapshot matching query, in snapshot order.
func Filter(snapshot *core.Snapshot, query string) []core.Message {
	if snapshot == nil {
		return nil
	}

	q := strings.ToLower(query)
	var matches []core.Message
	for _, m := range snapshot.Messages {
		if Matches(m, q) {
			matches = append(matches, m)
		}
	}
	return matches
}

// Matches reports whether m matches the already lowercased query.
func Matches(m core.Message, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(m.Message), lowerQuery) ||
		strings.Contains(strings.ToLower(m.UserName), lowerQuery)
}
