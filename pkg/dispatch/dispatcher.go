package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rubiojr/msgsearch/pkg/core"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/rubiojr/msgsearch/pkg/search"
)

// Response is the envelope returned to the invoking platform.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

type refreshedBody struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type refreshErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Refresher rebuilds the dataset.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Searcher runs a search over the current dataset.
type Searcher interface {
	Search(query string, page, pageSize int) (*core.Page, error)
}

// Dispatcher routes requests to the refresher or the searcher.
type Dispatcher struct {
	refresher Refresher
	searcher  Searcher
}

func New(refresher Refresher, searcher Searcher) *Dispatcher {
	return &Dispatcher{refresher: refresher, searcher: searcher}
}

// Handle executes req. Refresh failures and invalid searches become error
// responses; only unexpected search failures are returned as errors.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (Response, error) {
	switch r := req.(type) {
	case RefreshRequest:
		return d.handleRefresh(ctx), nil
	case SearchRequest:
		return d.handleSearch(r)
	default:
		return Response{}, fmt.Errorf("unsupported request %T", req)
	}
}

// HandleEvent parses a raw platform event and handles it.
func (d *Dispatcher) HandleEvent(ctx context.Context, raw []byte) (Response, error) {
	req, err := ParseEvent(raw)
	if err != nil {
		return Response{}, err
	}
	return d.Handle(ctx, req)
}

func (d *Dispatcher) handleRefresh(ctx context.Context) Response {
	l := log.ForComponent("dispatch")

	count, err := d.refresher.Refresh(ctx)
	if err != nil {
		l.Errorf("refresh failed: %v", err)
		return jsonResponse(http.StatusInternalServerError, refreshErrorBody{Status: "error", Message: err.Error()})
	}
	return jsonResponse(http.StatusOK, refreshedBody{Status: "refreshed", Count: count})
}

func (d *Dispatcher) handleSearch(r SearchRequest) (Response, error) {
	page, err := d.searcher.Search(r.Query, r.Page, r.PageSize)
	if errors.Is(err, search.ErrInvalidQuery) {
		return jsonResponse(http.StatusBadRequest, errorBody{Error: search.ErrInvalidQuery.Error()}), nil
	}
	if err != nil {
		return Response{}, fmt.Errorf("searching %q: %w", r.Query, err)
	}

	log.ForComponent("dispatch").Debugf("search %q page %d: %d of %d matches", r.Query, page.Page, len(page.Items), page.Total)
	return jsonResponse(http.StatusOK, page), nil
}

func jsonResponse(status int, body any) Response {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"encoding response"}`)
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}
