// Package dispatch turns inbound invocations into refresh or search calls and
// renders their results as JSON response envelopes.
//
// Platform events are converted into a Request at the boundary by ParseEvent;
// nothing past that point looks at raw event fields.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/rubiojr/msgsearch/pkg/search"
)

// Event source markers that select the refresh path.
const (
	RefreshSource       = "scheduled-refresh"
	LegacyRefreshSource = "cron.refresh"
	scheduledDetailType = "Scheduled Event"
)

// Request is either a RefreshRequest or a SearchRequest.
type Request interface {
	requestKind() string
}

// RefreshRequest asks for the dataset to be re-pulled from upstream.
type RefreshRequest struct{}

func (RefreshRequest) requestKind() string { return "refresh" }

// SearchRequest asks for one page of search results.
type SearchRequest struct {
	Query    string
	Page     int
	PageSize int
}

func (SearchRequest) requestKind() string { return "search" }

// NewSearchRequest builds a SearchRequest from parsed query parameters.
func NewSearchRequest(p search.Params) SearchRequest {
	return SearchRequest{Query: p.Query, Page: p.Page, PageSize: p.PageSize}
}

// event holds the fields of an invocation payload that select a path. It
// covers API Gateway HTTP API (v2) requests, REST API (v1) requests and
// EventBridge events.
type event struct {
	Source                string            `json:"source"`
	DetailType            string            `json:"detail-type"`
	RawQueryString        string            `json:"rawQueryString"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
}

// ParseEvent converts a raw invocation payload into a Request.
func ParseEvent(raw []byte) (Request, error) {
	var ev event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	switch {
	case ev.Source == RefreshSource, ev.Source == LegacyRefreshSource:
		return RefreshRequest{}, nil
	case ev.Source == "aws.events" && ev.DetailType == scheduledDetailType:
		return RefreshRequest{}, nil
	}

	if ev.RawQueryString == "" && len(ev.QueryStringParameters) > 0 {
		values := make(map[string][]string, len(ev.QueryStringParameters))
		for k, v := range ev.QueryStringParameters {
			values[k] = []string{v}
		}
		return NewSearchRequest(search.ParseParams(values)), nil
	}

	return NewSearchRequest(search.ParseRawQuery(ev.RawQueryString)), nil
}
