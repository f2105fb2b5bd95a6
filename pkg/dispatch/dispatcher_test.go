package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rubiojr/msgsearch/pkg/cache"
	"github.com/rubiojr/msgsearch/pkg/core"
	"github.com/rubiojr/msgsearch/pkg/search"
	"github.com/rubiojr/msgsearch/pkg/upstream"
)

type stubRefresher struct {
	count int
	err   error
	calls int
}

func (s *stubRefresher) Refresh(ctx context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

type failingSearcher struct{}

func (failingSearcher) Search(query string, page, pageSize int) (*core.Page, error) {
	return nil, errors.New("disk on fire")
}

func newTestDispatcher(r *stubRefresher) *Dispatcher {
	c := cache.New(core.NewSnapshot([]core.Message{
		{ID: "1", UserID: "u1", UserName: "Alice", Timestamp: "t1", Message: "hello world"},
		{ID: "2", UserID: "u2", UserName: "Bob", Timestamp: "t2", Message: "goodbye"},
	}, core.SourceFallback))
	return New(r, search.NewEngine(c))
}

func decodeBody(t *testing.T, resp Response, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(resp.Body), v); err != nil {
		t.Fatalf("Failed to decode body %q: %v", resp.Body, err)
	}
}

func TestHandleSearch(t *testing.T) {
	d := newTestDispatcher(&stubRefresher{})

	resp, err := d.Handle(context.Background(), SearchRequest{Query: "hello", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("Expected JSON content type, got %v", resp.Headers)
	}

	var body struct {
		Query    string           `json:"query"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
		Total    int              `json:"total"`
		Items    []map[string]any `json:"items"`
	}
	decodeBody(t, resp, &body)

	if body.Query != "hello" || body.Page != 1 || body.PageSize != 10 || body.Total != 1 {
		t.Errorf("Unexpected body: %+v", body)
	}
	if len(body.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(body.Items))
	}
	for _, key := range []string{"id", "user_id", "user_name", "timestamp", "message"} {
		if _, ok := body.Items[0][key]; !ok {
			t.Errorf("Item missing key %q: %v", key, body.Items[0])
		}
	}
}

func TestHandleSearchEmptyItemsIsArray(t *testing.T) {
	d := newTestDispatcher(&stubRefresher{})
	resp, err := d.Handle(context.Background(), SearchRequest{Query: "nomatch", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]json.RawMessage
	decodeBody(t, resp, &body)
	if string(body["items"]) != "[]" {
		t.Errorf("Expected items to be [], got %s", body["items"])
	}
}

func TestHandleSearchMissingQuery(t *testing.T) {
	d := newTestDispatcher(&stubRefresher{})

	resp, err := d.Handle(context.Background(), SearchRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
	if resp.Body != `{"error":"query is required"}` {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
}

func TestHandleSearchUnexpectedError(t *testing.T) {
	d := New(&stubRefresher{}, failingSearcher{})
	if _, err := d.Handle(context.Background(), SearchRequest{Query: "x", Page: 1, PageSize: 1}); err == nil {
		t.Error("Expected unexpected search errors to propagate")
	}
}

func TestHandleRefresh(t *testing.T) {
	r := &stubRefresher{count: 250}
	d := newTestDispatcher(r)

	resp, err := d.Handle(context.Background(), RefreshRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Body != `{"status":"refreshed","count":250}` {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
	if r.calls != 1 {
		t.Errorf("Expected one refresh, got %d", r.calls)
	}
}

func TestHandleRefreshZeroCount(t *testing.T) {
	d := newTestDispatcher(&stubRefresher{count: 0})
	resp, _ := d.Handle(context.Background(), RefreshRequest{})
	if resp.Body != `{"status":"refreshed","count":0}` {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
}

func TestHandleRefreshFailure(t *testing.T) {
	upErr := &upstream.Error{Op: "check status", Skip: 100, Limit: 100, StatusCode: 503, Err: upstream.ErrUnexpectedStatus}
	d := newTestDispatcher(&stubRefresher{err: upErr})

	resp, err := d.Handle(context.Background(), RefreshRequest{})
	if err != nil {
		t.Fatalf("Refresh failures must not be returned as errors: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "error" || body["message"] != upErr.Error() {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestHandleEvent(t *testing.T) {
	r := &stubRefresher{count: 2}
	d := newTestDispatcher(r)

	resp, err := d.HandleEvent(context.Background(), []byte(`{"source": "scheduled-refresh"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || r.calls != 1 {
		t.Errorf("Expected refresh to run, got %d after %d calls", resp.StatusCode, r.calls)
	}

	resp, err = d.HandleEvent(context.Background(), []byte(`{"rawQueryString": ""}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing query, got %d", resp.StatusCode)
	}

	if _, err := d.HandleEvent(context.Background(), []byte(`not json`)); err == nil {
		t.Error("Expected error for malformed event")
	}
}
