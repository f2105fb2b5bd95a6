package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/messages", opts...)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestFetchPage(t *testing.T) {
	var gotQuery, gotPath, gotUA string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total": 3, "items": [
			{"id": "1", "user_id": "u1", "user_name": "Alice", "timestamp": "2024-01-01T00:00:00Z", "message": "hello world"},
			{"id": "2", "user_id": "u2", "user_name": "Bob", "timestamp": "2024-01-02T00:00:00Z", "message": "goodbye"}
		]}`)
	})

	page, err := client.FetchPage(context.Background(), 100, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotPath != "/messages" {
		t.Errorf("Expected path /messages, got %s", gotPath)
	}
	if gotQuery != "limit=2&skip=100" {
		t.Errorf("Expected query limit=2&skip=100, got %s", gotQuery)
	}
	if !strings.HasPrefix(gotUA, "msgsearch/") {
		t.Errorf("Expected msgsearch user agent, got %q", gotUA)
	}
	if page.Total != 3 {
		t.Errorf("Expected total 3, got %d", page.Total)
	}
	if len(page.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(page.Items))
	}
	if page.Items[0].UserName != "Alice" || page.Items[1].Message != "goodbye" {
		t.Errorf("Items decoded incorrectly: %+v", page.Items)
	}
}

func TestFetchPagePreservesBaseQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"total": 0, "items": []}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL + "/messages?channel=general")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if _, err := client.FetchPage(context.Background(), 0, 10); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotQuery != "channel=general&limit=10&skip=0" {
		t.Errorf("Unexpected query: %s", gotQuery)
	}
}

func TestFetchPageErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
	}{
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"detail": "boom"}`,
			wantStatus: http.StatusInternalServerError,
			wantErr:    ErrUnexpectedStatus,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `not found`,
			wantStatus: http.StatusNotFound,
			wantErr:    ErrUnexpectedStatus,
		},
		{
			name:       "missing items",
			status:     http.StatusOK,
			body:       `{"total": 3}`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedBody,
		},
		{
			name:       "null items",
			status:     http.StatusOK,
			body:       `{"total": 3, "items": null}`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedBody,
		},
		{
			name:       "missing total",
			status:     http.StatusOK,
			body:       `{"items": []}`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedBody,
		},
		{
			name:       "negative total",
			status:     http.StatusOK,
			body:       `{"total": -1, "items": []}`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedBody,
		},
		{
			name:       "items wrong type",
			status:     http.StatusOK,
			body:       `{"total": 1, "items": "nope"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "total wrong type",
			status:     http.StatusOK,
			body:       `{"total": "many", "items": []}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := client.FetchPage(context.Background(), 0, 10)
			if err == nil {
				t.Fatal("Expected error but got none")
			}

			var ue *Error
			if !errors.As(err, &ue) {
				t.Fatalf("Expected *Error, got %T: %v", err, err)
			}
			if ue.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, ue.StatusCode)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if !IsUpstreamError(err) {
				t.Error("IsUpstreamError returned false")
			}
		})
	}
}

func TestFetchPageTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(url)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.FetchPage(context.Background(), 0, 10)
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if ue.Op != "do request" {
		t.Errorf("Expected op 'do request', got %q", ue.Op)
	}
	if ue.StatusCode != 0 {
		t.Errorf("Expected no status code, got %d", ue.StatusCode)
	}
}

func TestFetchPageTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := client.FetchPage(context.Background(), 0, 10)
	if !IsUpstreamError(err) {
		t.Fatalf("Expected upstream error on timeout, got %v", err)
	}
}

func TestFetchPageInvalidRange(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	for _, tc := range []struct{ skip, limit int }{{-1, 10}, {0, 0}, {0, -5}} {
		_, err := client.FetchPage(context.Background(), tc.skip, tc.limit)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("skip=%d limit=%d: expected ErrInvalidRange, got %v", tc.skip, tc.limit, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no requests for invalid ranges, got %d", calls.Load())
	}
}

func TestFetchPageRateLimitHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 0, "items": []}`)
	}, WithRateLimit(0.001))

	// The first request consumes the only token.
	if _, err := client.FetchPage(context.Background(), 0, 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.FetchPage(ctx, 1, 1)
	var ue *Error
	if !errors.As(err, &ue) || ue.Op != "throttle" {
		t.Fatalf("Expected throttle error, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "://bad", "example.com/messages"} {
		if _, err := NewClient(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "check status", Skip: 200, Limit: 100, StatusCode: 502, Err: ErrUnexpectedStatus}
	want := "upstream check status (skip=200 limit=100) status 502: unexpected status"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
