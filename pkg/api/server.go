package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/msgsearch/pkg/cache"
	"github.com/rubiojr/msgsearch/pkg/dispatch"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/rubiojr/msgsearch/pkg/refresh"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// StatsSource reports on the cached dataset.
type StatsSource interface {
	Stats() cache.Stats
}

// StatusSource reports on scheduled refreshes.
type StatusSource interface {
	Status() refresh.Status
}

type Server struct {
	dispatcher *dispatch.Dispatcher
	stats      StatsSource
	scheduler  StatusSource
}

func NewServer(dispatcher *dispatch.Dispatcher, stats StatsSource) *Server {
	return &Server{
		dispatcher: dispatcher,
		stats:      stats,
	}
}

// WithScheduler adds scheduled refresh status to /health.
func (s *Server) WithScheduler(scheduler StatusSource) *Server {
	s.scheduler = scheduler
	return s
}

// Handler returns the routed handler wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return RequestIDMiddleware(CorsMiddleware(gzhttp.GzipHandler(mux)))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.ForComponent("api").Errorf("error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// writeEnvelope copies a dispatcher response onto w.
func (s *Server) writeEnvelope(w http.ResponseWriter, resp dispatch.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write([]byte(resp.Body)); err != nil {
		log.ForComponent("api").Errorf("error writing response: %v", err)
	}
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware propagates the caller's X-Request-ID or assigns a new one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		log.ForComponent("api").Debugf("%s %s %s", id, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}
