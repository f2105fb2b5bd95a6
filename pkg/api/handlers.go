package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rubiojr/msgsearch/pkg/dispatch"
	"github.com/rubiojr/msgsearch/pkg/search"
	"github.com/rubiojr/msgsearch/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req := dispatch.NewSearchRequest(search.ParseParams(r.URL.Query()))

	resp, err := s.dispatcher.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	s.writeEnvelope(w, resp)
}

func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	// A refresh runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	resp, err := s.dispatcher.Handle(ctx, dispatch.RefreshRequest{})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Refresh failed", err.Error())
		return
	}

	s.writeEnvelope(w, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Dataset:   s.stats.Stats(),
	}
	if s.scheduler != nil {
		st := s.scheduler.Status()
		health.Refresh = &st
	}

	s.writeJSON(w, http.StatusOK, health)
}
