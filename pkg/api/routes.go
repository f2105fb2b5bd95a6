package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", s.HandleSearch)
	mux.HandleFunc("POST /refresh", s.HandleRefresh)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
