package api

import (
	"time"

	"github.com/rubiojr/msgsearch/pkg/cache"
	"github.com/rubiojr/msgsearch/pkg/refresh"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
	Dataset   cache.Stats     `json:"dataset"`
	Refresh   *refresh.Status `json:"refresh,omitempty"`
}
