package api

import (
	"net/http"

	"github.com/chapterlyapp/chapterly-server/internal/http/response"
)

// healthResponse contains health check data.
type healthResponse struct {
	Status     string `json:"status"`
	SSEClients int    `json:"sse_clients"`
}

// handleHealthCheck reports server liveness.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, healthResponse{
		Status:     "healthy",
		SSEClients: s.sseManager.ClientCount(),
	}, s.logger)
}
