package http

import (
	"net/http"

	"finflow/internal/core"
)

const defaultUpcomingDays = 30

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Field("status", "ok").Write(w)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("route not found").Write(w)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(core.DefaultCategories).Write(w)
}

// handleUpcoming serves GET /api/upcoming?days=N, N defaulting to 30.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultUpcomingDays)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	items, err := s.obligations.Upcoming(r.Context(), days)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(items).Field("days", days).Write(w)
}
