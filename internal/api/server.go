// Package api exposes the booking orchestrator over a thin JSON HTTP
// surface. Authentication happens upstream; the trusted proxy injects the
// caller's identity via X-User-ID / X-User-Role headers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"roomly/internal/cache"
	"roomly/internal/database"
	"roomly/internal/service"
)

// HTTPServer holds the handler dependencies.
type HTTPServer struct {
	svc    *service.BookingService
	db     *database.DB
	rooms  *cache.RoomCache // optional
	logger *zerolog.Logger
}

// NewHTTPServer creates the API server. rooms may be nil when redis is not
// configured.
func NewHTTPServer(svc *service.BookingService, db *database.DB, rooms *cache.RoomCache, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{svc: svc, db: db, rooms: rooms, logger: logger}
}

// Router returns the API route table.
func (s *HTTPServer) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", s.handleAllBookings)
	mux.HandleFunc("GET /api/bookings/my", s.handleMyBookings)
	mux.HandleFunc("GET /api/bookings/room/{roomId}", s.handleRoomBookings)
	mux.HandleFunc("PUT /api/bookings/{id}", s.handleUpdateBooking)
	mux.HandleFunc("DELETE /api/bookings/{id}", s.handleCancelBooking)
	mux.HandleFunc("DELETE /api/bookings/series/{groupId}", s.handleCancelSeries)

	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("PUT /api/rooms/{id}", s.handleUpdateRoom)

	return mux
}

// actorFromRequest reads the identity injected by the auth layer.
func actorFromRequest(r *http.Request) (service.Actor, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return service.Actor{}, false
	}
	return service.Actor{UserID: id, Admin: r.Header.Get("X-User-Role") == "ADMIN"}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the orchestrator's error taxonomy to HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case service.IsAuthorization(err):
		writeError(w, http.StatusForbidden, err.Error())
	case service.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case service.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("booking operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
