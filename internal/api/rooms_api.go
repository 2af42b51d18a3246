package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"roomly/internal/database"
	"roomly/internal/metrics"
	"roomly/internal/models"
)

// RoomView is a room with its derived status and today's timeline.
type RoomView struct {
	models.Room
	Status   models.RoomStatus `json:"status"`
	Bookings []models.Booking  `json:"bookings"`
}

// RoomRequest is the body for creating or updating a room.
type RoomRequest struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Facilities  string `json:"facilities"`
	Maintenance bool   `json:"maintenance"`
	ImageURL    string `json:"imageUrl"`
}

// handleListRooms returns all rooms with derived status and today's
// confirmed bookings, private topics redacted per viewer. Room rows come
// from the redis snapshot when warm.
func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_rooms")
	ctx := r.Context()

	var rooms []models.Room
	var ok bool
	if s.rooms != nil {
		rooms, ok = s.rooms.Get(ctx)
	}
	if !ok {
		var err error
		rooms, err = database.ListRooms(ctx, s.db)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if s.rooms != nil {
			s.rooms.Set(ctx, rooms)
		}
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	todays, err := database.ListBookingsInRange(ctx, s.db, dayStart, dayEnd)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	actor, _ := actorFromRequest(r)
	byRoom := make(map[int64][]models.Booking)
	for _, b := range todays {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b.Redacted(actor.UserID, actor.Admin))
	}

	views := make([]RoomView, len(rooms))
	for i, room := range rooms {
		occupied, err := database.RoomOccupiedAt(ctx, s.db, room.ID, now)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		bookings := byRoom[room.ID]
		if bookings == nil {
			bookings = []models.Booking{}
		}
		views[i] = RoomView{
			Room:     room,
			Status:   room.DeriveStatus(occupied),
			Bookings: bookings,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_room")

	actor, ok := actorFromRequest(r)
	if !ok || !actor.Admin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}

	var req RoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "room name is required")
		return
	}

	room := &models.Room{
		Name:        req.Name,
		Capacity:    req.Capacity,
		Facilities:  req.Facilities,
		Maintenance: req.Maintenance,
		ImageURL:    req.ImageURL,
	}
	if err := database.InsertRoom(r.Context(), s.db, room); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if s.rooms != nil {
		s.rooms.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_room")

	actor, ok := actorFromRequest(r)
	if !ok || !actor.Admin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	room, err := database.GetRoom(r.Context(), s.db, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	var req RoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	room.Name = req.Name
	room.Capacity = req.Capacity
	room.Facilities = req.Facilities
	room.Maintenance = req.Maintenance
	room.ImageURL = req.ImageURL
	if err := database.UpdateRoom(r.Context(), s.db, room); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if s.rooms != nil {
		s.rooms.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, room)
}
