package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"roomly/internal/database"
	"roomly/internal/metrics"
	"roomly/internal/models"
	"roomly/internal/service"
)

// CreateBookingRequest is the body of POST /api/bookings.
type CreateBookingRequest struct {
	RoomID           int64      `json:"roomId"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime"`
	Topic            string     `json:"topic"`
	IsPrivate        bool       `json:"isPrivate"`
	RecurringType    string     `json:"recurringType,omitempty"`
	RecurringEndDate *time.Time `json:"recurringEndDate,omitempty"`
	DryRun           bool       `json:"dryRun,omitempty"`
}

// CreateBookingResponse reports the primary booking plus the skip summary.
type CreateBookingResponse struct {
	Booking      *models.Booking `json:"booking,omitempty"`
	Preview      bool            `json:"preview,omitempty"`
	TotalSlots   int             `json:"totalSlots"`
	TotalBooked  int             `json:"totalBooked"`
	TotalSkipped int             `json:"totalSkipped"`
	SkippedDates []string        `json:"skippedDates,omitempty"`
}

// UpdateBookingRequest is the body of PUT /api/bookings/{id}.
type UpdateBookingRequest struct {
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime"`
	Topic            string     `json:"topic"`
	IsPrivate        bool       `json:"isPrivate"`
	RoomID           *int64     `json:"roomId,omitempty"`
	RecurringType    string     `json:"recurringType,omitempty"`
	RecurringEndDate *time.Time `json:"recurringEndDate,omitempty"`
	UpdateMode       string     `json:"updateMode,omitempty"` // "single" (default) or "series"
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Create(r.Context(), service.CreateRequest{
		RoomID:           req.RoomID,
		UserID:           actor.UserID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Topic:            req.Topic,
		IsPrivate:        req.IsPrivate,
		RecurringType:    models.RecurringType(req.RecurringType),
		RecurringEndDate: req.RecurringEndDate,
		DryRun:           req.DryRun,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateBookingResponse{
		Booking:      res.Booking,
		Preview:      res.Preview,
		TotalSlots:   res.TotalSlots,
		TotalBooked:  res.TotalBooked,
		TotalSkipped: res.TotalSkipped,
		SkippedDates: res.SkippedDates,
	})
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_booking")

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req UpdateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	update := service.UpdateRequest{
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Topic:            req.Topic,
		IsPrivate:        req.IsPrivate,
		RoomID:           req.RoomID,
		RecurringType:    models.RecurringType(req.RecurringType),
		RecurringEndDate: req.RecurringEndDate,
	}

	if req.UpdateMode == "series" {
		res, err := s.svc.UpdateSeries(r.Context(), actor, id, update)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	booking, err := s.svc.UpdateSingle(r.Context(), actor, id, update)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := s.svc.Cancel(r.Context(), actor, id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "booking cancelled"})
}

func (s *HTTPServer) handleCancelSeries(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_series")

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	groupID := r.PathValue("groupId")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group id")
		return
	}

	count, err := s.svc.CancelSeries(r.Context(), actor, groupID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": count})
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("my_bookings")

	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	bookings, err := database.ListUserBookings(r.Context(), s.db, actor.UserID, 50)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// handleAllBookings lists confirmed bookings in a window, defaulting to the
// past week through the next 45 days. Private topics are redacted for
// non-owners.
func (s *HTTPServer) handleAllBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("all_bookings")

	now := time.Now()
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 0, 45)
	if v := r.URL.Query().Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		to = t
	}

	bookings, err := database.ListBookingsInRange(r.Context(), s.db, from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Listing is public; an absent identity redacts everything private.
	actor, _ := actorFromRequest(r)
	out := make([]models.Booking, len(bookings))
	for i, b := range bookings {
		out[i] = b.Redacted(actor.UserID, actor.Admin)
	}
	writeJSON(w, http.StatusOK, out)
}

// roomBookingSlot is the slim interval view used by timeline clients.
type roomBookingSlot struct {
	ID               int64                `json:"id"`
	StartTime        time.Time            `json:"startTime"`
	EndTime          time.Time            `json:"endTime"`
	RecurringType    models.RecurringType `json:"recurringType"`
	RecurringEndDate *time.Time           `json:"recurringEndDate,omitempty"`
}

func (s *HTTPServer) handleRoomBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("room_bookings")

	roomID, err := strconv.ParseInt(r.PathValue("roomId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	bookings, err := database.ListRoomBookings(r.Context(), s.db, roomID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	slots := make([]roomBookingSlot, len(bookings))
	for i, b := range bookings {
		slots[i] = roomBookingSlot{
			ID:               b.ID,
			StartTime:        b.StartTime,
			EndTime:          b.EndTime,
			RecurringType:    b.RecurringType,
			RecurringEndDate: b.RecurringEndDate,
		}
	}
	writeJSON(w, http.StatusOK, slots)
}
