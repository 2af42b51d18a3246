package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomly/internal/database"
	"roomly/internal/models"
	"roomly/internal/service"
)

type apiHarness struct {
	srv  *httptest.Server
	db   *database.DB
	room *models.Room
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	room := &models.Room{Name: "Aurora", Capacity: 10}
	require.NoError(t, database.InsertRoom(context.Background(), db, room))

	svc := service.NewBookingService(db, nil, nil, nil, nil, &logger)
	srv := httptest.NewServer(NewHTTPServer(svc, db, nil, &logger).Router())
	t.Cleanup(srv.Close)

	return &apiHarness{srv: srv, db: db, room: room}
}

// do sends a JSON request as the given user. userID 0 omits the identity
// headers.
func (h *apiHarness) do(t *testing.T, method, path string, userID int64, admin bool, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(t, err)
	if userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	if admin {
		req.Header.Set("X-User-Role", "ADMIN")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func apiTomorrow(hour int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func (h *apiHarness) createBooking(t *testing.T, userID int64, start, end time.Time) CreateBookingResponse {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/bookings", userID, false, CreateBookingRequest{
		RoomID:    h.room.ID,
		StartTime: start,
		EndTime:   end,
		Topic:     "standup",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[CreateBookingResponse](t, resp)
}

func TestCreateBookingEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	t.Run("RequiresIdentity", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/bookings", 0, false, CreateBookingRequest{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Creates", func(t *testing.T) {
		res := h.createBooking(t, 1, apiTomorrow(10), apiTomorrow(11))
		require.NotNil(t, res.Booking)
		assert.Equal(t, 1, res.TotalBooked)
		assert.Equal(t, h.room.ID, res.Booking.RoomID)
		assert.Equal(t, int64(1), res.Booking.UserID)
	})

	t.Run("ConflictIs409", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/bookings", 2, false, CreateBookingRequest{
			RoomID:    h.room.ID,
			StartTime: apiTomorrow(10).Add(30 * time.Minute),
			EndTime:   apiTomorrow(11).Add(30 * time.Minute),
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("BadIntervalIs400", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/bookings", 1, false, CreateBookingRequest{
			RoomID:    h.room.ID,
			StartTime: apiTomorrow(15),
			EndTime:   apiTomorrow(14),
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MalformedBodyIs400", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/bookings", bytes.NewBufferString("{"))
		require.NoError(t, err)
		req.Header.Set("X-User-ID", "1")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdateBookingEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createBooking(t, 1, apiTomorrow(10), apiTomorrow(11))

	t.Run("StrangerIs403", func(t *testing.T) {
		resp := h.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d", created.Booking.ID), 9, false, UpdateBookingRequest{
			StartTime: apiTomorrow(12), EndTime: apiTomorrow(13),
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("OwnerUpdates", func(t *testing.T) {
		resp := h.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d", created.Booking.ID), 1, false, UpdateBookingRequest{
			StartTime: apiTomorrow(12), EndTime: apiTomorrow(13), Topic: "moved",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[models.Booking](t, resp)
		assert.Equal(t, "moved", got.Topic)
		assert.True(t, got.StartTime.Equal(apiTomorrow(12)))
	})

	t.Run("MissingIs404", func(t *testing.T) {
		resp := h.do(t, http.MethodPut, "/api/bookings/99999", 1, false, UpdateBookingRequest{
			StartTime: apiTomorrow(12), EndTime: apiTomorrow(13),
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateBookingSeriesMode(t *testing.T) {
	h := newAPIHarness(t)

	until := apiTomorrow(10).AddDate(0, 0, 2)
	resp := h.do(t, http.MethodPost, "/api/bookings", 1, false, CreateBookingRequest{
		RoomID:           h.room.ID,
		StartTime:        apiTomorrow(10),
		EndTime:          apiTomorrow(11),
		RecurringType:    "daily",
		RecurringEndDate: &until,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[CreateBookingResponse](t, resp)
	require.Equal(t, 3, created.TotalBooked)

	resp = h.do(t, http.MethodPut, fmt.Sprintf("/api/bookings/%d", created.Booking.ID), 1, false, UpdateBookingRequest{
		StartTime:        apiTomorrow(15),
		EndTime:          apiTomorrow(16),
		RecurringType:    "daily",
		RecurringEndDate: &until,
		UpdateMode:       "series",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[service.SeriesUpdateResult](t, resp)
	assert.Equal(t, 3, out.Updated)
}

func TestCancelBookingEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createBooking(t, 1, apiTomorrow(10), apiTomorrow(11))
	path := fmt.Sprintf("/api/bookings/%d", created.Booking.ID)

	resp := h.do(t, http.MethodDelete, path, 9, false, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, path, 1, false, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := database.GetBooking(context.Background(), h.db, created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCancelled())
}

func TestCancelSeriesEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	until := apiTomorrow(10).AddDate(0, 0, 3)
	resp := h.do(t, http.MethodPost, "/api/bookings", 1, false, CreateBookingRequest{
		RoomID:           h.room.ID,
		StartTime:        apiTomorrow(10),
		EndTime:          apiTomorrow(11),
		RecurringType:    "weekly",
		RecurringEndDate: &until,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[CreateBookingResponse](t, resp)
	require.NotNil(t, created.Booking.GroupID)

	resp = h.do(t, http.MethodDelete, "/api/bookings/series/"+*created.Booking.GroupID, 1, false, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string]int64](t, resp)
	assert.Equal(t, int64(1), out["cancelled"])
}

func TestMyBookingsEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.createBooking(t, 1, apiTomorrow(10), apiTomorrow(11))
	h.createBooking(t, 2, apiTomorrow(12), apiTomorrow(13))

	resp := h.do(t, http.MethodGet, "/api/bookings/my", 1, false, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]models.Booking](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].UserID)
}

func TestAllBookingsRedaction(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodPost, "/api/bookings", 1, false, CreateBookingRequest{
		RoomID:    h.room.ID,
		StartTime: apiTomorrow(10),
		EndTime:   apiTomorrow(11),
		Topic:     "secret planning",
		IsPrivate: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("OtherViewerSeesPrivate", func(t *testing.T) {
		resp := h.do(t, http.MethodGet, "/api/bookings", 2, false, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[[]models.Booking](t, resp)
		require.Len(t, got, 1)
		assert.Equal(t, "Private", got[0].Topic)
		assert.Empty(t, got[0].PinCode)
	})

	t.Run("OwnerSeesTopic", func(t *testing.T) {
		resp := h.do(t, http.MethodGet, "/api/bookings", 1, false, nil)
		got := decode[[]models.Booking](t, resp)
		require.Len(t, got, 1)
		assert.Equal(t, "secret planning", got[0].Topic)
	})

	t.Run("BadDateIs400", func(t *testing.T) {
		resp := h.do(t, http.MethodGet, "/api/bookings?startDate=yesterday", 1, false, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRoomBookingsEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	created := h.createBooking(t, 1, apiTomorrow(10), apiTomorrow(11))

	resp := h.do(t, http.MethodGet, fmt.Sprintf("/api/bookings/room/%d", h.room.ID), 0, false, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decode[[]roomBookingSlot](t, resp)
	require.Len(t, slots, 1)
	assert.Equal(t, created.Booking.ID, slots[0].ID)
}

func TestRoomEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	t.Run("CreateIsAdminOnly", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/rooms", 1, false, RoomRequest{Name: "Borealis"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("AdminCreates", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/rooms", 1, true, RoomRequest{Name: "Borealis", Capacity: 4})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		room := decode[models.Room](t, resp)
		assert.NotZero(t, room.ID)
	})

	t.Run("NameRequired", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/rooms", 1, true, RoomRequest{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("List", func(t *testing.T) {
		resp := h.do(t, http.MethodGet, "/api/rooms", 0, false, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		views := decode[[]RoomView](t, resp)
		require.Len(t, views, 2)
		assert.Equal(t, models.RoomAvailable, views[0].Status)
		assert.NotNil(t, views[0].Bookings)
	})

	t.Run("AdminUpdates", func(t *testing.T) {
		resp := h.do(t, http.MethodPut, fmt.Sprintf("/api/rooms/%d", h.room.ID), 1, true, RoomRequest{
			Name: "Aurora", Capacity: 12, Maintenance: true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		room := decode[models.Room](t, resp)
		assert.Equal(t, 12, room.Capacity)
		assert.True(t, room.Maintenance)
	})
}
