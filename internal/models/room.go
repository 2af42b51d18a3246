package models

import "time"

// RoomStatus is the presentation state of a room. Only maintenance is
// authoritative; available/occupied are derived from current bookings.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room is a bookable meeting room.
type Room struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Capacity    int       `json:"capacity"`
	Facilities  string    `json:"facilities"`
	Maintenance bool      `json:"maintenance"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DeriveStatus computes the room status for display. Maintenance wins over
// occupancy.
func (r *Room) DeriveStatus(occupied bool) RoomStatus {
	if r.Maintenance {
		return RoomMaintenance
	}
	if occupied {
		return RoomOccupied
	}
	return RoomAvailable
}
