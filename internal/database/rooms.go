package database

import (
	"context"
	"fmt"
	"time"

	"roomly/internal/models"
)

const roomColumns = `id, name, capacity, facilities, maintenance, image_url, created_at, updated_at`

// InsertRoom persists a new room and fills in its generated ID.
func InsertRoom(ctx context.Context, q Querier, r *models.Room) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	res, err := q.ExecContext(ctx, `
		INSERT INTO rooms (name, capacity, facilities, maintenance, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Capacity, r.Facilities, r.Maintenance, r.ImageURL, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("room id: %w", err)
	}
	r.ID = id
	return nil
}

// GetRoom loads one room by id. Returns sql.ErrNoRows when absent.
func GetRoom(ctx context.Context, q Querier, id int64) (*models.Room, error) {
	row := q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

// ListRooms returns all rooms ordered by name.
func ListRooms(ctx context.Context, q Querier) ([]models.Room, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

// UpdateRoom rewrites the mutable fields of a room.
func UpdateRoom(ctx context.Context, q Querier, r *models.Room) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE rooms SET name = ?, capacity = ?, facilities = ?, maintenance = ?, image_url = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Capacity, r.Facilities, r.Maintenance, r.ImageURL, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update room %d: %w", r.ID, err)
	}
	return nil
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var r models.Room
	err := row.Scan(&r.ID, &r.Name, &r.Capacity, &r.Facilities, &r.Maintenance, &r.ImageURL, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
