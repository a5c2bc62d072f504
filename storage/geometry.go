package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"deskport/models"
)

// SaveGeometry persists window geometry for a window role and numeric id.
func (s *Store) SaveGeometry(role string, windowID int, geometry models.Geometry) error {
	if role == "" {
		return errors.New("window role is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO window_geometry (role, window_id, x, y, width, height, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(role, window_id) DO UPDATE SET
			x          = excluded.x,
			y          = excluded.y,
			width      = excluded.width,
			height     = excluded.height,
			updated_at = excluded.updated_at`,
		role,
		windowID,
		geometry.X,
		geometry.Y,
		geometry.Width,
		geometry.Height,
		nowUnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save geometry for %s/%d: %w", role, windowID, err)
	}
	return nil
}

// GetGeometry reads persisted window geometry for a window role and numeric id.
func (s *Store) GetGeometry(role string, windowID int) (models.Geometry, error) {
	var geometry models.Geometry
	err := s.db.QueryRow(
		`SELECT x, y, width, height
		FROM window_geometry
		WHERE role = ? AND window_id = ?`,
		role,
		windowID,
	).Scan(&geometry.X, &geometry.Y, &geometry.Width, &geometry.Height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Geometry{}, ErrNotFound
		}
		return models.Geometry{}, fmt.Errorf("get geometry for %s/%d: %w", role, windowID, err)
	}
	return geometry, nil
}
