package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/yongmin01/musiot-server/internal/models"
)

// UpsertUser creates or refreshes a user row keyed by the provider id.
// On refresh the existing internal id is kept and written back to user.ID.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) error {
	now := s.now().Unix()

	var existingID string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE spotify_id = ?",
		user.SpotifyID,
	).Scan(&existingID)

	if err == sql.ErrNoRows {
		if user.ID == "" {
			user.ID = uuid.New().String()
		}
		user.CreatedAt = now
		user.UpdatedAt = now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO users (id, spotify_id, display_name, email, avatar_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.SpotifyID, user.DisplayName, user.Email, user.AvatarURL,
			user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	user.ID = existingID
	user.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, email = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?`,
		user.DisplayName, user.Email, user.AvatarURL, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, spotify_id, display_name, email, avatar_url, created_at, updated_at
		FROM users WHERE id = ?`,
		id,
	).Scan(
		&user.ID, &user.SpotifyID, &user.DisplayName, &user.Email, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
