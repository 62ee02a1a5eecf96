package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yongmin01/musiot-server/internal/auth"
	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/storage"
)

// GetGroup retrieves a group row by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, join_code, requires_password, password_hash, created_at, updated_at
		FROM groups WHERE id = ?`,
		groupID,
	).Scan(
		&group.ID, &group.Name, &group.Description, &group.OwnerID, &group.JoinCode,
		&group.RequiresPassword, &group.PasswordHash, &group.CreatedAt, &group.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListMemberships returns the user's memberships joined with group rows.
// The LEFT JOIN means a dangling membership comes back with a nil Group;
// normalizing that here keeps the join-shape quirk out of the service layer.
func (s *SQLiteStore) ListMemberships(ctx context.Context, userID string) ([]models.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.group_id, m.user_id, m.role, m.joined_at,
		       g.id, g.name, g.description, g.owner_id, g.join_code,
		       g.requires_password, g.password_hash, g.created_at, g.updated_at
		FROM group_members m
		LEFT JOIN groups g ON g.id = m.group_id
		WHERE m.user_id = ?
		ORDER BY m.joined_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []models.Membership
	for rows.Next() {
		var m models.Membership
		var gID, gName, gDesc, gOwner, gCode, gHash sql.NullString
		var gReqPw sql.NullBool
		var gCreated, gUpdated sql.NullInt64

		if err := rows.Scan(
			&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&gID, &gName, &gDesc, &gOwner, &gCode,
			&gReqPw, &gHash, &gCreated, &gUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}

		if gID.Valid {
			m.Group = &models.Group{
				ID:               gID.String,
				Name:             gName.String,
				Description:      gDesc.String,
				OwnerID:          gOwner.String,
				JoinCode:         gCode.String,
				RequiresPassword: gReqPw.Bool,
				PasswordHash:     gHash.String,
				CreatedAt:        gCreated.Int64,
				UpdatedAt:        gUpdated.Int64,
			}
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}
	return memberships, nil
}

// GetMemberCount returns the group's member count, or -1 when the group
// does not exist.
func (s *SQLiteStore) GetMemberCount(ctx context.Context, groupID string) (int, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)", groupID,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check group: %w", err)
	}
	if !exists {
		return -1, nil
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM group_members WHERE group_id = ?", groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// isMember reports whether userID belongs to groupID.
func (s *SQLiteStore) isMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)",
		groupID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// CreateGroup creates a group with a fresh join code and records the owner
// membership. Retries code generation a few times before giving up with
// ErrDuplicateJoinCode.
func (s *SQLiteStore) CreateGroup(ctx context.Context, userID string, in models.CreateGroupInput) (*models.Group, error) {
	if userID == "" {
		return nil, storage.ErrNotAuthenticated
	}

	now := s.now().Unix()
	group := &models.Group{
		ID:               uuid.New().String(),
		Name:             in.Name,
		Description:      strings.TrimSpace(in.Description),
		OwnerID:          userID,
		RequiresPassword: in.RequiresPassword,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if in.RequiresPassword {
		hash, err := auth.HashGroupPassword(in.Password)
		if err != nil {
			return nil, err
		}
		group.PasswordHash = hash
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := false
	for attempt := 0; attempt < 5; attempt++ {
		code, err := newJoinCode()
		if err != nil {
			return nil, err
		}
		group.JoinCode = code

		_, err = tx.ExecContext(ctx, `
			INSERT INTO groups (id, name, description, owner_id, join_code, requires_password, password_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Description, group.OwnerID, group.JoinCode,
			group.RequiresPassword, group.PasswordHash, group.CreatedAt, group.UpdatedAt,
		)
		if err == nil {
			inserted = true
			break
		}
		if !isUniqueViolation(err, "groups.join_code") {
			return nil, fmt.Errorf("failed to insert group: %w", err)
		}
	}
	if !inserted {
		return nil, storage.ErrDuplicateJoinCode
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES (?, ?, 'owner', ?)`,
		group.ID, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// JoinGroup adds the user to the group matching joinCode. The code match is
// case-insensitive (codes are stored uppercase). Joining a group the user
// already belongs to is a no-op returning the group row.
func (s *SQLiteStore) JoinGroup(ctx context.Context, userID, joinCode, password string) (*models.Group, error) {
	if userID == "" {
		return nil, storage.ErrNotAuthenticated
	}

	code := strings.ToUpper(strings.TrimSpace(joinCode))

	group := &models.Group{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, join_code, requires_password, password_hash, created_at, updated_at
		FROM groups WHERE join_code = ?`,
		code,
	).Scan(
		&group.ID, &group.Name, &group.Description, &group.OwnerID, &group.JoinCode,
		&group.RequiresPassword, &group.PasswordHash, &group.CreatedAt, &group.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up group by code: %w", err)
	}

	member, err := s.isMember(ctx, group.ID, userID)
	if err != nil {
		return nil, err
	}
	if member {
		return group, nil
	}

	if group.RequiresPassword {
		if !auth.VerifyGroupPassword(group.PasswordHash, password) {
			return nil, storage.ErrInvalidPassword
		}
	}

	now := s.now().Unix()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES (?, ?, 'member', ?)`,
		group.ID, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert membership: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE groups SET updated_at = ? WHERE id = ?", now, group.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to touch group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.UpdatedAt = now
	return group, nil
}
