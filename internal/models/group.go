package models

// Group is a storage row for one music-voting group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// Description is an optional free-form description.
	Description string

	// OwnerID is the user ID of the creator.
	OwnerID string

	// JoinCode is the short opaque code members use to join.
	// Always stored uppercase.
	JoinCode string

	// RequiresPassword marks the group as password-protected.
	RequiresPassword bool

	// PasswordHash is the bcrypt hash of the group password.
	// Empty when RequiresPassword is false. Never exposed to clients.
	PasswordHash string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Membership is a group_members row joined with its group.
type Membership struct {
	GroupID  string
	UserID   string
	Role     string // "owner" or "member"
	JoinedAt int64
	Group    *Group // nil when the joined group row is missing
}

// GroupSummary is the view model for a group in the current user's list.
type GroupSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MemberCount  int    `json:"memberCount"`
	IsOwner      bool   `json:"isOwner"`
	LastActivity string `json:"lastActivity"` // RFC 3339, from updated_at/created_at
	Code         string `json:"code"`
	HasPassword  bool   `json:"hasPassword,omitempty"`
}

// CreateGroupInput carries the fields for creating a group.
type CreateGroupInput struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	RequiresPassword bool   `json:"hasPassword"`
	Password         string `json:"password,omitempty"`
}
