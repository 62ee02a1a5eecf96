package models

// User represents an account created from the streaming provider's profile
// on first sign-in. Authentication itself happens against the provider; this
// row only anchors memberships and votes to a stable id.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// SpotifyID is the provider's user id (unique).
	SpotifyID string

	// DisplayName is the profile name shown to other members.
	DisplayName string

	// Email is the user's email address as reported by the provider.
	Email string

	// AvatarURL is the profile picture URL, may be empty.
	AvatarURL string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}
