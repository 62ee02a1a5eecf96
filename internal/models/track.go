package models

// Track is one entry of the user's top-tracks source list, mapped from the
// streaming provider's catalog. This is what the mutation coordinator
// consults to resolve full metadata when a track id is submitted.
type Track struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ArtistName    string `json:"artistName"`
	AlbumName     string `json:"albumName"`
	AlbumCoverURL string `json:"albumCoverUrl"`
	ReleaseYear   int    `json:"releaseYear,omitempty"` // 0 when unknown
	Rank          int    `json:"rank"`                  // 1-based
}

// AddTrackInput carries the fields for submitting a candidate into a
// group's current round. Metadata is denormalized here because the track
// may not exist in storage yet.
type AddTrackInput struct {
	GroupID        string
	SpotifyTrackID string
	Title          string
	ArtistName     string
	AlbumName      string
	DurationMS     int
	ArtworkURL     string
	ReleaseYear    int
}
