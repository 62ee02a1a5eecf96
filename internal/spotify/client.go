// Package spotify wraps the streaming provider's Web API: OAuth2 sign-in
// and the top-tracks read the candidate-submission flow relies on.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/yongmin01/musiot-server/internal/models"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"

	defaultBaseURL = "https://api.spotify.com/v1"

	topTracksPath = "/me/top/tracks?time_range=short_term&limit=20"
)

// apiImage is an image resource on an album or profile.
type apiImage struct {
	URL string `json:"url"`
}

type apiAlbum struct {
	Name        string     `json:"name"`
	Images      []apiImage `json:"images"`
	ReleaseDate string     `json:"release_date"`
}

type apiArtist struct {
	Name string `json:"name"`
}

type apiTrack struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Artists []apiArtist `json:"artists"`
	Album   apiAlbum    `json:"album"`
}

type topTracksResponse struct {
	Items []apiTrack `json:"items"`
}

// Profile is the authenticated user's provider profile.
type Profile struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Images      []apiImage `json:"images"`
}

// AvatarURL returns the first profile image URL, or "".
func (p *Profile) AvatarURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// UpstreamError carries an upstream failure unmodified: status code and raw
// error body, so callers can pass both through to their own clients.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
}

// Client performs authenticated calls against the provider API.
type Client struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client with the given OAuth2 application credentials.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"user-read-private",
				"user-read-email",
				"user-top-read",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
	}
}

// AuthCodeURL returns the authorization URL for user login.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// doRequest performs an authenticated GET against the provider API and
// decodes the JSON response into result. Non-2xx responses come back as an
// *UpstreamError with the raw body preserved.
func (c *Client) doRequest(ctx context.Context, accessToken, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// UserProfile retrieves the profile of the token's owner.
func (c *Client) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	if err := c.doRequest(ctx, accessToken, "/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// TopTracks retrieves the user's top 20 short-term tracks mapped to the
// flat Track record. Items without an id are dropped.
func (c *Client) TopTracks(ctx context.Context, accessToken string) ([]models.Track, error) {
	var payload topTracksResponse
	if err := c.doRequest(ctx, accessToken, topTracksPath, &payload); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(payload.Items))
	for i, item := range payload.Items {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, mapTrack(item, i))
	}
	return tracks, nil
}

func mapTrack(item apiTrack, index int) models.Track {
	track := models.Track{
		ID:        item.ID,
		Title:     item.Name,
		AlbumName: item.Album.Name,
		Rank:      index + 1,
	}
	if len(item.Artists) > 0 {
		track.ArtistName = item.Artists[0].Name
	}
	if len(item.Album.Images) > 0 {
		track.AlbumCoverURL = item.Album.Images[0].URL
	}
	if len(item.Album.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(item.Album.ReleaseDate[:4]); err == nil {
			track.ReleaseYear = year
		}
	}
	return track
}
