package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(upstream *httptest.Server) *Client {
	c := NewClient("id", "secret", "http://localhost/callback")
	c.baseURL = upstream.URL
	return c
}

func TestTopTracks(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("authorization header: expected Bearer token-1, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"id": "t1",
					"name": "First Song",
					"artists": [{"name": "Artist A"}, {"name": "Artist B"}],
					"album": {
						"name": "Album A",
						"images": [{"url": "https://img/a1"}, {"url": "https://img/a2"}],
						"release_date": "2021-03-05"
					}
				},
				{"id": "", "name": "dropped"},
				{
					"id": "t2",
					"name": "Second Song",
					"artists": [],
					"album": {"name": "", "images": [], "release_date": "bad"}
				}
			]
		}`))
	}))
	defer upstream.Close()

	tracks, err := newTestClient(upstream).TopTracks(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("TopTracks failed: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks (idless item dropped), got %d", len(tracks))
	}

	first := tracks[0]
	if first.ID != "t1" || first.Title != "First Song" {
		t.Errorf("unexpected first track: %+v", first)
	}
	if first.ArtistName != "Artist A" {
		t.Errorf("expected primary artist only, got %q", first.ArtistName)
	}
	if first.AlbumCoverURL != "https://img/a1" {
		t.Errorf("expected first album image, got %q", first.AlbumCoverURL)
	}
	if first.ReleaseYear != 2021 {
		t.Errorf("expected release year 2021, got %d", first.ReleaseYear)
	}
	if first.Rank != 1 {
		t.Errorf("expected rank 1, got %d", first.Rank)
	}

	second := tracks[1]
	if second.ArtistName != "" || second.ReleaseYear != 0 {
		t.Errorf("expected empty artist and zero year, got %+v", second)
	}
	// Rank is positional in the upstream list, including dropped items.
	if second.Rank != 3 {
		t.Errorf("expected rank 3, got %d", second.Rank)
	}
}

func TestTopTracksUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"status": 429, "message": "rate limited"}}`))
	}))
	defer upstream.Close()

	_, err := newTestClient(upstream).TopTracks(context.Background(), "token-1")
	if err == nil {
		t.Fatal("expected error")
	}

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", upErr.StatusCode)
	}
	if len(upErr.Body) == 0 {
		t.Error("expected raw upstream body to be preserved")
	}
}

func TestUserProfile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": "sp-1", "display_name": "Yongmin", "email": "y@example.com", "images": [{"url": "https://img/p"}]}`))
	}))
	defer upstream.Close()

	profile, err := newTestClient(upstream).UserProfile(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("UserProfile failed: %v", err)
	}
	if profile.ID != "sp-1" || profile.DisplayName != "Yongmin" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if profile.AvatarURL() != "https://img/p" {
		t.Errorf("unexpected avatar url: %q", profile.AvatarURL())
	}
}
