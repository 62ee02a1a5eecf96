// Package router wires the HTTP endpoints to their handlers and per-route
// middleware.
package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yongmin01/musiot-server/internal/auth"
	"github.com/yongmin01/musiot-server/internal/handlers"
	"github.com/yongmin01/musiot-server/internal/middleware"
	"github.com/yongmin01/musiot-server/internal/service"
	"github.com/yongmin01/musiot-server/internal/spotify"
	"github.com/yongmin01/musiot-server/internal/storage"
)

// New creates the configured ServeMux with all endpoints.
func New(store storage.Store, client *spotify.Client, jwtManager *auth.JWTManager, sessions *service.SessionManager) *http.ServeMux {
	mux := http.NewServeMux()

	authHandler := handlers.NewAuthHandler(client, jwtManager, store, sessions)
	groupHandler := handlers.NewGroupHandler(sessions)
	songHandler := handlers.NewSongHandler(client, sessions)

	// route registers one endpoint with the standard middleware chain.
	route := func(pattern string, authed bool, h http.HandlerFunc) {
		h = middleware.WithMetrics(pattern, middleware.WithLogging(h))
		if authed {
			h = middleware.RequireAuth(jwtManager, h)
		}
		mux.HandleFunc(pattern, h)
	}

	// Health and metrics
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Provider sign-in
	route("GET /auth/login", false, authHandler.Login)
	route("GET /auth/callback", false, authHandler.Callback)
	route("POST /auth/logout", true, authHandler.Logout)
	route("GET /auth/me", true, authHandler.Me)

	// Group registry
	route("GET /groups", true, groupHandler.ListGroups)
	route("POST /groups", true, groupHandler.CreateGroup)
	route("POST /groups/join", true, groupHandler.JoinGroup)
	route("GET /groups/{id}", true, groupHandler.GetGroup)

	// Candidates and voting
	route("POST /groups/{id}/songs", true, songHandler.AddSong)
	route("POST /groups/{id}/votes", true, songHandler.Vote)
	route("POST /songs/{trackId}/groups", true, songHandler.AddSongToGroups)

	// Catalog
	route("GET /spotify/top-tracks", true, songHandler.TopTracks)
	route("GET /songs/search", true, songHandler.SearchSongs)

	return mux
}
