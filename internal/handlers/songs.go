package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/yongmin01/musiot-server/internal/middleware"
	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/service"
	"github.com/yongmin01/musiot-server/internal/spotify"
)

// SongHandler serves the top-tracks catalog, search, candidate submission
// and voting.
type SongHandler struct {
	spotify  *spotify.Client
	sessions *service.SessionManager
}

func NewSongHandler(client *spotify.Client, sessions *service.SessionManager) *SongHandler {
	return &SongHandler{spotify: client, sessions: sessions}
}

func (h *SongHandler) session(r *http.Request) (*service.AppState, error) {
	return h.sessions.ForUser(r.Context(), middleware.GetUserID(r.Context()))
}

type trackListResponse struct {
	Tracks []models.Track `json:"tracks"`
}

// TopTracks handles GET /spotify/top-tracks: fetches the user's short-term
// top tracks from the provider and caches them as the session's source
// list. Provider failures pass through with their original status and body.
func (h *SongHandler) TopTracks(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token := state.ProviderToken()
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "provider session expired, sign in again")
		return
	}

	tracks, err := h.spotify.TopTracks(r.Context(), token)
	if err != nil {
		var upErr *spotify.UpstreamError
		if errors.As(err, &upErr) {
			slog.Warn("provider top-tracks error", "status", upErr.StatusCode)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(upErr.StatusCode)
			w.Write(upErr.Body)
			return
		}
		slog.Error("failed to fetch top tracks", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "failed to fetch top tracks")
		return
	}

	state.SetTopSongs(tracks)
	middleware.JSONResponse(w, http.StatusOK, trackListResponse{Tracks: tracks})
}

// SearchSongs handles GET /songs/search?q=: filters the cached source list.
func (h *SongHandler) SearchSongs(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, trackListResponse{
		Tracks: state.SearchSongs(r.URL.Query().Get("q")),
	})
}

type addSongRequest struct {
	TrackID string `json:"trackId"`
}

// AddSong handles POST /groups/{id}/songs: submits one track from the
// source list into the group's current round and returns the re-resolved
// detail.
func (h *SongHandler) AddSong(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req addSongRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.TrackID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "trackId is required")
		return
	}

	groupID := r.PathValue("id")
	if err := state.AddSongToGroup(r.Context(), groupID, req.TrackID); err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("song added", "group_id", groupID, "track_id", req.TrackID, "user_id", state.UserID())
	middleware.JSONResponse(w, http.StatusOK, groupDetailResponse{
		Group:     state.GetDetail(groupID),
		IsLoading: state.IsGroupLoading(groupID),
	})
}

type addSongMultiRequest struct {
	GroupIDs []string `json:"groupIds"`
}

type addSongMultiResponse struct {
	Results []service.AddResult `json:"results"`
}

// AddSongToGroups handles POST /songs/{trackId}/groups: submits the track
// to several groups, reporting per-group outcomes.
func (h *SongHandler) AddSongToGroups(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req addSongMultiRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.GroupIDs) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "groupIds is required")
		return
	}

	results := state.AddSongToGroups(r.Context(), req.GroupIDs, r.PathValue("trackId"))
	middleware.JSONResponse(w, http.StatusOK, addSongMultiResponse{Results: results})
}

type voteRequest struct {
	RoundTrackID string `json:"roundTrackId"`
}

// Vote handles POST /groups/{id}/votes: casts or moves the caller's vote
// and returns the re-resolved detail.
func (h *SongHandler) Vote(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req voteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.RoundTrackID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "roundTrackId is required")
		return
	}

	groupID := r.PathValue("id")
	if err := state.VoteForSong(r.Context(), groupID, req.RoundTrackID); err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("vote recorded", "group_id", groupID, "user_id", state.UserID())
	middleware.JSONResponse(w, http.StatusOK, groupDetailResponse{
		Group:     state.GetDetail(groupID),
		IsLoading: state.IsGroupLoading(groupID),
	})
}
