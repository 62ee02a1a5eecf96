// Package handlers implements the HTTP API: provider sign-in, group
// management, candidate submission and voting.
package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/yongmin01/musiot-server/internal/auth"
	"github.com/yongmin01/musiot-server/internal/middleware"
	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/service"
	"github.com/yongmin01/musiot-server/internal/spotify"
	"github.com/yongmin01/musiot-server/internal/storage"
)

const stateCookie = "musiot_oauth_state"

// AuthHandler runs the provider OAuth flow and mints session tokens.
type AuthHandler struct {
	spotify  *spotify.Client
	jwt      *auth.JWTManager
	store    storage.Store
	sessions *service.SessionManager
}

func NewAuthHandler(client *spotify.Client, jwt *auth.JWTManager, store storage.Store, sessions *service.SessionManager) *AuthHandler {
	return &AuthHandler{spotify: client, jwt: jwt, store: store, sessions: sessions}
}

// Login handles GET /auth/login: redirects to the provider's consent page
// with a fresh CSRF state.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("failed to generate oauth state", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to start login")
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.spotify.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		AvatarURL   string `json:"avatarUrl,omitempty"`
	} `json:"user"`
}

// Callback handles GET /auth/callback: trades the authorization code for
// tokens, upserts the user from the provider profile, initializes the
// session and returns our own session token.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "provider login refused: "+errParam)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "oauth state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	token, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("failed to exchange auth code", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "provider login failed")
		return
	}

	profile, err := h.spotify.UserProfile(r.Context(), token.AccessToken)
	if err != nil {
		slog.Error("failed to load provider profile", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "failed to load profile")
		return
	}

	user := &models.User{
		SpotifyID:   profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL(),
	}
	if err := h.store.UpsertUser(r.Context(), user); err != nil {
		slog.Error("failed to upsert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	state, err := h.sessions.ForUser(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to initialize session", "user_id", user.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}
	state.SetProviderToken(token.AccessToken)

	sessionToken, err := h.jwt.Generate(user)
	if err != nil {
		slog.Error("failed to mint session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("user signed in", "user_id", user.ID)

	var resp loginResponse
	resp.Token = sessionToken
	resp.User.ID = user.ID
	resp.User.DisplayName = user.DisplayName
	resp.User.AvatarURL = user.AvatarURL
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Logout handles POST /auth/logout: drops the server-side session state.
// The client discards its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID != "" {
		h.sessions.Drop(userID)
		slog.Info("user signed out", "user_id", userID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me: returns the signed-in user's profile row.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load user", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if user == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "account not found")
		return
	}

	var resp loginResponse
	resp.User.ID = user.ID
	resp.User.DisplayName = user.DisplayName
	resp.User.AvatarURL = user.AvatarURL
	middleware.JSONResponse(w, http.StatusOK, resp.User)
}
