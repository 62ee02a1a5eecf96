package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/yongmin01/musiot-server/internal/middleware"
	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/service"
)

// GroupHandler serves the group registry: listing, creation, joining and
// the resolved group page.
type GroupHandler struct {
	sessions *service.SessionManager
}

func NewGroupHandler(sessions *service.SessionManager) *GroupHandler {
	return &GroupHandler{sessions: sessions}
}

// session loads the caller's session state. RequireAuth guarantees a
// non-empty user id in the context.
func (h *GroupHandler) session(r *http.Request) (*service.AppState, error) {
	return h.sessions.ForUser(r.Context(), middleware.GetUserID(r.Context()))
}

// writeServiceError maps a service-layer error onto an HTTP response. User
// messages from AppError keep their text; unmapped errors keep their raw
// message so backend failures stay diagnosable from the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var appErr *service.AppError
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		middleware.ErrorResponse(w, http.StatusUnauthorized, service.MsgLoginRequired)
	case errors.Is(err, service.ErrGroupNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, service.MsgGroupNotFound)
	case errors.As(err, &appErr):
		middleware.ErrorResponse(w, http.StatusBadRequest, appErr.Message)
	default:
		slog.Error("request failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

type groupListResponse struct {
	Groups []models.GroupSummary `json:"groups"`
}

// ListGroups handles GET /groups.
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, groupListResponse{Groups: state.Groups()})
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req models.CreateGroupInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	summary, err := state.CreateGroup(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("group created", "group_id", summary.ID, "user_id", state.UserID())
	middleware.JSONResponse(w, http.StatusCreated, summary)
}

type joinGroupRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// JoinGroup handles POST /groups/join.
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req joinGroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	summary, err := state.JoinGroup(r.Context(), req.Code, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("group joined", "group_id", summary.ID, "user_id", state.UserID())
	middleware.JSONResponse(w, http.StatusOK, summary)
}

type groupDetailResponse struct {
	Group     *models.GroupDetail `json:"group"`
	IsLoading bool                `json:"isLoading"`
}

// GetGroup handles GET /groups/{id}: re-resolves the group and returns the
// fresh detail. When the resolution fails but a cached detail exists, the
// cache is served with isLoading=false rather than erroring the page.
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	groupID := r.PathValue("id")
	detail, err := state.RefreshGroupDetail(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			writeServiceError(w, err)
			return
		}
		if cached := state.GetDetail(groupID); cached != nil {
			slog.Warn("serving cached group detail", "group_id", groupID, "error", err)
			middleware.JSONResponse(w, http.StatusOK, groupDetailResponse{Group: cached})
			return
		}
		writeServiceError(w, err)
		return
	}
	if detail == nil {
		// A concurrent resolution superseded this one; serve the cache.
		detail = state.GetDetail(groupID)
	}

	middleware.JSONResponse(w, http.StatusOK, groupDetailResponse{
		Group:     detail,
		IsLoading: state.IsGroupLoading(groupID),
	})
}
