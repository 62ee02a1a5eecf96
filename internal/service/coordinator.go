package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yongmin01/musiot-server/internal/models"
)

// Mutations follow a single shape: authentication gate, client-side
// validation against session state, store call, error mapping, then a fresh
// resolution of every affected group. The registry is only ever updated
// from resolutions, not patched in place from mutation results.

// CreateGroup creates a new group owned by the current user. The summary is
// registered immediately so the group list shows the group without waiting
// for its first resolution.
func (a *AppState) CreateGroup(ctx context.Context, in models.CreateGroupInput) (*models.GroupSummary, error) {
	userID := a.UserID()
	if userID == "" {
		return nil, &AppError{Message: MsgLoginRequired, Err: ErrNotAuthenticated}
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("그룹 이름을 입력해주세요.")
	}

	group, err := a.store.CreateGroup(ctx, userID, in)
	if err != nil {
		return nil, mapStoreError(err, createGroupMessages)
	}

	summary := summaryFromGroup(group, userID)
	a.upsertSummary(summary)

	if _, err := a.RefreshGroupDetail(ctx, group.ID); err != nil {
		slog.Warn("post-create resolution failed", "group_id", group.ID, "error", err)
	}
	return &summary, nil
}

// JoinGroup joins the group behind joinCode. Joining a group the session
// already lists is rejected locally without a store call.
func (a *AppState) JoinGroup(ctx context.Context, joinCode, password string) (*models.GroupSummary, error) {
	userID := a.UserID()
	if userID == "" {
		return nil, &AppError{Message: MsgLoginRequired, Err: ErrNotAuthenticated}
	}

	code := strings.ToUpper(strings.TrimSpace(joinCode))
	if code == "" {
		return nil, NewValidationError(MsgInvalidJoinCode)
	}
	for _, g := range a.Groups() {
		if strings.EqualFold(g.Code, code) {
			return nil, NewValidationError(MsgAlreadyMember)
		}
	}

	group, err := a.store.JoinGroup(ctx, userID, code, password)
	if err != nil {
		return nil, mapStoreError(err, joinGroupMessages)
	}

	summary := summaryFromGroup(group, userID)
	a.upsertSummary(summary)

	if _, err := a.RefreshGroupDetail(ctx, group.ID); err != nil {
		slog.Warn("post-join resolution failed", "group_id", group.ID, "error", err)
	}
	return &summary, nil
}

// AddSongToGroup submits one track from the session's top-tracks list into
// the group's current round. The track id must resolve against the source
// list; the store never sees an id the session cannot describe.
func (a *AppState) AddSongToGroup(ctx context.Context, groupID, trackID string) error {
	userID := a.UserID()
	if userID == "" {
		return &AppError{Message: MsgLoginRequired, Err: ErrNotAuthenticated}
	}

	track, ok := a.findTrack(trackID)
	if !ok {
		return NewValidationError(MsgTrackNotFound)
	}

	err := a.store.AddTrackToGroup(ctx, userID, models.AddTrackInput{
		GroupID:        groupID,
		SpotifyTrackID: track.ID,
		Title:          track.Title,
		ArtistName:     track.ArtistName,
		AlbumName:      track.AlbumName,
		ArtworkURL:     track.AlbumCoverURL,
		ReleaseYear:    track.ReleaseYear,
	})
	if err != nil {
		return mapStoreError(err, addTrackMessages)
	}

	if _, err := a.RefreshGroupDetail(ctx, groupID); err != nil {
		slog.Warn("post-add resolution failed", "group_id", groupID, "error", err)
	}
	return nil
}

// AddResult is the per-group outcome of a multi-group submission.
type AddResult struct {
	GroupID string `json:"groupId"`
	Error   string `json:"error,omitempty"`
}

// AddSongToGroups submits the track to several groups sequentially. One
// group's failure does not stop the rest; every outcome is reported.
func (a *AppState) AddSongToGroups(ctx context.Context, groupIDs []string, trackID string) []AddResult {
	results := make([]AddResult, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		result := AddResult{GroupID: groupID}
		if err := a.AddSongToGroup(ctx, groupID, trackID); err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// VoteForSong casts (or moves) the current user's vote for a candidate in
// the group's round.
func (a *AppState) VoteForSong(ctx context.Context, groupID, roundTrackID string) error {
	userID := a.UserID()
	if userID == "" {
		return &AppError{Message: MsgLoginRequired, Err: ErrNotAuthenticated}
	}

	if err := a.store.VoteForCandidate(ctx, userID, roundTrackID); err != nil {
		return mapStoreError(err, voteMessages)
	}

	if _, err := a.RefreshGroupDetail(ctx, groupID); err != nil {
		slog.Warn("post-vote resolution failed", "group_id", groupID, "error", err)
	}
	return nil
}
