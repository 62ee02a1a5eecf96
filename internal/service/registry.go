package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/storage"
)

// AppState is the session-scoped state for one signed-in identity: the
// groups the user belongs to, their resolved details, and the top-tracks
// source list. One AppState exists per session and is passed by reference
// to its consumers; there are no ambient singletons.
//
// All collections are replaced atomically under the mutex so a reader never
// observes a half-updated entry. Resolutions run concurrently; a generation
// counter plus a per-group sequence discard any resolution that completes
// after the identity changed or a newer resolution superseded it.
type AppState struct {
	store storage.Store

	mu            sync.RWMutex
	userID        string
	providerToken string
	generation    uint64
	groups        []models.GroupSummary
	details       map[string]*models.GroupDetail
	loading       map[string]bool
	resolveSeq    map[string]uint64
	topSongs      []models.Track
}

// NewAppState creates an empty session state backed by the given store.
func NewAppState(store storage.Store) *AppState {
	return &AppState{
		store:      store,
		details:    make(map[string]*models.GroupDetail),
		loading:    make(map[string]bool),
		resolveSeq: make(map[string]uint64),
	}
}

// emptyDetail builds the placeholder detail registered for a group before
// its first resolution completes. The loading flag, not this placeholder,
// is what tells the presentation layer the data is not resolved yet.
func emptyDetail(group models.GroupSummary) *models.GroupDetail {
	return &models.GroupDetail{
		ID:          group.ID,
		Name:        group.Name,
		MemberCount: group.MemberCount,
		TodaySongs:  []models.GroupSong{},
		History:     []models.HistoryEntry{},
	}
}

// SetIdentity reacts to a sign-in or sign-out. An empty userID clears all
// session state. A new identity loads the membership summaries
// synchronously, then kicks off full detail resolution for every group in
// the background without blocking the summary list.
func (a *AppState) SetIdentity(ctx context.Context, userID string) error {
	a.mu.Lock()
	a.userID = userID
	a.generation++
	gen := a.generation
	a.groups = nil
	a.details = make(map[string]*models.GroupDetail)
	a.loading = make(map[string]bool)
	a.mu.Unlock()

	if userID == "" {
		return nil
	}

	memberships, err := a.store.ListMemberships(ctx, userID)
	if err != nil {
		slog.Error("failed to load memberships", "user_id", userID, "error", err)
		return err
	}

	summaries := make([]models.GroupSummary, 0, len(memberships))
	for _, m := range memberships {
		if m.Group == nil {
			continue
		}
		summaries = append(summaries, models.GroupSummary{
			ID:           m.Group.ID,
			Name:         m.Group.Name,
			Description:  m.Group.Description,
			MemberCount:  1,
			IsOwner:      m.Group.OwnerID == userID || m.Role == "owner",
			LastActivity: formatLastActivity(m.Group.UpdatedAt, m.Group.CreatedAt),
			Code:         m.Group.JoinCode,
			HasPassword:  m.Group.RequiresPassword,
		})
	}

	// Member counts are best-effort: one group's failure must not block
	// the others, it just keeps the default of 1.
	var wg sync.WaitGroup
	for i := range summaries {
		wg.Add(1)
		go func(s *models.GroupSummary) {
			defer wg.Done()
			count, err := a.store.GetMemberCount(ctx, s.ID)
			if err != nil {
				slog.Warn("failed to load member count", "group_id", s.ID, "error", err)
				return
			}
			if count >= 0 {
				s.MemberCount = count
			}
		}(&summaries[i])
	}
	wg.Wait()

	a.mu.Lock()
	if a.generation != gen {
		// Identity changed while we were loading; drop everything.
		a.mu.Unlock()
		return nil
	}
	a.groups = summaries
	for _, s := range summaries {
		a.details[s.ID] = emptyDetail(s)
		a.loading[s.ID] = true
	}
	a.mu.Unlock()

	for _, s := range summaries {
		go func(groupID string) {
			if _, err := a.RefreshGroupDetail(context.WithoutCancel(ctx), groupID); err != nil {
				slog.Warn("initial group resolution failed", "group_id", groupID, "error", err)
			}
		}(s.ID)
	}
	return nil
}

// UserID returns the current identity, or "" when signed out.
func (a *AppState) UserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID
}

// SetProviderToken records the streaming provider's bearer token for this
// session (refreshed by the auth flow over time).
func (a *AppState) SetProviderToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providerToken = token
}

// ProviderToken returns the current provider bearer token, or "".
func (a *AppState) ProviderToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.providerToken
}

// Groups returns a copy of the current group summaries.
func (a *AppState) Groups() []models.GroupSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.GroupSummary, len(a.groups))
	copy(out, a.groups)
	return out
}

// GetDetail returns a defensive copy of the group's resolved detail, or
// nil when the group is unknown.
func (a *AppState) GetDetail(groupID string) *models.GroupDetail {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.details[groupID].Clone()
}

// IsGroupLoading reports whether a resolution is in flight for the group.
func (a *AppState) IsGroupLoading(groupID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading[groupID]
}

// SetTopSongs replaces the session's top-tracks source list.
func (a *AppState) SetTopSongs(tracks []models.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.topSongs = make([]models.Track, len(tracks))
	copy(a.topSongs, tracks)
}

// TopSongs returns a copy of the top-tracks source list.
func (a *AppState) TopSongs() []models.Track {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Track, len(a.topSongs))
	copy(out, a.topSongs)
	return out
}

// SearchSongs filters the top-tracks list by a case-insensitive substring
// match on title, artist or album. An empty query returns the full list.
func (a *AppState) SearchSongs(query string) []models.Track {
	normalized := strings.ToLower(strings.TrimSpace(query))
	songs := a.TopSongs()
	if normalized == "" {
		return songs
	}

	var out []models.Track
	for _, song := range songs {
		if strings.Contains(strings.ToLower(song.Title), normalized) ||
			strings.Contains(strings.ToLower(song.ArtistName), normalized) ||
			strings.Contains(strings.ToLower(song.AlbumName), normalized) {
			out = append(out, song)
		}
	}
	return out
}

// findTrack resolves a track id against the source list.
func (a *AppState) findTrack(trackID string) (models.Track, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, t := range a.topSongs {
		if t.ID == trackID {
			return t, true
		}
	}
	return models.Track{}, false
}

// lastKnownMemberCount returns the member count the registry last showed
// for the group, defaulting to 1 for a never-resolved group.
func (a *AppState) lastKnownMemberCount(groupID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if d := a.details[groupID]; d != nil && d.MemberCount > 0 {
		return d.MemberCount
	}
	for _, g := range a.groups {
		if g.ID == groupID {
			return g.MemberCount
		}
	}
	return 1
}

// upsertSummary inserts or replaces a group summary and makes sure a
// placeholder detail exists. Entries are replaced whole, never patched.
func (a *AppState) upsertSummary(summary models.GroupSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	replaced := false
	for i, g := range a.groups {
		if g.ID == summary.ID {
			a.groups[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		a.groups = append(a.groups, summary)
	}
	if a.details[summary.ID] == nil {
		a.details[summary.ID] = emptyDetail(summary)
	}
}

func summaryFromGroup(group *models.Group, userID string) models.GroupSummary {
	return models.GroupSummary{
		ID:           group.ID,
		Name:         group.Name,
		Description:  group.Description,
		MemberCount:  1,
		IsOwner:      group.OwnerID == userID,
		LastActivity: formatLastActivity(group.UpdatedAt, group.CreatedAt),
		Code:         group.JoinCode,
		HasPassword:  group.RequiresPassword,
	}
}
