package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/tally"
)

// recentWinnerLimit bounds the history shown on a group page.
const recentWinnerLimit = 3

// RefreshGroupDetail re-resolves one group's full detail from the store and
// commits it to the session registry. Resolution is all-or-nothing: on any
// read failure the previously cached detail stays untouched, no partial
// entry is ever written.
//
// Stale resolutions are discarded: each call takes a per-group sequence
// number and the session generation, and only the newest resolution for the
// current identity may commit.
func (a *AppState) RefreshGroupDetail(ctx context.Context, groupID string) (*models.GroupDetail, error) {
	a.mu.Lock()
	userID := a.userID
	if userID == "" {
		a.mu.Unlock()
		return nil, &AppError{Message: MsgLoginRequired, Err: ErrNotAuthenticated}
	}
	gen := a.generation
	a.resolveSeq[groupID]++
	seq := a.resolveSeq[groupID]
	a.loading[groupID] = true
	a.mu.Unlock()

	detail, summary, err := a.resolveGroup(ctx, groupID, userID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen || a.resolveSeq[groupID] != seq {
		// A newer resolution or identity change superseded this one.
		return nil, nil
	}
	delete(a.loading, groupID)
	if err != nil {
		return nil, err
	}

	a.details[groupID] = detail
	merged := summary
	replaced := false
	for i, g := range a.groups {
		if g.ID == groupID {
			merged.IsOwner = g.IsOwner // ownership comes from the membership row
			a.groups[i] = merged
			replaced = true
			break
		}
	}
	if !replaced {
		a.groups = append(a.groups, merged)
	}
	return detail.Clone(), nil
}

// resolveGroup performs the read side of a resolution without touching
// session state.
func (a *AppState) resolveGroup(ctx context.Context, groupID, userID string) (*models.GroupDetail, models.GroupSummary, error) {
	var summary models.GroupSummary

	// Creating today's round is best-effort: a group page must still
	// resolve when the write path is unavailable.
	if err := a.store.EnsureTodayRound(ctx, groupID); err != nil {
		slog.Warn("failed to ensure today's round", "group_id", groupID, "error", err)
	}

	group, err := a.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to load group: %w", err)
	}
	if group == nil {
		return nil, summary, ErrGroupNotFound
	}
	summary = summaryFromGroup(group, userID)

	memberCount, err := a.store.GetMemberCount(ctx, groupID)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to count members: %w", err)
	}
	if memberCount < 0 {
		// Unknown count: keep whatever the registry showed before.
		memberCount = a.lastKnownMemberCount(groupID)
	}
	summary.MemberCount = memberCount

	round, err := a.store.LatestRound(ctx, groupID)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to load latest round: %w", err)
	}

	winners, err := a.store.ListRecentWinners(ctx, groupID, recentWinnerLimit)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to load recent winners: %w", err)
	}

	now := time.Now()
	detail := &models.GroupDetail{
		ID:             group.ID,
		Name:           group.Name,
		MemberCount:    memberCount,
		HasVotingEnded: true,
		TodaySongs:     []models.GroupSong{},
		History:        buildHistory(winners),
	}

	if round != nil {
		detail.RoundID = round.ID
		detail.Status = round.Status
		detail.VotingEnds = formatTimeOfDay(round.SubmissionEndAt, now)
		// Status is the single source of truth for the flags: the round
		// finalizer flips it once the window passes. Deriving "open" from
		// the clock here would disagree with the write path between the
		// window's end and the next finalizer run.
		detail.IsVotingOpen = round.Status == models.RoundStatusSubmission
		detail.HasVotingEnded = !detail.IsVotingOpen

		songs, err := a.resolveCandidates(ctx, round, userID, now)
		if err != nil {
			return nil, summary, err
		}
		detail.TodaySongs = songs
		detail.SongOfTheDay = finalizedWinner(round, songs)
	}

	if detail.SongOfTheDay == nil && len(detail.History) > 0 {
		h := detail.History[0]
		detail.SongOfTheDay = &models.SongOfTheDay{
			ID:       h.ID,
			TrackID:  h.TrackID,
			Title:    h.Title,
			Artist:   h.Artist,
			CoverURL: h.CoverURL,
			Votes:    h.Votes,
			Date:     h.Date,
		}
	}

	return detail, summary, nil
}

// resolveCandidates loads the round's submissions and votes and merges them
// into the display list, ordered by votes descending (submission order on
// ties).
func (a *AppState) resolveCandidates(ctx context.Context, round *models.Round, userID string, now time.Time) ([]models.GroupSong, error) {
	roundTracks, err := a.store.ListRoundTracks(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load round tracks: %w", err)
	}
	votes, err := a.store.ListRoundVotes(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load round votes: %w", err)
	}

	counts := tally.Count(votes)
	votedBy := tally.VotedBy(votes, userID)

	songs := make([]models.GroupSong, 0, len(roundTracks))
	for _, rt := range roundTracks {
		addedBy := "멤버"
		if rt.AddedBy == userID {
			addedBy = "You"
		}
		songs = append(songs, models.GroupSong{
			ID:           rt.ID,
			TrackID:      rt.TrackID,
			Title:        rt.Title,
			Artist:       rt.ArtistName,
			Album:        rt.AlbumName,
			CoverURL:     rt.ArtworkURL,
			AddedBy:      addedBy,
			Votes:        counts[rt.ID],
			HasUserVoted: votedBy[rt.ID],
			AddedAt:      formatTimeOfDay(rt.AddedAt, now),
		})
	}
	tally.SortByVotes(songs)
	return songs, nil
}

// finalizedWinner maps the round's finalized winner onto today's candidate
// list. Both the winner reference and the finalization timestamp must be
// set; a dangling reference resolves to nothing.
func finalizedWinner(round *models.Round, songs []models.GroupSong) *models.SongOfTheDay {
	if round.WinnerRoundTrackID == "" || round.WinnerFinalizedAt == 0 {
		return nil
	}
	for _, s := range songs {
		if s.ID == round.WinnerRoundTrackID {
			return &models.SongOfTheDay{
				ID:       s.ID,
				TrackID:  s.TrackID,
				Title:    s.Title,
				Artist:   s.Artist,
				CoverURL: s.CoverURL,
				Votes:    s.Votes,
			}
		}
	}
	return nil
}

func buildHistory(winners []models.Winner) []models.HistoryEntry {
	history := make([]models.HistoryEntry, 0, len(winners))
	for _, w := range winners {
		history = append(history, models.HistoryEntry{
			ID:       w.RoundTrackID,
			TrackID:  w.TrackID,
			Title:    w.Title,
			Artist:   w.ArtistName,
			CoverURL: w.ArtworkURL,
			Votes:    w.VoteCount,
			Date:     formatShortDate(w.FinalizedAt),
		})
	}
	return history
}
