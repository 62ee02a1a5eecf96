package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/yongmin01/musiot-server/internal/models"
)

func seedGroup(f *fakeStore, id, owner string) *models.Group {
	group := &models.Group{
		ID:        id,
		Name:      "Test Group",
		OwnerID:   owner,
		JoinCode:  "ABCDEF",
		CreatedAt: time.Now().Add(-24 * time.Hour).Unix(),
		UpdatedAt: time.Now().Add(-time.Hour).Unix(),
	}
	f.groups[id] = group
	f.memberCounts[id] = 3
	return group
}

func seedOpenRound(f *fakeStore, groupID string) *models.Round {
	now := time.Now()
	round := &models.Round{
		ID:                "r1",
		GroupID:           groupID,
		Date:              now.Format("2006-01-02"),
		Status:            models.RoundStatusSubmission,
		SubmissionStartAt: now.Add(-2 * time.Hour).Unix(),
		SubmissionEndAt:   now.Add(2 * time.Hour).Unix(),
	}
	f.latestRounds[groupID] = round
	return round
}

func TestRefreshGroupDetailMergesVotes(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	round := seedOpenRound(f, "g1")

	base := time.Now().Add(-3 * time.Hour).Unix()
	f.roundTracks[round.ID] = []models.RoundTrack{
		{ID: "rt1", RoundID: round.ID, TrackID: "t1", AddedBy: "u1", AddedAt: base, Title: "First", ArtistName: "A"},
		{ID: "rt2", RoundID: round.ID, TrackID: "t2", AddedBy: "u2", AddedAt: base + 10, Title: "Second", ArtistName: "B"},
		// Metadata join missed: the candidate still appears with empty fields.
		{ID: "rt3", RoundID: round.ID, TrackID: "t3", AddedBy: "u2", AddedAt: base + 20},
	}
	f.votes[round.ID] = []models.Vote{
		{RoundID: round.ID, RoundTrackID: "rt2", VoterID: "u1"},
		{RoundID: round.ID, RoundTrackID: "rt2", VoterID: "u2"},
		{RoundID: round.ID, RoundTrackID: "rt3", VoterID: "u3"},
		// Duplicate row for the same voter: counted raw, deduped for hasUserVoted.
		{RoundID: round.ID, RoundTrackID: "rt2", VoterID: "u1"},
	}

	state := NewAppState(f)
	state.userID = "u1"

	detail, err := state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}

	if !detail.IsVotingOpen || detail.HasVotingEnded {
		t.Errorf("expected open voting, got open=%v ended=%v", detail.IsVotingOpen, detail.HasVotingEnded)
	}
	if detail.MemberCount != 3 {
		t.Errorf("expected member count 3, got %d", detail.MemberCount)
	}
	if len(detail.TodaySongs) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(detail.TodaySongs))
	}

	// Sorted by votes descending, submission order on ties.
	if got := detail.TodaySongs[0]; got.ID != "rt2" || got.Votes != 3 {
		t.Errorf("expected rt2 with 3 raw votes first, got %s with %d", got.ID, got.Votes)
	}
	if got := detail.TodaySongs[1]; got.ID != "rt3" || got.Votes != 1 {
		t.Errorf("expected rt3 second, got %s with %d", got.ID, got.Votes)
	}
	if got := detail.TodaySongs[2]; got.ID != "rt1" || got.Votes != 0 {
		t.Errorf("expected rt1 last, got %s with %d", got.ID, got.Votes)
	}

	if !detail.TodaySongs[0].HasUserVoted {
		t.Error("expected hasUserVoted on rt2 for u1")
	}
	if detail.TodaySongs[1].HasUserVoted {
		t.Error("did not expect hasUserVoted on rt3")
	}

	if detail.TodaySongs[2].AddedBy != "You" {
		t.Errorf("expected own submission rendered as You, got %q", detail.TodaySongs[2].AddedBy)
	}
	if detail.TodaySongs[0].AddedBy != "멤버" {
		t.Errorf("expected other submission rendered as 멤버, got %q", detail.TodaySongs[0].AddedBy)
	}

	if missing := detail.TodaySongs[1]; missing.Title != "" || missing.Artist != "" {
		t.Errorf("expected empty metadata on join miss, got %+v", missing)
	}

	// The live leader never becomes the song of the day on its own: the
	// round is unfinalized and there is no history to fall back to.
	if detail.SongOfTheDay != nil {
		t.Errorf("expected no song of the day for an unfinalized round, got %+v", detail.SongOfTheDay)
	}
}

func TestRefreshGroupDetailVotingOpenUntilFinalized(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	round := seedOpenRound(f, "g1")
	// The window has passed on the clock but the finalizer has not run
	// yet: status alone decides the flags.
	round.SubmissionEndAt = time.Now().Add(-time.Hour).Unix()

	state := NewAppState(f)
	state.userID = "u1"

	detail, err := state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}
	if !detail.IsVotingOpen || detail.HasVotingEnded {
		t.Errorf("expected submission status to keep voting open, got open=%v ended=%v",
			detail.IsVotingOpen, detail.HasVotingEnded)
	}

	round.Status = models.RoundStatusClosed
	detail, err = state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}
	if detail.IsVotingOpen || !detail.HasVotingEnded {
		t.Errorf("expected closed status to end voting, got open=%v ended=%v",
			detail.IsVotingOpen, detail.HasVotingEnded)
	}
}

func TestRefreshGroupDetailRegistersSummary(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	seedOpenRound(f, "g1")

	state := NewAppState(f)
	state.userID = "u1"

	if _, err := state.RefreshGroupDetail(context.Background(), "g1"); err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}

	groups := state.Groups()
	if len(groups) != 1 || groups[0].ID != "g1" {
		t.Fatalf("expected the resolved group inserted into the registry, got %+v", groups)
	}
	if groups[0].MemberCount != 3 || groups[0].Code != "ABCDEF" {
		t.Errorf("unexpected inserted summary: %+v", groups[0])
	}

	// Resolving again must replace the entry, not duplicate it.
	if _, err := state.RefreshGroupDetail(context.Background(), "g1"); err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}
	if got := len(state.Groups()); got != 1 {
		t.Errorf("expected a single registry entry after re-resolution, got %d", got)
	}
}

func TestRefreshGroupDetailNoRounds(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	f.winners["g1"] = []models.Winner{
		{ID: "w1", GroupID: "g1", RoundTrackID: "rt9", TrackID: "t9", Title: "Old Winner", ArtistName: "C", VoteCount: 4, FinalizedAt: time.Now().Add(-24 * time.Hour).Unix()},
	}

	state := NewAppState(f)
	state.userID = "u1"

	detail, err := state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}

	if detail.IsVotingOpen {
		t.Error("expected voting closed with no rounds")
	}
	if !detail.HasVotingEnded {
		t.Error("expected hasVotingEnded with no rounds")
	}
	if len(detail.TodaySongs) != 0 {
		t.Errorf("expected no candidates, got %d", len(detail.TodaySongs))
	}
	if detail.SongOfTheDay == nil || detail.SongOfTheDay.Title != "Old Winner" {
		t.Errorf("expected song of the day from history, got %+v", detail.SongOfTheDay)
	}
}

func TestRefreshGroupDetailSongOfTheDay(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	round := seedOpenRound(f, "g1")
	round.Status = models.RoundStatusClosed
	round.SubmissionEndAt = time.Now().Add(-time.Hour).Unix()
	f.roundTracks[round.ID] = []models.RoundTrack{
		{ID: "rt1", RoundID: round.ID, TrackID: "t1", AddedBy: "u2", AddedAt: 100, Title: "Today Winner"},
	}
	f.votes[round.ID] = []models.Vote{{RoundID: round.ID, RoundTrackID: "rt1", VoterID: "u2"}}
	f.winners["g1"] = []models.Winner{
		{ID: "w1", RoundTrackID: "rt0", TrackID: "t0", Title: "Yesterday Winner", VoteCount: 2, FinalizedAt: 50},
	}

	state := NewAppState(f)
	state.userID = "u1"

	t.Run("winner reference without timestamp falls back to history", func(t *testing.T) {
		round.WinnerRoundTrackID = "rt1"
		round.WinnerFinalizedAt = 0

		detail, err := state.RefreshGroupDetail(context.Background(), "g1")
		if err != nil {
			t.Fatalf("RefreshGroupDetail failed: %v", err)
		}
		if detail.SongOfTheDay == nil || detail.SongOfTheDay.Title != "Yesterday Winner" {
			t.Errorf("expected history fallback, got %+v", detail.SongOfTheDay)
		}
	})

	t.Run("finalized winner takes precedence", func(t *testing.T) {
		round.WinnerRoundTrackID = "rt1"
		round.WinnerFinalizedAt = time.Now().Unix()

		detail, err := state.RefreshGroupDetail(context.Background(), "g1")
		if err != nil {
			t.Fatalf("RefreshGroupDetail failed: %v", err)
		}
		if detail.SongOfTheDay == nil || detail.SongOfTheDay.Title != "Today Winner" {
			t.Errorf("expected today's finalized winner, got %+v", detail.SongOfTheDay)
		}
		if detail.SongOfTheDay.Votes != 1 {
			t.Errorf("expected 1 vote, got %d", detail.SongOfTheDay.Votes)
		}
	})
}

func TestRefreshGroupDetailFailureKeepsCache(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	round := seedOpenRound(f, "g1")
	f.roundTracks[round.ID] = []models.RoundTrack{
		{ID: "rt1", RoundID: round.ID, TrackID: "t1", AddedBy: "u1", AddedAt: 100, Title: "Cached"},
	}

	state := NewAppState(f)
	state.userID = "u1"

	if _, err := state.RefreshGroupDetail(context.Background(), "g1"); err != nil {
		t.Fatalf("priming resolution failed: %v", err)
	}

	f.failOn["ListRoundTracks"] = errors.New("boom")
	if _, err := state.RefreshGroupDetail(context.Background(), "g1"); err == nil {
		t.Fatal("expected resolution error")
	}

	cached := state.GetDetail("g1")
	if cached == nil || len(cached.TodaySongs) != 1 || cached.TodaySongs[0].Title != "Cached" {
		t.Errorf("expected cached detail to survive the failed resolution, got %+v", cached)
	}
	if state.IsGroupLoading("g1") {
		t.Error("expected loading flag cleared after failure")
	}
}

func TestRefreshGroupDetailMemberCountFallback(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	seedOpenRound(f, "g1")

	state := NewAppState(f)
	state.userID = "u1"

	if _, err := state.RefreshGroupDetail(context.Background(), "g1"); err != nil {
		t.Fatalf("priming resolution failed: %v", err)
	}

	// Count becomes unknown: the previous value must be kept.
	f.mu.Lock()
	delete(f.memberCounts, "g1")
	f.mu.Unlock()

	detail, err := state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("RefreshGroupDetail failed: %v", err)
	}
	if detail.MemberCount != 3 {
		t.Errorf("expected previous member count 3 kept, got %d", detail.MemberCount)
	}
}

func TestRefreshGroupDetailIdempotent(t *testing.T) {
	f := newFakeStore()
	seedGroup(f, "g1", "u1")
	round := seedOpenRound(f, "g1")
	base := time.Now().Add(-3 * time.Hour).Unix()
	f.roundTracks[round.ID] = []models.RoundTrack{
		{ID: "rt1", RoundID: round.ID, TrackID: "t1", AddedBy: "u1", AddedAt: base, Title: "First"},
		{ID: "rt2", RoundID: round.ID, TrackID: "t2", AddedBy: "u2", AddedAt: base + 10, Title: "Second"},
	}
	f.votes[round.ID] = []models.Vote{
		{RoundID: round.ID, RoundTrackID: "rt2", VoterID: "u2"},
	}

	state := NewAppState(f)
	state.userID = "u1"

	first, err := state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}
	second, err := state.RefreshGroupDetail(context.Background(), "g1")
	if err != nil {
		t.Fatalf("second resolution failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolutions differ without intervening mutation:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestRefreshGroupDetailUnknownGroup(t *testing.T) {
	f := newFakeStore()
	state := NewAppState(f)
	state.userID = "u1"

	_, err := state.RefreshGroupDetail(context.Background(), "missing")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}
