package models

// Round status values. A round is the group's single voting window for one
// day; the client never writes status directly, it only reads it back.
const (
	RoundStatusSubmission   = "submission"
	RoundStatusWaitingFinal = "waiting_final"
	RoundStatusClosed       = "closed"
)

// Round is a group_vote_rounds row.
type Round struct {
	ID      string
	GroupID string

	// Date is the round's calendar day, "YYYY-MM-DD". At most one round
	// exists per group per date.
	Date string

	Status string

	// SubmissionStartAt/SubmissionEndAt bound the submission window
	// (Unix timestamps).
	SubmissionStartAt int64
	SubmissionEndAt   int64

	// WinnerRoundTrackID references the winning group_round_tracks row
	// once finalized. Empty until then.
	WinnerRoundTrackID string

	// WinnerFinalizedAt is the Unix timestamp of finalization, 0 until
	// then. A winner reference without this set is not presented as the
	// song of the day.
	WinnerFinalizedAt int64
}

// RoundTrack is a group_round_tracks row joined with its track metadata.
type RoundTrack struct {
	ID      string // submission record id, what votes point at
	RoundID string
	TrackID string
	Status  string
	AddedBy string // user id of the submitter
	AddedAt int64

	// Joined track metadata. Missing joins leave these empty rather than
	// dropping the row: a vote-bearing candidate must never disappear
	// because of a metadata miss.
	Title      string
	ArtistName string
	AlbumName  string
	ArtworkURL string
}

// Vote is a group_votes row.
type Vote struct {
	RoundID      string
	RoundTrackID string
	VoterID      string
	CreatedAt    int64
}

// Winner is a group_recent_winners row: a finalized past winner.
type Winner struct {
	ID           string
	GroupID      string
	RoundID      string
	RoundTrackID string
	TrackID      string
	Title        string
	ArtistName   string
	AlbumName    string
	ArtworkURL   string
	VoteCount    int
	FinalizedAt  int64
}

// GroupSong is the view model for one candidate in today's round.
type GroupSong struct {
	ID           string `json:"id"` // group_round_track id
	TrackID      string `json:"trackId"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	CoverURL     string `json:"coverUrl"`
	AddedBy      string `json:"addedBy"` // "You" or "멤버"
	Votes        int    `json:"votes"`
	HasUserVoted bool   `json:"hasUserVoted"`
	AddedAt      string `json:"addedAt"` // localized time of day, or "방금 전"
}

// HistoryEntry is the view model for a finalized past winner.
type HistoryEntry struct {
	ID       string `json:"id"` // group_round_track id of the winner
	TrackID  string `json:"trackId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl"`
	Votes    int    `json:"votes"`
	Date     string `json:"date"` // localized short date
}

// SongOfTheDay is the resolved winner shown on the group page: either the
// live round's finalized winner or the most recent history entry.
type SongOfTheDay struct {
	ID       string `json:"id"`
	TrackID  string `json:"trackId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl"`
	Votes    int    `json:"votes"`
	Date     string `json:"date,omitempty"`
}

// GroupDetail is the resolved view model for one group: summary fields plus
// the current round, its candidates, the song of the day and recent history.
type GroupDetail struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	MemberCount    int            `json:"memberCount"`
	VotingEnds     string         `json:"votingEnds,omitempty"` // localized time of day
	HasVotingEnded bool           `json:"hasVotingEnded"`
	IsVotingOpen   bool           `json:"isVotingOpen"`
	RoundID        string         `json:"roundId,omitempty"`
	Status         string         `json:"status,omitempty"`
	TodaySongs     []GroupSong    `json:"todaySongs"`
	SongOfTheDay   *SongOfTheDay  `json:"songOfTheDay,omitempty"`
	History        []HistoryEntry `json:"history"`
}

// Clone returns a deep copy so no shared mutable references leak to callers.
func (d *GroupDetail) Clone() *GroupDetail {
	if d == nil {
		return nil
	}
	out := *d
	out.TodaySongs = make([]GroupSong, len(d.TodaySongs))
	copy(out.TodaySongs, d.TodaySongs)
	out.History = make([]HistoryEntry, len(d.History))
	copy(out.History, d.History)
	if d.SongOfTheDay != nil {
		sotd := *d.SongOfTheDay
		out.SongOfTheDay = &sotd
	}
	return &out
}
