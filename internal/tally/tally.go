// Package tally holds the pure vote-counting logic shared by the resolver
// and the round finalizer.
package tally

import (
	"sort"

	"github.com/yongmin01/musiot-server/internal/models"
)

// Count builds the per-candidate vote tally from raw vote rows. The count
// is a direct tally: a duplicate row for the same voter still contributes,
// so data inconsistencies surface instead of being silently repaired
// (at-most-one-vote is the storage layer's invariant to enforce).
func Count(votes []models.Vote) map[string]int {
	counts := make(map[string]int, len(votes))
	for _, v := range votes {
		counts[v.RoundTrackID]++
	}
	return counts
}

// VotedBy returns the set of candidate ids the given voter has voted for.
// Unlike Count, this IS deduplicated: several rows by the same voter for
// the same candidate still mean "has voted" exactly once.
func VotedBy(votes []models.Vote, voterID string) map[string]bool {
	if voterID == "" {
		return nil
	}
	voted := make(map[string]bool)
	for _, v := range votes {
		if v.VoterID == voterID {
			voted[v.RoundTrackID] = true
		}
	}
	return voted
}

// SortByVotes orders songs by descending vote count for display. The sort
// is stable so candidates with equal counts keep submission order.
func SortByVotes(songs []models.GroupSong) {
	sort.SliceStable(songs, func(i, j int) bool {
		return songs[i].Votes > songs[j].Votes
	})
}

// Candidate is the minimal view of a submission needed to pick a winner.
type Candidate struct {
	ID      string
	Votes   int
	AddedAt int64 // tie-break: earliest submission wins
}

// PickWinner selects the round winner: most votes, earliest submission on
// ties. Returns ok=false for an empty candidate list.
func PickWinner(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Votes > best.Votes || (c.Votes == best.Votes && c.AddedAt < best.AddedAt) {
			best = c
		}
	}
	return best, true
}
