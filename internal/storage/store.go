// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/yongmin01/musiot-server/internal/models"
)

// Business error codes returned by the mutating procedures. The error text
// IS the code: the service layer maps these to user-facing messages by
// substring, so the codes must stay stable.
var (
	ErrNotAuthenticated     = errors.New("NOT_AUTHENTICATED")
	ErrNotGroupMember       = errors.New("NOT_GROUP_MEMBER")
	ErrGroupNotFound        = errors.New("GROUP_NOT_FOUND")
	ErrInvalidPassword      = errors.New("INVALID_PASSWORD")
	ErrDuplicateJoinCode    = errors.New("DUPLICATE_JOIN_CODE")
	ErrTrackAlreadySubmit   = errors.New("TRACK_ALREADY_SUBMITTED")
	ErrSubmissionClosed     = errors.New("SUBMISSION_CLOSED")
	ErrSubmissionNotOpenYet = errors.New("SUBMISSION_NOT_OPEN_YET")
	ErrRoundNotOpen         = errors.New("ROUND_NOT_OPEN_FOR_VOTING")
	ErrRoundTrackNotFound   = errors.New("ROUND_TRACK_NOT_FOUND")
)

// Store defines the remote-store surface the resolver and mutation
// coordinator run against. This abstraction allows swapping storage
// backends (SQLite, PostgreSQL, ...) without changing the service layer.
type Store interface {
	// UpsertUser creates or refreshes a user row keyed by provider id.
	// The user.ID field is populated (existing id on refresh).
	UpsertUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by id. Returns (nil, nil) when not found.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetGroup retrieves a group row by id. Returns (nil, nil) when the
	// group does not exist: absence is a valid state, not an error.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListMemberships returns the user's membership rows joined with
	// their group rows. A membership whose group row is missing has a
	// nil Group and must be skipped by the caller.
	ListMemberships(ctx context.Context, userID string) ([]models.Membership, error)

	// LatestRound returns the most recent round for the group by date
	// descending, or (nil, nil) when the group has no rounds.
	LatestRound(ctx context.Context, groupID string) (*models.Round, error)

	// ListRoundTracks returns the round's candidates ordered by
	// submission time ascending, each LEFT JOINed with track metadata.
	ListRoundTracks(ctx context.Context, roundID string) ([]models.RoundTrack, error)

	// ListRoundVotes returns all vote rows for the round.
	ListRoundVotes(ctx context.Context, roundID string) ([]models.Vote, error)

	// ListRecentWinners returns up to limit finalized winners for the
	// group, most recent first.
	ListRecentWinners(ctx context.Context, groupID string, limit int) ([]models.Winner, error)

	// EnsureTodayRound idempotently creates today's round for the group
	// if none exists yet.
	EnsureTodayRound(ctx context.Context, groupID string) error

	// GetMemberCount returns the group's member count, or -1 when the
	// group is unknown (callers fall back to their previous value).
	GetMemberCount(ctx context.Context, groupID string) (int, error)

	// CreateGroup creates a group owned by userID with a fresh join
	// code, records the owner membership and returns the new row.
	// Fails with ErrDuplicateJoinCode if a unique code cannot be issued.
	CreateGroup(ctx context.Context, userID string, in models.CreateGroupInput) (*models.Group, error)

	// JoinGroup adds userID to the group matching joinCode
	// (case-insensitive). Fails with ErrGroupNotFound or
	// ErrInvalidPassword. Joining a group one already belongs to is a
	// no-op returning the group row.
	JoinGroup(ctx context.Context, userID, joinCode, password string) (*models.Group, error)

	// AddTrackToGroup submits a candidate into the group's current
	// round. Fails with ErrNotAuthenticated, ErrNotGroupMember,
	// ErrSubmissionNotOpenYet, ErrSubmissionClosed or
	// ErrTrackAlreadySubmit.
	AddTrackToGroup(ctx context.Context, userID string, in models.AddTrackInput) error

	// VoteForCandidate records userID's vote for the given submission
	// record. A voter holds at most one vote per round; voting again
	// moves the vote. Fails with ErrNotAuthenticated,
	// ErrRoundTrackNotFound, ErrNotGroupMember or ErrRoundNotOpen.
	VoteForCandidate(ctx context.Context, userID, roundTrackID string) error

	// FinalizeDueRounds closes every submission round whose window
	// passed, records winners and history rows. Returns the number of
	// rounds finalized.
	FinalizeDueRounds(ctx context.Context, now time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
