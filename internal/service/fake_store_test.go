package service

import (
	"context"
	"sync"
	"time"

	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/storage"
)

// fakeStore is an in-memory storage.Store with per-method error injection,
// used to exercise the resolver and coordinator without a database.
type fakeStore struct {
	mu sync.Mutex

	groups       map[string]*models.Group
	memberships  map[string][]models.Membership
	memberCounts map[string]int
	latestRounds map[string]*models.Round
	roundTracks  map[string][]models.RoundTrack
	votes        map[string][]models.Vote
	winners      map[string][]models.Winner

	// failOn maps a method name to the error that method should return.
	failOn map[string]error

	// recorded mutation inputs
	addedTracks []models.AddTrackInput
	votedFor    []string
	calls       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:       make(map[string]*models.Group),
		memberships:  make(map[string][]models.Membership),
		memberCounts: make(map[string]int),
		latestRounds: make(map[string]*models.Round),
		roundTracks:  make(map[string][]models.RoundTrack),
		votes:        make(map[string][]models.Vote),
		winners:      make(map[string][]models.Winner),
		failOn:       make(map[string]error),
	}
}

func (f *fakeStore) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return f.failOn[method]
}

func (f *fakeStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeStore) UpsertUser(ctx context.Context, user *models.User) error {
	return f.record("UpsertUser")
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return nil, f.record("GetUser")
}

func (f *fakeStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if err := f.record("GetGroup"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[groupID], nil
}

func (f *fakeStore) ListMemberships(ctx context.Context, userID string) ([]models.Membership, error) {
	if err := f.record("ListMemberships"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memberships[userID], nil
}

func (f *fakeStore) LatestRound(ctx context.Context, groupID string) (*models.Round, error) {
	if err := f.record("LatestRound"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latestRounds[groupID], nil
}

func (f *fakeStore) ListRoundTracks(ctx context.Context, roundID string) ([]models.RoundTrack, error) {
	if err := f.record("ListRoundTracks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roundTracks[roundID], nil
}

func (f *fakeStore) ListRoundVotes(ctx context.Context, roundID string) ([]models.Vote, error) {
	if err := f.record("ListRoundVotes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.votes[roundID], nil
}

func (f *fakeStore) ListRecentWinners(ctx context.Context, groupID string, limit int) ([]models.Winner, error) {
	if err := f.record("ListRecentWinners"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	winners := f.winners[groupID]
	if len(winners) > limit {
		winners = winners[:limit]
	}
	return winners, nil
}

func (f *fakeStore) EnsureTodayRound(ctx context.Context, groupID string) error {
	return f.record("EnsureTodayRound")
}

func (f *fakeStore) GetMemberCount(ctx context.Context, groupID string) (int, error) {
	if err := f.record("GetMemberCount"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if count, ok := f.memberCounts[groupID]; ok {
		return count, nil
	}
	return -1, nil
}

func (f *fakeStore) CreateGroup(ctx context.Context, userID string, in models.CreateGroupInput) (*models.Group, error) {
	if err := f.record("CreateGroup"); err != nil {
		return nil, err
	}
	group := &models.Group{
		ID:               "g-new",
		Name:             in.Name,
		Description:      in.Description,
		OwnerID:          userID,
		JoinCode:         "NEWCDE",
		RequiresPassword: in.RequiresPassword,
		CreatedAt:        time.Now().Unix(),
	}
	f.mu.Lock()
	f.groups[group.ID] = group
	f.memberCounts[group.ID] = 1
	f.mu.Unlock()
	return group, nil
}

func (f *fakeStore) JoinGroup(ctx context.Context, userID, joinCode, password string) (*models.Group, error) {
	if err := f.record("JoinGroup"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.JoinCode == joinCode {
			return g, nil
		}
	}
	return nil, storage.ErrGroupNotFound
}

func (f *fakeStore) AddTrackToGroup(ctx context.Context, userID string, in models.AddTrackInput) error {
	if err := f.record("AddTrackToGroup"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedTracks = append(f.addedTracks, in)
	return nil
}

func (f *fakeStore) VoteForCandidate(ctx context.Context, userID, roundTrackID string) error {
	if err := f.record("VoteForCandidate"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votedFor = append(f.votedFor, roundTrackID)
	return nil
}

func (f *fakeStore) FinalizeDueRounds(ctx context.Context, now time.Time) (int, error) {
	return 0, f.record("FinalizeDueRounds")
}

func (f *fakeStore) Close() error { return nil }
