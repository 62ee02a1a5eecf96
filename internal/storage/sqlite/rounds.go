package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/storage"
	"github.com/yongmin01/musiot-server/internal/tally"
)

// EnsureTodayRound idempotently creates today's round for the group.
// Safe to call on every refresh: the (group_id, round_date) uniqueness
// makes the insert a no-op when the round already exists.
func (s *SQLiteStore) EnsureTodayRound(ctx context.Context, groupID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return storage.ErrGroupNotFound
	}

	now := s.now()
	start, end := submissionWindow(now)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_vote_rounds (id, group_id, round_date, status, submission_start_at, submission_end_at)
		VALUES (?, ?, ?, 'submission', ?, ?)
		ON CONFLICT (group_id, round_date) DO NOTHING`,
		uuid.New().String(), groupID, now.Format("2006-01-02"), start.Unix(), end.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure round: %w", err)
	}
	return nil
}

// LatestRound returns the group's most recent round by date descending,
// or (nil, nil) when the group has no rounds yet.
func (s *SQLiteStore) LatestRound(ctx context.Context, groupID string) (*models.Round, error) {
	round := &models.Round{}
	var winnerID sql.NullString
	var finalizedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, round_date, status, submission_start_at, submission_end_at,
		       winner_group_track_id, winner_finalized_at
		FROM group_vote_rounds
		WHERE group_id = ?
		ORDER BY round_date DESC
		LIMIT 1`,
		groupID,
	).Scan(
		&round.ID, &round.GroupID, &round.Date, &round.Status,
		&round.SubmissionStartAt, &round.SubmissionEndAt,
		&winnerID, &finalizedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}

	round.WinnerRoundTrackID = winnerID.String
	round.WinnerFinalizedAt = finalizedAt.Int64
	return round, nil
}

// ListRoundTracks returns the round's candidates ordered by submission
// time ascending, LEFT JOINed with track metadata. A candidate whose track
// row is missing still appears with empty metadata.
func (s *SQLiteStore) ListRoundTracks(ctx context.Context, roundID string) ([]models.RoundTrack, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rt.id, rt.round_id, rt.track_id, rt.status, rt.added_by, rt.added_at,
		       t.title, t.artist_name, t.album_name, t.artwork_url
		FROM group_round_tracks rt
		LEFT JOIN tracks t ON t.id = rt.track_id
		WHERE rt.round_id = ?
		ORDER BY rt.added_at ASC`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list round tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.RoundTrack
	for rows.Next() {
		var rt models.RoundTrack
		var title, artist, album, artwork sql.NullString
		if err := rows.Scan(
			&rt.ID, &rt.RoundID, &rt.TrackID, &rt.Status, &rt.AddedBy, &rt.AddedAt,
			&title, &artist, &album, &artwork,
		); err != nil {
			return nil, fmt.Errorf("failed to scan round track: %w", err)
		}
		rt.Title = title.String
		rt.ArtistName = artist.String
		rt.AlbumName = album.String
		rt.ArtworkURL = artwork.String
		tracks = append(tracks, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round tracks: %w", err)
	}
	return tracks, nil
}

// ListRoundVotes returns all vote rows for the round.
func (s *SQLiteStore) ListRoundVotes(ctx context.Context, roundID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, group_round_track_id, voter_id, created_at
		FROM group_votes
		WHERE round_id = ?`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.RoundID, &v.RoundTrackID, &v.VoterID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}

// ListRecentWinners returns up to limit finalized winners, newest first.
func (s *SQLiteStore) ListRecentWinners(ctx context.Context, groupID string, limit int) ([]models.Winner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, round_id, group_round_track_id, track_id,
		       title, artist_name, album_name, artwork_url, vote_count, finalized_at
		FROM group_recent_winners
		WHERE group_id = ?
		ORDER BY finalized_at DESC
		LIMIT ?`,
		groupID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	defer rows.Close()

	var winners []models.Winner
	for rows.Next() {
		var w models.Winner
		if err := rows.Scan(
			&w.ID, &w.GroupID, &w.RoundID, &w.RoundTrackID, &w.TrackID,
			&w.Title, &w.ArtistName, &w.AlbumName, &w.ArtworkURL, &w.VoteCount, &w.FinalizedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating winners: %w", err)
	}
	return winners, nil
}

// AddTrackToGroup submits a candidate into the group's current round,
// enforcing membership and the submission window.
func (s *SQLiteStore) AddTrackToGroup(ctx context.Context, userID string, in models.AddTrackInput) error {
	if userID == "" {
		return storage.ErrNotAuthenticated
	}

	member, err := s.isMember(ctx, in.GroupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return storage.ErrNotGroupMember
	}

	if err := s.EnsureTodayRound(ctx, in.GroupID); err != nil {
		return err
	}
	round, err := s.LatestRound(ctx, in.GroupID)
	if err != nil {
		return err
	}

	now := s.now().Unix()
	switch {
	case round.Status != models.RoundStatusSubmission:
		return storage.ErrSubmissionClosed
	case now < round.SubmissionStartAt:
		return storage.ErrSubmissionNotOpenYet
	case now >= round.SubmissionEndAt:
		return storage.ErrSubmissionClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Track metadata is denormalized on every submission so the catalog
	// row stays fresh even if the provider's metadata changed.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracks (id, title, artist_name, album_name, artwork_url, duration_ms, release_year)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			artist_name = excluded.artist_name,
			album_name = excluded.album_name,
			artwork_url = excluded.artwork_url`,
		in.SpotifyTrackID, in.Title, in.ArtistName, in.AlbumName, in.ArtworkURL,
		in.DurationMS, in.ReleaseYear,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert track: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_round_tracks (id, round_id, track_id, status, added_by, added_at)
		VALUES (?, ?, ?, 'active', ?, ?)`,
		uuid.New().String(), round.ID, in.SpotifyTrackID, userID, now,
	)
	if isUniqueViolation(err, "group_round_tracks.round_id") {
		return storage.ErrTrackAlreadySubmit
	}
	if err != nil {
		return fmt.Errorf("failed to insert round track: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// VoteForCandidate records the user's vote for a submission record. One
// vote per voter per round is enforced by the primary key; voting again
// moves the vote to the new candidate.
func (s *SQLiteStore) VoteForCandidate(ctx context.Context, userID, roundTrackID string) error {
	if userID == "" {
		return storage.ErrNotAuthenticated
	}

	var roundID, groupID, status string
	var startAt, endAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.group_id, r.status, r.submission_start_at, r.submission_end_at
		FROM group_round_tracks rt
		JOIN group_vote_rounds r ON r.id = rt.round_id
		WHERE rt.id = ?`,
		roundTrackID,
	).Scan(&roundID, &groupID, &status, &startAt, &endAt)
	if err == sql.ErrNoRows {
		return storage.ErrRoundTrackNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up round track: %w", err)
	}

	member, err := s.isMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return storage.ErrNotGroupMember
	}

	now := s.now().Unix()
	if status != models.RoundStatusSubmission || now < startAt || now >= endAt {
		return storage.ErrRoundNotOpen
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_votes (round_id, group_round_track_id, voter_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (round_id, voter_id) DO UPDATE SET
			group_round_track_id = excluded.group_round_track_id,
			created_at = excluded.created_at`,
		roundID, roundTrackID, userID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}

// FinalizeDueRounds closes every submission round whose window has passed,
// picking the winner (most votes, earliest submission on ties) and
// recording a history row. Rounds without candidates close winnerless.
func (s *SQLiteStore) FinalizeDueRounds(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id FROM group_vote_rounds
		WHERE status = 'submission' AND submission_end_at <= ?`,
		now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to list due rounds: %w", err)
	}

	type dueRound struct{ id, groupID string }
	var due []dueRound
	for rows.Next() {
		var r dueRound
		if err := rows.Scan(&r.id, &r.groupID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan due round: %w", err)
		}
		due = append(due, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating due rounds: %w", err)
	}

	finalized := 0
	for _, r := range due {
		if err := s.finalizeRound(ctx, r.id, r.groupID, now); err != nil {
			return finalized, err
		}
		finalized++
	}
	return finalized, nil
}

func (s *SQLiteStore) finalizeRound(ctx context.Context, roundID, groupID string, now time.Time) error {
	tracks, err := s.ListRoundTracks(ctx, roundID)
	if err != nil {
		return err
	}
	votes, err := s.ListRoundVotes(ctx, roundID)
	if err != nil {
		return err
	}

	counts := tally.Count(votes)
	candidates := make([]tally.Candidate, len(tracks))
	for i, rt := range tracks {
		candidates[i] = tally.Candidate{ID: rt.ID, Votes: counts[rt.ID], AddedAt: rt.AddedAt}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	winner, ok := tally.PickWinner(candidates)
	if !ok {
		_, err = tx.ExecContext(ctx,
			"UPDATE group_vote_rounds SET status = 'closed' WHERE id = ?", roundID,
		)
		if err != nil {
			return fmt.Errorf("failed to close empty round: %w", err)
		}
		return tx.Commit()
	}

	var winnerTrack models.RoundTrack
	for _, rt := range tracks {
		if rt.ID == winner.ID {
			winnerTrack = rt
			break
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE group_vote_rounds
		SET status = 'closed', winner_group_track_id = ?, winner_finalized_at = ?
		WHERE id = ?`,
		winner.ID, now.Unix(), roundID,
	)
	if err != nil {
		return fmt.Errorf("failed to close round: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_recent_winners (id, group_id, round_id, group_round_track_id, track_id,
			title, artist_name, album_name, artwork_url, vote_count, finalized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), groupID, roundID, winner.ID, winnerTrack.TrackID,
		winnerTrack.Title, winnerTrack.ArtistName, winnerTrack.AlbumName, winnerTrack.ArtworkURL,
		winner.Votes, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record winner: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE groups SET updated_at = ? WHERE id = ?", now.Unix(), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch group: %w", err)
	}

	return tx.Commit()
}
