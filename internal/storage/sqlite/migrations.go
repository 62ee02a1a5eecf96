package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    spotify_id TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_id TEXT NOT NULL,
    join_code TEXT NOT NULL UNIQUE,
    requires_password INTEGER NOT NULL DEFAULT 0,
    password_hash TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tracks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    artist_name TEXT NOT NULL,
    album_name TEXT NOT NULL DEFAULT '',
    artwork_url TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    release_year INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS group_vote_rounds (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round_date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'submission'
        CHECK (status IN ('submission', 'waiting_final', 'closed')),
    submission_start_at INTEGER NOT NULL,
    submission_end_at INTEGER NOT NULL,
    winner_group_track_id TEXT,
    winner_finalized_at INTEGER,
    UNIQUE (group_id, round_date),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_round_tracks (
    id TEXT PRIMARY KEY,
    round_id TEXT NOT NULL,
    track_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    added_by TEXT NOT NULL,
    added_at INTEGER NOT NULL,
    UNIQUE (round_id, track_id),
    FOREIGN KEY (round_id) REFERENCES group_vote_rounds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_votes (
    round_id TEXT NOT NULL,
    group_round_track_id TEXT NOT NULL,
    voter_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (round_id, voter_id),
    FOREIGN KEY (round_id) REFERENCES group_vote_rounds(id) ON DELETE CASCADE,
    FOREIGN KEY (group_round_track_id) REFERENCES group_round_tracks(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_recent_winners (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round_id TEXT NOT NULL,
    group_round_track_id TEXT NOT NULL,
    track_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    artist_name TEXT NOT NULL DEFAULT '',
    album_name TEXT NOT NULL DEFAULT '',
    artwork_url TEXT NOT NULL DEFAULT '',
    vote_count INTEGER NOT NULL DEFAULT 0,
    finalized_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);
CREATE INDEX IF NOT EXISTS idx_rounds_group_date ON group_vote_rounds(group_id, round_date);
CREATE INDEX IF NOT EXISTS idx_round_tracks_round_id ON group_round_tracks(round_id);
CREATE INDEX IF NOT EXISTS idx_votes_round_id ON group_votes(round_id);
CREATE INDEX IF NOT EXISTS idx_winners_group_id ON group_recent_winners(group_id, finalized_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
