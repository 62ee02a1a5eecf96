// Package models defines the core domain models for the MUSIOT server.
//
// # Row models vs view models
//
// Two kinds of types live here:
//   - Row models mirror storage rows one-to-one (Group, Membership, Round,
//     RoundTrack, Vote, Winner, User). They carry raw ids and Unix
//     timestamps.
//   - View models are derived and never stored (GroupSummary, GroupDetail,
//     GroupSong, HistoryEntry, SongOfTheDay). The resolver rebuilds them
//     wholesale on every refresh; clients only ever see these.
//
// # Design Principles
//
//  1. **Candidate id != track id**: a GroupSong's ID is the per-round
//     submission record, TrackID is the underlying catalog track. Votes
//     reference the submission record, not the track.
//  2. **Avoid circular references**: relationships use ID strings instead
//     of pointers.
//  3. **Wholesale replacement**: view models are replaced as a unit when a
//     resolution completes, never merged field-by-field with older state.
package models
