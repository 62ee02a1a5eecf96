package service

import (
	"errors"
	"strings"
)

// Service-level sentinels. NotAuthenticated short-circuits before any store
// call; GroupNotFound is what an unknown (or inaccessible) group id resolves
// to instead of leaking a raw storage error.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrGroupNotFound    = errors.New("group not found")
)

// User-facing messages. These are the stable, localized texts the client
// renders for known backend error codes; anything unmapped passes through
// with the raw backend message for diagnosability.
const (
	MsgLoginRequired     = "로그인이 필요합니다."
	MsgDuplicateJoinCode = "이미 사용 중인 그룹 코드입니다."
	MsgInvalidJoinCode   = "사용할 수 없는 그룹 코드입니다."
	MsgAlreadyMember     = "이미 가입한 그룹입니다."
	MsgGroupNotFound     = "존재하지 않는 그룹 코드입니다."
	MsgInvalidPassword   = "그룹 비밀번호가 일치하지 않습니다."
	MsgTrackNotFound     = "선택한 곡 정보를 찾을 수 없습니다."
	MsgTrackAlreadyAdded = "이미 후보 목록에 있는 곡입니다."
	MsgSubmissionClosed  = "오늘은 곡 추가 시간이 마감되었습니다."
	MsgSubmissionNotOpen = "아직 곡 제출 시간이 열리지 않았습니다."
	MsgAddNotMember      = "그룹 멤버만 곡을 추가할 수 있습니다."
	MsgVotingNotOpen     = "지금은 투표 시간이 아닙니다."
	MsgVoteNotMember     = "그룹 멤버만 투표할 수 있습니다."
	MsgVoteTrackNotFound = "투표할 곡 정보를 찾을 수 없습니다."
)

// AppError is a user-presentable error: Message is what the client shows,
// Err is the underlying cause for logs.
type AppError struct {
	Message string
	Err     error
}

func (e *AppError) Error() string { return e.Message }
func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError wraps a client-side validation failure that never
// reached the store.
func NewValidationError(message string) *AppError {
	return &AppError{Message: message}
}

// Fixed substring-to-message mappings per mutation. Keyed on the stable
// error codes the store emits.
var (
	createGroupMessages = map[string]string{
		"DUPLICATE_JOIN_CODE": MsgDuplicateJoinCode,
		"NOT_AUTHENTICATED":   MsgLoginRequired,
	}
	joinGroupMessages = map[string]string{
		"GROUP_NOT_FOUND":   MsgGroupNotFound,
		"INVALID_PASSWORD":  MsgInvalidPassword,
		"NOT_AUTHENTICATED": MsgLoginRequired,
	}
	addTrackMessages = map[string]string{
		"TRACK_ALREADY_SUBMITTED": MsgTrackAlreadyAdded,
		"SUBMISSION_CLOSED":       MsgSubmissionClosed,
		"SUBMISSION_NOT_OPEN_YET": MsgSubmissionNotOpen,
		"NOT_GROUP_MEMBER":        MsgAddNotMember,
		"NOT_AUTHENTICATED":       MsgLoginRequired,
	}
	voteMessages = map[string]string{
		"ROUND_NOT_OPEN_FOR_VOTING": MsgVotingNotOpen,
		"NOT_GROUP_MEMBER":          MsgVoteNotMember,
		"ROUND_TRACK_NOT_FOUND":     MsgVoteTrackNotFound,
		"NOT_AUTHENTICATED":         MsgLoginRequired,
	}
)

// mapStoreError translates a known backend error code into its localized
// message by substring match. Unrecognized errors are returned as-is so the
// raw backend message stays visible.
func mapStoreError(err error, messages map[string]string) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	for code, message := range messages {
		if strings.Contains(text, code) {
			return &AppError{Message: message, Err: err}
		}
	}
	return err
}
