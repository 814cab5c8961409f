package battle

import (
	"errors"
	"fmt"
)

// Kind classifies a battle error for reporting
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindTerminalState Kind = "terminal_state"
	KindInternal      Kind = "internal"
)

// Error is a business-rule failure with a stable code clients can switch on.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so that Errorf variants still match their sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidMessage   = &Error{KindValidation, "invalid_message", "malformed message"}
	ErrInvalidSelection = &Error{KindValidation, "invalid_selection", "exactly 4 distinct cards must be selected"}
	ErrInvalidStat      = &Error{KindValidation, "invalid_stat", "unknown stat"}
	ErrNotYourTurn      = &Error{KindAuthorization, "not_your_turn", "it is not your turn"}
	ErrCardNotOwned     = &Error{KindAuthorization, "card_not_owned", "you do not own this card"}
	ErrRoomFull         = &Error{KindAuthorization, "room_full", "battle room is full"}
	ErrNotParticipant   = &Error{KindAuthorization, "not_participant", "you are not part of this battle"}
	ErrDeckNotSelected  = &Error{KindValidation, "deck_not_selected", "select your cards first"}
	ErrWrongPhase       = &Error{KindValidation, "wrong_phase", "action not allowed in the current phase"}
	ErrRoomNotFound     = &Error{KindNotFound, "room_not_found", "battle room not found"}
	ErrBattleCompleted  = &Error{KindTerminalState, "battle_completed", "battle is already completed"}
	ErrDeckExhausted    = &Error{KindInternal, "deck_exhausted", "deck has no cards left"}
	ErrConflict         = &Error{KindConflict, "conflict", "battle was modified concurrently"}
	ErrRateLimited      = &Error{KindValidation, "rate_limited", "too many messages"}
	ErrInternal         = &Error{KindInternal, "internal_error", "internal error"}
)

// Errorf returns a copy of base with a more specific message
func Errorf(base *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err's chain
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
