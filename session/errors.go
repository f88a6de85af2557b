/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"errors"

	"github.com/Seednode/gamenight/votes"
)

// Every error returned by this package wraps one of these. None of them leave
// a room in a partially updated state, except ErrInternal.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrLimitExceeded     = votes.ErrLimitExceeded
	ErrStalePhase        = errors.New("action does not match current phase")
	ErrNotPermitted      = errors.New("action not permitted")
	ErrUnknownGame       = errors.New("unknown game")
	ErrUnknownAction     = errors.New("unknown action")
	ErrRoomClosed        = errors.New("room closed")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal error")
)
