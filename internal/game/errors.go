package game

import "errors"

// Sentinel errors for intent validation. The router maps these onto wire
// error codes; a rejected intent never mutates hand state.
var (
	ErrTooFewPlayers  = errors.New("game: need at least 2 players")
	ErrUnknownSeat    = errors.New("game: unknown seat")
	ErrNotPlayersTurn = errors.New("game: not this seat's turn")
	ErrIllegalAction  = errors.New("game: action not legal for this seat")
	ErrInvalidAmount  = errors.New("game: invalid amount")
	ErrAmountBelowMin = errors.New("game: amount below minimum raise")
	ErrHandComplete   = errors.New("game: hand already complete")
)

// ErrInvariant marks a fatal internal inconsistency. A hand that surfaces it
// must be aborted and every seat's contributions refunded.
var ErrInvariant = errors.New("game: invariant violation")
