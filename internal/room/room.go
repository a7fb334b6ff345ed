// Package room runs poker rooms: seating, hand lifecycle, turn timers and
// event fan-out. A Registry owns the process-wide room table; a Controller
// owns one room and serializes everything that happens in it.
package room

import (
	"time"

	"github.com/lox/cardroom/internal/protocol"
)

// Config fixes a room's game parameters at creation time.
type Config struct {
	StartingChips  int
	SmallBlind     int
	BigBlind       int
	MaxSeats       int
	TurnTimeout    time.Duration
	InterHandDelay time.Duration
}

// Sink delivers events to one seat's connection. Send must not block: a
// recipient that cannot keep up loses the event, not the room. Sinks are
// compared by identity when a disconnect is handled, so each connection
// must supply its own.
type Sink interface {
	Send(event protocol.MessageType, payload any)
}

// IDSource allocates identifiers unique across the process.
type IDSource interface {
	NewID() string
}

// Seat is one player's durable identity in a room. It outlives the
// connection that created it: a seat whose connection dropped mid-hand
// stays, flagged away, until the hand boundary sweeps it or the player
// rebinds.
type Seat struct {
	ID    string
	Name  string
	Chips int
	Away  bool
	Out   bool

	sink Sink
}

// IntentError is a rejected intent. The code goes back to the sender on
// the wire and nothing about the room changed.
type IntentError struct {
	Code    string
	Message string
}

func (e *IntentError) Error() string {
	return e.Message
}

func errRoomClosed() error {
	return &IntentError{Code: protocol.CodeUnknownRoom, Message: "room no longer exists"}
}
