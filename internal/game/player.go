package game

import (
	"github.com/lox/cardroom/internal/deck"
)

// PlayerStatus tracks a seat through the hand lifecycle
type PlayerStatus int

const (
	StatusWaiting PlayerStatus = iota
	StatusActive
	StatusFolded
	StatusAllIn
	StatusOut
)

// String returns the wire representation of the status
func (s PlayerStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusActive:
		return "active"
	case StatusFolded:
		return "folded"
	case StatusAllIn:
		return "allIn"
	case StatusOut:
		return "out"
	default:
		return "unknown"
	}
}

// Player represents a seat participating in a hand
type Player struct {
	ID        string
	Name      string
	Chips     int
	HoleCards []deck.Card
	Status    PlayerStatus
	Bet       int  // committed in the current street
	TotalBet  int  // committed across the whole hand, the side-pot basis
	Acted     bool // has acted since the last full raise this street

	IsDealer     bool
	IsSmallBlind bool
	IsBigBlind   bool
}

// CanAct returns true while the player still makes decisions this hand
func (p *Player) CanAct() bool {
	return p.Status == StatusActive
}

// InHand returns true while the player holds live cards
func (p *Player) InHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}
