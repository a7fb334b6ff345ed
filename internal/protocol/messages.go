package protocol

import (
	"encoding/json"

	"github.com/lox/cardroom/internal/deck"
)

// MessageType tags every envelope on the wire
type MessageType string

const (
	// Client -> Server
	TypeCreateRoom   MessageType = "create-room"
	TypeJoinRoom     MessageType = "join-room"
	TypeLeaveRoom    MessageType = "leave-room"
	TypeStartGame    MessageType = "start-game"
	TypePlayerAction MessageType = "player-action"
	TypeGetRooms     MessageType = "get-rooms"

	// Server -> Client
	TypeRoomCreated    MessageType = "room-created"
	TypeRoomJoined     MessageType = "room-joined"
	TypePlayerJoined   MessageType = "player-joined"
	TypePlayerLeft     MessageType = "player-left"
	TypeRoomsList      MessageType = "rooms-list"
	TypeGameStarted    MessageType = "game-started"
	TypeGameUpdated    MessageType = "game-updated"
	TypeActionRequired MessageType = "action-required"
	TypeHandComplete   MessageType = "hand-complete"
	TypeGameOver       MessageType = "game-over"
	TypeError          MessageType = "error"
)

// Envelope frames every message: a type tag, the payload object, and the
// server's send time in epoch milliseconds. Intents leave Timestamp zero.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Error codes carried in Error payloads
const (
	CodeBadRequest       = "bad_request"
	CodeUnknownRoom      = "unknown_room"
	CodeUnknownSeat      = "unknown_seat"
	CodeRoomFull         = "room_full"
	CodeNotYourTurn      = "not_your_turn"
	CodeIllegalAction    = "illegal_action"
	CodeInvalidAmount    = "invalid_amount"
	CodeAmountBelowMin   = "amount_below_min"
	CodeHandInProgress   = "hand_in_progress"
	CodeNotEnoughPlayers = "not_enough_players"
	CodeNameTaken        = "name_taken"
	CodeInternal         = "internal"
)

// Client -> Server intents

// CreateRoom opens a new room and seats the creator in it
type CreateRoom struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
}

// JoinRoom seats a player in an existing room. SeatID, when present, asks
// to rebind this connection to an away seat from a previous connection;
// the rebind is best effort.
type JoinRoom struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	SeatID     string `json:"seatId,omitempty"`
}

// LeaveRoom gives up a seat
type LeaveRoom struct {
	RoomID string `json:"roomId"`
	SeatID string `json:"seatId"`
}

// StartGame begins dealing hands in a room
type StartGame struct {
	RoomID string `json:"roomId"`
}

// PlayerAction submits a betting decision for the seat to act
type PlayerAction struct {
	RoomID string `json:"roomId"`
	SeatID string `json:"seatId"`
	Action Action `json:"action"`
}

// Action names the decision. For bet and raise, Amount is the total the
// seat commits to the current round after the action, not the increment;
// fold, check, call and all-in omit it.
type Action struct {
	Type   string `json:"type"`
	Amount int    `json:"amount,omitempty"`
}

// GetRooms asks for the room browser listing
type GetRooms struct{}

// Server -> Client events

// RoomCreated confirms create-room to the creator
type RoomCreated struct {
	Room RoomInfo `json:"room"`
}

// RoomJoined confirms join-room and carries the seat the player received
type RoomJoined struct {
	Room   RoomInfo `json:"room"`
	SeatID string   `json:"seatId"`
}

// PlayerJoined is broadcast to a room when a seat fills
type PlayerJoined struct {
	RoomID     string     `json:"roomId"`
	SeatID     string     `json:"seatId"`
	PlayerName string     `json:"playerName"`
	Seats      []SeatInfo `json:"seats"`
}

// PlayerLeft is broadcast to a room when a seat empties
type PlayerLeft struct {
	RoomID     string     `json:"roomId"`
	SeatID     string     `json:"seatId"`
	PlayerName string     `json:"playerName"`
	Seats      []SeatInfo `json:"seats"`
}

// RoomsList answers get-rooms
type RoomsList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// GameStarted carries the recipient's first view of a new hand
type GameStarted struct {
	GameView GameView `json:"gameView"`
}

// GameUpdated carries the recipient's view after any state change
type GameUpdated struct {
	GameView GameView `json:"gameView"`
}

// ActionRequired tells a seat it is their turn and what they may do.
// TurnDeadline is epoch milliseconds; the server auto-acts at the
// deadline. Other seats learn whose turn it is from their game views.
type ActionRequired struct {
	RoomID       string            `json:"roomId"`
	SeatID       string            `json:"seatId"`
	LegalActions []LegalActionInfo `json:"legalActions"`
	TurnDeadline int64             `json:"turnDeadline"`
}

// HandComplete reports the distribution at the end of a hand. Players
// carries revealed hole cards only for seats that reached a showdown.
type HandComplete struct {
	RoomID         string           `json:"roomId"`
	Winners        []WinnerInfo     `json:"winners"`
	Players        []RevealedPlayer `json:"players"`
	CommunityCards []deck.Card      `json:"communityCards"`
	Pot            int              `json:"pot"`
	IsShowdown     bool             `json:"isShowdown"`
}

// GameOver ends a room's game. Winner is nil when no seat had chips left.
type GameOver struct {
	RoomID         string     `json:"roomId"`
	Winner         *Standing  `json:"winner,omitempty"`
	FinalStandings []Standing `json:"finalStandings"`
}

// Error is sent only to the intent's sender
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Views

// RoomInfo describes a room to its members
type RoomInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	MaxSeats   int        `json:"maxSeats"`
	SmallBlind int        `json:"smallBlind"`
	BigBlind   int        `json:"bigBlind"`
	Seats      []SeatInfo `json:"seats"`
	HandActive bool       `json:"handActive"`
}

// SeatInfo is the public slice of one seat's room state
type SeatInfo struct {
	SeatID string `json:"seatId"`
	Name   string `json:"name"`
	Chips  int    `json:"chips"`
	Away   bool   `json:"away,omitempty"`
}

// RoomSummary is one row of the room browser
type RoomSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxSeats   int    `json:"maxSeats"`
	SmallBlind int    `json:"smallBlind"`
	BigBlind   int    `json:"bigBlind"`
	HandActive bool   `json:"handActive"`
}

// GameView is one seat's window onto the current hand. MyCards is filled
// only for the recipient; everyone else's cards appear as counts on their
// PlayerView.
type GameView struct {
	RoomID         string       `json:"roomId"`
	HandNumber     int          `json:"handNumber"`
	Phase          string       `json:"phase"`
	CommunityCards []deck.Card  `json:"communityCards"`
	Pot            int          `json:"pot"`
	CurrentBet     int          `json:"currentBet"`
	MinRaise       int          `json:"minRaise"`
	CurrentSeatID  string       `json:"currentSeatId,omitempty"`
	Players        []PlayerView `json:"players"`
	MyCards        []deck.Card  `json:"myCards,omitempty"`
}

// PlayerView is the public per-seat state inside a GameView
type PlayerView struct {
	SeatID       string `json:"seatId"`
	Name         string `json:"name"`
	Chips        int    `json:"chips"`
	Bet          int    `json:"bet"`
	Status       string `json:"status"`
	CardCount    int    `json:"cardCount"`
	IsDealer     bool   `json:"isDealer,omitempty"`
	IsSmallBlind bool   `json:"isSmallBlind,omitempty"`
	IsBigBlind   bool   `json:"isBigBlind,omitempty"`
}

// LegalActionInfo is one available action with its amount bounds. Min and
// Max are round totals for bet and raise and the chips owed for call.
type LegalActionInfo struct {
	Type string `json:"type"`
	Min  int    `json:"min,omitempty"`
	Max  int    `json:"max,omitempty"`
}

// WinnerInfo is one seat's share of a completed hand's pot. Ranking is
// empty when the hand ended on folds.
type WinnerInfo struct {
	SeatID  string `json:"seatId"`
	Name    string `json:"name"`
	Amount  int    `json:"amount"`
	Ranking string `json:"ranking,omitempty"`
}

// RevealedPlayer is a seat's final state in a hand-complete payload.
// HoleCards is set only at a showdown and only for seats that reached it.
type RevealedPlayer struct {
	SeatID    string      `json:"seatId"`
	Name      string      `json:"name"`
	Chips     int         `json:"chips"`
	Status    string      `json:"status"`
	HoleCards []deck.Card `json:"holeCards,omitempty"`
}

// Standing is one seat's final result in a game-over payload
type Standing struct {
	SeatID string `json:"seatId"`
	Name   string `json:"name"`
	Chips  int    `json:"chips"`
	IsOut  bool   `json:"isOut,omitempty"`
}
