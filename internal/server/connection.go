package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/gameid"
	"github.com/lox/cardroom/internal/metrics"
	"github.com/lox/cardroom/internal/protocol"
	"github.com/lox/cardroom/internal/room"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection wraps one WebSocket client. It routes the client's intents
// into rooms and implements room.Sink for events coming back. A single
// connection can hold seats in several rooms at once.
type Connection struct {
	conn     *websocket.Conn
	send     chan []byte
	logger   *log.Logger
	registry *room.Registry
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	bindings  map[string]string // room id -> seat id held by this connection
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, logger *log.Logger, registry *room.Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan []byte, 256),
		logger:   logger.WithPrefix("conn"),
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
		bindings: make(map[string]string),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send implements room.Sink. The event is framed and queued without ever
// blocking the caller; a client that cannot drain its buffer loses the
// event, and the read loop's ping discipline deals with a dead peer.
func (c *Connection) Send(event protocol.MessageType, payload any) {
	defer func() {
		if r := recover(); r != nil {
			// channel closed by a concurrent teardown
			c.logger.Debug("Send on closed connection", "type", event)
		}
	}()

	data, err := protocol.Marshal(event, payload, time.Now())
	if err != nil {
		c.logger.Error("Failed to marshal event", "type", event, "error", err)
		return
	}

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		metrics.DroppedEvents.Inc()
		c.logger.Warn("Send buffer full, dropping event", "type", event)
	}
}

func (c *Connection) bind(roomID, seatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[roomID] = seatID
}

func (c *Connection) unbind(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, roomID)
}

func (c *Connection) owns(roomID, seatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seatID != "" && c.bindings[roomID] == seatID
}

func (c *Connection) hasBinding(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bindings[roomID]
	return ok
}

// takeBindings returns and clears every room this connection is seated
// in; the server walks them to hand the seats their disconnect.
func (c *Connection) takeBindings() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.bindings
	c.bindings = make(map[string]string)
	return out
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		env, err := protocol.Unmarshal(data)
		if err != nil {
			c.sendError(protocol.CodeBadRequest, err.Error())
			continue
		}
		c.handleEnvelope(env)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleEnvelope dispatches one intent from the client
func (c *Connection) handleEnvelope(env protocol.Envelope) {
	c.logger.Debug("Received intent", "type", env.Type)
	metrics.Intents.WithLabelValues(string(env.Type)).Inc()

	switch env.Type {
	case protocol.TypeCreateRoom:
		var data protocol.CreateRoom
		if err := env.DecodePayload(&data); err != nil {
			c.sendError(protocol.CodeBadRequest, "failed to parse create-room payload")
			return
		}
		c.handleCreateRoom(data)

	case protocol.TypeJoinRoom:
		var data protocol.JoinRoom
		if err := env.DecodePayload(&data); err != nil {
			c.sendError(protocol.CodeBadRequest, "failed to parse join-room payload")
			return
		}
		c.handleJoinRoom(data)

	case protocol.TypeLeaveRoom:
		var data protocol.LeaveRoom
		if err := env.DecodePayload(&data); err != nil {
			c.sendError(protocol.CodeBadRequest, "failed to parse leave-room payload")
			return
		}
		c.handleLeaveRoom(data)

	case protocol.TypeStartGame:
		var data protocol.StartGame
		if err := env.DecodePayload(&data); err != nil {
			c.sendError(protocol.CodeBadRequest, "failed to parse start-game payload")
			return
		}
		c.handleStartGame(data)

	case protocol.TypePlayerAction:
		var data protocol.PlayerAction
		if err := env.DecodePayload(&data); err != nil {
			c.sendError(protocol.CodeBadRequest, "failed to parse player-action payload")
			return
		}
		c.handlePlayerAction(data)

	case protocol.TypeGetRooms:
		c.handleGetRooms()

	default:
		err := fmt.Errorf("%w: %s", protocol.ErrUnknownMessageType, env.Type)
		c.sendError(protocol.CodeBadRequest, err.Error())
	}
}

// checkID rejects a client-supplied identifier that the registry could
// never have issued, before any lookup runs on it.
func (c *Connection) checkID(field, id string) bool {
	if err := gameid.Validate(id); err != nil {
		c.sendError(protocol.CodeBadRequest, fmt.Sprintf("%s: %s", field, err))
		return false
	}
	return true
}

func (c *Connection) handleCreateRoom(data protocol.CreateRoom) {
	c.logger.Info("Create room request", "roomName", data.RoomName, "playerName", data.PlayerName)

	ctrl, seatID, err := c.registry.CreateRoom(data.RoomName, data.PlayerName, c)
	if err != nil {
		c.replyError(err)
		return
	}
	c.bind(ctrl.ID(), seatID)
}

func (c *Connection) handleJoinRoom(data protocol.JoinRoom) {
	c.logger.Info("Join room request", "roomId", data.RoomID, "playerName", data.PlayerName, "seatId", data.SeatID)

	if !c.checkID("roomId", data.RoomID) {
		return
	}
	ctrl, err := c.registry.Get(data.RoomID)
	if err != nil {
		c.replyError(err)
		return
	}

	// a seat id asks to rebind to a seat from a previous connection
	if data.SeatID != "" {
		if !c.checkID("seatId", data.SeatID) {
			return
		}
		if err := ctrl.Rejoin(data.SeatID, c); err != nil {
			c.replyError(err)
			return
		}
		c.bind(ctrl.ID(), data.SeatID)
		return
	}

	seatID, err := ctrl.Join(data.PlayerName, c)
	if err != nil {
		c.replyError(err)
		return
	}
	c.bind(ctrl.ID(), seatID)
}

func (c *Connection) handleLeaveRoom(data protocol.LeaveRoom) {
	c.logger.Info("Leave room request", "roomId", data.RoomID, "seatId", data.SeatID)

	if !c.checkID("roomId", data.RoomID) || !c.checkID("seatId", data.SeatID) {
		return
	}
	if !c.owns(data.RoomID, data.SeatID) {
		c.sendError(protocol.CodeUnknownSeat, "seat does not belong to this connection")
		return
	}
	ctrl, err := c.registry.Get(data.RoomID)
	if err != nil {
		c.replyError(err)
		return
	}
	if err := ctrl.Leave(data.SeatID); err != nil {
		c.replyError(err)
		return
	}
	c.unbind(data.RoomID)
}

func (c *Connection) handleStartGame(data protocol.StartGame) {
	c.logger.Info("Start game request", "roomId", data.RoomID)

	if !c.checkID("roomId", data.RoomID) {
		return
	}
	if !c.hasBinding(data.RoomID) {
		c.sendError(protocol.CodeUnknownSeat, "join the room before starting the game")
		return
	}
	ctrl, err := c.registry.Get(data.RoomID)
	if err != nil {
		c.replyError(err)
		return
	}
	if err := ctrl.StartHand(); err != nil {
		c.replyError(err)
	}
}

func (c *Connection) handlePlayerAction(data protocol.PlayerAction) {
	c.logger.Debug("Player action", "roomId", data.RoomID, "seatId", data.SeatID, "action", data.Action.Type, "amount", data.Action.Amount)

	if !c.checkID("roomId", data.RoomID) || !c.checkID("seatId", data.SeatID) {
		return
	}
	// actions are only accepted for seats this connection holds
	if !c.owns(data.RoomID, data.SeatID) {
		c.sendError(protocol.CodeUnknownSeat, "seat does not belong to this connection")
		return
	}
	actionType, err := game.ParseActionType(data.Action.Type)
	if err != nil {
		c.sendError(protocol.CodeIllegalAction, err.Error())
		return
	}
	ctrl, err := c.registry.Get(data.RoomID)
	if err != nil {
		c.replyError(err)
		return
	}
	if err := ctrl.ApplyAction(data.SeatID, game.Action{Type: actionType, Amount: data.Action.Amount}); err != nil {
		c.replyError(err)
	}
}

func (c *Connection) handleGetRooms() {
	c.Send(protocol.TypeRoomsList, protocol.RoomsList{Rooms: c.registry.List()})
}

// replyError turns an intent rejection into an error event for the
// sender. Unexpected errors are masked as internal.
func (c *Connection) replyError(err error) {
	var ie *room.IntentError
	if errors.As(err, &ie) {
		c.sendError(ie.Code, ie.Message)
		return
	}
	c.logger.Error("Intent failed", "error", err)
	c.sendError(protocol.CodeInternal, "internal error")
}

func (c *Connection) sendError(code, message string) {
	metrics.Errors.WithLabelValues(code).Inc()
	c.Send(protocol.TypeError, protocol.Error{Code: code, Message: message})
}
