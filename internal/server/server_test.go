package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/gameid"
	"github.com/lox/cardroom/internal/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv, err := NewServer(DefaultConfig(), log.New(io.Discard))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(srv.Registry().Shutdown)
	t.Cleanup(ts.Close)
	return srv, ts
}

// wsClient drives one WebSocket connection in a test. Reads are strict:
// next fails on any event other than the one expected, so the exact
// sequence each client sees is part of every assertion.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialServer(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) sendIntent(msgType protocol.MessageType, payload any) {
	c.t.Helper()

	data, err := protocol.Marshal(msgType, payload, time.Now())
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

func (c *wsClient) sendRaw(data []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

func (c *wsClient) next(want protocol.MessageType) protocol.Envelope {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err, "waiting for %s", want)

	env, err := protocol.Unmarshal(data)
	require.NoError(c.t, err)
	require.Equal(c.t, want, env.Type, "expected %s, got %s: %s", want, env.Type, data)
	return env
}

func (c *wsClient) nextPayload(want protocol.MessageType, v any) protocol.Envelope {
	c.t.Helper()

	env := c.next(want)
	require.NoError(c.t, env.DecodePayload(v))
	return env
}

func (c *wsClient) nextError(wantCode string) {
	c.t.Helper()

	var errPayload protocol.Error
	c.nextPayload(protocol.TypeError, &errPayload)
	require.Equal(c.t, wantCode, errPayload.Code, "error message: %s", errPayload.Message)
}

// createRoom runs the create-room handshake and returns the room and seat
// identifiers the server assigned.
func (c *wsClient) createRoom(roomName, playerName string) (string, string) {
	c.t.Helper()

	c.sendIntent(protocol.TypeCreateRoom, protocol.CreateRoom{RoomName: roomName, PlayerName: playerName})

	var created protocol.RoomCreated
	c.nextPayload(protocol.TypeRoomCreated, &created)
	var joined protocol.RoomJoined
	c.nextPayload(protocol.TypeRoomJoined, &joined)
	require.Equal(c.t, created.Room.ID, joined.Room.ID)
	return created.Room.ID, joined.SeatID
}

func (c *wsClient) joinRoom(roomID, playerName string) string {
	c.t.Helper()

	c.sendIntent(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, PlayerName: playerName})
	var joined protocol.RoomJoined
	c.nextPayload(protocol.TypeRoomJoined, &joined)
	return joined.SeatID
}

func TestServerGameFlow(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	alice := dialServer(t, ts)
	roomID, aliceSeat := alice.createRoom("friday night", "alice")
	require.NoError(t, gameid.Validate(roomID))
	require.NoError(t, gameid.Validate(aliceSeat))

	bob := dialServer(t, ts)
	bobSeat := bob.joinRoom(roomID, "bob")

	var joined protocol.PlayerJoined
	alice.nextPayload(protocol.TypePlayerJoined, &joined)
	require.Equal(t, bobSeat, joined.SeatID)
	require.Equal(t, "bob", joined.PlayerName)
	require.Len(t, joined.Seats, 2)

	// the room browser sees the table without being seated at it
	browser := dialServer(t, ts)
	browser.sendIntent(protocol.TypeGetRooms, protocol.GetRooms{})
	var list protocol.RoomsList
	browser.nextPayload(protocol.TypeRoomsList, &list)
	require.Len(t, list.Rooms, 1)
	require.Equal(t, "friday night", list.Rooms[0].Name)
	require.Equal(t, 2, list.Rooms[0].Players)
	require.False(t, list.Rooms[0].HandActive)

	alice.sendIntent(protocol.TypeStartGame, protocol.StartGame{RoomID: roomID})

	var aliceStart, bobStart protocol.GameStarted
	alice.nextPayload(protocol.TypeGameStarted, &aliceStart)
	bob.nextPayload(protocol.TypeGameStarted, &bobStart)

	for _, view := range []protocol.GameView{aliceStart.GameView, bobStart.GameView} {
		require.Equal(t, roomID, view.RoomID)
		require.Equal(t, 1, view.HandNumber)
		require.Equal(t, "preflop", view.Phase)
		require.Equal(t, 30, view.Pot)
		require.Equal(t, 20, view.CurrentBet)
		require.Len(t, view.MyCards, 2)
		require.Len(t, view.Players, 2)
	}
	require.NotEqual(t, aliceStart.GameView.MyCards, bobStart.GameView.MyCards)

	// heads-up the dealer posts the small blind and acts first, and the
	// first dealer is the first seat taken
	require.Equal(t, aliceSeat, aliceStart.GameView.CurrentSeatID)

	var prompt protocol.ActionRequired
	env := alice.nextPayload(protocol.TypeActionRequired, &prompt)
	require.Equal(t, aliceSeat, prompt.SeatID)
	require.NotEmpty(t, prompt.LegalActions)
	require.Greater(t, prompt.TurnDeadline, env.Timestamp)
	types := make([]string, 0, len(prompt.LegalActions))
	for _, la := range prompt.LegalActions {
		types = append(types, la.Type)
	}
	require.Contains(t, types, "fold")
	require.Contains(t, types, "call")

	// bob cannot act for alice's seat
	bob.sendIntent(protocol.TypePlayerAction, protocol.PlayerAction{
		RoomID: roomID,
		SeatID: aliceSeat,
		Action: protocol.Action{Type: "fold"},
	})
	bob.nextError(protocol.CodeUnknownSeat)

	alice.sendIntent(protocol.TypePlayerAction, protocol.PlayerAction{
		RoomID: roomID,
		SeatID: aliceSeat,
		Action: protocol.Action{Type: "fold"},
	})

	for _, c := range []*wsClient{alice, bob} {
		var complete protocol.HandComplete
		c.nextPayload(protocol.TypeHandComplete, &complete)
		require.Equal(t, roomID, complete.RoomID)
		require.False(t, complete.IsShowdown)
		require.Equal(t, 30, complete.Pot)
		require.Len(t, complete.Winners, 1)
		require.Equal(t, bobSeat, complete.Winners[0].SeatID)
		require.Equal(t, 30, complete.Winners[0].Amount)
		for _, p := range complete.Players {
			require.Empty(t, p.HoleCards)
		}
	}
}

func TestServerRejectsMalformedIntents(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	client := dialServer(t, ts)

	client.sendRaw([]byte("not json"))
	client.nextError(protocol.CodeBadRequest)

	client.sendRaw([]byte("{}"))
	client.nextError(protocol.CodeBadRequest)

	client.sendIntent(protocol.MessageType("dance"), struct{}{})
	var unknownType protocol.Error
	client.nextPayload(protocol.TypeError, &unknownType)
	require.Equal(t, protocol.CodeBadRequest, unknownType.Code)
	require.Contains(t, unknownType.Message, protocol.ErrUnknownMessageType.Error())

	// a payload of the wrong shape fails in the decoder, not the room
	client.sendIntent(protocol.TypeCreateRoom, "nonsense")
	client.nextError(protocol.CodeBadRequest)
}

func TestServerRejectsMalformedIdentifiers(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	alice := dialServer(t, ts)
	roomID, _ := alice.createRoom("strict ids", "alice")

	// identifiers the registry could never have issued fail before any
	// room lookup
	alice.sendIntent(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: "nope", PlayerName: "mallory"})
	alice.nextError(protocol.CodeBadRequest)

	alice.sendIntent(protocol.TypeStartGame, protocol.StartGame{RoomID: "NOTLOWER"})
	alice.nextError(protocol.CodeBadRequest)

	alice.sendIntent(protocol.TypeLeaveRoom, protocol.LeaveRoom{RoomID: roomID, SeatID: "???"})
	alice.nextError(protocol.CodeBadRequest)

	alice.sendIntent(protocol.TypePlayerAction, protocol.PlayerAction{
		RoomID: roomID,
		SeatID: "tiny",
		Action: protocol.Action{Type: "fold"},
	})
	alice.nextError(protocol.CodeBadRequest)

	alice.sendIntent(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, SeatID: "!!", PlayerName: "bob"})
	alice.nextError(protocol.CodeBadRequest)

	// a well-formed id that names no room is a different failure
	alice.sendIntent(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: gameid.Generate(), PlayerName: "mallory"})
	alice.nextError(protocol.CodeUnknownRoom)
}

func TestServerSeatOwnership(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	alice := dialServer(t, ts)
	roomID, aliceSeat := alice.createRoom("owners", "alice")

	bob := dialServer(t, ts)
	bobSeat := bob.joinRoom(roomID, "bob")
	alice.next(protocol.TypePlayerJoined)

	// starting a game requires a seat in the room
	stranger := dialServer(t, ts)
	stranger.sendIntent(protocol.TypeStartGame, protocol.StartGame{RoomID: roomID})
	stranger.nextError(protocol.CodeUnknownSeat)

	// seats from other connections cannot be given up
	bob.sendIntent(protocol.TypeLeaveRoom, protocol.LeaveRoom{RoomID: roomID, SeatID: aliceSeat})
	bob.nextError(protocol.CodeUnknownSeat)

	bob.sendIntent(protocol.TypeLeaveRoom, protocol.LeaveRoom{RoomID: roomID, SeatID: bobSeat})
	var left protocol.PlayerLeft
	bob.nextPayload(protocol.TypePlayerLeft, &left)
	require.Equal(t, bobSeat, left.SeatID)
	alice.nextPayload(protocol.TypePlayerLeft, &left)
	require.Equal(t, "bob", left.PlayerName)
	require.Len(t, left.Seats, 1)
}

func TestServerDisconnectBroadcastsPlayerLeft(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	alice := dialServer(t, ts)
	roomID, _ := alice.createRoom("drops", "alice")

	bob := dialServer(t, ts)
	bobSeat := bob.joinRoom(roomID, "bob")
	alice.next(protocol.TypePlayerJoined)

	// no hand is running, so closing the socket vacates the seat
	require.NoError(t, bob.conn.Close())

	var left protocol.PlayerLeft
	alice.nextPayload(protocol.TypePlayerLeft, &left)
	require.Equal(t, bobSeat, left.SeatID)
	require.Equal(t, "bob", left.PlayerName)
}

func TestServerRejoinAfterReconnect(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)

	alice := dialServer(t, ts)
	roomID, aliceSeat := alice.createRoom("reconnects", "alice")

	bob := dialServer(t, ts)
	bobSeat := bob.joinRoom(roomID, "bob")
	alice.next(protocol.TypePlayerJoined)

	alice.sendIntent(protocol.TypeStartGame, protocol.StartGame{RoomID: roomID})
	alice.next(protocol.TypeGameStarted)
	bob.next(protocol.TypeGameStarted)
	alice.next(protocol.TypeActionRequired)

	// bob is not the seat to act, so dropping him pauses nothing
	require.NoError(t, bob.conn.Close())
	require.Eventually(t, func() bool {
		ctrl, err := srv.Registry().Get(roomID)
		if err != nil {
			return false
		}
		for _, seat := range ctrl.Info().Seats {
			if seat.SeatID == bobSeat {
				return seat.Away
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "seat never marked away")

	bob2 := dialServer(t, ts)
	bob2.sendIntent(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, SeatID: bobSeat})

	var joined protocol.RoomJoined
	bob2.nextPayload(protocol.TypeRoomJoined, &joined)
	require.Equal(t, bobSeat, joined.SeatID)

	var view protocol.GameUpdated
	bob2.nextPayload(protocol.TypeGameUpdated, &view)
	require.Equal(t, "preflop", view.GameView.Phase)
	require.Len(t, view.GameView.MyCards, 2)

	alice.next(protocol.TypePlayerJoined)

	// the hand continues against the reconnected seat
	alice.sendIntent(protocol.TypePlayerAction, protocol.PlayerAction{
		RoomID: roomID,
		SeatID: aliceSeat,
		Action: protocol.Action{Type: "fold"},
	})

	var complete protocol.HandComplete
	bob2.nextPayload(protocol.TypeHandComplete, &complete)
	require.Equal(t, bobSeat, complete.Winners[0].SeatID)
	require.Equal(t, 30, complete.Winners[0].Amount)
	alice.next(protocol.TypeHandComplete)
}

func TestServerHealthAndMetrics(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	alice := dialServer(t, ts)
	alice.createRoom("health", "alice")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health struct {
		Status      string `json:"status"`
		Rooms       int    `json:"rooms"`
		Connections int    `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, 1, health.Rooms)
	require.Equal(t, 1, health.Connections)

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "cardroom_hands_played_total")
}
