package room

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/handlog"
	"github.com/lox/cardroom/internal/metrics"
	"github.com/lox/cardroom/internal/protocol"
)

// Controller owns one room: its seats, at most one running hand, and the
// timers that keep play moving. Every intent and every timer callback runs
// under the room mutex, so hand state only ever has a single writer.
type Controller struct {
	id     string
	name   string
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	ids    IDSource
	hands  *handlog.Writer
	reap   func(*Controller)

	mu           sync.Mutex
	closed       bool
	seats        []*Seat
	hand         *game.Hand
	handID       string
	handNumber   int
	dealerSeat   string
	interHand    bool
	turnGen      int
	turnTimer    *quartz.Timer
	turnDeadline time.Time
	interTimer   *quartz.Timer
}

func newController(id, name string, cfg Config, logger *log.Logger, clock quartz.Clock, rng *rand.Rand, ids IDSource, hands *handlog.Writer, reap func(*Controller)) *Controller {
	return &Controller{
		id:     id,
		name:   name,
		cfg:    cfg,
		logger: logger.WithPrefix("room").With("roomId", id),
		clock:  clock,
		rng:    rng,
		ids:    ids,
		hands:  hands,
		reap:   reap,
	}
}

// ID returns the room's identifier.
func (c *Controller) ID() string {
	return c.id
}

// Name returns the room's display name.
func (c *Controller) Name() string {
	return c.name
}

// Join seats a new player and replies with room-joined; everyone already
// seated hears player-joined. Seats can only be taken between hands.
func (c *Controller) Join(name string, sink Sink) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", errRoomClosed()
	}
	if name == "" {
		return "", &IntentError{Code: protocol.CodeBadRequest, Message: "player name is required"}
	}
	if c.hand != nil {
		return "", &IntentError{Code: protocol.CodeHandInProgress, Message: "wait for the current hand to finish"}
	}
	if len(c.seats) >= c.cfg.MaxSeats {
		return "", &IntentError{Code: protocol.CodeRoomFull, Message: fmt.Sprintf("room seats at most %d players", c.cfg.MaxSeats)}
	}
	for _, s := range c.seats {
		if s.Name == name {
			return "", &IntentError{Code: protocol.CodeNameTaken, Message: fmt.Sprintf("%q is already seated", name)}
		}
	}

	seat := &Seat{ID: c.ids.NewID(), Name: name, Chips: c.cfg.StartingChips, sink: sink}
	c.seats = append(c.seats, seat)
	c.logger.Info("Player joined", "seatId", seat.ID, "name", name, "seats", len(c.seats))

	sink.Send(protocol.TypeRoomJoined, protocol.RoomJoined{Room: c.infoLocked(), SeatID: seat.ID})
	c.broadcastExceptLocked(seat.ID, protocol.TypePlayerJoined, protocol.PlayerJoined{
		RoomID:     c.id,
		SeatID:     seat.ID,
		PlayerName: name,
		Seats:      c.seatInfosLocked(),
	})
	return seat.ID, nil
}

// Rejoin rebinds a connection to an away seat. The rejoined player gets
// room-joined again, plus a fresh view when a hand is running; the seat's
// chips and any live hand participation carry over.
func (c *Controller) Rejoin(seatID string, sink Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errRoomClosed()
	}
	seat := c.seatLocked(seatID)
	if seat == nil {
		return &IntentError{Code: protocol.CodeUnknownSeat, Message: "no such seat"}
	}
	if !seat.Away {
		return &IntentError{Code: protocol.CodeBadRequest, Message: "seat still has a connection"}
	}
	seat.Away = false
	seat.sink = sink
	c.logger.Info("Player rejoined", "seatId", seatID, "name", seat.Name)

	sink.Send(protocol.TypeRoomJoined, protocol.RoomJoined{Room: c.infoLocked(), SeatID: seatID})
	c.broadcastExceptLocked(seatID, protocol.TypePlayerJoined, protocol.PlayerJoined{
		RoomID:     c.id,
		SeatID:     seatID,
		PlayerName: seat.Name,
		Seats:      c.seatInfosLocked(),
	})
	if c.hand != nil {
		sink.Send(protocol.TypeGameUpdated, protocol.GameUpdated{GameView: c.viewForLocked(seatID)})
	}
	return nil
}

// Leave removes a seat. Mid-hand the seat is folded at once but stays in
// the room, flagged away, until the hand boundary sweeps it; between hands
// it is removed immediately.
func (c *Controller) Leave(seatID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errRoomClosed()
	}
	seat := c.seatLocked(seatID)
	if seat == nil {
		c.mu.Unlock()
		return &IntentError{Code: protocol.CodeUnknownSeat, Message: "no such seat"}
	}

	if c.handHasSeatLocked(seatID) {
		c.logger.Info("Player left mid-hand", "seatId", seatID, "name", seat.Name)
		seat.Away = true
		seat.sink = nil
		c.foldAwaySeatLocked(seatID)
		c.mu.Unlock()
		return nil
	}

	sink := seat.sink
	c.removeSeatLocked(seat)
	c.logger.Info("Player left", "seatId", seatID, "name", seat.Name, "seats", len(c.seats))
	left := protocol.PlayerLeft{RoomID: c.id, SeatID: seatID, PlayerName: seat.Name, Seats: c.seatInfosLocked()}
	c.broadcastLocked(protocol.TypePlayerLeft, left)
	if sink != nil {
		sink.Send(protocol.TypePlayerLeft, left)
	}
	empty := len(c.seats) == 0 && c.hand == nil
	c.mu.Unlock()
	if empty {
		c.reap(c)
	}
	return nil
}

// Disconnect detaches a connection from its seat. Mid-hand the seat stays,
// flagged away with its turns auto-acted; between hands the seat leaves.
// The sink identity check stops a stale connection from unbinding a seat
// that already rebound.
func (c *Controller) Disconnect(seatID string, sink Sink) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	seat := c.seatLocked(seatID)
	if seat == nil || seat.sink != sink {
		c.mu.Unlock()
		return
	}
	seat.sink = nil

	if !c.handHasSeatLocked(seatID) {
		c.removeSeatLocked(seat)
		c.logger.Info("Player disconnected between hands", "seatId", seatID, "name", seat.Name)
		c.broadcastLocked(protocol.TypePlayerLeft, protocol.PlayerLeft{
			RoomID:     c.id,
			SeatID:     seatID,
			PlayerName: seat.Name,
			Seats:      c.seatInfosLocked(),
		})
		empty := len(c.seats) == 0 && c.hand == nil
		c.mu.Unlock()
		if empty {
			c.reap(c)
		}
		return
	}

	seat.Away = true
	c.logger.Info("Player disconnected mid-hand", "seatId", seatID, "name", seat.Name)
	if cur := c.hand.CurrentPlayer(); cur != nil && cur.ID == seatID {
		c.cancelTurnTimerLocked()
		if err := c.hand.Apply(seatID, c.autoActionLocked(seatID)); err != nil {
			if errors.Is(err, game.ErrInvariant) {
				c.abortHandLocked(err)
			}
			c.mu.Unlock()
			return
		}
		c.settleLocked()
	}
	c.mu.Unlock()
}

// StartHand begins the first hand, or the first after a game over. During
// the pause between hands the request is dropped: the room paces itself.
func (c *Controller) StartHand() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errRoomClosed()
	}
	if c.interHand {
		return nil
	}
	if c.hand != nil {
		return &IntentError{Code: protocol.CodeHandInProgress, Message: "a hand is already running"}
	}
	return c.startHandLocked()
}

// ApplyAction validates and applies a betting action for a seat. Engine
// rejections come back as intent errors with the matching code and change
// nothing; nothing is broadcast for a rejected action.
func (c *Controller) ApplyAction(seatID string, action game.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errRoomClosed()
	}
	if c.hand == nil {
		return &IntentError{Code: protocol.CodeIllegalAction, Message: "no hand in progress"}
	}
	if err := c.hand.Apply(seatID, action); err != nil {
		if errors.Is(err, game.ErrInvariant) {
			c.abortHandLocked(err)
			return &IntentError{Code: protocol.CodeInternal, Message: "hand aborted"}
		}
		return engineIntentError(err)
	}
	c.logger.Debug("Action applied", "seatId", seatID, "action", action.Type.String(), "amount", action.Amount)
	c.cancelTurnTimerLocked()
	c.settleLocked()
	return nil
}

// Info returns the public room state.
func (c *Controller) Info() protocol.RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked()
}

// Summary returns the room-browser row for this room; ok is false once the
// room has closed.
func (c *Controller) Summary() (protocol.RoomSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.RoomSummary{}, false
	}
	return protocol.RoomSummary{
		ID:         c.id,
		Name:       c.name,
		Players:    len(c.seats),
		MaxSeats:   c.cfg.MaxSeats,
		SmallBlind: c.cfg.SmallBlind,
		BigBlind:   c.cfg.BigBlind,
		HandActive: c.hand != nil,
	}, true
}

// Shutdown cancels the room's timers and rejects further intents. The
// server closes the member connections itself.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// closeIfEmpty closes an empty, idle room so the registry can drop it.
// Reports whether the room is closed.
func (c *Controller) closeIfEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	if len(c.seats) > 0 || c.hand != nil {
		return false
	}
	c.closeLocked()
	return true
}

func (c *Controller) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancelTurnTimerLocked()
	if c.interTimer != nil {
		c.interTimer.Stop()
		c.interTimer = nil
	}
}

// startHandLocked deals the next hand to every seat with chips, rotating
// the button, and either prompts the first actor or, when the blinds alone
// ran the board out, settles immediately.
func (c *Controller) startHandLocked() error {
	eligible := c.eligibleSeatsLocked()
	if len(eligible) < 2 {
		return &IntentError{Code: protocol.CodeNotEnoughPlayers, Message: "need at least two seats with chips"}
	}

	c.dealerSeat = c.nextDealerLocked(eligible)
	dealerIndex := 0
	participants := make([]game.Participant, len(eligible))
	for i, s := range eligible {
		participants[i] = game.Participant{ID: s.ID, Name: s.Name, Chips: s.Chips}
		if s.ID == c.dealerSeat {
			dealerIndex = i
		}
	}

	hand, err := game.NewHand(participants, dealerIndex, c.cfg.SmallBlind, c.cfg.BigBlind, c.rng)
	if err != nil {
		c.logger.Error("Failed to start hand", "error", err)
		return &IntentError{Code: protocol.CodeInternal, Message: "could not start the hand"}
	}
	c.hand = hand
	c.handNumber++
	c.handID = c.ids.NewID()
	c.logger.Info("Hand started", "handId", c.handID, "handNumber", c.handNumber, "players", len(participants), "dealer", c.dealerSeat)

	c.broadcastViewsLocked(protocol.TypeGameStarted)
	if c.hand.Phase == game.Complete {
		c.finishHandLocked()
		return nil
	}
	c.armTurnTimerLocked()
	return nil
}

// settleLocked publishes the state after an engine step and decides what
// happens next: prompt a present seat, act at once for an absent one, or
// finish the hand. It loops because absent seats resolve synchronously.
func (c *Controller) settleLocked() {
	for {
		if c.hand.Phase == game.Complete {
			c.finishHandLocked()
			return
		}
		c.broadcastViewsLocked(protocol.TypeGameUpdated)
		cur := c.hand.CurrentPlayer()
		if cur == nil {
			return
		}
		if seat := c.seatLocked(cur.ID); seat != nil && !seat.Away {
			c.armTurnTimerLocked()
			return
		}
		if err := c.hand.Apply(cur.ID, c.autoActionLocked(cur.ID)); err != nil {
			if errors.Is(err, game.ErrInvariant) {
				c.abortHandLocked(err)
			} else {
				c.logger.Error("Auto action rejected", "seatId", cur.ID, "error", err)
			}
			return
		}
	}
}

// foldAwaySeatLocked folds a seat that is no longer represented and keeps
// play moving. A running turn timer is only disturbed when the action
// actually moves.
func (c *Controller) foldAwaySeatLocked(seatID string) {
	before := ""
	if cur := c.hand.CurrentPlayer(); cur != nil {
		before = cur.ID
	}
	if err := c.hand.ForceFold(seatID); err != nil {
		if errors.Is(err, game.ErrInvariant) {
			c.abortHandLocked(err)
		}
		return
	}
	if c.hand.Phase == game.Complete {
		c.cancelTurnTimerLocked()
		c.finishHandLocked()
		return
	}
	if cur := c.hand.CurrentPlayer(); cur != nil && cur.ID == before {
		c.broadcastViewsLocked(protocol.TypeGameUpdated)
		return
	}
	c.cancelTurnTimerLocked()
	c.settleLocked()
}

// armTurnTimerLocked starts the action clock for the current seat and
// prompts it. The generation counter makes a timer that lost the race to
// Stop harmless.
func (c *Controller) armTurnTimerLocked() {
	cur := c.hand.CurrentPlayer()
	if cur == nil {
		return
	}
	c.turnGen++
	gen := c.turnGen
	c.turnDeadline = c.clock.Now().Add(c.cfg.TurnTimeout)
	c.turnTimer = c.clock.AfterFunc(c.cfg.TurnTimeout, func() { c.turnExpired(gen) })
	c.sendToSeatLocked(cur.ID, protocol.TypeActionRequired, protocol.ActionRequired{
		RoomID:       c.id,
		SeatID:       cur.ID,
		LegalActions: legalActionInfos(c.hand.LegalActions(cur.ID)),
		TurnDeadline: c.turnDeadline.UnixMilli(),
	})
}

func (c *Controller) cancelTurnTimerLocked() {
	c.turnGen++
	if c.turnTimer != nil {
		c.turnTimer.Stop()
		c.turnTimer = nil
	}
}

// turnExpired fires when the current seat ran out its clock. The synthesized
// action goes through the engine exactly as if the seat had sent it.
func (c *Controller) turnExpired(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.turnGen || c.hand == nil {
		return
	}
	cur := c.hand.CurrentPlayer()
	if cur == nil {
		return
	}
	c.turnTimer = nil
	action := c.autoActionLocked(cur.ID)
	c.logger.Info("Turn timed out", "seatId", cur.ID, "auto", action.Type.String())
	if err := c.hand.Apply(cur.ID, action); err != nil {
		if errors.Is(err, game.ErrInvariant) {
			c.abortHandLocked(err)
		}
		return
	}
	c.settleLocked()
}

// autoActionLocked picks the synthesized action for an absent or expired
// seat: check when nothing is owed, otherwise fold.
func (c *Controller) autoActionLocked(seatID string) game.Action {
	for _, la := range c.hand.LegalActions(seatID) {
		if la.Type == game.Check {
			return game.Action{Type: game.Check}
		}
	}
	return game.Action{Type: game.Fold}
}

// finishHandLocked settles chips back onto the seats, publishes
// hand-complete, writes the hand record, and starts the inter-hand pause.
func (c *Controller) finishHandLocked() {
	hand := c.hand
	res := hand.Result
	for _, p := range hand.Players {
		if seat := c.seatLocked(p.ID); seat != nil {
			seat.Chips = p.Chips
		}
	}

	pot := 0
	winners := make([]protocol.WinnerInfo, 0, len(res.Winners))
	for _, w := range res.Winners {
		pot += w.Amount
		winners = append(winners, protocol.WinnerInfo{SeatID: w.SeatID, Name: w.Name, Amount: w.Amount, Ranking: w.Ranking})
	}

	players := make([]protocol.RevealedPlayer, 0, len(hand.Players))
	for _, p := range hand.Players {
		rp := protocol.RevealedPlayer{SeatID: p.ID, Name: p.Name, Chips: p.Chips, Status: p.Status.String()}
		if res.IsShowdown && p.InHand() {
			rp.HoleCards = p.HoleCards
		}
		players = append(players, rp)
	}

	c.broadcastLocked(protocol.TypeHandComplete, protocol.HandComplete{
		RoomID:         c.id,
		Winners:        winners,
		Players:        players,
		CommunityCards: hand.Board,
		Pot:            pot,
		IsShowdown:     res.IsShowdown,
	})
	c.logger.Info("Hand complete", "handId", c.handID, "handNumber", c.handNumber, "pot", pot, "showdown", res.IsShowdown)
	metrics.HandsPlayed.Inc()

	if c.hands != nil {
		rec := handlog.Record{
			RoomID:      c.id,
			RoomName:    c.name,
			HandID:      c.handID,
			HandNumber:  c.handNumber,
			CompletedAt: c.clock.Now(),
			Board:       hand.Board,
			Pot:         pot,
			IsShowdown:  res.IsShowdown,
			Winners:     winners,
			Players:     players,
		}
		if err := c.hands.Write(rec); err != nil {
			c.logger.Warn("Failed to write hand record", "handId", c.handID, "error", err)
		}
	}

	c.hand = nil
	c.interHand = true
	c.interTimer = c.clock.AfterFunc(c.cfg.InterHandDelay, c.handBoundary)
}

// handBoundary runs when the inter-hand pause ends: sweep departed seats,
// mark busted ones out, then deal again or end the game.
func (c *Controller) handBoundary() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.interHand = false
	c.interTimer = nil
	c.sweepAwayLocked()

	for _, s := range c.seats {
		if s.Chips == 0 && !s.Out {
			s.Out = true
			c.logger.Info("Player eliminated", "seatId", s.ID, "name", s.Name)
		}
	}

	if len(c.seats) > 0 {
		eligible := c.eligibleSeatsLocked()
		switch {
		case len(eligible) >= 2:
			if err := c.startHandLocked(); err != nil {
				c.logger.Error("Failed to start next hand", "error", err)
			}
		case len(eligible) == 1:
			c.gameOverLocked(eligible[0])
		default:
			c.gameOverLocked(nil)
		}
	}

	empty := len(c.seats) == 0 && c.hand == nil
	c.mu.Unlock()
	if empty {
		c.reap(c)
	}
}

// sweepAwayLocked removes seats whose connection never came back. Runs at
// hand boundaries and after an abort, never mid-hand.
func (c *Controller) sweepAwayLocked() {
	for i := 0; i < len(c.seats); {
		s := c.seats[i]
		if !s.Away {
			i++
			continue
		}
		c.removeSeatLocked(s)
		c.logger.Info("Removed away seat", "seatId", s.ID, "name", s.Name)
		c.broadcastLocked(protocol.TypePlayerLeft, protocol.PlayerLeft{
			RoomID:     c.id,
			SeatID:     s.ID,
			PlayerName: s.Name,
			Seats:      c.seatInfosLocked(),
		})
	}
}

// removeSeatLocked drops a seat, moving the dealer anchor back one place
// when the dealer itself leaves so rotation continues from the same spot.
func (c *Controller) removeSeatLocked(seat *Seat) {
	idx := -1
	for i, s := range c.seats {
		if s == seat {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	if seat.ID == c.dealerSeat {
		if len(c.seats) > 1 {
			c.dealerSeat = c.seats[(idx-1+len(c.seats))%len(c.seats)].ID
		} else {
			c.dealerSeat = ""
		}
	}
	c.seats = append(c.seats[:idx], c.seats[idx+1:]...)
}

// abortHandLocked unwinds a hand the engine can no longer advance: every
// seat gets its contributions back and the room reports the failure.
func (c *Controller) abortHandLocked(cause error) {
	c.logger.Error("Hand aborted", "handId", c.handID, "error", cause)
	c.cancelTurnTimerLocked()
	c.hand.Refund()
	for _, p := range c.hand.Players {
		if seat := c.seatLocked(p.ID); seat != nil {
			seat.Chips = p.Chips
		}
	}
	c.hand = nil
	metrics.Errors.WithLabelValues(protocol.CodeInternal).Inc()
	c.broadcastLocked(protocol.TypeError, protocol.Error{
		Code:    protocol.CodeInternal,
		Message: "the hand was aborted and all bets returned",
	})
	c.sweepAwayLocked()
	c.gameOverLocked(nil)
}

// gameOverLocked publishes final standings, chips descending. New joins
// can start a fresh game afterwards.
func (c *Controller) gameOverLocked(winner *Seat) {
	standings := make([]protocol.Standing, 0, len(c.seats))
	for _, s := range c.seats {
		if s.Chips == 0 {
			s.Out = true
		}
		standings = append(standings, protocol.Standing{SeatID: s.ID, Name: s.Name, Chips: s.Chips, IsOut: s.Out})
	}
	sort.SliceStable(standings, func(i, j int) bool { return standings[i].Chips > standings[j].Chips })

	payload := protocol.GameOver{RoomID: c.id, FinalStandings: standings}
	if winner != nil {
		payload.Winner = &protocol.Standing{SeatID: winner.ID, Name: winner.Name, Chips: winner.Chips}
		c.logger.Info("Game over", "winner", winner.Name, "chips", winner.Chips)
	} else {
		c.logger.Info("Game over", "winner", "none")
	}
	c.broadcastLocked(protocol.TypeGameOver, payload)
}

// nextDealerLocked rotates the button to the next eligible seat clockwise
// in seating order. A missing anchor, as on the first hand, starts at the
// first eligible seat.
func (c *Controller) nextDealerLocked(eligible []*Seat) string {
	anchor := -1
	for i, s := range c.seats {
		if s.ID == c.dealerSeat {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return eligible[0].ID
	}
	n := len(c.seats)
	for i := 1; i <= n; i++ {
		s := c.seats[(anchor+i)%n]
		if s.Chips > 0 && !s.Away {
			return s.ID
		}
	}
	return eligible[0].ID
}

func (c *Controller) seatLocked(seatID string) *Seat {
	for _, s := range c.seats {
		if s.ID == seatID {
			return s
		}
	}
	return nil
}

func (c *Controller) handHasSeatLocked(seatID string) bool {
	return c.hand != nil && c.hand.PlayerByID(seatID) != nil
}

func (c *Controller) eligibleSeatsLocked() []*Seat {
	var eligible []*Seat
	for _, s := range c.seats {
		if s.Chips > 0 && !s.Away {
			eligible = append(eligible, s)
		}
	}
	return eligible
}

func (c *Controller) infoLocked() protocol.RoomInfo {
	return protocol.RoomInfo{
		ID:         c.id,
		Name:       c.name,
		MaxSeats:   c.cfg.MaxSeats,
		SmallBlind: c.cfg.SmallBlind,
		BigBlind:   c.cfg.BigBlind,
		Seats:      c.seatInfosLocked(),
		HandActive: c.hand != nil,
	}
}

func (c *Controller) seatInfosLocked() []protocol.SeatInfo {
	infos := make([]protocol.SeatInfo, 0, len(c.seats))
	for _, s := range c.seats {
		infos = append(infos, protocol.SeatInfo{SeatID: s.ID, Name: s.Name, Chips: c.chipsLocked(s), Away: s.Away})
	}
	return infos
}

// chipsLocked reads the live stack: the engine's count during a hand, the
// seat's between hands.
func (c *Controller) chipsLocked(s *Seat) int {
	if c.hand != nil {
		if p := c.hand.PlayerByID(s.ID); p != nil {
			return p.Chips
		}
	}
	return s.Chips
}

// viewForLocked renders the running hand for one recipient. Only the
// recipient's own hole cards are ever included; other seats show a card
// count.
func (c *Controller) viewForLocked(recipient string) protocol.GameView {
	view := protocol.GameView{
		RoomID:         c.id,
		HandNumber:     c.handNumber,
		Phase:          c.hand.Phase.String(),
		CommunityCards: c.hand.Board,
		Pot:            c.hand.Pot,
		CurrentBet:     c.hand.CurrentBet,
		MinRaise:       c.hand.MinRaise,
	}
	if cur := c.hand.CurrentPlayer(); cur != nil {
		view.CurrentSeatID = cur.ID
	}
	for _, s := range c.seats {
		p := c.hand.PlayerByID(s.ID)
		if p == nil {
			view.Players = append(view.Players, protocol.PlayerView{
				SeatID: s.ID,
				Name:   s.Name,
				Chips:  s.Chips,
				Status: game.StatusOut.String(),
			})
			continue
		}
		pv := protocol.PlayerView{
			SeatID:       p.ID,
			Name:         p.Name,
			Chips:        p.Chips,
			Bet:          p.Bet,
			Status:       p.Status.String(),
			IsDealer:     p.IsDealer,
			IsSmallBlind: p.IsSmallBlind,
			IsBigBlind:   p.IsBigBlind,
		}
		if p.InHand() {
			pv.CardCount = len(p.HoleCards)
		}
		view.Players = append(view.Players, pv)
		if s.ID == recipient {
			view.MyCards = p.HoleCards
		}
	}
	return view
}

// broadcastViewsLocked fans a personalized view out to every connected
// seat.
func (c *Controller) broadcastViewsLocked(event protocol.MessageType) {
	for _, s := range c.seats {
		if s.sink == nil {
			continue
		}
		view := c.viewForLocked(s.ID)
		if event == protocol.TypeGameStarted {
			s.sink.Send(event, protocol.GameStarted{GameView: view})
		} else {
			s.sink.Send(event, protocol.GameUpdated{GameView: view})
		}
	}
}

func (c *Controller) broadcastLocked(event protocol.MessageType, payload any) {
	for _, s := range c.seats {
		if s.sink != nil {
			s.sink.Send(event, payload)
		}
	}
}

func (c *Controller) broadcastExceptLocked(seatID string, event protocol.MessageType, payload any) {
	for _, s := range c.seats {
		if s.ID != seatID && s.sink != nil {
			s.sink.Send(event, payload)
		}
	}
}

func (c *Controller) sendToSeatLocked(seatID string, event protocol.MessageType, payload any) {
	if s := c.seatLocked(seatID); s != nil && s.sink != nil {
		s.sink.Send(event, payload)
	}
}

// engineIntentError maps engine rejections onto wire error codes.
func engineIntentError(err error) error {
	code := protocol.CodeIllegalAction
	switch {
	case errors.Is(err, game.ErrNotPlayersTurn):
		code = protocol.CodeNotYourTurn
	case errors.Is(err, game.ErrUnknownSeat):
		code = protocol.CodeUnknownSeat
	case errors.Is(err, game.ErrAmountBelowMin):
		code = protocol.CodeAmountBelowMin
	case errors.Is(err, game.ErrInvalidAmount):
		code = protocol.CodeInvalidAmount
	}
	return &IntentError{Code: code, Message: err.Error()}
}

// legalActionInfos converts engine action bounds to their wire form.
func legalActionInfos(actions []game.LegalAction) []protocol.LegalActionInfo {
	infos := make([]protocol.LegalActionInfo, len(actions))
	for i, la := range actions {
		infos[i] = protocol.LegalActionInfo{Type: la.Type.String(), Min: la.Min, Max: la.Max}
	}
	return infos
}
