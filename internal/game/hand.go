package game

import (
	"fmt"
	rand "math/rand/v2"
	"sort"

	"github.com/lox/cardroom/internal/deck"
	"github.com/lox/cardroom/internal/evaluator"
)

// Participant describes a seat entering a hand
type Participant struct {
	ID    string
	Name  string
	Chips int
}

// Winner records one seat's share of a hand's distribution. Ranking is the
// hand category at showdown and empty for a win by fold.
type Winner struct {
	SeatID  string
	Name    string
	Amount  int
	Ranking string
}

// Result is the outcome of a completed hand
type Result struct {
	Winners        []Winner
	Pots           []Pot
	IsShowdown     bool
	UncalledSeatID string
	UncalledAmount int
}

// Hand is the state machine for a single hand of no-limit hold'em. Methods
// are synchronous and never block; the owning room serializes all access.
type Hand struct {
	Phase        Phase
	Board        []deck.Card
	Players      []*Player // participating seats in seating order
	DealerIndex  int
	CurrentIndex int
	Pot          int
	CurrentBet   int
	MinRaise     int
	SmallBlind   int
	BigBlind     int
	LastRaiserID string
	Result       *Result

	deck       *deck.Deck
	startTotal int // chip conservation reference
}

// NewHand starts a hand: seats in seating order, hole cards dealt, blinds
// posted. Heads-up the dealer posts the small blind and acts first preflop;
// with three or more seats the blinds sit left of the dealer and the seat
// after the big blind opens. A short stack posts what it has, but the full
// big blind is still the amount to match.
func NewHand(participants []Participant, dealerIndex, smallBlind, bigBlind int, rng *rand.Rand) (*Hand, error) {
	return newHand(participants, dealerIndex, smallBlind, bigBlind, deck.NewShuffled(rng))
}

func newHand(participants []Participant, dealerIndex, smallBlind, bigBlind int, d *deck.Deck) (*Hand, error) {
	if len(participants) < 2 {
		return nil, ErrTooFewPlayers
	}
	if dealerIndex < 0 || dealerIndex >= len(participants) {
		return nil, fmt.Errorf("dealer index %d out of range", dealerIndex)
	}
	if smallBlind <= 0 || bigBlind <= 0 {
		return nil, fmt.Errorf("blinds must be positive, got %d/%d", smallBlind, bigBlind)
	}

	h := &Hand{
		Phase:       Preflop,
		DealerIndex: dealerIndex,
		MinRaise:    bigBlind,
		SmallBlind:  smallBlind,
		BigBlind:    bigBlind,
		deck:        d,
	}
	for _, part := range participants {
		if part.Chips <= 0 {
			return nil, fmt.Errorf("participant %s has no chips", part.ID)
		}
		h.Players = append(h.Players, &Player{
			ID:     part.ID,
			Name:   part.Name,
			Chips:  part.Chips,
			Status: StatusActive,
		})
		h.startTotal += part.Chips
	}

	n := len(h.Players)
	var sbIndex, bbIndex int
	if n == 2 {
		sbIndex = dealerIndex
		bbIndex = (dealerIndex + 1) % n
	} else {
		sbIndex = (dealerIndex + 1) % n
		bbIndex = (dealerIndex + 2) % n
	}
	h.Players[dealerIndex].IsDealer = true
	h.Players[sbIndex].IsSmallBlind = true
	h.Players[bbIndex].IsBigBlind = true

	// two cards each, starting left of the dealer
	for i := 1; i <= n; i++ {
		p := h.Players[(dealerIndex+i)%n]
		cards, ok := h.deck.DealN(2)
		if !ok {
			return nil, fmt.Errorf("%w: deck exhausted dealing hole cards", ErrInvariant)
		}
		p.HoleCards = cards
	}

	h.commit(h.Players[sbIndex], min(smallBlind, h.Players[sbIndex].Chips))
	h.commit(h.Players[bbIndex], min(bigBlind, h.Players[bbIndex].Chips))
	h.CurrentBet = bigBlind
	h.LastRaiserID = h.Players[bbIndex].ID

	if n == 2 {
		h.CurrentIndex = sbIndex
	} else {
		h.CurrentIndex = (bbIndex + 1) % n
	}

	// posting the blinds can leave the opener, or everyone, all-in
	if h.bettingComplete() {
		if err := h.advancePhase(); err != nil {
			return nil, err
		}
	} else if !h.Players[h.CurrentIndex].CanAct() {
		next, ok := h.nextActive(h.CurrentIndex)
		if !ok {
			return nil, fmt.Errorf("%w: no seat can open the betting", ErrInvariant)
		}
		h.CurrentIndex = next
	}

	return h, nil
}

// Apply validates an action for a seat and applies it, then advances the
// turn, the street, or the hand as the state requires. A returned error
// other than ErrInvariant means nothing changed.
func (h *Hand) Apply(seatID string, action Action) error {
	if h.Phase >= Showdown {
		return ErrHandComplete
	}
	p := h.playerByID(seatID)
	if p == nil {
		return ErrUnknownSeat
	}
	if h.Players[h.CurrentIndex].ID != seatID {
		return ErrNotPlayersTurn
	}
	if !p.CanAct() {
		return ErrIllegalAction
	}

	switch action.Type {
	case Fold:
		p.Status = StatusFolded
	case Check:
		if h.CurrentBet != p.Bet {
			return ErrIllegalAction
		}
	case Call:
		toCall := h.CurrentBet - p.Bet
		if toCall <= 0 {
			return ErrIllegalAction
		}
		// a short call silently collapses to all-in
		h.commit(p, min(toCall, p.Chips))
	case Bet:
		if h.CurrentBet != 0 {
			return ErrIllegalAction
		}
		if err := h.raiseTo(p, action.Amount); err != nil {
			return err
		}
	case Raise:
		// Acted still set means the price rose only by an under-min
		// all-in, which does not restore this seat's right to raise
		if h.CurrentBet == 0 || p.Acted {
			return ErrIllegalAction
		}
		if err := h.raiseTo(p, action.Amount); err != nil {
			return err
		}
	case AllIn:
		target := p.Bet + p.Chips
		if target > h.CurrentBet {
			if err := h.raiseTo(p, target); err != nil {
				return err
			}
		} else {
			h.commit(p, p.Chips)
		}
	default:
		return ErrIllegalAction
	}

	p.Acted = true
	if err := h.advance(); err != nil {
		return err
	}
	if h.Phase < Showdown {
		return h.checkInvariants()
	}
	return nil
}

// ForceFold folds a seat out of turn. The room uses it when a seat leaves
// or goes unresponsive while it could still act; seats already folded or
// all-in are left alone. If the fold settles the street or the hand, play
// advances the same way it does after an in-turn action.
func (h *Hand) ForceFold(seatID string) error {
	if h.Phase >= Showdown {
		return ErrHandComplete
	}
	p := h.playerByID(seatID)
	if p == nil {
		return ErrUnknownSeat
	}
	if p.Status != StatusActive {
		return nil
	}
	wasCurrent := h.Players[h.CurrentIndex] == p
	p.Status = StatusFolded

	if h.remainingInHand() == 1 {
		return h.resolveFoldWin()
	}
	if h.bettingComplete() {
		if err := h.advancePhase(); err != nil {
			return err
		}
	} else if wasCurrent {
		next, ok := h.nextActive(h.CurrentIndex)
		if !ok {
			return fmt.Errorf("%w: no active seat to receive the action", ErrInvariant)
		}
		h.CurrentIndex = next
	}
	if h.Phase < Showdown {
		return h.checkInvariants()
	}
	return nil
}

// raiseTo moves a seat to a total street commitment. The minimum target is
// the big blind for an opening bet and currentBet+minRaise for a raise. An
// all-in below that minimum is allowed, but it neither updates minRaise nor
// reopens action for seats that already acted at the lower price. A full
// raise does both.
func (h *Hand) raiseTo(p *Player, target int) error {
	if target <= h.CurrentBet {
		return fmt.Errorf("%w: total %d must exceed current bet %d", ErrInvalidAmount, target, h.CurrentBet)
	}
	increment := target - p.Bet
	if increment <= 0 {
		return fmt.Errorf("%w: total %d is not above the seat's bet", ErrInvalidAmount, target)
	}
	if increment > p.Chips {
		return fmt.Errorf("%w: total %d needs %d chips, seat has %d", ErrInvalidAmount, target, increment, p.Chips)
	}

	minTarget := h.CurrentBet + h.MinRaise
	if h.CurrentBet == 0 {
		minTarget = h.BigBlind
	}
	if target < minTarget && increment != p.Chips {
		return fmt.Errorf("%w: total %d below minimum %d", ErrAmountBelowMin, target, minTarget)
	}

	prevBet := h.CurrentBet
	h.commit(p, increment)
	h.CurrentBet = target
	h.LastRaiserID = p.ID
	if target >= minTarget {
		h.MinRaise = target - prevBet
		for _, other := range h.Players {
			if other != p {
				other.Acted = false
			}
		}
	}
	return nil
}

// commit moves chips from the seat into its street bet, its hand
// contribution and the pot. A seat whose chips reach zero is all-in.
func (h *Hand) commit(p *Player, amount int) {
	if amount <= 0 {
		return
	}
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	h.Pot += amount
	if p.Chips == 0 {
		p.Status = StatusAllIn
	}
}

// advance runs after every action: resolve a fold win, advance the street
// when betting is settled, or pass the turn to the next active seat.
func (h *Hand) advance() error {
	if h.remainingInHand() == 1 {
		return h.resolveFoldWin()
	}
	if h.bettingComplete() {
		return h.advancePhase()
	}
	next, ok := h.nextActive(h.CurrentIndex)
	if !ok {
		return fmt.Errorf("%w: no active seat to receive the action", ErrInvariant)
	}
	h.CurrentIndex = next
	return nil
}

// bettingComplete reports whether every active seat has acted since the
// last full raise and matched the current bet. The big blind's preflop
// option falls out of the acted flags: posting a blind is not acting.
func (h *Hand) bettingComplete() bool {
	for _, p := range h.Players {
		if p.Status != StatusActive {
			continue
		}
		if !p.Acted || p.Bet != h.CurrentBet {
			return false
		}
	}
	return true
}

// advancePhase resets the street state and deals the next board cards.
// When fewer than two seats can still act the remaining streets run out
// with no further betting, straight to showdown.
func (h *Hand) advancePhase() error {
	for _, p := range h.Players {
		p.Bet = 0
		p.Acted = false
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind
	h.LastRaiserID = ""

	switch h.Phase {
	case Preflop:
		if err := h.dealBoard(3); err != nil {
			return err
		}
		h.Phase = Flop
	case Flop:
		if err := h.dealBoard(1); err != nil {
			return err
		}
		h.Phase = Turn
	case Turn:
		if err := h.dealBoard(1); err != nil {
			return err
		}
		h.Phase = River
	case River:
		h.Phase = Showdown
		return h.resolveShowdown()
	default:
		return fmt.Errorf("%w: cannot advance from phase %v", ErrInvariant, h.Phase)
	}

	if h.countActive() < 2 {
		return h.advancePhase()
	}

	next, ok := h.nextActive(h.DealerIndex)
	if !ok {
		return fmt.Errorf("%w: no active seat to open the street", ErrInvariant)
	}
	h.CurrentIndex = next
	return nil
}

func (h *Hand) dealBoard(n int) error {
	cards, ok := h.deck.DealN(n)
	if !ok {
		return fmt.Errorf("%w: deck exhausted dealing the board", ErrInvariant)
	}
	h.Board = append(h.Board, cards...)
	return nil
}

// resolveFoldWin awards the whole pot to the last seat holding cards
func (h *Hand) resolveFoldWin() error {
	var winner *Player
	for _, p := range h.Players {
		if p.InHand() {
			winner = p
			break
		}
	}
	if winner == nil {
		return fmt.Errorf("%w: fold win with no seat in hand", ErrInvariant)
	}

	winner.Chips += h.Pot
	h.Result = &Result{
		Winners:    []Winner{{SeatID: winner.ID, Name: winner.Name, Amount: h.Pot}},
		IsShowdown: false,
	}
	h.Phase = Complete
	return nil
}

// resolveShowdown builds the side pots, evaluates each live seat once, and
// distributes every pot to its best eligible hand. Ties split equally with
// the odd chip going to the first tied seat clockwise from the dealer. A
// top layer only one seat is eligible for is returned to that seat without
// evaluation.
func (h *Hand) resolveShowdown() error {
	pots, uncalled := SplitUncalled(BuildPots(h.Players))

	scores := make(map[string]evaluator.HandValue)
	for _, p := range h.Players {
		if !p.InHand() {
			continue
		}
		cards := make([]deck.Card, 0, len(p.HoleCards)+len(h.Board))
		cards = append(cards, p.HoleCards...)
		cards = append(cards, h.Board...)
		hv, err := evaluator.Evaluate(cards)
		if err != nil {
			return fmt.Errorf("%w: evaluating seat %s: %v", ErrInvariant, p.ID, err)
		}
		scores[p.ID] = hv
	}

	result := &Result{Pots: pots, IsShowdown: true}
	distributed := 0
	if uncalled != nil {
		refunded := h.playerByID(uncalled.Eligible[0])
		if refunded == nil {
			return fmt.Errorf("%w: uncalled bet for unknown seat", ErrInvariant)
		}
		refunded.Chips += uncalled.Amount
		result.UncalledSeatID = refunded.ID
		result.UncalledAmount = uncalled.Amount
		distributed += uncalled.Amount
	}

	winnings := make(map[string]int)
	for _, pot := range pots {
		best := int64(-1)
		var winners []string
		for _, id := range pot.Eligible {
			hv, ok := scores[id]
			if !ok {
				return fmt.Errorf("%w: eligible seat %s has no evaluated hand", ErrInvariant, id)
			}
			switch {
			case hv.Score > best:
				best = hv.Score
				winners = []string{id}
			case hv.Score == best:
				winners = append(winners, id)
			}
		}
		if len(winners) == 0 {
			return fmt.Errorf("%w: pot with no winner", ErrInvariant)
		}

		sort.Slice(winners, func(i, j int) bool {
			return h.clockwiseFromDealer(winners[i]) < h.clockwiseFromDealer(winners[j])
		})
		share := pot.Amount / len(winners)
		odd := pot.Amount % len(winners)
		for i, id := range winners {
			amount := share
			if i == 0 {
				amount += odd
			}
			winnings[id] += amount
		}
		distributed += pot.Amount
	}
	if distributed != h.Pot {
		return fmt.Errorf("%w: distributed %d of pot %d", ErrInvariant, distributed, h.Pot)
	}

	// aggregate per seat, reported clockwise from the dealer
	for i := 1; i <= len(h.Players); i++ {
		p := h.Players[(h.DealerIndex+i)%len(h.Players)]
		amount, won := winnings[p.ID]
		if !won {
			continue
		}
		p.Chips += amount
		result.Winners = append(result.Winners, Winner{
			SeatID:  p.ID,
			Name:    p.Name,
			Amount:  amount,
			Ranking: scores[p.ID].Rank.String(),
		})
	}

	h.Result = result
	h.Phase = Complete
	return nil
}

// Refund unwinds the hand after a fatal fault: every seat gets its
// contributions back and the hand completes with no result.
func (h *Hand) Refund() {
	for _, p := range h.Players {
		p.Chips += p.TotalBet
		p.TotalBet = 0
		p.Bet = 0
	}
	h.Pot = 0
	h.Result = nil
	h.Phase = Complete
}

// checkInvariants verifies the structural invariants that must hold between
// actions. A failure is fatal for the hand: the room aborts and refunds.
func (h *Hand) checkInvariants() error {
	contributions := 0
	chips := 0
	for _, p := range h.Players {
		contributions += p.TotalBet
		chips += p.Chips
	}
	if contributions != h.Pot {
		return fmt.Errorf("%w: pot %d != contributions %d", ErrInvariant, h.Pot, contributions)
	}
	if chips+h.Pot != h.startTotal {
		return fmt.Errorf("%w: chips %d + pot %d != starting total %d", ErrInvariant, chips, h.Pot, h.startTotal)
	}
	if !h.Players[h.CurrentIndex].CanAct() {
		return fmt.Errorf("%w: action is on a seat that cannot act", ErrInvariant)
	}
	return nil
}

// CurrentPlayer returns the seat whose action is pending, or nil once the
// hand has reached showdown
func (h *Hand) CurrentPlayer() *Player {
	if h.Phase >= Showdown {
		return nil
	}
	return h.Players[h.CurrentIndex]
}

// PlayerByID returns the participating seat with the given id, or nil
func (h *Hand) PlayerByID(seatID string) *Player {
	return h.playerByID(seatID)
}

func (h *Hand) playerByID(seatID string) *Player {
	for _, p := range h.Players {
		if p.ID == seatID {
			return p
		}
	}
	return nil
}

// nextActive returns the index of the first active seat after from,
// wrapping around the table
func (h *Hand) nextActive(from int) (int, bool) {
	n := len(h.Players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if h.Players[idx].CanAct() {
			return idx, true
		}
	}
	return 0, false
}

func (h *Hand) countActive() int {
	count := 0
	for _, p := range h.Players {
		if p.CanAct() {
			count++
		}
	}
	return count
}

func (h *Hand) remainingInHand() int {
	count := 0
	for _, p := range h.Players {
		if p.InHand() {
			count++
		}
	}
	return count
}

// clockwiseFromDealer orders seats for odd-chip and reporting purposes:
// zero is the seat directly after the dealer, the dealer itself is last
func (h *Hand) clockwiseFromDealer(seatID string) int {
	n := len(h.Players)
	for i, p := range h.Players {
		if p.ID == seatID {
			return (i - h.DealerIndex - 1 + n) % n
		}
	}
	return n
}
