package game

import "fmt"

// Phase represents the stage of a hand
type Phase int

const (
	Preflop Phase = iota
	Flop
	Turn
	River
	Showdown
	Complete
)

func (p Phase) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown", "complete"}[p]
}

// ActionType represents a player action
type ActionType int

const (
	Fold ActionType = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionType) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "all-in"}[a]
}

// ParseActionType maps a wire action name onto its ActionType
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	case "all-in", "allin":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Action is a player's decision. For Bet and Raise, Amount is the total the
// seat commits to the current street after the action, not the increment.
type Action struct {
	Type   ActionType
	Amount int
}

// LegalAction describes one available action with its amount bounds. Min and
// Max are street totals for Bet and Raise, and the chips actually owed for
// Call. Fold and Check carry no amounts.
type LegalAction struct {
	Type ActionType
	Min  int
	Max  int
}

// LegalActions derives the actions currently available to a seat. A seat
// that is not active, or whose hand is over, has none. The derivation never
// mutates state, so it can be recomputed for views at any time.
func (h *Hand) LegalActions(seatID string) []LegalAction {
	p := h.playerByID(seatID)
	if p == nil || !p.CanAct() || h.Phase >= Showdown {
		return nil
	}

	toCall := h.CurrentBet - p.Bet
	maxTotal := p.Bet + p.Chips
	actions := []LegalAction{{Type: Fold}}

	if toCall == 0 {
		actions = append(actions, LegalAction{Type: Check})
	}
	if toCall > 0 && p.Chips > 0 {
		owed := toCall
		if owed > p.Chips {
			// calling short collapses to all-in on apply
			owed = p.Chips
		}
		actions = append(actions, LegalAction{Type: Call, Min: owed, Max: owed})
	}
	if h.CurrentBet == 0 && p.Chips > 0 {
		minTotal := h.BigBlind
		if minTotal > maxTotal {
			minTotal = maxTotal
		}
		actions = append(actions, LegalAction{Type: Bet, Min: minTotal, Max: maxTotal})
	}
	if h.CurrentBet > 0 && p.Chips > toCall && !p.Acted {
		// a seat that already acted sees a raise only after a full raise
		// reset its flag; an under-min all-in leaves it set
		minTotal := h.CurrentBet + h.MinRaise
		if minTotal > maxTotal {
			// only the all-in under-raise remains
			minTotal = maxTotal
		}
		actions = append(actions, LegalAction{Type: Raise, Min: minTotal, Max: maxTotal})
	}
	if p.Chips > 0 {
		actions = append(actions, LegalAction{Type: AllIn, Min: maxTotal, Max: maxTotal})
	}

	return actions
}

// HasLegalAction reports whether the seat may currently take the given
// action type
func (h *Hand) HasLegalAction(seatID string, actionType ActionType) bool {
	for _, la := range h.LegalActions(seatID) {
		if la.Type == actionType {
			return true
		}
	}
	return false
}
