package game

import (
	"reflect"
	"testing"
)

// flopHand builds a hand mid-flop without playing to it, so legal-action
// derivation can be checked against exact state.
func flopHand(currentBet, minRaise int, players []*Player) *Hand {
	pot := 0
	chips := 0
	for _, p := range players {
		p.TotalBet = p.Bet
		pot += p.Bet
		chips += p.Chips
	}
	return &Hand{
		Phase:      Flop,
		Players:    players,
		CurrentBet: currentBet,
		MinRaise:   minRaise,
		SmallBlind: 10,
		BigBlind:   20,
		Pot:        pot,
		startTotal: chips + pot,
	}
}

func actionTypes(actions []LegalAction) []ActionType {
	types := make([]ActionType, len(actions))
	for i, a := range actions {
		types[i] = a.Type
	}
	return types
}

func findAction(actions []LegalAction, at ActionType) (LegalAction, bool) {
	for _, a := range actions {
		if a.Type == at {
			return a, true
		}
	}
	return LegalAction{}, false
}

func TestLegalActionsUnopenedStreet(t *testing.T) {
	t.Parallel()

	h := flopHand(0, 20, []*Player{
		{ID: "a", Chips: 500, Status: StatusActive},
		{ID: "b", Chips: 500, Status: StatusActive},
	})

	actions := h.LegalActions("a")
	expected := []ActionType{Fold, Check, Bet, AllIn}
	if !reflect.DeepEqual(actionTypes(actions), expected) {
		t.Fatalf("Expected %v, got %v", expected, actionTypes(actions))
	}

	bet, _ := findAction(actions, Bet)
	if bet.Min != 20 || bet.Max != 500 {
		t.Errorf("Bet bounds should be 20..500, got %d..%d", bet.Min, bet.Max)
	}
	allIn, _ := findAction(actions, AllIn)
	if allIn.Min != 500 || allIn.Max != 500 {
		t.Errorf("All-in should be exactly 500, got %d..%d", allIn.Min, allIn.Max)
	}
}

func TestLegalActionsFacingBet(t *testing.T) {
	t.Parallel()

	h := flopHand(100, 100, []*Player{
		{ID: "a", Chips: 400, Bet: 100, Status: StatusActive, Acted: true},
		{ID: "b", Chips: 500, Status: StatusActive},
	})

	actions := h.LegalActions("b")
	expected := []ActionType{Fold, Call, Raise, AllIn}
	if !reflect.DeepEqual(actionTypes(actions), expected) {
		t.Fatalf("Expected %v, got %v", expected, actionTypes(actions))
	}

	call, _ := findAction(actions, Call)
	if call.Min != 100 || call.Max != 100 {
		t.Errorf("Call should owe exactly 100, got %d..%d", call.Min, call.Max)
	}
	raise, _ := findAction(actions, Raise)
	if raise.Min != 200 || raise.Max != 500 {
		t.Errorf("Raise bounds should be 200..500, got %d..%d", raise.Min, raise.Max)
	}
}

func TestLegalActionsShortStackCall(t *testing.T) {
	t.Parallel()

	h := flopHand(100, 100, []*Player{
		{ID: "a", Chips: 400, Bet: 100, Status: StatusActive, Acted: true},
		{ID: "b", Chips: 60, Status: StatusActive},
	})

	actions := h.LegalActions("b")
	call, ok := findAction(actions, Call)
	if !ok {
		t.Fatal("Short stack should still be offered a call")
	}
	if call.Min != 60 || call.Max != 60 {
		t.Errorf("Call should be capped at the 60 remaining, got %d..%d", call.Min, call.Max)
	}
	if _, ok := findAction(actions, Raise); ok {
		t.Error("A stack that cannot exceed the bet has no raise")
	}
	allIn, _ := findAction(actions, AllIn)
	if allIn.Min != 60 {
		t.Errorf("All-in should be the 60 total, got %d", allIn.Min)
	}
}

func TestLegalActionsRaiseCappedByStack(t *testing.T) {
	t.Parallel()

	// covering the bet but short of a full raise leaves only the all-in raise
	h := flopHand(100, 100, []*Player{
		{ID: "a", Chips: 400, Bet: 100, Status: StatusActive, Acted: true},
		{ID: "b", Chips: 150, Status: StatusActive},
	})

	raise, ok := findAction(h.LegalActions("b"), Raise)
	if !ok {
		t.Fatal("Stack above the call amount should be offered a raise")
	}
	if raise.Min != 150 || raise.Max != 150 {
		t.Errorf("Raise should collapse to the 150 all-in, got %d..%d", raise.Min, raise.Max)
	}
}

func TestLegalActionsNoRaiseAfterActing(t *testing.T) {
	t.Parallel()

	// the price rose only by an under-min all-in, so a seat that already
	// acted may call or fold but not raise again
	h := flopHand(130, 100, []*Player{
		{ID: "a", Chips: 400, Bet: 100, Status: StatusActive, Acted: true},
		{ID: "b", Chips: 0, Bet: 130, Status: StatusAllIn, Acted: true},
		{ID: "c", Chips: 800, Bet: 100, Status: StatusActive, Acted: true},
	})

	actions := h.LegalActions("c")
	expected := []ActionType{Fold, Call, AllIn}
	if !reflect.DeepEqual(actionTypes(actions), expected) {
		t.Fatalf("Expected %v, got %v", expected, actionTypes(actions))
	}
	call, _ := findAction(actions, Call)
	if call.Min != 30 {
		t.Errorf("Call should owe the 30 difference, got %d", call.Min)
	}
}

func TestLegalActionsNoneForFoldedOrDone(t *testing.T) {
	t.Parallel()

	h := flopHand(0, 20, []*Player{
		{ID: "a", Chips: 500, Status: StatusFolded},
		{ID: "b", Chips: 0, Status: StatusAllIn},
		{ID: "c", Chips: 500, Status: StatusActive},
	})

	if actions := h.LegalActions("a"); actions != nil {
		t.Errorf("Folded seat should have no actions, got %v", actions)
	}
	if actions := h.LegalActions("b"); actions != nil {
		t.Errorf("All-in seat should have no actions, got %v", actions)
	}
	if actions := h.LegalActions("nobody"); actions != nil {
		t.Errorf("Unknown seat should have no actions, got %v", actions)
	}

	h.Phase = Complete
	if actions := h.LegalActions("c"); actions != nil {
		t.Errorf("Completed hand should have no actions, got %v", actions)
	}
}

func TestParseActionType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected ActionType
		wantErr  bool
	}{
		{input: "fold", expected: Fold},
		{input: "check", expected: Check},
		{input: "call", expected: Call},
		{input: "bet", expected: Bet},
		{input: "raise", expected: Raise},
		{input: "all-in", expected: AllIn},
		{input: "allin", expected: AllIn},
		{input: "shove", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseActionType(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %v", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("Expected %v for %q, got %v", tc.expected, tc.input, got)
			}
		})
	}
}

func TestActionTypeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, at := range []ActionType{Fold, Check, Call, Bet, Raise, AllIn} {
		parsed, err := ParseActionType(at.String())
		if err != nil {
			t.Fatalf("ParseActionType(%q): %v", at.String(), err)
		}
		if parsed != at {
			t.Errorf("%v did not round-trip, got %v", at, parsed)
		}
	}
}
