// Package game implements the core no-limit Texas Hold'em hand engine.
//
// The main type is Hand, a synchronous state machine for a single hand:
// hole cards, blinds, the four betting streets, side pots and showdown.
// Hands are created from a snapshot of the seats and an injected RNG and
// are advanced one validated action at a time.
//
// # Basic Usage
//
//	participants := []game.Participant{
//		{ID: "a", Name: "Alice", Chips: 1000},
//		{ID: "b", Name: "Bob", Chips: 1000},
//	}
//	h, err := game.NewHand(participants, 0, 10, 20, rng)
//	// Drive the hand with validated actions
//	err = h.Apply("a", game.Action{Type: game.Call})
//	if h.Phase == game.Complete {
//		result := h.Result
//	}
//
// # Deterministic Testing
//
// The RNG is injected, so a fixed seed replays the same deal:
//
//	rng := randutil.New(42)
//	h, err := game.NewHand(participants, 0, 10, 20, rng)
//
// # Architecture
//
// Hand delegates to specialized components:
//   - LegalActions: derives the legal action set for the seat to act
//   - BuildPots / SplitUncalled: contribution layers and uncalled bets
//   - deck.Deck: shuffled cards with RNG injection
//   - evaluator.Evaluate: best five-card hand from five to seven cards
//
// Each hand is independent and never blocks; the owning room serializes
// access and applies the results back to its seats.
package game
