package game

import (
	"reflect"
	"testing"
)

func contributor(id string, totalBet int, status PlayerStatus) *Player {
	return &Player{ID: id, Name: id, TotalBet: totalBet, Status: status}
}

func TestBuildPots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		players  []*Player
		expected []Pot
	}{
		{
			name: "no all-ins, single pot",
			players: []*Player{
				contributor("a", 100, StatusActive),
				contributor("b", 100, StatusActive),
				contributor("c", 100, StatusActive),
			},
			expected: []Pot{
				{Amount: 300, Eligible: []string{"a", "b", "c"}},
			},
		},
		{
			name: "one short all-in creates a side pot",
			players: []*Player{
				contributor("a", 50, StatusAllIn),
				contributor("b", 100, StatusActive),
				contributor("c", 100, StatusActive),
			},
			expected: []Pot{
				{Amount: 150, Eligible: []string{"a", "b", "c"}},
				{Amount: 100, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "all-ins at three levels",
			players: []*Player{
				contributor("a", 25, StatusAllIn),
				contributor("b", 75, StatusAllIn),
				contributor("c", 150, StatusActive),
			},
			expected: []Pot{
				{Amount: 75, Eligible: []string{"a", "b", "c"}},
				{Amount: 100, Eligible: []string{"b", "c"}},
				{Amount: 75, Eligible: []string{"c"}},
			},
		},
		{
			name: "folded chips stay in but the seat is not eligible",
			players: []*Player{
				contributor("a", 50, StatusFolded),
				contributor("b", 100, StatusAllIn),
				contributor("c", 100, StatusActive),
			},
			expected: []Pot{
				{Amount: 250, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "fold between levels merges pots with the same seats",
			players: []*Player{
				contributor("a", 60, StatusFolded),
				contributor("b", 200, StatusActive),
				contributor("c", 200, StatusActive),
			},
			expected: []Pot{
				{Amount: 460, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "everyone all-in for the same amount",
			players: []*Player{
				contributor("a", 100, StatusAllIn),
				contributor("b", 100, StatusAllIn),
				contributor("c", 100, StatusAllIn),
			},
			expected: []Pot{
				{Amount: 300, Eligible: []string{"a", "b", "c"}},
			},
		},
		{
			name: "short all-in against two covering stacks",
			players: []*Player{
				contributor("a", 200, StatusAllIn),
				contributor("b", 500, StatusAllIn),
				contributor("c", 500, StatusAllIn),
			},
			expected: []Pot{
				{Amount: 600, Eligible: []string{"a", "b", "c"}},
				{Amount: 600, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "seat with nothing committed is skipped",
			players: []*Player{
				contributor("a", 0, StatusFolded),
				contributor("b", 40, StatusActive),
				contributor("c", 40, StatusActive),
			},
			expected: []Pot{
				{Amount: 80, Eligible: []string{"b", "c"}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pots := BuildPots(tc.players)
			if len(pots) != len(tc.expected) {
				t.Fatalf("Expected %d pots, got %d: %+v", len(tc.expected), len(pots), pots)
			}
			for i, expected := range tc.expected {
				if pots[i].Amount != expected.Amount {
					t.Errorf("Pot %d: expected amount %d, got %d", i, expected.Amount, pots[i].Amount)
				}
				if !reflect.DeepEqual(pots[i].Eligible, expected.Eligible) {
					t.Errorf("Pot %d: expected eligible %v, got %v", i, expected.Eligible, pots[i].Eligible)
				}
			}
		})
	}
}

func TestBuildPotsConservesChips(t *testing.T) {
	t.Parallel()

	players := []*Player{
		contributor("a", 17, StatusAllIn),
		contributor("b", 230, StatusFolded),
		contributor("c", 411, StatusAllIn),
		contributor("d", 411, StatusActive),
		contributor("e", 90, StatusFolded),
	}

	total := 0
	for _, p := range players {
		total += p.TotalBet
	}

	potTotal := 0
	for _, pot := range BuildPots(players) {
		potTotal += pot.Amount
	}
	if potTotal != total {
		t.Errorf("Pots hold %d, contributions were %d", potTotal, total)
	}
}

func TestSplitUncalled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		pots           []Pot
		expectedPots   []Pot
		expectUncalled *Pot
	}{
		{
			name: "single-seat top pot is an uncalled bet",
			pots: []Pot{
				{Amount: 600, Eligible: []string{"a", "b"}},
				{Amount: 700, Eligible: []string{"a"}},
			},
			expectedPots: []Pot{
				{Amount: 600, Eligible: []string{"a", "b"}},
			},
			expectUncalled: &Pot{Amount: 700, Eligible: []string{"a"}},
		},
		{
			name: "contested top pot stays",
			pots: []Pot{
				{Amount: 300, Eligible: []string{"a", "b", "c"}},
				{Amount: 200, Eligible: []string{"b", "c"}},
			},
			expectedPots: []Pot{
				{Amount: 300, Eligible: []string{"a", "b", "c"}},
				{Amount: 200, Eligible: []string{"b", "c"}},
			},
		},
		{
			name: "single pot with one seat still comes back",
			pots: []Pot{
				{Amount: 30, Eligible: []string{"a"}},
			},
			expectedPots:   []Pot{},
			expectUncalled: &Pot{Amount: 30, Eligible: []string{"a"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pots, uncalled := SplitUncalled(tc.pots)
			if len(pots) != len(tc.expectedPots) {
				t.Fatalf("Expected %d pots, got %d: %+v", len(tc.expectedPots), len(pots), pots)
			}
			for i, expected := range tc.expectedPots {
				if !reflect.DeepEqual(pots[i], expected) {
					t.Errorf("Pot %d: expected %+v, got %+v", i, expected, pots[i])
				}
			}
			switch {
			case tc.expectUncalled == nil && uncalled != nil:
				t.Errorf("Expected no uncalled pot, got %+v", uncalled)
			case tc.expectUncalled != nil && uncalled == nil:
				t.Errorf("Expected uncalled pot %+v, got none", tc.expectUncalled)
			case tc.expectUncalled != nil && uncalled != nil:
				if !reflect.DeepEqual(*uncalled, *tc.expectUncalled) {
					t.Errorf("Expected uncalled %+v, got %+v", tc.expectUncalled, uncalled)
				}
			}
		})
	}
}
