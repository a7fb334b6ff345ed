package game

import "sort"

// Pot is one layer of the betting: an amount and the seats entitled to win it
type Pot struct {
	Amount   int
	Eligible []string
}

// BuildPots derives the ordered side pots from each player's total
// contribution and fold status. Chips a folded seat committed stay inside
// the pots at their contribution levels, but the folder is never eligible to
// win them. Adjacent pots with identical eligible sets are merged; the sum
// of all pot amounts always equals the sum of contributions.
func BuildPots(players []*Player) []Pot {
	levels := contributionLevels(players)
	if len(levels) == 0 {
		return nil
	}

	var pots []Pot
	carried := 0
	prev := 0
	for _, level := range levels {
		pot := Pot{Amount: carried}
		carried = 0
		for _, p := range players {
			contrib := p.TotalBet
			if contrib > level {
				contrib = level
			}
			if contrib > prev {
				pot.Amount += contrib - prev
			}
			if p.Status != StatusFolded && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, p.ID)
			}
		}
		prev = level
		if len(pot.Eligible) == 0 {
			// a layer whose contributors all folded cannot stand alone
			carried = pot.Amount
			continue
		}
		pots = append(pots, pot)
	}
	if carried > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += carried
	}

	return mergeEqualEligible(pots)
}

// SplitUncalled removes the top pot when exactly one seat is eligible for
// it: nobody matched that layer, so it returns to its owner without
// evaluation. The remaining pots are returned unchanged.
func SplitUncalled(pots []Pot) ([]Pot, *Pot) {
	if len(pots) == 0 {
		return pots, nil
	}
	last := pots[len(pots)-1]
	if len(last.Eligible) != 1 {
		return pots, nil
	}
	return pots[:len(pots)-1], &last
}

// contributionLevels returns the distinct positive contribution totals in
// ascending order
func contributionLevels(players []*Player) []int {
	seen := make(map[int]bool)
	var levels []int
	for _, p := range players {
		if p.TotalBet > 0 && !seen[p.TotalBet] {
			seen[p.TotalBet] = true
			levels = append(levels, p.TotalBet)
		}
	}
	sort.Ints(levels)
	return levels
}

func mergeEqualEligible(pots []Pot) []Pot {
	if len(pots) < 2 {
		return pots
	}
	merged := pots[:1]
	for _, pot := range pots[1:] {
		last := &merged[len(merged)-1]
		if equalSeatSets(last.Eligible, pot.Eligible) {
			last.Amount += pot.Amount
		} else {
			merged = append(merged, pot)
		}
	}
	return merged
}

func equalSeatSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
