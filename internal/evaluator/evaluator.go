package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/cardroom/internal/deck"
)

// scoreBase spaces the positional digits of a hand score. Any base above the
// highest rank (14) keeps the digits independent.
const scoreBase = 16

// ErrTooFewCards is returned when fewer than five cards are evaluated
var ErrTooFewCards = errors.New("evaluator: need at least 5 cards")

// HandValue is the result of evaluating a set of cards: the best five-card
// hand, its category, and a score that totally orders hands under standard
// no-limit hold'em rules. Higher score beats lower.
type HandValue struct {
	Rank  HandRank
	Score int64
	Best  []deck.Card
}

// String returns the readable category of the hand
func (v HandValue) String() string {
	return v.Rank.String()
}

// Evaluate returns the strongest five-card hand selectable from 5 to 7 cards.
// All C(n,5) subsets are scored and the maximum wins; the result depends only
// on the card set, never on its order.
func Evaluate(cards []deck.Card) (HandValue, error) {
	if len(cards) < 5 {
		return HandValue{}, fmt.Errorf("%w, got %d", ErrTooFewCards, len(cards))
	}

	best := HandValue{Score: -1}
	for _, combo := range combinations(cards, 5) {
		hv := evaluate5(combo)
		if hv.Score > best.Score {
			best = hv
		}
	}
	return best, nil
}

// combinations returns all k-card subsets of cards
func combinations(cards []deck.Card, k int) [][]deck.Card {
	var result [][]deck.Card
	var combo []deck.Card

	var gen func(start int)
	gen = func(start int) {
		if len(combo) == k {
			subset := make([]deck.Card, k)
			copy(subset, combo)
			result = append(result, subset)
			return
		}
		for i := start; i < len(cards); i++ {
			combo = append(combo, cards[i])
			gen(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	gen(0)
	return result
}

// evaluate5 scores exactly five cards
func evaluate5(cards []deck.Card) HandValue {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = c.Value()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	flush := true
	for i := 1; i < len(cards); i++ {
		if cards[i].Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straightHigh, straight := straightHighCard(ranks)

	counts := make(map[int]int)
	for _, r := range ranks {
		counts[r]++
	}
	groups := rankGroups(counts)

	best := make([]deck.Card, len(cards))
	copy(best, cards)

	switch {
	case flush && straight && straightHigh == int(deck.Ace):
		return HandValue{Rank: RoyalFlush, Score: encode(RoyalFlush, straightHigh, 0, 0, 0, 0, 0), Best: best}
	case flush && straight:
		return HandValue{Rank: StraightFlush, Score: encode(StraightFlush, straightHigh, 0, 0, 0, 0, 0), Best: best}
	case groups[0].count == 4:
		return HandValue{Rank: FourOfAKind, Score: encode(FourOfAKind, groups[0].rank, 0, groups[1].rank, 0, 0, 0), Best: best}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandValue{Rank: FullHouse, Score: encode(FullHouse, groups[0].rank, groups[1].rank, 0, 0, 0, 0), Best: best}
	case flush:
		return HandValue{Rank: Flush, Score: encode(Flush, ranks[0], 0, ranks[1], ranks[2], ranks[3], ranks[4]), Best: best}
	case straight:
		return HandValue{Rank: Straight, Score: encode(Straight, straightHigh, 0, 0, 0, 0, 0), Best: best}
	case groups[0].count == 3:
		return HandValue{Rank: ThreeOfAKind, Score: encode(ThreeOfAKind, groups[0].rank, 0, groups[1].rank, groups[2].rank, 0, 0), Best: best}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandValue{Rank: TwoPair, Score: encode(TwoPair, groups[0].rank, groups[1].rank, groups[2].rank, 0, 0, 0), Best: best}
	case groups[0].count == 2:
		return HandValue{Rank: OnePair, Score: encode(OnePair, groups[0].rank, 0, groups[1].rank, groups[2].rank, groups[3].rank, 0), Best: best}
	default:
		return HandValue{Rank: HighCard, Score: encode(HighCard, ranks[0], 0, ranks[1], ranks[2], ranks[3], ranks[4]), Best: best}
	}
}

// straightHighCard reports whether five descending-sorted ranks form a
// straight and returns its high card. The wheel A-5-4-3-2 counts with high
// card 5, not ace, so a wheel loses to the 6-high straight.
func straightHighCard(ranks []int) (int, bool) {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return 0, false
		}
	}
	if ranks[0]-ranks[4] == 4 {
		return ranks[0], true
	}
	if ranks[0] == int(deck.Ace) && ranks[1] == 5 && ranks[2] == 4 && ranks[3] == 3 && ranks[4] == 2 {
		return 5, true
	}
	return 0, false
}

type rankGroup struct {
	rank  int
	count int
}

// rankGroups orders the distinct ranks by count then rank, both descending,
// which is exactly the primary/secondary/kicker priority for scoring
func rankGroups(counts map[int]int) []rankGroup {
	groups := make([]rankGroup, 0, len(counts))
	for r, c := range counts {
		groups = append(groups, rankGroup{rank: r, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

// encode builds the positional score: the category, then primary, secondary
// and kicker ranks as base-16 digits, most significant first
func encode(rank HandRank, primary, secondary, k1, k2, k3, k4 int) int64 {
	score := int64(rank)
	for _, digit := range [...]int{primary, secondary, k1, k2, k3, k4} {
		score = score*scoreBase + int64(digit)
	}
	return score
}
