package deck

import (
	rand "math/rand/v2"
)

// Deck represents a deck of playing cards. The random source is injected so
// hands can be replayed under a fixed seed in tests; production decks use a
// crypto-seeded source (see randutil.NewCrypto).
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a standard 52-card deck in canonical order
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	return d
}

// NewShuffled creates a full deck and shuffles it
func NewShuffled(rng *rand.Rand) *Deck {
	d := New(rng)
	d.Shuffle()
	return d
}

// NewStacked creates a deck that deals the given cards in order. Used to
// replay recorded deals and to fix the cards in tests.
func NewStacked(cards []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Shuffle randomizes the order of cards using Fisher-Yates
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealN deals n cards from the top of the deck. ok is false when the deck
// holds fewer than n cards, in which case no cards are removed.
func (d *Deck) DealN(n int) ([]Card, bool) {
	if n > len(d.cards) {
		return nil, false
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, true
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}
