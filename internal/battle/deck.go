package battle

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sort"

	"ecocards/internal/model"
)

// ValidateSelection checks that exactly DeckSize distinct, non-empty ids were chosen
func ValidateSelection(cardIDs []string) error {
	if len(cardIDs) != model.DeckSize {
		return Errorf(ErrInvalidSelection, "exactly %d cards must be selected, got %d", model.DeckSize, len(cardIDs))
	}
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if id == "" {
			return Errorf(ErrInvalidSelection, "card id must not be empty")
		}
		if seen[id] {
			return Errorf(ErrInvalidSelection, "card %q selected twice", id)
		}
		seen[id] = true
	}
	return nil
}

// NewDeck builds a fresh deck with its cursor at the first card
func NewDeck(owner string, cardIDs []string, seed int64) (*model.Deck, error) {
	if err := ValidateSelection(cardIDs); err != nil {
		return nil, err
	}
	return &model.Deck{
		Owner:       owner,
		Cards:       append([]string(nil), cardIDs...),
		ShuffleSeed: seed,
	}, nil
}

// NewSeed returns a random shuffle seed
func NewSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.Int63()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// Order derives the presentation order of a deck. The ids are sorted first so
// the result depends only on the card set and the seed, and the seeded
// math/rand source yields the same sequence in every process.
func Order(d *model.Deck) []string {
	order := append([]string(nil), d.Cards...)
	sort.Strings(order)
	r := rand.New(rand.NewSource(d.ShuffleSeed))
	r.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// CurrentCardID returns the card at the deck's cursor
func CurrentCardID(d *model.Deck) (string, error) {
	if d == nil {
		return "", ErrDeckNotSelected
	}
	order := Order(d)
	if d.CurrentCardIndex < 0 || d.CurrentCardIndex >= len(order) {
		return "", ErrDeckExhausted
	}
	return order[d.CurrentCardIndex], nil
}

// Advance moves the cursor to the next card
func Advance(d *model.Deck) {
	d.CurrentCardIndex++
}

// Remaining is the number of cards not yet played
func Remaining(d *model.Deck) int {
	if d == nil {
		return 0
	}
	n := len(d.Cards) - d.CurrentCardIndex
	if n < 0 {
		return 0
	}
	return n
}

// Exhausted reports whether the cursor has passed the last card
func Exhausted(d *model.Deck) bool {
	return Remaining(d) == 0
}
