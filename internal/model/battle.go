package model

import (
	"fmt"
	"time"
)

// DeckSize is the number of cards each player brings into a battle
const DeckSize = 4

// Phase is the lifecycle state of a battle
type Phase string

const (
	PhaseAwaitingOpponent Phase = "awaiting_opponent"
	PhaseSelectingCards   Phase = "selecting_cards"
	PhaseReadyCheck       Phase = "ready_check"
	PhaseInProgress       Phase = "in_progress"
	PhaseCompleted        Phase = "completed"
)

// EndReason records why a battle reached the completed phase
type EndReason string

const (
	EndDecksExhausted EndReason = "decks_exhausted"
	EndOpponentLeft   EndReason = "opponent_left"
	EndTurnTimeout    EndReason = "turn_timeout"
)

// Seat identifies one of the two participant slots of a battle
type Seat int

const (
	SeatNone Seat = iota
	Player1
	Player2
)

// Other returns the opposing seat
func (s Seat) Other() Seat {
	switch s {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return SeatNone
}

func (s Seat) String() string {
	switch s {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	}
	return ""
}

// MarshalText encodes the seat as "player1"/"player2" on the wire
func (s Seat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a seat written by MarshalText
func (s *Seat) UnmarshalText(text []byte) error {
	switch string(text) {
	case "player1":
		*s = Player1
	case "player2":
		*s = Player2
	case "":
		*s = SeatNone
	default:
		return fmt.Errorf("unknown seat %q", string(text))
	}
	return nil
}

// Participant is an authenticated player occupying a seat
type Participant struct {
	UserID   string `json:"user_id" bson:"userId"`
	Username string `json:"username" bson:"username"`
}

// Deck is a player's selection for one battle. Only the card set, the seed
// and the cursor are stored; the presentation order is derived from them.
type Deck struct {
	Owner            string   `json:"owner" bson:"owner"`
	Cards            []string `json:"cards" bson:"cards"`
	ShuffleSeed      int64    `json:"shuffle_seed" bson:"shuffleSeed"`
	CurrentCardIndex int      `json:"current_card_index" bson:"currentCardIndex"`
}

// Battle is the authoritative state of one two-player match
type Battle struct {
	ID            string       `json:"id"` // unique per battle; room ids can be reused
	RoomID        string       `json:"room_id"`
	Player1       *Participant `json:"player1"`
	Player2       *Participant `json:"player2,omitempty"`
	Phase         Phase        `json:"phase"`
	CurrentTurn   Seat         `json:"current_turn"`
	Player1Ready  bool         `json:"player1_ready"`
	Player2Ready  bool         `json:"player2_ready"`
	Player1Score  int          `json:"player1_score"`
	Player2Score  int          `json:"player2_score"`
	Winner        string       `json:"winner,omitempty"` // user ID, empty on tie or undecided
	Player1Deck   *Deck        `json:"player1_deck,omitempty"`
	Player2Deck   *Deck        `json:"player2_deck,omitempty"`
	EndReason     EndReason    `json:"end_reason,omitempty"`
	Version       int64        `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	TurnStartedAt *time.Time   `json:"turn_started_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// SeatOf returns the seat held by userID, or SeatNone
func (b *Battle) SeatOf(userID string) Seat {
	if b.Player1 != nil && b.Player1.UserID == userID {
		return Player1
	}
	if b.Player2 != nil && b.Player2.UserID == userID {
		return Player2
	}
	return SeatNone
}

// Participant returns who sits in seat, nil if the seat is empty
func (b *Battle) Participant(seat Seat) *Participant {
	switch seat {
	case Player1:
		return b.Player1
	case Player2:
		return b.Player2
	}
	return nil
}

// Deck returns the deck of the given seat
func (b *Battle) Deck(seat Seat) *Deck {
	switch seat {
	case Player1:
		return b.Player1Deck
	case Player2:
		return b.Player2Deck
	}
	return nil
}

// SetDeck replaces the deck of the given seat
func (b *Battle) SetDeck(seat Seat, d *Deck) {
	switch seat {
	case Player1:
		b.Player1Deck = d
	case Player2:
		b.Player2Deck = d
	}
}

// Ready reports the ready flag of the given seat
func (b *Battle) Ready(seat Seat) bool {
	switch seat {
	case Player1:
		return b.Player1Ready
	case Player2:
		return b.Player2Ready
	}
	return false
}

// SetReady marks the given seat ready
func (b *Battle) SetReady(seat Seat) {
	switch seat {
	case Player1:
		b.Player1Ready = true
	case Player2:
		b.Player2Ready = true
	}
}

// Score returns the score of the given seat
func (b *Battle) Score(seat Seat) int {
	switch seat {
	case Player1:
		return b.Player1Score
	case Player2:
		return b.Player2Score
	}
	return 0
}

// AddScore adds points to the given seat
func (b *Battle) AddScore(seat Seat, points int) {
	switch seat {
	case Player1:
		b.Player1Score += points
	case Player2:
		b.Player2Score += points
	}
}

// IsFull reports whether both seats are taken
func (b *Battle) IsFull() bool {
	return b.Player1 != nil && b.Player2 != nil
}

// IsCompleted reports whether the battle is in its terminal phase
func (b *Battle) IsCompleted() bool {
	return b.Phase == PhaseCompleted
}

// Clone returns a deep copy so callers can mutate without touching the original
func (b *Battle) Clone() *Battle {
	if b == nil {
		return nil
	}
	cp := *b
	if b.Player1 != nil {
		p := *b.Player1
		cp.Player1 = &p
	}
	if b.Player2 != nil {
		p := *b.Player2
		cp.Player2 = &p
	}
	cp.Player1Deck = cloneDeck(b.Player1Deck)
	cp.Player2Deck = cloneDeck(b.Player2Deck)
	cp.TurnStartedAt = cloneTime(b.TurnStartedAt)
	cp.CompletedAt = cloneTime(b.CompletedAt)
	return &cp
}

func cloneDeck(d *Deck) *Deck {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Cards = append([]string(nil), d.Cards...)
	return &cp
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}
