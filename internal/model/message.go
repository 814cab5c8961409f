package model

// EventType is the "event" discriminator of every WebSocket message
type EventType string

// Client -> server events
const (
	EventSelectCards         EventType = "select_cards"
	EventReady               EventType = "ready"
	EventSelectStat          EventType = "select_stat"
	EventRequestCurrentCards EventType = "request_current_cards"
)

// Server -> client events
const (
	EventBattleCreated   EventType = "battle_created"
	EventBattleJoined    EventType = "battle_joined"
	EventBattleRejoined  EventType = "battle_rejoined"
	EventBattleState     EventType = "battle_state"
	EventCardsSelected   EventType = "cards_selected"
	EventPlayerReady     EventType = "player_ready"
	EventCurrentCards    EventType = "current_cards"
	EventRoundResult     EventType = "round_result"
	EventBattleCompleted EventType = "battle_completed"
	EventPlayerLeft      EventType = "player_left"
	EventError           EventType = "error"
)

// InboundMessage is a client event
type InboundMessage struct {
	Event   EventType `json:"event"`
	CardIDs []string  `json:"card_ids,omitempty"`
	Stat    string    `json:"stat,omitempty"`
}

// OutboundMessage is a server event; only the fields relevant to Event are set
type OutboundMessage struct {
	Event   EventType     `json:"event"`
	RoomID  string        `json:"room_id,omitempty"`
	Player  string        `json:"player,omitempty"` // user the event is about
	State   *BattleView   `json:"state,omitempty"`
	CardIDs []string      `json:"card_ids,omitempty"`
	Cards   *CurrentCards `json:"cards,omitempty"`
	Round   *RoundResult  `json:"round,omitempty"`
	Result  *BattleResult `json:"result,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// BattleView is the client-facing snapshot of a battle. Deck contents are
// never included.
type BattleView struct {
	RoomID         string       `json:"room_id"`
	Phase          Phase        `json:"phase"`
	Player1        *Participant `json:"player1"`
	Player2        *Participant `json:"player2"`
	You            Seat         `json:"you,omitempty"`
	CurrentTurn    Seat         `json:"current_turn,omitempty"`
	Player1Ready   bool         `json:"player1_ready"`
	Player2Ready   bool         `json:"player2_ready"`
	Player1Cards   bool         `json:"player1_cards_selected"`
	Player2Cards   bool         `json:"player2_cards_selected"`
	Player1Score   int          `json:"player1_score"`
	Player2Score   int          `json:"player2_score"`
	RemainingCards int          `json:"remaining_cards"`
	Winner         *string      `json:"winner"`
	EndReason      EndReason    `json:"end_reason,omitempty"`
}

// CardSnapshot is a full view of a card, shown only to its holder
type CardSnapshot struct {
	Name                      string `json:"name"`
	Subtitle                  string `json:"subtitle"`
	Image                     string `json:"image"`
	EnvironmentalFriendliness int    `json:"environmental_friendliness"`
	Beauty                    int    `json:"beauty"`
	Cost                      int    `json:"cost"`
}

// NewCardSnapshot copies the displayable fields of a card
func NewCardSnapshot(c *Card) *CardSnapshot {
	return &CardSnapshot{
		Name:                      c.Name,
		Subtitle:                  c.Subtitle,
		Image:                     c.Image,
		EnvironmentalFriendliness: c.EnvironmentalFriendliness,
		Beauty:                    c.Beauty,
		Cost:                      c.Cost,
	}
}

// CurrentCards answers request_current_cards
type CurrentCards struct {
	Card           *CardSnapshot `json:"card"`
	Position       int           `json:"position"` // 1-based position in the deck
	RemainingCards int           `json:"remaining_cards"`
	CurrentTurn    Seat          `json:"current_turn"`
	YourTurn       bool          `json:"your_turn"`
}

// RoundCard is one side of a resolved round
type RoundCard struct {
	Player string `json:"player"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Value  int    `json:"value"`
}

// RoundOutcome is the result of comparing one stat
type RoundOutcome string

const (
	OutcomePlayer1 RoundOutcome = "player1"
	OutcomePlayer2 RoundOutcome = "player2"
	OutcomeTie     RoundOutcome = "tie"
)

// RoundResult describes a resolved round
type RoundResult struct {
	Stat           string       `json:"stat"`
	Player1Card    RoundCard    `json:"player1_card"`
	Player2Card    RoundCard    `json:"player2_card"`
	Outcome        RoundOutcome `json:"outcome"`
	Player1Score   int          `json:"player1_score"`
	Player2Score   int          `json:"player2_score"`
	NextTurn       Seat         `json:"next_turn,omitempty"`
	RemainingCards int          `json:"remaining_cards"`
	Completed      bool         `json:"completed"`
}

// BattleResult describes a completed battle
type BattleResult struct {
	Winner       *string        `json:"winner"`
	Player1Score int            `json:"player1_score"`
	Player2Score int            `json:"player2_score"`
	Reason       EndReason      `json:"reason"`
	Points       map[string]int `json:"points"`
}
