package model

import "time"

// BattleRecord is the archived outcome of a completed battle
type BattleRecord struct {
	ID           string         `json:"id" bson:"_id"`
	RoomID       string         `json:"roomId" bson:"roomId"`
	Player1      Participant    `json:"player1" bson:"player1"`
	Player2      Participant    `json:"player2" bson:"player2"`
	Player1Score int            `json:"player1Score" bson:"player1Score"`
	Player2Score int            `json:"player2Score" bson:"player2Score"`
	Winner       string         `json:"winner,omitempty" bson:"winner,omitempty"`
	EndReason    EndReason      `json:"endReason" bson:"endReason"`
	Player1Deck  *Deck          `json:"player1Deck,omitempty" bson:"player1Deck,omitempty"`
	Player2Deck  *Deck          `json:"player2Deck,omitempty" bson:"player2Deck,omitempty"`
	Points       map[string]int `json:"points" bson:"points"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	CompletedAt  time.Time      `json:"completedAt" bson:"completedAt"`
}

// NewBattleRecord builds an archive entry from a completed battle
func NewBattleRecord(b *Battle, points map[string]int) *BattleRecord {
	rec := &BattleRecord{
		ID:           b.ID,
		RoomID:       b.RoomID,
		Player1Score: b.Player1Score,
		Player2Score: b.Player2Score,
		Winner:       b.Winner,
		EndReason:    b.EndReason,
		Player1Deck:  b.Player1Deck,
		Player2Deck:  b.Player2Deck,
		Points:       points,
		CreatedAt:    b.CreatedAt,
	}
	if b.Player1 != nil {
		rec.Player1 = *b.Player1
	}
	if b.Player2 != nil {
		rec.Player2 = *b.Player2
	}
	if b.CompletedAt != nil {
		rec.CompletedAt = *b.CompletedAt
	}
	return rec
}

// Battle rebuilds the completed battle the record was made from. Ready
// flags and the version are not archived.
func (r *BattleRecord) Battle() *Battle {
	completed := r.CompletedAt
	b := &Battle{
		ID:           r.ID,
		RoomID:       r.RoomID,
		Phase:        PhaseCompleted,
		Player1Score: r.Player1Score,
		Player2Score: r.Player2Score,
		Winner:       r.Winner,
		Player1Deck:  r.Player1Deck,
		Player2Deck:  r.Player2Deck,
		EndReason:    r.EndReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.CompletedAt,
		CompletedAt:  &completed,
	}
	if r.Player1.UserID != "" {
		p := r.Player1
		b.Player1 = &p
	}
	if r.Player2.UserID != "" {
		p := r.Player2
		b.Player2 = &p
	}
	return b
}
