package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatAccessors(t *testing.T) {
	b := &Battle{
		Player1: &Participant{UserID: "u1"},
		Player2: &Participant{UserID: "u2"},
	}

	b.SetReady(Player2)
	assert.False(t, b.Ready(Player1))
	assert.True(t, b.Ready(Player2))
	assert.False(t, b.Ready(SeatNone))

	b.AddScore(Player1, 3)
	b.AddScore(Player1, 1)
	b.AddScore(SeatNone, 5)
	assert.Equal(t, 4, b.Score(Player1))
	assert.Equal(t, 0, b.Score(Player2))
	assert.Equal(t, 0, b.Score(SeatNone))

	assert.Equal(t, Player2, b.SeatOf("u2"))
	assert.Equal(t, SeatNone, b.SeatOf("u3"))
}

func TestCloneIsDeep(t *testing.T) {
	b := &Battle{
		ID:          "b1",
		Player1:     &Participant{UserID: "u1"},
		Player1Deck: &Deck{Owner: "u1", Cards: []string{"Oak"}},
	}
	cp := b.Clone()
	cp.Player1.UserID = "mallory"
	cp.Player1Deck.Cards[0] = "Fern"

	assert.Equal(t, "b1", cp.ID)
	assert.Equal(t, "u1", b.Player1.UserID)
	assert.Equal(t, "Oak", b.Player1Deck.Cards[0])
}
