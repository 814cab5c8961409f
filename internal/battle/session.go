package battle

import (
	"time"

	"ecocards/internal/model"

	"github.com/google/uuid"
)

// EnterResult tells how a connection was placed into a battle
type EnterResult int

const (
	Created EnterResult = iota + 1
	Joined
	Rejoined
)

// Points awarded on completion
const (
	WinPoints  = 10
	LosePoints = 2
	TiePoints  = 5
)

// Round scoring
const (
	RoundWinScore = 3
	RoundTieScore = 1
)

// NewBattle creates a battle with p in the first seat
func NewBattle(roomID string, p model.Participant, now time.Time) *model.Battle {
	return &model.Battle{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Player1:   &p,
		Phase:     model.PhaseAwaitingOpponent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Enter seats p in b. Existing participants rejoin without any change; a
// third identity is refused with ErrRoomFull.
func Enter(b *model.Battle, p model.Participant) (EnterResult, error) {
	if b.SeatOf(p.UserID) != model.SeatNone {
		return Rejoined, nil
	}
	if b.IsFull() {
		return 0, ErrRoomFull
	}
	if b.IsCompleted() {
		return 0, ErrBattleCompleted
	}

	joined := p
	b.Player2 = &joined
	b.Phase = model.PhaseSelectingCards
	if b.Player1Deck != nil && b.Player2Deck != nil {
		b.Phase = model.PhaseReadyCheck
	}
	return Joined, nil
}

// SelectCards installs deck for userID. Allowed until the battle starts.
func SelectCards(b *model.Battle, userID string, deck *model.Deck) error {
	seat := b.SeatOf(userID)
	if seat == model.SeatNone {
		return ErrNotParticipant
	}
	switch b.Phase {
	case model.PhaseCompleted:
		return ErrBattleCompleted
	case model.PhaseInProgress:
		return Errorf(ErrWrongPhase, "cards cannot be changed once the battle has started")
	}

	b.SetDeck(seat, deck)
	if b.Phase == model.PhaseSelectingCards && b.Player1Deck != nil && b.Player2Deck != nil {
		b.Phase = model.PhaseReadyCheck
	}
	return nil
}

// Ready marks userID ready and starts the battle once both players are.
// It reports whether this call started the battle.
func Ready(b *model.Battle, userID string, now time.Time) (bool, error) {
	seat := b.SeatOf(userID)
	if seat == model.SeatNone {
		return false, ErrNotParticipant
	}
	switch b.Phase {
	case model.PhaseCompleted:
		return false, ErrBattleCompleted
	case model.PhaseInProgress:
		return false, Errorf(ErrWrongPhase, "battle already started")
	}
	if b.Deck(seat) == nil {
		return false, ErrDeckNotSelected
	}

	b.SetReady(seat)
	if !b.IsFull() || !b.Ready(seat.Other()) || b.Deck(seat.Other()) == nil {
		return false, nil
	}

	b.Phase = model.PhaseInProgress
	b.CurrentTurn = model.Player1
	t := now
	b.TurnStartedAt = &t
	return true, nil
}

// Leave handles a participant going away. The remaining participant wins;
// with nobody left to win the room stays open. It reports whether b changed.
func Leave(b *model.Battle, userID string, now time.Time) bool {
	if b.IsCompleted() {
		return false
	}
	seat := b.SeatOf(userID)
	if seat == model.SeatNone {
		return false
	}
	if b.Participant(seat.Other()) == nil {
		return false
	}
	Forfeit(b, seat, model.EndOpponentLeft, now)
	return true
}

// Forfeit completes b with loser losing regardless of score
func Forfeit(b *model.Battle, loser model.Seat, reason model.EndReason, now time.Time) {
	finish(b, reason, now)
	if winner := b.Participant(loser.Other()); winner != nil {
		b.Winner = winner.UserID
	}
}

// CheckTurn verifies that userID may choose a stat now
func CheckTurn(b *model.Battle, userID string) (model.Seat, error) {
	seat := b.SeatOf(userID)
	if seat == model.SeatNone {
		return model.SeatNone, ErrNotParticipant
	}
	if b.IsCompleted() {
		return model.SeatNone, ErrBattleCompleted
	}
	if b.Phase != model.PhaseInProgress || b.CurrentTurn != seat {
		return model.SeatNone, ErrNotYourTurn
	}
	return seat, nil
}

// Complete ends b on score: strictly higher score wins, equal scores tie
func Complete(b *model.Battle, reason model.EndReason, now time.Time) {
	finish(b, reason, now)
	p1, p2 := b.Score(model.Player1), b.Score(model.Player2)
	switch {
	case p1 > p2:
		b.Winner = b.Player1.UserID
	case p2 > p1 && b.Player2 != nil:
		b.Winner = b.Player2.UserID
	}
}

func finish(b *model.Battle, reason model.EndReason, now time.Time) {
	t := now
	b.Phase = model.PhaseCompleted
	b.EndReason = reason
	b.CompletedAt = &t
	b.TurnStartedAt = nil
	b.Winner = ""
}

// Awards returns the points each participant earns from a completed battle
func Awards(b *model.Battle) map[string]int {
	points := make(map[string]int)
	if !b.IsCompleted() || !b.IsFull() {
		return points
	}
	if b.Winner == "" {
		points[b.Player1.UserID] = TiePoints
		points[b.Player2.UserID] = TiePoints
		return points
	}
	for _, p := range []*model.Participant{b.Player1, b.Player2} {
		if p.UserID == b.Winner {
			points[p.UserID] = WinPoints
		} else {
			points[p.UserID] = LosePoints
		}
	}
	return points
}

// TurnExpired reports whether the current turn has been open longer than timeout
func TurnExpired(b *model.Battle, timeout time.Duration, now time.Time) bool {
	if timeout <= 0 || b.Phase != model.PhaseInProgress || b.TurnStartedAt == nil {
		return false
	}
	return now.Sub(*b.TurnStartedAt) >= timeout
}
