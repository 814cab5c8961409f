package battle

import (
	"time"

	"ecocards/internal/model"
)

// CurrentCardIDs returns the card at the cursor of each deck
func CurrentCardIDs(b *model.Battle) (p1, p2 string, err error) {
	if p1, err = CurrentCardID(b.Player1Deck); err != nil {
		return "", "", err
	}
	if p2, err = CurrentCardID(b.Player2Deck); err != nil {
		return "", "", err
	}
	return p1, p2, nil
}

// RemainingCards is the number of rounds left: the smaller of both decks
func RemainingCards(b *model.Battle) int {
	r1, r2 := Remaining(b.Player1Deck), Remaining(b.Player2Deck)
	if r1 < r2 {
		return r1
	}
	return r2
}

// PlayRound resolves one round for the turn owner. card1 and card2 must be
// the current cards of player1 and player2. Both cursors advance together,
// the turn flips, and the battle completes when a deck runs out.
func PlayRound(b *model.Battle, userID string, stat Stat, card1, card2 *model.Card, now time.Time) (*model.RoundResult, error) {
	if _, err := CheckTurn(b, userID); err != nil {
		return nil, err
	}
	if _, ok := statTable[stat]; !ok {
		return nil, ErrInvalidStat
	}

	var outcome model.RoundOutcome
	switch Compare(stat, card1, card2) {
	case 1:
		outcome = model.OutcomePlayer1
		b.AddScore(model.Player1, RoundWinScore)
	case -1:
		outcome = model.OutcomePlayer2
		b.AddScore(model.Player2, RoundWinScore)
	default:
		outcome = model.OutcomeTie
		b.AddScore(model.Player1, RoundTieScore)
		b.AddScore(model.Player2, RoundTieScore)
	}

	Advance(b.Player1Deck)
	Advance(b.Player2Deck)
	b.CurrentTurn = b.CurrentTurn.Other()
	t := now
	b.TurnStartedAt = &t

	if Exhausted(b.Player1Deck) || Exhausted(b.Player2Deck) {
		Complete(b, model.EndDecksExhausted, now)
	}

	result := &model.RoundResult{
		Stat: string(stat),
		Player1Card: model.RoundCard{
			Player: b.Player1.UserID,
			Name:   card1.Name,
			Image:  card1.Image,
			Value:  stat.Value(card1),
		},
		Player2Card: model.RoundCard{
			Player: b.Player2.UserID,
			Name:   card2.Name,
			Image:  card2.Image,
			Value:  stat.Value(card2),
		},
		Outcome:        outcome,
		Player1Score:   b.Player1Score,
		Player2Score:   b.Player2Score,
		RemainingCards: RemainingCards(b),
		Completed:      b.IsCompleted(),
	}
	if !b.IsCompleted() {
		result.NextTurn = b.CurrentTurn
	}
	return result, nil
}
