package battle

import "ecocards/internal/model"

// View renders b for viewerID. Deck contents stay hidden.
func View(b *model.Battle, viewerID string) *model.BattleView {
	v := &model.BattleView{
		RoomID:         b.RoomID,
		Phase:          b.Phase,
		Player1:        b.Player1,
		Player2:        b.Player2,
		You:            b.SeatOf(viewerID),
		Player1Ready:   b.Player1Ready,
		Player2Ready:   b.Player2Ready,
		Player1Cards:   b.Player1Deck != nil,
		Player2Cards:   b.Player2Deck != nil,
		Player1Score:   b.Player1Score,
		Player2Score:   b.Player2Score,
		RemainingCards: RemainingCards(b),
		EndReason:      b.EndReason,
	}
	if b.Phase == model.PhaseInProgress {
		v.CurrentTurn = b.CurrentTurn
	}
	if b.Winner != "" {
		w := b.Winner
		v.Winner = &w
	}
	return v
}

// Result summarises a completed battle
func Result(b *model.Battle, points map[string]int) *model.BattleResult {
	r := &model.BattleResult{
		Player1Score: b.Player1Score,
		Player2Score: b.Player2Score,
		Reason:       b.EndReason,
		Points:       points,
	}
	if b.Winner != "" {
		w := b.Winner
		r.Winner = &w
	}
	return r
}
