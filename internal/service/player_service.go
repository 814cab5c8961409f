package service

import (
	"context"
	"fmt"

	"ecocards/internal/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// PlayerService serves a player's profile and battle history
type PlayerService struct {
	players PlayerDirectory
	history BattleHistory
}

// NewPlayerService creates a new player service
func NewPlayerService(players PlayerDirectory, history BattleHistory) *PlayerService {
	return &PlayerService{
		players: players,
		history: history,
	}
}

// Profile returns nil when userID has no profile yet
func (s *PlayerService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.players.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// History returns the player's most recent completed battles. limit is
// clamped to [1, 100]; zero or less means the default of 20.
func (s *PlayerService) History(ctx context.Context, userID string, limit int) ([]*model.BattleRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := s.history.ListByPlayer(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list battles: %w", err)
	}
	if records == nil {
		records = []*model.BattleRecord{}
	}
	return records, nil
}
