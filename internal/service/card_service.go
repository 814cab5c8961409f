package service

import (
	"context"
	"fmt"
	"sort"

	"ecocards/internal/model"
	"ecocards/internal/repository"
)

// CardService serves catalog reads and a player's collection
type CardService struct {
	cards    repository.CardRepo
	profiles PlayerDirectory
}

// NewCardService creates a new card service
func NewCardService(cards repository.CardRepo, profiles PlayerDirectory) *CardService {
	return &CardService{
		cards:    cards,
		profiles: profiles,
	}
}

func (s *CardService) List(ctx context.Context, set string) ([]*model.Card, error) {
	return s.cards.List(ctx, set)
}

// Get returns nil when the card does not exist
func (s *CardService) Get(ctx context.Context, name string) (*model.Card, error) {
	return s.cards.GetByName(ctx, name)
}

// Collected returns the cards userID owns, sorted by name
func (s *CardService) Collected(ctx context.Context, userID string) ([]*model.Card, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil || len(profile.CollectedCards) == 0 {
		return []*model.Card{}, nil
	}

	byName, err := s.cards.GetCards(ctx, profile.CollectedCards)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	cards := make([]*model.Card, 0, len(byName))
	for _, c := range byName {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards, nil
}
