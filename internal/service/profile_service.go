package service

import (
	"context"
	"fmt"
	"time"

	"ecocards/internal/event"
	"ecocards/internal/model"

	"go.uber.org/zap"
)

// ProfileProvisioner creates a player profile for every new account
type ProfileProvisioner struct {
	profiles     ProfileCreator
	starterCards []string
	logger       *zap.Logger
}

// NewProfileProvisioner creates a provisioner granting starterCards to new players
func NewProfileProvisioner(profiles ProfileCreator, starterCards []string, logger *zap.Logger) *ProfileProvisioner {
	return &ProfileProvisioner{
		profiles:     profiles,
		starterCards: starterCards,
		logger:       logger,
	}
}

// Register subscribes the provisioner to bus
func (p *ProfileProvisioner) Register(bus *event.Bus) {
	bus.Subscribe(event.TypeAccountCreated, p.handle)
}

func (p *ProfileProvisioner) handle(ctx context.Context, e event.Event) error {
	created, ok := e.(event.AccountCreated)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	profile := &model.Profile{
		UserID:         created.UserID,
		Username:       created.Username,
		CollectedCards: append([]string{}, p.starterCards...),
		SignupDate:     time.Now().UTC(),
	}
	if n := len(p.starterCards); n > 0 {
		profile.MostRecentCard = p.starterCards[n-1]
	}
	if err := p.profiles.Create(ctx, profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	p.logger.Debug("profile created", zap.String("user_id", created.UserID), zap.Int("starter_cards", len(p.starterCards)))
	return nil
}
