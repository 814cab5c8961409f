package service

import (
	"context"

	"ecocards/internal/model"
)

// CardCatalog resolves card names. Unknown names are absent from the result.
type CardCatalog interface {
	GetCards(ctx context.Context, names []string) (map[string]*model.Card, error)
}

// PlayerDirectory supplies collected cards and accumulates battle points
type PlayerDirectory interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	AddPoints(ctx context.Context, userID string, points int) error
}

// BattleArchive keeps completed battles for history
type BattleArchive interface {
	Archive(ctx context.Context, record *model.BattleRecord) error
	LatestByRoom(ctx context.Context, roomID string) (*model.BattleRecord, error)
}

type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
}

type ProfileCreator interface {
	Create(ctx context.Context, profile *model.Profile) error
}

// BattleHistory lists archived battles, newest first
type BattleHistory interface {
	ListByPlayer(ctx context.Context, userID string, limit int64) ([]*model.BattleRecord, error)
}
