package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ecocards/internal/battle"
	"ecocards/internal/model"

	"github.com/redis/go-redis/v9"
)

// UpdateFunc computes the next state of a battle from a private copy of the
// current one (nil when the room does not exist yet). Returning a nil battle
// skips the write; returning an error aborts it. It may be called more than
// once when a concurrent writer wins the race, so it must not have side effects.
type UpdateFunc func(current *model.Battle) (*model.Battle, error)

// BattleStore is the authoritative storage for live battles
type BattleStore interface {
	Get(ctx context.Context, roomID string) (*model.Battle, error)
	Update(ctx context.Context, roomID string, fn UpdateFunc) (*model.Battle, error)
	Exists(ctx context.Context, roomID string) (bool, error)
	ActiveRooms(ctx context.Context) ([]string, error)
	// Forget drops roomID from the active set. Used once its battle has
	// expired without ever leaving the in progress phase.
	Forget(ctx context.Context, roomID string) error
}

const maxUpdateRetries = 10

type redisBattleStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBattleStore creates a Redis-backed battle store. Writes use
// WATCH/MULTI/EXEC on the battle key, so two writers racing on the same
// room never both commit.
func NewBattleStore(client *redis.Client, ttl time.Duration) BattleStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisBattleStore{
		client: client,
		ttl:    ttl,
	}
}

func battleKey(roomID string) string {
	return fmt.Sprintf("battle:%s", roomID)
}

const activeBattlesKey = "battles:active"

func (s *redisBattleStore) Get(ctx context.Context, roomID string) (*model.Battle, error) {
	data, err := s.client.Get(ctx, battleKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBattle(data)
}

func (s *redisBattleStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*model.Battle, error) {
	key := battleKey(roomID)
	var result *model.Battle

	txf := func(tx *redis.Tx) error {
		var current *model.Battle
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if current, err = decodeBattle(data); err != nil {
				return err
			}
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		next.Version = version(current) + 1

		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			if next.Phase == model.PhaseInProgress {
				pipe.SAdd(ctx, activeBattlesKey, roomID)
			} else {
				pipe.SRem(ctx, activeBattlesKey, roomID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, battle.ErrConflict
}

func (s *redisBattleStore) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := s.client.Exists(ctx, battleKey(roomID)).Result()
	return n > 0, err
}

func (s *redisBattleStore) ActiveRooms(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, activeBattlesKey).Result()
}

func (s *redisBattleStore) Forget(ctx context.Context, roomID string) error {
	return s.client.SRem(ctx, activeBattlesKey, roomID).Err()
}

func decodeBattle(data []byte) (*model.Battle, error) {
	var b model.Battle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode battle: %w", err)
	}
	return &b, nil
}

func version(b *model.Battle) int64 {
	if b == nil {
		return 0
	}
	return b.Version
}
