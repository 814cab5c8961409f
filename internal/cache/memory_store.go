package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"ecocards/internal/model"
)

type memoryBattleStore struct {
	mu      sync.Mutex
	battles map[string][]byte
	active  map[string]struct{}
}

// NewMemoryBattleStore creates a process-local battle store. Battles are
// kept encoded so readers never share memory with the stored copy.
func NewMemoryBattleStore() BattleStore {
	return &memoryBattleStore{
		battles: make(map[string][]byte),
		active:  make(map[string]struct{}),
	}
}

func (s *memoryBattleStore) Get(ctx context.Context, roomID string) (*model.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.battles[roomID]
	if !ok {
		return nil, nil
	}
	return decodeBattle(data)
}

func (s *memoryBattleStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*model.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *model.Battle
	if data, ok := s.battles[roomID]; ok {
		var err error
		if current, err = decodeBattle(data); err != nil {
			return nil, err
		}
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}
	next.Version = version(current) + 1

	payload, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	s.battles[roomID] = payload
	if next.Phase == model.PhaseInProgress {
		s.active[roomID] = struct{}{}
	} else {
		delete(s.active, roomID)
	}
	return next, nil
}

func (s *memoryBattleStore) Exists(ctx context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.battles[roomID]
	return ok, nil
}

func (s *memoryBattleStore) ActiveRooms(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]string, 0, len(s.active))
	for id := range s.active {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms, nil
}

func (s *memoryBattleStore) Forget(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, roomID)
	return nil
}
