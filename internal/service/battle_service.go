package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"ecocards/internal/battle"
	"ecocards/internal/cache"
	"ecocards/internal/model"

	"go.uber.org/zap"
)

// Caller identifies the connection an event came from
type Caller struct {
	UserID   string
	Username string
	ConnID   string
}

func (c Caller) participant() model.Participant {
	return model.Participant{UserID: c.UserID, Username: c.Username}
}

// BattleService runs the battle protocol: it validates client events against
// the stored battle, persists the next state and notifies the room.
//
// Every mutation holds the room lock while it writes and enqueues its
// messages, so a room's messages go out in the order its state changed.
type BattleService struct {
	store       cache.BattleStore
	catalog     CardCatalog
	players     PlayerDirectory
	archive     BattleArchive
	locks       *roomLocks
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
}

// NewBattleService creates a new battle service
func NewBattleService(
	store cache.BattleStore,
	catalog CardCatalog,
	players PlayerDirectory,
	archive BattleArchive,
	logger *zap.Logger,
) *BattleService {
	return &BattleService{
		store:   store,
		catalog: catalog,
		players: players,
		archive: archive,
		locks:   newRoomLocks(),
		logger:  logger,
		now:     time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *BattleService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// NewRoomID generates an 8-char id not used by any stored battle
func (s *BattleService) NewRoomID(ctx context.Context) (string, error) {
	const chars = "abcdefghjkmnpqrstuvwxyz23456789"
	const idLen = 8

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, idLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		id := make([]byte, idLen)
		for i := range id {
			id[i] = chars[int(b[i])%len(chars)]
		}

		exists, err := s.store.Exists(ctx, string(id))
		if err != nil {
			return "", fmt.Errorf("failed to check room: %w", err)
		}
		if !exists {
			return string(id), nil
		}
	}
	return "", fmt.Errorf("failed to generate unique room id")
}

// Enter places the caller's connection in the room, creating the battle on
// first connection. Failures are reported to the caller; a refused third
// player has the connection closed as well.
func (s *BattleService) Enter(ctx context.Context, roomID string, caller Caller) error {
	unlock := s.locks.lock(roomID)
	defer unlock()

	var result battle.EnterResult
	b, err := s.store.Update(ctx, roomID, func(current *model.Battle) (*model.Battle, error) {
		if current == nil {
			result = battle.Created
			return battle.NewBattle(roomID, caller.participant(), s.now()), nil
		}
		res, err := battle.Enter(current, caller.participant())
		if err != nil {
			return nil, err
		}
		result = res
		if res == battle.Rejoined {
			return nil, nil
		}
		current.UpdatedAt = s.now()
		return current, nil
	})
	if err != nil {
		s.replyError(roomID, caller, err)
		if errors.Is(err, battle.ErrRoomFull) || errors.Is(err, battle.ErrBattleCompleted) {
			s.closeConn(roomID, caller.ConnID)
		}
		return err
	}

	switch result {
	case battle.Created:
		s.logger.Info("battle created", zap.String("room_id", roomID), zap.String("user_id", caller.UserID))
		s.reply(roomID, caller, &model.OutboundMessage{
			Event:  model.EventBattleCreated,
			Player: caller.UserID,
			State:  battle.View(b, caller.UserID),
		})
	case battle.Joined:
		s.logger.Info("battle joined", zap.String("room_id", roomID), zap.String("user_id", caller.UserID))
		s.reply(roomID, caller, &model.OutboundMessage{
			Event:  model.EventBattleJoined,
			Player: caller.UserID,
			State:  battle.View(b, caller.UserID),
		})
		s.broadcast(roomID, &model.OutboundMessage{
			Event:  model.EventBattleJoined,
			Player: caller.UserID,
			State:  battle.View(b, ""),
		}, caller.ConnID)
	case battle.Rejoined:
		s.logger.Debug("battle rejoined", zap.String("room_id", roomID), zap.String("user_id", caller.UserID))
		s.reply(roomID, caller, &model.OutboundMessage{
			Event:  model.EventBattleRejoined,
			Player: caller.UserID,
			State:  battle.View(b, caller.UserID),
		})
	}
	return nil
}

// Handle dispatches one inbound event. Business failures and panics are
// reported to the sender as error events; the connection stays open.
func (s *BattleService) Handle(ctx context.Context, roomID string, caller Caller, msg *model.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handling battle event",
				zap.String("room_id", roomID),
				zap.String("event", string(msg.Event)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			s.sendError(roomID, caller, battle.ErrInternal)
		}
	}()

	var err error
	switch msg.Event {
	case model.EventSelectCards:
		err = s.SelectCards(ctx, roomID, caller, msg.CardIDs)
	case model.EventReady:
		err = s.Ready(ctx, roomID, caller)
	case model.EventSelectStat:
		err = s.SelectStat(ctx, roomID, caller, msg.Stat)
	case model.EventRequestCurrentCards:
		err = s.RequestCurrentCards(ctx, roomID, caller)
	default:
		err = battle.Errorf(battle.ErrInvalidMessage, "unknown event %q", msg.Event)
	}
	if err != nil {
		s.replyError(roomID, caller, err)
	}
}

// SelectCards replaces the caller's deck with cardIDs under a fresh seed
func (s *BattleService) SelectCards(ctx context.Context, roomID string, caller Caller, cardIDs []string) error {
	if err := battle.ValidateSelection(cardIDs); err != nil {
		return err
	}

	cards, err := s.catalog.GetCards(ctx, cardIDs)
	if err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}
	for _, id := range cardIDs {
		if _, ok := cards[id]; !ok {
			return battle.Errorf(battle.ErrInvalidSelection, "card %q does not exist", id)
		}
	}

	profile, err := s.players.GetProfile(ctx, caller.UserID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	for _, id := range cardIDs {
		if profile == nil || !profile.Owns(id) {
			return battle.Errorf(battle.ErrCardNotOwned, "you do not own card %q", id)
		}
	}

	deck, err := battle.NewDeck(caller.UserID, cardIDs, battle.NewSeed())
	if err != nil {
		return err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	b, err := s.store.Update(ctx, roomID, func(current *model.Battle) (*model.Battle, error) {
		if current == nil {
			return nil, battle.ErrRoomNotFound
		}
		if err := battle.SelectCards(current, caller.UserID, deck); err != nil {
			return nil, err
		}
		current.UpdatedAt = s.now()
		return current, nil
	})
	if err != nil {
		return err
	}

	s.reply(roomID, caller, &model.OutboundMessage{
		Event:   model.EventCardsSelected,
		Player:  caller.UserID,
		CardIDs: deck.Cards,
		State:   battle.View(b, caller.UserID),
	})
	s.broadcast(roomID, &model.OutboundMessage{
		Event:  model.EventCardsSelected,
		Player: caller.UserID,
		State:  battle.View(b, ""),
	}, caller.ConnID)
	return nil
}

// Ready marks the caller ready; the second ready starts the battle
func (s *BattleService) Ready(ctx context.Context, roomID string, caller Caller) error {
	unlock := s.locks.lock(roomID)
	defer unlock()

	var started bool
	b, err := s.store.Update(ctx, roomID, func(current *model.Battle) (*model.Battle, error) {
		if current == nil {
			return nil, battle.ErrRoomNotFound
		}
		now := s.now()
		st, err := battle.Ready(current, caller.UserID, now)
		if err != nil {
			return nil, err
		}
		started = st
		current.UpdatedAt = now
		return current, nil
	})
	if err != nil {
		return err
	}

	if started {
		s.logger.Info("battle started", zap.String("room_id", roomID))
	}
	s.reply(roomID, caller, &model.OutboundMessage{
		Event:  model.EventPlayerReady,
		Player: caller.UserID,
		State:  battle.View(b, caller.UserID),
	})
	s.broadcast(roomID, &model.OutboundMessage{
		Event:  model.EventPlayerReady,
		Player: caller.UserID,
		State:  battle.View(b, ""),
	}, caller.ConnID)
	return nil
}

// SelectStat resolves one round for the turn owner
func (s *BattleService) SelectStat(ctx context.Context, roomID string, caller Caller, statName string) error {
	unlock := s.locks.lock(roomID)
	defer unlock()

	var round *model.RoundResult
	b, err := s.store.Update(ctx, roomID, func(current *model.Battle) (*model.Battle, error) {
		round = nil
		if current == nil {
			return nil, battle.ErrRoomNotFound
		}
		if _, err := battle.CheckTurn(current, caller.UserID); err != nil {
			return nil, err
		}
		stat, err := battle.ParseStat(statName)
		if err != nil {
			return nil, err
		}

		now := s.now()
		id1, id2, err := battle.CurrentCardIDs(current)
		if errors.Is(err, battle.ErrDeckExhausted) {
			battle.Complete(current, model.EndDecksExhausted, now)
			current.UpdatedAt = now
			return current, nil
		}
		if err != nil {
			return nil, err
		}

		cards, err := s.catalog.GetCards(ctx, []string{id1, id2})
		if err != nil {
			return nil, fmt.Errorf("failed to load cards: %w", err)
		}
		card1, card2 := cards[id1], cards[id2]
		if card1 == nil || card2 == nil {
			return nil, fmt.Errorf("deck card missing from catalog: %q, %q", id1, id2)
		}

		round, err = battle.PlayRound(current, caller.UserID, stat, card1, card2, now)
		if err != nil {
			return nil, err
		}
		current.UpdatedAt = now
		return current, nil
	})
	if err != nil {
		return err
	}

	if round != nil {
		msg := &model.OutboundMessage{
			Event:  model.EventRoundResult,
			Player: caller.UserID,
			Round:  round,
			State:  battle.View(b, ""),
		}
		s.reply(roomID, caller, msg)
		s.broadcast(roomID, msg, caller.ConnID)
	}
	if b.IsCompleted() {
		s.complete(ctx, b)
	}
	return nil
}

// RequestCurrentCards sends the caller the card at its deck's cursor
func (s *BattleService) RequestCurrentCards(ctx context.Context, roomID string, caller Caller) error {
	b, err := s.store.Get(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load battle: %w", err)
	}
	if b == nil {
		return battle.ErrRoomNotFound
	}
	seat := b.SeatOf(caller.UserID)
	if seat == model.SeatNone {
		return battle.ErrNotParticipant
	}
	if b.IsCompleted() {
		return battle.ErrBattleCompleted
	}

	deck := b.Deck(seat)
	id, err := battle.CurrentCardID(deck)
	if err != nil {
		return err
	}
	cards, err := s.catalog.GetCards(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}
	card := cards[id]
	if card == nil {
		return fmt.Errorf("deck card missing from catalog: %q", id)
	}

	current := &model.CurrentCards{
		Card:           model.NewCardSnapshot(card),
		Position:       deck.CurrentCardIndex + 1,
		RemainingCards: battle.RemainingCards(b),
	}
	if b.Phase == model.PhaseInProgress {
		current.CurrentTurn = b.CurrentTurn
		current.YourTurn = b.CurrentTurn == seat
	}
	s.reply(roomID, caller, &model.OutboundMessage{
		Event: model.EventCurrentCards,
		Cards: current,
	})
	return nil
}

// Leave handles a closed connection. It only counts once the user has no
// other live connection in the room; the remaining participant then wins.
func (s *BattleService) Leave(ctx context.Context, roomID string, caller Caller) error {
	unlock := s.locks.lock(roomID)
	defer unlock()

	if s.userConnected(roomID, caller.UserID) {
		return nil
	}

	var changed bool
	b, err := s.store.Update(ctx, roomID, func(current *model.Battle) (*model.Battle, error) {
		changed = false
		if current == nil {
			return nil, nil
		}
		seat := current.SeatOf(caller.UserID)
		if seat == model.SeatNone {
			return nil, nil
		}
		// both gone: keep the room open for whoever reconnects first
		if opp := current.Participant(seat.Other()); opp != nil && !s.userConnected(roomID, opp.UserID) {
			return nil, nil
		}
		now := s.now()
		if !battle.Leave(current, caller.UserID, now) {
			return nil, nil
		}
		changed = true
		current.UpdatedAt = now
		return current, nil
	})
	if err != nil {
		s.logger.Error("failed to record player leaving",
			zap.String("room_id", roomID),
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
		return err
	}
	if !changed {
		return nil
	}

	s.logger.Info("player left battle", zap.String("room_id", roomID), zap.String("user_id", caller.UserID))
	s.broadcast(roomID, &model.OutboundMessage{
		Event:  model.EventPlayerLeft,
		Player: caller.UserID,
		State:  battle.View(b, ""),
	}, caller.ConnID)
	s.complete(ctx, b)
	return nil
}

// userConnected reports whether userID still has a live connection in the
// room. Without a broadcaster nobody is considered connected.
func (s *BattleService) userConnected(roomID, userID string) bool {
	return s.broadcaster != nil && s.broadcaster.HasUserConnection(roomID, userID)
}

// ExpireIdleTurns forfeits every in-progress battle whose turn owner has
// been idle for at least timeout. It returns how many battles ended.
func (s *BattleService) ExpireIdleTurns(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		return 0, nil
	}
	rooms, err := s.store.ActiveRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active battles: %w", err)
	}

	expired := 0
	for _, roomID := range rooms {
		ok, err := s.expireTurn(ctx, roomID, timeout)
		if err != nil {
			s.logger.Warn("failed to expire turn", zap.String("room_id", roomID), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *BattleService) expireTurn(ctx context.Context, roomID string, timeout time.Duration) (bool, error) {
	unlock := s.locks.lock(roomID)
	defer unlock()

	var idle model.Seat
	var gone bool
	b, err := s.store.Update(ctx, roomID, func(current *model.Battle) (*model.Battle, error) {
		idle = model.SeatNone
		gone = current == nil
		now := s.now()
		if current == nil || !battle.TurnExpired(current, timeout, now) {
			return nil, nil
		}
		idle = current.CurrentTurn
		battle.Forfeit(current, idle, model.EndTurnTimeout, now)
		current.UpdatedAt = now
		return current, nil
	})
	if err != nil {
		return false, err
	}
	if gone {
		// the key expired mid battle
		s.logger.Debug("forgetting expired battle", zap.String("room_id", roomID))
		return false, s.store.Forget(ctx, roomID)
	}
	if idle == model.SeatNone {
		return false, nil
	}

	s.logger.Info("turn timed out",
		zap.String("room_id", roomID),
		zap.String("idle_player", b.Participant(idle).UserID),
	)
	s.complete(ctx, b)
	return true, nil
}

// State returns the battle as seen by userID, who must be a participant.
// Once the live battle has expired the latest archived one is shown.
func (s *BattleService) State(ctx context.Context, roomID, userID string) (*model.BattleView, error) {
	b, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load battle: %w", err)
	}
	if b == nil && s.archive != nil {
		rec, err := s.archive.LatestByRoom(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to load archived battle: %w", err)
		}
		if rec != nil {
			b = rec.Battle()
		}
	}
	if b == nil {
		return nil, battle.ErrRoomNotFound
	}
	if b.SeatOf(userID) == model.SeatNone {
		return nil, battle.ErrNotParticipant
	}
	return battle.View(b, userID), nil
}

// complete runs the side effects of a battle that just ended: points,
// archive and the battle_completed broadcast. Point and archive failures are
// logged; the battle itself is already final.
func (s *BattleService) complete(ctx context.Context, b *model.Battle) {
	points := battle.Awards(b)
	for userID, n := range points {
		if err := s.players.AddPoints(ctx, userID, n); err != nil {
			s.logger.Error("failed to award points",
				zap.String("room_id", b.RoomID),
				zap.String("user_id", userID),
				zap.Int("points", n),
				zap.Error(err),
			)
		}
	}

	if s.archive != nil {
		if err := s.archive.Archive(ctx, model.NewBattleRecord(b, points)); err != nil {
			s.logger.Error("failed to archive battle", zap.String("room_id", b.RoomID), zap.Error(err))
		}
	}

	s.logger.Info("battle completed",
		zap.String("room_id", b.RoomID),
		zap.String("winner", b.Winner),
		zap.String("reason", string(b.EndReason)),
		zap.Int("player1_score", b.Player1Score),
		zap.Int("player2_score", b.Player2Score),
	)
	s.broadcast(b.RoomID, &model.OutboundMessage{
		Event:  model.EventBattleCompleted,
		Result: battle.Result(b, points),
		State:  battle.View(b, ""),
	}, "")
}

func (s *BattleService) reply(roomID string, caller Caller, msg *model.OutboundMessage) {
	if s.broadcaster == nil {
		return
	}
	if msg.RoomID == "" {
		msg.RoomID = roomID
	}
	s.broadcaster.SendToConn(roomID, caller.ConnID, msg)
}

func (s *BattleService) broadcast(roomID string, msg *model.OutboundMessage, exceptConnID string) {
	if s.broadcaster == nil {
		return
	}
	if msg.RoomID == "" {
		msg.RoomID = roomID
	}
	s.broadcaster.BroadcastToRoom(roomID, msg, exceptConnID)
}

func (s *BattleService) closeConn(roomID, connID string) {
	if s.broadcaster != nil {
		s.broadcaster.CloseConn(roomID, connID)
	}
}

// replyError reports err to the caller. Anything that is not a business rule
// failure is logged and hidden behind internal_error.
func (s *BattleService) replyError(roomID string, caller Caller, err error) {
	be, ok := battle.AsError(err)
	if !ok || be.Kind == battle.KindInternal || be.Kind == battle.KindConflict {
		s.logger.Error("battle operation failed",
			zap.String("room_id", roomID),
			zap.String("user_id", caller.UserID),
			zap.Error(err),
		)
		be = battle.ErrInternal
	}
	s.sendError(roomID, caller, be)
}

func (s *BattleService) sendError(roomID string, caller Caller, be *battle.Error) {
	s.reply(roomID, caller, &model.OutboundMessage{
		Event:   model.EventError,
		Code:    be.Code,
		Message: be.Message,
	})
}
