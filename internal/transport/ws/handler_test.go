package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ecocards/internal/cache"
	"ecocards/internal/model"
	"ecocards/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCatalog map[string]*model.Card

func (s stubCatalog) GetCards(ctx context.Context, names []string) (map[string]*model.Card, error) {
	out := make(map[string]*model.Card)
	for _, n := range names {
		if c, ok := s[n]; ok {
			out[n] = c
		}
	}
	return out, nil
}

type stubPlayers struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	points   map[string]int
}

func (s *stubPlayers) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profiles[userID], nil
}

func (s *stubPlayers) AddPoints(ctx context.Context, userID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[userID] += points
	return nil
}

var (
	aliceDeck = []string{"W", "X", "Y", "Z"}
	bobDeck   = []string{"P", "Q", "R", "T"}
)

type testServer struct {
	srv  *httptest.Server
	auth *service.AuthService
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	logger := zap.NewNop()

	catalog := stubCatalog{}
	for _, n := range aliceDeck {
		catalog[n] = &model.Card{Name: n, EnvironmentalFriendliness: 3, Beauty: 3, Cost: 1}
	}
	for _, n := range bobDeck {
		catalog[n] = &model.Card{Name: n, EnvironmentalFriendliness: 3, Beauty: 3, Cost: 9}
	}
	players := &stubPlayers{
		profiles: map[string]*model.Profile{
			"u-alice": {UserID: "u-alice", CollectedCards: aliceDeck},
			"u-bob":   {UserID: "u-bob", CollectedCards: bobDeck},
		},
		points: make(map[string]int),
	}

	hub := NewHub(logger)
	battles := service.NewBattleService(cache.NewMemoryBattleStore(), catalog, players, nil, logger)
	battles.SetBroadcaster(hub)
	auth := service.NewAuthService(nil, nil, "ws-secret", time.Hour, logger)

	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/battle/{roomId}", NewHandler(hub, battles, auth, opts, logger).BattleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return &testServer{srv: srv, auth: auth}
}

func (s *testServer) url(roomID string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/v1/ws/battle/" + roomID
}

func (s *testServer) dial(t *testing.T, roomID, userID, username string) *websocket.Conn {
	t.Helper()
	token, err := s.auth.GenerateToken(userID, username)
	require.NoError(t, err)

	c, _, err := websocket.DefaultDialer.Dial(s.url(roomID)+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func expect(t *testing.T, c *websocket.Conn, event model.EventType) *model.OutboundMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg model.OutboundMessage
	require.NoError(t, c.ReadJSON(&msg))
	require.Equal(t, event, msg.Event, "got %+v", msg)
	return &msg
}

func send(t *testing.T, c *websocket.Conn, msg model.InboundMessage) {
	t.Helper()
	require.NoError(t, c.WriteJSON(msg))
}

func TestBattleOverWebSocket(t *testing.T) {
	s := newTestServer(t, Options{})
	const room = "room_1"

	alice := s.dial(t, room, "u-alice", "alice")
	created := expect(t, alice, model.EventBattleCreated)
	assert.Equal(t, room, created.RoomID)
	assert.Equal(t, model.PhaseAwaitingOpponent, created.State.Phase)

	bob := s.dial(t, room, "u-bob", "bob")
	joined := expect(t, bob, model.EventBattleJoined)
	assert.Equal(t, model.Player2, joined.State.You)
	expect(t, alice, model.EventBattleJoined)

	carol := s.dial(t, room, "u-carol", "carol")
	refused := expect(t, carol, model.EventError)
	assert.Equal(t, "room_full", refused.Code)
	_, _, err := carol.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	send(t, alice, model.InboundMessage{Event: model.EventSelectCards, CardIDs: aliceDeck})
	own := expect(t, alice, model.EventCardsSelected)
	assert.Equal(t, aliceDeck, own.CardIDs)
	seen := expect(t, bob, model.EventCardsSelected)
	assert.Empty(t, seen.CardIDs)

	send(t, bob, model.InboundMessage{Event: model.EventSelectCards, CardIDs: bobDeck})
	expect(t, bob, model.EventCardsSelected)
	seen = expect(t, alice, model.EventCardsSelected)
	assert.Equal(t, model.PhaseReadyCheck, seen.State.Phase)

	send(t, alice, model.InboundMessage{Event: model.EventReady})
	expect(t, alice, model.EventPlayerReady)
	expect(t, bob, model.EventPlayerReady)
	send(t, bob, model.InboundMessage{Event: model.EventReady})
	started := expect(t, bob, model.EventPlayerReady)
	assert.Equal(t, model.PhaseInProgress, started.State.Phase)
	expect(t, alice, model.EventPlayerReady)

	send(t, alice, model.InboundMessage{Event: model.EventRequestCurrentCards})
	cur := expect(t, alice, model.EventCurrentCards)
	assert.Contains(t, aliceDeck, cur.Cards.Card.Name)
	assert.True(t, cur.Cards.YourTurn)

	movers := []*websocket.Conn{alice, bob, alice, bob}
	for i, mover := range movers {
		other := bob
		if mover == bob {
			other = alice
		}
		send(t, mover, model.InboundMessage{Event: model.EventSelectStat, Stat: "cost"})
		res := expect(t, mover, model.EventRoundResult)
		expect(t, other, model.EventRoundResult)
		assert.Equal(t, model.OutcomePlayer1, res.Round.Outcome)
		assert.Equal(t, 3*(i+1), res.Round.Player1Score)
		assert.Equal(t, model.DeckSize-i-1, res.Round.RemainingCards)
	}

	for _, c := range []*websocket.Conn{alice, bob} {
		done := expect(t, c, model.EventBattleCompleted)
		require.NotNil(t, done.Result.Winner)
		assert.Equal(t, "u-alice", *done.Result.Winner)
		assert.Equal(t, model.EndDecksExhausted, done.Result.Reason)
		assert.Equal(t, 10, done.Result.Points["u-alice"])
		assert.Equal(t, 2, done.Result.Points["u-bob"])
	}

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))
	bad := expect(t, alice, model.EventError)
	assert.Equal(t, "invalid_message", bad.Code)

	send(t, bob, model.InboundMessage{Event: model.EventSelectStat, Stat: "cost"})
	late := expect(t, bob, model.EventError)
	assert.Equal(t, "battle_completed", late.Code)
}

func TestDisconnectForfeits(t *testing.T) {
	s := newTestServer(t, Options{})
	const room = "room_2"

	alice := s.dial(t, room, "u-alice", "alice")
	expect(t, alice, model.EventBattleCreated)
	bob := s.dial(t, room, "u-bob", "bob")
	expect(t, bob, model.EventBattleJoined)
	expect(t, alice, model.EventBattleJoined)

	require.NoError(t, bob.Close())

	left := expect(t, alice, model.EventPlayerLeft)
	assert.Equal(t, "u-bob", left.Player)
	done := expect(t, alice, model.EventBattleCompleted)
	require.NotNil(t, done.Result.Winner)
	assert.Equal(t, "u-alice", *done.Result.Winner)
	assert.Equal(t, model.EndOpponentLeft, done.Result.Reason)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1})
	alice := s.dial(t, "room_3", "u-alice", "alice")
	expect(t, alice, model.EventBattleCreated)

	send(t, alice, model.InboundMessage{Event: model.EventRequestCurrentCards})
	send(t, alice, model.InboundMessage{Event: model.EventRequestCurrentCards})

	first := expect(t, alice, model.EventError)
	assert.Equal(t, "deck_not_selected", first.Code)
	second := expect(t, alice, model.EventError)
	assert.Equal(t, "rate_limited", second.Code)
}

func TestUpgradeRejected(t *testing.T) {
	s := newTestServer(t, Options{})
	token, err := s.auth.GenerateToken("u-alice", "alice")
	require.NoError(t, err)

	cases := []struct {
		name   string
		url    string
		header http.Header
		status int
	}{
		{"missing token", s.url("room_4"), nil, http.StatusUnauthorized},
		{"bad token", s.url("room_4") + "?token=nope", nil, http.StatusUnauthorized},
		{"bad room id", s.url("room-4") + "?token=" + token, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tc.url, tc.header)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	// bearer header works as well as the query parameter
	c, _, err := websocket.DefaultDialer.Dial(s.url("room_4"), http.Header{"Authorization": []string{"Bearer " + token}})
	require.NoError(t, err)
	defer c.Close()
	expect(t, c, model.EventBattleCreated)
}

func TestValidRoomID(t *testing.T) {
	assert.True(t, ValidRoomID("abc123"))
	assert.True(t, ValidRoomID("Room_42"))
	assert.False(t, ValidRoomID(""))
	assert.False(t, ValidRoomID("room-1"))
	assert.False(t, ValidRoomID(strings.Repeat("a", 65)))
}
