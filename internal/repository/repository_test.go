package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"ecocards/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zaptest"
)

// testDB connects to ECOCARDS_TEST_MONGO_URI and returns a throwaway database
func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("ECOCARDS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ECOCARDS_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("ecocards_test_" + uuid.New().String()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestCardRepo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCardRepo(db)

	for _, c := range []*model.Card{
		{Name: "Oak", Set: "trees", EnvironmentalFriendliness: 9, Beauty: 7, Cost: 2},
		{Name: "Fern", Set: "plants", EnvironmentalFriendliness: 6, Beauty: 5, Cost: 1},
	} {
		require.NoError(t, repo.Upsert(ctx, c))
	}

	c, err := repo.GetByName(ctx, "Oak")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 9, c.EnvironmentalFriendliness)

	c, err = repo.GetByName(ctx, "Nope")
	require.NoError(t, err)
	assert.Nil(t, c)

	byName, err := repo.GetCards(ctx, []string{"Oak", "Fern", "Nope"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)
	assert.Contains(t, byName, "Fern")

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Fern", all[0].Name)

	trees, err := repo.List(ctx, "trees")
	require.NoError(t, err)
	assert.Len(t, trees, 1)
}

func TestProfileRepo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewProfileRepo(db)

	require.NoError(t, repo.Create(ctx, &model.Profile{UserID: "u1", Username: "alice"}))
	require.NoError(t, repo.AddPoints(ctx, "u1", 10))
	require.NoError(t, repo.AddPoints(ctx, "u1", 2))
	require.NoError(t, repo.AddCollectedCard(ctx, "u1", "Oak"))
	require.NoError(t, repo.AddCollectedCard(ctx, "u1", "Oak"))

	// a second create must not reset the profile
	require.NoError(t, repo.Create(ctx, &model.Profile{UserID: "u1", Username: "alice"}))

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 12, p.Points)
	assert.Equal(t, []string{"Oak"}, p.CollectedCards)
	assert.Equal(t, "Oak", p.MostRecentCard)

	assert.ErrorIs(t, repo.AddPoints(ctx, "ghost", 1), ErrNotFound)
}

func TestAccountRepo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewAccountRepo(db, zaptest.NewLogger(t))

	require.NoError(t, repo.Create(ctx, &model.Account{ID: "u1", Username: "alice", PasswordHash: "x"}))
	err := repo.Create(ctx, &model.Account{ID: "u2", Username: "alice", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	a, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "u1", a.ID)
}

func TestBattleRepo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewBattleRepo(db, zaptest.NewLogger(t))

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := &model.BattleRecord{
		ID:          "b1",
		RoomID:      "room1",
		Player1:     model.Participant{UserID: "u1", Username: "alice"},
		Player2:     model.Participant{UserID: "u2", Username: "bob"},
		Winner:      "u1",
		EndReason:   model.EndDecksExhausted,
		Points:      map[string]int{"u1": 10, "u2": 2},
		CompletedAt: now,
	}
	require.NoError(t, repo.Archive(ctx, rec))
	require.NoError(t, repo.Archive(ctx, rec))

	got, err := repo.LatestByRoom(ctx, "room1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, 10, got.Points["u1"])

	list, err := repo.ListByPlayer(ctx, "u2", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.ListByPlayer(ctx, "u3", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err = repo.LatestByRoom(ctx, "room2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBattleRepoReusedRoom(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewBattleRepo(db, zaptest.NewLogger(t))

	now := time.Now().UTC().Truncate(time.Millisecond)
	first := &model.BattleRecord{
		ID:          "b1",
		RoomID:      "abc123",
		Player1:     model.Participant{UserID: "u1", Username: "alice"},
		Player2:     model.Participant{UserID: "u2", Username: "bob"},
		Winner:      "u1",
		EndReason:   model.EndDecksExhausted,
		CompletedAt: now,
	}
	second := &model.BattleRecord{
		ID:          "b2",
		RoomID:      "abc123",
		Player1:     model.Participant{UserID: "u3", Username: "carol"},
		Player2:     model.Participant{UserID: "u1", Username: "alice"},
		Winner:      "u3",
		EndReason:   model.EndOpponentLeft,
		CompletedAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Archive(ctx, first))
	require.NoError(t, repo.Archive(ctx, second))

	list, err := repo.ListByPlayer(ctx, "u2", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b1", list[0].ID)

	list, err = repo.ListByPlayer(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b2", list[0].ID)
	assert.Equal(t, "b1", list[1].ID)

	latest, err := repo.LatestByRoom(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b2", latest.ID)
}
