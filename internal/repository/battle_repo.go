package repository

import (
	"context"

	"ecocards/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// BattleRepo archives completed battles
type BattleRepo interface {
	Archive(ctx context.Context, record *model.BattleRecord) error
	LatestByRoom(ctx context.Context, roomID string) (*model.BattleRecord, error)
	ListByPlayer(ctx context.Context, userID string, limit int64) ([]*model.BattleRecord, error)
}

type battleRepo struct {
	collection *mongo.Collection
}

// NewBattleRepo creates a new battle archive repository indexed by room
func NewBattleRepo(db *mongo.Database, logger *zap.Logger) BattleRepo {
	repo := &battleRepo{
		collection: db.Collection("battles"),
	}

	_, err := repo.collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "completedAt", Value: -1}},
	})
	if err != nil {
		logger.Warn("failed to create index", zap.String("collection", "battles"), zap.Error(err))
	}

	return repo
}

// Archive upserts by battle id so a retried completion writes once
func (r *battleRepo) Archive(ctx context.Context, record *model.BattleRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, opts)
	return err
}

// LatestByRoom returns the most recently completed battle played in roomID
func (r *battleRepo) LatestByRoom(ctx context.Context, roomID string) (*model.BattleRecord, error) {
	var record model.BattleRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID}, opts).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *battleRepo) ListByPlayer(ctx context.Context, userID string, limit int64) ([]*model.BattleRecord, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"player1.userId": userID},
		bson.M{"player2.userId": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []*model.BattleRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
