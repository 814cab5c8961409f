package repository

import (
	"context"

	"ecocards/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProfileRepo interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	AddPoints(ctx context.Context, userID string, points int) error
	AddCollectedCard(ctx context.Context, userID, cardName string) error
}

type profileRepo struct {
	collection *mongo.Collection
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *mongo.Database) ProfileRepo {
	return &profileRepo{
		collection: db.Collection("profiles"),
	}
}

// Create inserts profile unless one already exists for the user
func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if profile.CollectedCards == nil {
		profile.CollectedCards = []string{}
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": profile.UserID},
		bson.M{"$setOnInsert": profile},
		opts,
	)
	return err
}

func (r *profileRepo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// AddPoints increments atomically so concurrent battles never lose points
func (r *profileRepo) AddPoints(ctx context.Context, userID string, points int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"points": points}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) AddCollectedCard(ctx context.Context, userID, cardName string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"collectedCards": cardName},
			"$set":      bson.M{"mostRecentCard": cardName},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
