package repository

import (
	"context"

	"ecocards/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CardRepo is the read side of the card catalog, plus Upsert for seeding
type CardRepo interface {
	GetByName(ctx context.Context, name string) (*model.Card, error)
	GetCards(ctx context.Context, names []string) (map[string]*model.Card, error)
	List(ctx context.Context, set string) ([]*model.Card, error)
	Upsert(ctx context.Context, card *model.Card) error
}

type cardRepo struct {
	collection *mongo.Collection
}

// NewCardRepo creates a new card repository
func NewCardRepo(db *mongo.Database) CardRepo {
	return &cardRepo{
		collection: db.Collection("cards"),
	}
}

func (r *cardRepo) GetByName(ctx context.Context, name string) (*model.Card, error) {
	var card model.Card
	err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&card)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCards resolves names in one query. Unknown names are absent from the result.
func (r *cardRepo) GetCards(ctx context.Context, names []string) (map[string]*model.Card, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": names}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cards []*model.Card
	if err = cursor.All(ctx, &cards); err != nil {
		return nil, err
	}

	byName := make(map[string]*model.Card, len(cards))
	for _, c := range cards {
		byName[c.Name] = c
	}
	return byName, nil
}

func (r *cardRepo) List(ctx context.Context, set string) ([]*model.Card, error) {
	filter := bson.M{}
	if set != "" {
		filter["set"] = set
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cards := []*model.Card{}
	if err = cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *cardRepo) Upsert(ctx context.Context, card *model.Card) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": card.Name}, card, opts)
	return err
}
