package repository

import (
	"context"
	"errors"

	"ecocards/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("username already taken")
)

type AccountRepo interface {
	Create(ctx context.Context, account *model.Account) error
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
}

type accountRepo struct {
	collection *mongo.Collection
}

// NewAccountRepo creates a new account repository with a unique username index
func NewAccountRepo(db *mongo.Database, logger *zap.Logger) AccountRepo {
	repo := &accountRepo{
		collection: db.Collection("accounts"),
	}

	opts := options.Index().SetUnique(true)
	_, err := repo.collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: opts,
	})
	if err != nil {
		logger.Warn("failed to create index", zap.String("collection", "accounts"), zap.Error(err))
	}

	return repo
}

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.collection.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateName
	}
	return err
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
