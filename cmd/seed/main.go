package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ecocards/internal/config"
	"ecocards/internal/event"
	"ecocards/internal/model"
	"ecocards/internal/repository"
	"ecocards/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const campusSet = "campus"

var catalog = []model.Card{
	{Name: "Pine Marten", Subtitle: "Martes martes", Description: "Shy climber of the old woodland.", EnvironmentalFriendliness: 9, Beauty: 8, Cost: 2},
	{Name: "Stoat", Subtitle: "Mustela erminea", Description: "Turns white in a hard winter.", EnvironmentalFriendliness: 8, Beauty: 7, Cost: 1},
	{Name: "English Oak", Subtitle: "Quercus robur", Description: "Home to hundreds of insect species.", EnvironmentalFriendliness: 10, Beauty: 7, Cost: 3},
	{Name: "Solar Bench", Subtitle: "Street furniture", Description: "Charges phones from the sun.", EnvironmentalFriendliness: 6, Beauty: 4, Cost: 7},
	{Name: "Wildflower Verge", Subtitle: "Managed meadow", Description: "Mown once a year for pollinators.", EnvironmentalFriendliness: 9, Beauty: 9, Cost: 2},
	{Name: "Bike Shelter", Subtitle: "Active travel", Description: "Forty dry spaces by the library.", EnvironmentalFriendliness: 7, Beauty: 3, Cost: 4},
	{Name: "Green Roof", Subtitle: "Sedum blanket", Description: "Holds back storm water.", EnvironmentalFriendliness: 8, Beauty: 6, Cost: 8},
	{Name: "Compost Heap", Subtitle: "Food waste", Description: "Kitchen scraps back into soil.", EnvironmentalFriendliness: 8, Beauty: 1, Cost: 1},
	{Name: "Rain Garden", Subtitle: "Sustainable drainage", Description: "A planted dip that soaks up runoff.", EnvironmentalFriendliness: 7, Beauty: 8, Cost: 5},
	{Name: "Bat Box", Subtitle: "Roost", Description: "Pipistrelles move in by summer.", EnvironmentalFriendliness: 7, Beauty: 2, Cost: 1},
	{Name: "Heron", Subtitle: "Ardea cinerea", Description: "Patient hunter at the lake edge.", EnvironmentalFriendliness: 8, Beauty: 9, Cost: 3},
	{Name: "Heat Pump", Subtitle: "Low carbon heat", Description: "Moves warmth instead of burning fuel.", EnvironmentalFriendliness: 9, Beauty: 2, Cost: 9},
}

type demoPlayer struct {
	username string
	password string
	extra    []string
}

var demoPlayers = []demoPlayer{
	{username: "martenfan", password: "ilikemarten", extra: []string{"Pine Marten", "Heron"}},
	{username: "stoatfan", password: "ilikestoats", extra: []string{"Stoat", "Heat Pump"}},
}

var (
	configPath = flag.String("config", "", "path to a YAML config file (optional)")
	withDemo   = flag.Bool("demo", true, "create demo accounts")
)

func main() {
	flag.Parse()

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, _, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.Mongo.Database)

	if err := seedCards(ctx, repository.NewCardRepo(db), logger); err != nil {
		logger.Fatal("failed to seed cards", zap.Error(err))
	}
	if *withDemo {
		if err := seedPlayers(ctx, db, cfg, logger); err != nil {
			logger.Fatal("failed to seed players", zap.Error(err))
		}
	}
	logger.Info("seed complete")
}

func seedCards(ctx context.Context, cards repository.CardRepo, logger *zap.Logger) error {
	now := time.Now().UTC()
	for i := range catalog {
		card := catalog[i]
		card.Set = campusSet
		card.Image = "/static/cards/" + imageName(card.Name)
		card.CreatedAt = now
		if err := cards.Upsert(ctx, &card); err != nil {
			return fmt.Errorf("card %q: %w", card.Name, err)
		}
	}
	logger.Info("cards seeded", zap.Int("count", len(catalog)), zap.String("set", campusSet))
	return nil
}

func seedPlayers(ctx context.Context, db *mongo.Database, cfg *config.Config, logger *zap.Logger) error {
	profiles := repository.NewProfileRepo(db)

	bus := event.NewBus()
	service.NewProfileProvisioner(profiles, cfg.Game.StarterCards, logger).Register(bus)
	authSvc := service.NewAuthService(repository.NewAccountRepo(db, logger), bus, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	for _, p := range demoPlayers {
		resp, err := authSvc.Register(ctx, p.username, p.password)
		if errors.Is(err, service.ErrUsernameTaken) {
			logger.Info("demo account exists", zap.String("username", p.username))
			continue
		}
		if err != nil {
			return fmt.Errorf("register %q: %w", p.username, err)
		}
		for _, name := range p.extra {
			if err := profiles.AddCollectedCard(ctx, resp.UserID, name); err != nil {
				return fmt.Errorf("grant %q to %q: %w", name, p.username, err)
			}
		}
		logger.Info("demo account created",
			zap.String("username", p.username),
			zap.String("user_id", resp.UserID),
		)
	}
	return nil
}

func imageName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_") + ".png"
}
