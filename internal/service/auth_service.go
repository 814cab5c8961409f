package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecocards/internal/event"
	"ecocards/internal/model"
	"ecocards/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 3-32 characters")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
)

// AuthService registers accounts and issues player tokens
type AuthService struct {
	accounts  AccountStore
	events    *event.Bus
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewAuthService creates a new auth service. A zero ttl issues tokens
// without expiry.
func NewAuthService(accounts AccountStore, events *event.Bus, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts:  accounts,
		events:    events,
		jwtSecret: []byte(secret),
		tokenTTL:  ttl,
		logger:    logger,
	}
}

// Register creates an account and publishes AccountCreated
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:           "u_" + uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if s.events != nil {
		err := s.events.Publish(ctx, event.AccountCreated{UserID: account.ID, Username: account.Username})
		if err != nil {
			s.logger.Error("account created handlers failed", zap.String("user_id", account.ID), zap.Error(err))
		}
	}
	s.logger.Info("account registered", zap.String("user_id", account.ID), zap.String("username", username))

	return s.issue(account)
}

// Login validates credentials and returns a token
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(account)
}

func (s *AuthService) issue(account *model.Account) (*model.LoginResponse, error) {
	token, err := s.GenerateToken(account.ID, account.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.LoginResponse{
		Token:    token,
		UserID:   account.ID,
		Username: account.Username,
	}, nil
}

// GenerateToken signs a player token
func (s *AuthService) GenerateToken(userID, username string) (string, error) {
	now := time.Now()
	claims := &model.PlayerClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a player JWT and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
