package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/redact"
	"github.com/phrazzld/taskhub-api/internal/service/auth"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// dummyHash is compared against when a login names an unknown user, so the
// response time does not reveal whether the username exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// RegisterCommand holds the data needed to create an account.
type RegisterCommand struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    uuid.UUID
	Username  string
	FirstName string
	LastName  string
}

// AuthService registers users, authenticates them, and looks them up.
type AuthService interface {
	// Register creates a user. Returns ErrUsernameTaken if the username is in use.
	Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error)

	// Login verifies credentials and issues an access token.
	// Returns ErrInvalidCredentials for an unknown user or a wrong password.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// GetUserByID returns a user, or ErrUserNotFound for uuid.Nil or a missing user.
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type authServiceImpl struct {
	db       store.TxBeginner
	users    store.UserStore
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	tokens   auth.JWTService
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. It returns an error if any of the
// required dependencies are nil.
func NewAuthService(
	db store.TxBeginner,
	users store.UserStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	tokens auth.JWTService,
	logger *slog.Logger,
) (AuthService, error) {
	switch {
	case db == nil:
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	case users == nil:
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	case hasher == nil:
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	case verifier == nil:
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	case tokens == nil:
		return nil, domain.NewValidationError("tokens", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &authServiceImpl{
		db:       db,
		users:    users,
		hasher:   hasher,
		verifier: verifier,
		tokens:   tokens,
		logger:   logger.With(slog.String("component", "auth_service")),
	}, nil
}

// Register implements AuthService.Register.
func (s *authServiceImpl) Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(cmd.Username, cmd.Password, cmd.FirstName, cmd.LastName)
	if err != nil {
		log.Debug("invalid registration", slog.String("error", err.Error()))
		return nil, err
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, err
	}
	user.HashedPassword = hashed
	user.Password = ""

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		if _, err := txUsers.GetByUsername(ctx, user.Username); err == nil {
			return store.ErrUsernameExists
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return err
		}

		return txUsers.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			log.Debug("username already taken", slog.String("username", user.Username))
			return nil, ErrUsernameTaken
		}
		log.Error("failed to register user", slog.String("error", redact.Error(err)))
		return nil, err
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Login implements AuthService.Login.
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Error("failed to look up user for login", slog.String("error", redact.Error(err)))
			return nil, err
		}
		_ = s.verifier.Compare(dummyHash, password)
		log.Debug("login failed: unknown user")
		return nil, ErrInvalidCredentials
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login failed: password mismatch", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx, user.ID, user.Username)
	if err != nil {
		log.Error("failed to generate token", slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return &LoginResult{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// GetUserByID implements AuthService.GetUserByID.
func (s *authServiceImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if id == uuid.Nil {
		return nil, ErrUserNotFound
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return nil, err
	}
	return user, nil
}
