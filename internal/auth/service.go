package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/newsfeed/server/internal/model"
	"github.com/newsfeed/server/internal/repo"
)

// SignUpInput is a validated registration request
type SignUpInput struct {
	Username    string
	Email       string
	Password    string
	Nickname    string
	PhoneNumber string
	Profile     *string
}

// SignInInput identifies the user by Email when set, by Username otherwise
type SignInInput struct {
	Username string
	Email    string
	Password string
}

// TokenPair is returned on sign-in and refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates authentication operations
type AuthService struct {
	users      repo.UserRepo
	refresh    repo.RefreshRepo
	hasher     *Hasher
	jwtService *JWTService
	logger     *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repo.UserRepo,
	refresh repo.RefreshRepo,
	hasher *Hasher,
	jwtService *JWTService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		refresh:    refresh,
		hasher:     hasher,
		jwtService: jwtService,
		logger:     logger,
	}
}

// SignUp registers a new user. The returned user carries the password hash;
// callers must not expose it.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (model.User, error) {
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return model.User{}, ErrAlreadyRegistered
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.Create(ctx, model.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    hash,
		Nickname:    in.Nickname,
		PhoneNumber: in.PhoneNumber,
		Profile:     in.Profile,
	})
	if err != nil {
		// lost a race with a concurrent sign-up
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, ErrAlreadyRegistered
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// SignIn checks credentials and issues a token pair. Unknown user and wrong
// password both yield ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (TokenPair, error) {
	var (
		user model.User
		err  error
	)
	if in.Email != "" {
		user, err = s.users.GetByEmail(ctx, in.Email)
	} else {
		user, err = s.users.GetByUsername(ctx, in.Username)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// spend the same bcrypt work as a real comparison
			s.compareDummy(in.Password)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.Password)
	if err != nil {
		return TokenPair{}, fmt.Errorf("user %d: %w", user.ID, err)
	}
	if !ok {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.IssueTokens(ctx, user.ID)
}

// IssueTokens signs a new token pair and replaces the user's stored refresh
// token hash, invalidating any refresh token issued before.
func (s *AuthService) IssueTokens(ctx context.Context, userID int64) (TokenPair, error) {
	accessToken, err := s.jwtService.SignAccessToken(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.jwtService.SignRefreshToken(userID)
	if err != nil {
		return TokenPair{}, err
	}

	hash, err := s.hasher.HashRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.refresh.Upsert(ctx, userID, hash); err != nil {
		return TokenPair{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates the token pair of a user already authenticated by AuthenticateRefresh
func (s *AuthService) Refresh(ctx context.Context, userID int64) (TokenPair, error) {
	return s.IssueTokens(ctx, userID)
}

// SignOut revokes the user's refresh token
func (s *AuthService) SignOut(ctx context.Context, userID int64) error {
	if err := s.refresh.Revoke(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// CheckEmail returns ErrEmailTaken if a user already has email
func (s *AuthService) CheckEmail(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("failed to look up email: %w", err)
}

// AuthenticateAccess resolves the user behind an access token
func (s *AuthService) AuthenticateAccess(ctx context.Context, token string) (model.User, error) {
	claims, err := s.jwtService.VerifyAccessToken(token)
	if err != nil {
		return model.User{}, err
	}
	return s.loadUser(ctx, claims.UserID)
}

// AuthenticateRefresh resolves the user behind a refresh token, which must
// also match the hash currently stored for that user.
func (s *AuthService) AuthenticateRefresh(ctx context.Context, token string) (model.User, error) {
	claims, err := s.jwtService.VerifyRefreshToken(token)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return model.User{}, err
	}

	stored, err := s.refresh.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, ErrRefreshTokenRevoked
		}
		return model.User{}, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if stored.Revoked() {
		return model.User{}, ErrRefreshTokenRevoked
	}

	ok, err := s.hasher.VerifyRefreshToken(token, *stored.TokenHash)
	if err != nil {
		return model.User{}, fmt.Errorf("user %d refresh token: %w", user.ID, err)
	}
	if !ok {
		return model.User{}, ErrRefreshTokenRevoked
	}

	return user, nil
}

// UpdateProfile applies a profile change for userID
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, upd model.UserUpdate) (model.User, error) {
	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return model.User{}, ErrEmailTaken
		case errors.Is(err, repo.ErrNotFound):
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *AuthService) loadUser(ctx context.Context, id int64) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.logger.Error("failed to build dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}
