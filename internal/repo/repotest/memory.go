// Package repotest provides in-memory implementations of the repo
// interfaces with the same uniqueness and not-found semantics as the
// Postgres repositories.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newsfeed/server/internal/model"
	"github.com/newsfeed/server/internal/repo"
)

// UserRepo is an in-memory repo.UserRepo
type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User

	// Err, when set, is returned by every call
	Err error
}

var _ repo.UserRepo = (*UserRepo)(nil)

// NewUserRepo creates an empty UserRepo
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[int64]model.User)}
}

func (r *UserRepo) Create(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.User{}, r.Err
	}

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return model.User{}, fmt.Errorf("user already exists: %w", repo.ErrDuplicate)
		}
	}

	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *UserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	_, err := r.find(func(u model.User) bool { return u.Username == username || u.Email == email })
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserRepo) Update(_ context.Context, id int64, upd model.UserUpdate) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.User{}, r.Err
	}

	user, ok := r.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user not found: %w", repo.ErrNotFound)
	}
	if upd.Email != nil {
		for _, u := range r.users {
			if u.ID != id && u.Email == *upd.Email {
				return model.User{}, fmt.Errorf("email already in use: %w", repo.ErrDuplicate)
			}
		}
		user.Email = *upd.Email
	}
	if upd.Nickname != nil {
		user.Nickname = *upd.Nickname
	}
	if upd.PhoneNumber != nil {
		user.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Profile != nil {
		profile := *upd.Profile
		user.Profile = &profile
	}
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return user, nil
}

// Delete removes a user, simulating deletion between token issuance and use
func (r *UserRepo) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *UserRepo) find(match func(model.User) bool) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.User{}, r.Err
	}
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user not found: %w", repo.ErrNotFound)
}

// RefreshRepo is an in-memory repo.RefreshRepo
type RefreshRepo struct {
	mu     sync.Mutex
	nextID int64
	tokens map[int64]model.RefreshToken

	// Err, when set, is returned by every call
	Err error
}

var _ repo.RefreshRepo = (*RefreshRepo)(nil)

// NewRefreshRepo creates an empty RefreshRepo
func NewRefreshRepo() *RefreshRepo {
	return &RefreshRepo{tokens: make(map[int64]model.RefreshToken)}
}

func (r *RefreshRepo) Upsert(_ context.Context, userID int64, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	now := time.Now()
	t, ok := r.tokens[userID]
	if !ok {
		r.nextID++
		t = model.RefreshToken{ID: r.nextID, UserID: userID, CreatedAt: now}
	}
	hash := tokenHash
	t.TokenHash = &hash
	t.UpdatedAt = now
	r.tokens[userID] = t
	return nil
}

func (r *RefreshRepo) FindByUserID(_ context.Context, userID int64) (model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.RefreshToken{}, r.Err
	}

	t, ok := r.tokens[userID]
	if !ok {
		return model.RefreshToken{}, fmt.Errorf("refresh token not found: %w", repo.ErrNotFound)
	}
	return t, nil
}

func (r *RefreshRepo) Revoke(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	if t, ok := r.tokens[userID]; ok {
		t.TokenHash = nil
		t.UpdatedAt = time.Now()
		r.tokens[userID] = t
	}
	return nil
}
