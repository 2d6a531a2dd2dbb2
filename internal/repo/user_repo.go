package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/newsfeed/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Update(ctx context.Context, id int64, upd model.UserUpdate) (model.User, error)
}

const userColumns = `id, username, email, password, nickname, phone_number, profile, created_at, updated_at`

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// Create inserts a user. The password must already be hashed.
func (r *userRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `
		INSERT INTO users (username, email, password, nickname, phone_number, profile)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.Password,
		user.Nickname,
		user.PhoneNumber,
		user.Profile,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("user already exists: %w", ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves a user by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetByUsername retrieves a user by username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username)
}

// ExistsByUsernameOrEmail reports whether either identifier is taken
func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
	`, username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Update applies the non-nil fields of upd and returns the updated user
func (r *userRepo) Update(ctx context.Context, id int64, upd model.UserUpdate) (model.User, error) {
	query := `
		UPDATE users
		SET email = COALESCE($2, email),
		    nickname = COALESCE($3, nickname),
		    phone_number = COALESCE($4, phone_number),
		    profile = COALESCE($5, profile),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, upd.Email, upd.Nickname, upd.PhoneNumber, upd.Profile))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("email already in use: %w", ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (r *userRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.Nickname,
		&user.PhoneNumber,
		&user.Profile,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
