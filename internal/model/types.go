package model

import (
	"time"
)

// User represents a registered user. Password holds the bcrypt hash.
type User struct {
	ID          int64
	Username    string
	Email       string
	Password    string
	Nickname    string
	PhoneNumber string
	Profile     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserUpdate carries the profile fields a user may change. Nil means unchanged.
type UserUpdate struct {
	Email       *string
	Nickname    *string
	PhoneNumber *string
	Profile     *string
}

// Empty reports whether no field is set
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Nickname == nil && u.PhoneNumber == nil && u.Profile == nil
}

// RefreshToken is the single refresh token slot of a user.
// TokenHash is nil once the user has signed out.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revoked reports whether the slot holds no live token
func (t RefreshToken) Revoked() bool {
	return t.TokenHash == nil || *t.TokenHash == ""
}
