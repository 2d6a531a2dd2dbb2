package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRegistered means the username or email belongs to an existing user
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrInvalidCredentials is the single sign-in failure, whether the user or the password was wrong
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound means a verified token names a user that no longer exists
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshTokenRevoked means the refresh token is not the one currently stored for its user
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	// ErrEmailTaken means the email is already used by another account
	ErrEmailTaken = errors.New("email already in use")
	// ErrVerificationFailed means the verification code is absent, expired or wrong
	ErrVerificationFailed = errors.New("verification code mismatch")
	// ErrMailDispatch means the outbound mail transport failed
	ErrMailDispatch = errors.New("mail dispatch failed")
)

// TokenErrorKind classifies token verification failures
type TokenErrorKind int

const (
	TokenMalformed TokenErrorKind = iota + 1
	TokenExpired
	TokenInvalidSignature
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return "malformed"
	case TokenExpired:
		return "expired"
	case TokenInvalidSignature:
		return "invalid signature"
	default:
		return "unknown"
	}
}

// TokenError is returned by token verification
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("token %s", e.Kind)
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// AsTokenError extracts a *TokenError from err's chain
func AsTokenError(err error) (*TokenError, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
