package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTokenExpiry  = time.Hour          // 1h (access tokens)
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour // 7 days (refresh tokens)
)

// JWTClaims represents the JWT token claims shared by access and refresh tokens
type JWTClaims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies access and refresh tokens. The two token
// types use independent secrets, so one can never pass for the other.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// SignAccessToken creates a short-lived access token for userID
func (s *JWTService) SignAccessToken(userID int64) (string, error) {
	token, err := sign(userID, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// SignRefreshToken creates a long-lived refresh token for userID
func (s *JWTService) SignRefreshToken(userID int64) (string, error) {
	token, err := sign(userID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

// VerifyAccessToken verifies an access token. Failures are *TokenError.
func (s *JWTService) VerifyAccessToken(tokenString string) (*JWTClaims, error) {
	return verify(tokenString, s.accessSecret)
}

// VerifyRefreshToken verifies a refresh token signature and expiry. Failures are *TokenError.
func (s *JWTService) VerifyRefreshToken(tokenString string) (*JWTClaims, error) {
	return verify(tokenString, s.refreshSecret)
}

func sign(userID int64, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps two tokens issued within the same second distinct
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(tokenString string, secret []byte) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &TokenError{Kind: TokenMalformed, Err: errors.New("invalid token claims")}
	}
	if claims.UserID <= 0 {
		return nil, &TokenError{Kind: TokenMalformed, Err: errors.New("missing id claim")}
	}

	return claims, nil
}

func classifyTokenError(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: TokenExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &TokenError{Kind: TokenMalformed, Err: err}
	default:
		return &TokenError{Kind: TokenInvalidSignature, Err: err}
	}
}
