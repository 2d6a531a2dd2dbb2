package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/newsfeed/server/internal/auth"
	"github.com/newsfeed/server/internal/http/response"
	"github.com/newsfeed/server/internal/model"
)

type contextKey string

const userKey contextKey = "user"

const tokenType = "Bearer"

const (
	msgNoToken          = "Authentication credentials are missing."
	msgNotSupportedType = "Unsupported authentication scheme."
	msgExpired          = "Authentication credentials have expired."
	msgMalformed        = "Authentication credentials are malformed."
	msgInvalid          = "Authentication credentials are invalid."
	msgNoUser           = "No user matches the authentication credentials."
	msgDiscarded        = "Authentication credentials have been discarded."
)

// Authenticator resolves bearer tokens to users
type Authenticator interface {
	AuthenticateAccess(ctx context.Context, token string) (model.User, error)
	AuthenticateRefresh(ctx context.Context, token string) (model.User, error)
}

// RequireAccessToken validates an access token, loads its user and attaches it to the context
func RequireAccessToken(a Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return requireToken(a.AuthenticateAccess, logger)
}

// RequireRefreshToken validates a refresh token against the stored hash and attaches its user to the context
func RequireRefreshToken(a Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return requireToken(a.AuthenticateRefresh, logger)
}

func requireToken(authenticate func(context.Context, string) (model.User, error), logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, response.CodeNoToken, msgNoToken)
				return
			}

			scheme, token, _ := strings.Cut(authHeader, " ")
			if scheme != tokenType {
				unauthorized(w, response.CodeNotSupportedType, msgNotSupportedType)
				return
			}

			token = strings.TrimSpace(token)
			if token == "" {
				unauthorized(w, response.CodeNoToken, msgNoToken)
				return
			}

			user, err := authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, r, logger, err)
				return
			}

			user.Password = ""
			ctx := WithUser(r.Context(), &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	if te, ok := auth.AsTokenError(err); ok {
		switch te.Kind {
		case auth.TokenExpired:
			unauthorized(w, response.CodeTokenExpired, msgExpired)
		case auth.TokenMalformed:
			unauthorized(w, response.CodeMalformedToken, msgMalformed)
		default:
			unauthorized(w, response.CodeInvalidSignature, msgInvalid)
		}
		return
	}

	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		unauthorized(w, response.CodeNoUser, msgNoUser)
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		unauthorized(w, response.CodeDiscardedToken, msgDiscarded)
	default:
		response.Internal(w, r, logger, err)
	}
}

func unauthorized(w http.ResponseWriter, code, message string) {
	response.Error(w, http.StatusUnauthorized, code, message)
}

// GetUser returns the user attached to the request context (set by RequireAccessToken or RequireRefreshToken)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
