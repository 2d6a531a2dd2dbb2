package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/newsfeed/server/internal/model"
	"github.com/newsfeed/server/internal/repo/repotest"
)

type serviceFixture struct {
	svc     *AuthService
	users   *repotest.UserRepo
	refresh *repotest.RefreshRepo
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	users := repotest.NewUserRepo()
	refresh := repotest.NewRefreshRepo()
	svc := NewAuthService(users, refresh, NewHasher(bcrypt.MinCost), newTestJWTService(), zap.NewNop())
	return &serviceFixture{svc: svc, users: users, refresh: refresh}
}

func aliceInput() SignUpInput {
	return SignUpInput{
		Username:    "alice",
		Email:       "a@x.com",
		Password:    "secret123",
		Nickname:    "A",
		PhoneNumber: "010",
	}
}

func (f *serviceFixture) signUpAlice(t *testing.T) model.User {
	t.Helper()
	user, err := f.svc.SignUp(context.Background(), aliceInput())
	require.NoError(t, err)
	return user
}

func TestSignUp(t *testing.T) {
	f := newServiceFixture(t)

	user := f.signUpAlice(t)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret123", user.Password, "password must be stored hashed")

	ok, err := f.svc.hasher.Verify("secret123", user.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignUp_Conflict(t *testing.T) {
	f := newServiceFixture(t)
	f.signUpAlice(t)

	sameUsername := aliceInput()
	sameUsername.Email = "other@x.com"
	_, err := f.svc.SignUp(context.Background(), sameUsername)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	sameEmail := aliceInput()
	sameEmail.Username = "bob"
	_, err = f.svc.SignUp(context.Background(), sameEmail)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestSignUp_StoreError(t *testing.T) {
	f := newServiceFixture(t)
	f.users.Err = errors.New("db down")

	_, err := f.svc.SignUp(context.Background(), aliceInput())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRegistered)
}

func TestSignIn(t *testing.T) {
	f := newServiceFixture(t)
	user := f.signUpAlice(t)
	ctx := context.Background()

	byUsername, err := f.svc.SignIn(ctx, SignInInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, byUsername.AccessToken)
	assert.NotEmpty(t, byUsername.RefreshToken)

	byEmail, err := f.svc.SignIn(ctx, SignInInput{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	stored, err := f.refresh.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, stored.Revoked())
	ok, err := f.svc.hasher.VerifyRefreshToken(byEmail.RefreshToken, *stored.TokenHash)
	require.NoError(t, err)
	assert.True(t, ok, "stored hash must match the latest refresh token")
}

func TestSignIn_SameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.signUpAlice(t)
	ctx := context.Background()

	_, errWrong := f.svc.SignIn(ctx, SignInInput{Username: "alice", Password: "wrong"})
	_, errUnknown := f.svc.SignIn(ctx, SignInInput{Username: "nobody", Password: "secret123"})
	_, errUnknownEmail := f.svc.SignIn(ctx, SignInInput{Email: "nobody@x.com", Password: "secret123"})

	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestSignIn_MalformedStoredHash(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.users.Create(context.Background(), model.User{Username: "mallory", Email: "m@x.com", Password: "plain"})
	require.NoError(t, err)

	_, err = f.svc.SignIn(context.Background(), SignInInput{Username: "mallory", Password: "plain"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials, "corrupt hash is an internal error")
}

func TestRotationInvalidatesPreviousRefreshToken(t *testing.T) {
	f := newServiceFixture(t)
	f.signUpAlice(t)
	ctx := context.Background()

	first, err := f.svc.SignIn(ctx, SignInInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	user, err := f.svc.AuthenticateRefresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.AuthenticateRefresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked, "rotated token must be unusable")

	_, err = f.svc.AuthenticateRefresh(ctx, second.RefreshToken)
	assert.NoError(t, err)

	third, err := f.svc.SignIn(ctx, SignInInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	_, err = f.svc.AuthenticateRefresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked, "sign-in rotates too")
	_, err = f.svc.AuthenticateRefresh(ctx, third.RefreshToken)
	assert.NoError(t, err)
}

func TestSignOut(t *testing.T) {
	f := newServiceFixture(t)
	user := f.signUpAlice(t)
	ctx := context.Background()

	pair, err := f.svc.SignIn(ctx, SignInInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, user.ID))
	_, err = f.svc.AuthenticateRefresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	require.NoError(t, f.svc.SignOut(ctx, user.ID), "second sign-out is harmless")

	_, err = f.svc.AuthenticateAccess(ctx, pair.AccessToken)
	assert.NoError(t, err, "access tokens stay valid until expiry")
}

func TestAuthenticateRefresh_NeverIssued(t *testing.T) {
	f := newServiceFixture(t)
	user := f.signUpAlice(t)

	token, err := f.svc.jwtService.SignRefreshToken(user.ID)
	require.NoError(t, err)

	_, err = f.svc.AuthenticateRefresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked, "a validly signed token that was never stored is rejected")
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	f := newServiceFixture(t)
	user := f.signUpAlice(t)
	ctx := context.Background()

	pair, err := f.svc.SignIn(ctx, SignInInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	f.users.Delete(user.ID)

	_, err = f.svc.AuthenticateAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.svc.AuthenticateRefresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticateAccess_TokenErrors(t *testing.T) {
	f := newServiceFixture(t)
	user := f.signUpAlice(t)

	expired := NewJWTService("access-secret", "refresh-secret", -time.Second, time.Hour)
	token, err := expired.SignAccessToken(user.ID)
	require.NoError(t, err)

	_, err = f.svc.AuthenticateAccess(context.Background(), token)
	te, ok := AsTokenError(err)
	require.True(t, ok)
	assert.Equal(t, TokenExpired, te.Kind)
}

func TestIssueTokens_StoreFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.refresh.Err = errors.New("db down")

	_, err := f.svc.IssueTokens(context.Background(), 1)
	assert.Error(t, err)
}

func TestCheckEmail(t *testing.T) {
	f := newServiceFixture(t)
	f.signUpAlice(t)

	assert.ErrorIs(t, f.svc.CheckEmail(context.Background(), "a@x.com"), ErrEmailTaken)
	assert.NoError(t, f.svc.CheckEmail(context.Background(), "free@x.com"))
}

func TestUpdateProfile(t *testing.T) {
	f := newServiceFixture(t)
	alice := f.signUpAlice(t)
	bob := aliceInput()
	bob.Username, bob.Email = "bob", "b@x.com"
	_, err := f.svc.SignUp(context.Background(), bob)
	require.NoError(t, err)

	nick := "Alice"
	updated, err := f.svc.UpdateProfile(context.Background(), alice.ID, model.UserUpdate{Nickname: &nick})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Nickname)
	assert.Equal(t, "a@x.com", updated.Email)

	taken := "b@x.com"
	_, err = f.svc.UpdateProfile(context.Background(), alice.ID, model.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.UpdateProfile(context.Background(), 999, model.UserUpdate{Nickname: &nick})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
