package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/newsfeed/server/internal/cache"
	"github.com/newsfeed/server/internal/logging"
	"github.com/newsfeed/server/internal/mail"
)

const (
	verificationCodeLength = 6
	verificationAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	verificationSubject    = "[News feed] Email verification code"
)

// Verifier defines the email verification code flow
type Verifier interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
}

// EmailVerifier keeps one pending code per email in a TTL cache and mails it to the address.
type EmailVerifier struct {
	codes    *cache.TTL[string, string]
	mailer   mail.Mailer
	validFor time.Duration
	logger   *zap.Logger
}

var _ Verifier = (*EmailVerifier)(nil)

// NewEmailVerifier creates a verifier. validFor is only used in the mail text;
// expiry is enforced by the cache.
func NewEmailVerifier(codes *cache.TTL[string, string], mailer mail.Mailer, validFor time.Duration, logger *zap.Logger) *EmailVerifier {
	return &EmailVerifier{
		codes:    codes,
		mailer:   mailer,
		validFor: validFor,
		logger:   logger,
	}
}

// RequestCode generates a code, caches it under email (replacing a pending
// one) and mails it. If delivery fails the code is withdrawn, unless a newer
// request has already replaced it.
func (v *EmailVerifier) RequestCode(ctx context.Context, email string) error {
	code, err := generateCode(verificationCodeLength)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	v.codes.Set(email, code)

	if err := v.mailer.Send(ctx, v.message(email, code)); err != nil {
		v.codes.CompareAndDelete(email, func(pending string) bool { return pending == code })
		v.logger.Warn("verification mail dispatch failed",
			zap.String("email", logging.MaskEmail(email)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrMailDispatch, err)
	}

	return nil
}

// VerifyCode consumes the pending code for email if it equals code
func (v *EmailVerifier) VerifyCode(_ context.Context, email, code string) error {
	ok := v.codes.CompareAndDelete(email, func(pending string) bool {
		return subtle.ConstantTimeCompare([]byte(pending), []byte(code)) == 1
	})
	if !ok {
		return ErrVerificationFailed
	}
	return nil
}

func (v *EmailVerifier) message(email, code string) mail.Message {
	return mail.Message{
		To:      email,
		Subject: verificationSubject,
		Body: fmt.Sprintf(
			"Enter the code below to finish verifying your email address.\n\n"+
				"Email: %s\nVerification code: %s\n\nThe code expires in %s.\n",
			email, code, v.validFor,
		),
	}
}

// generateCode returns a random alphanumeric code from crypto/rand
func generateCode(length int) (string, error) {
	max := big.NewInt(int64(len(verificationAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = verificationAlphabet[n.Int64()]
	}
	return string(b), nil
}
