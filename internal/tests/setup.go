// Package tests holds integration tests that run the full HTTP stack
// against a real Postgres. They skip when DATABASE_URL is unset.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/newsfeed/server/internal/db"
	"github.com/newsfeed/server/internal/mail"
)

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// TruncateAuthTables truncates auth-related tables for a clean test state.
func TruncateAuthTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, "TRUNCATE TABLE refresh_tokens, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate auth tables: %w", err)
	}
	return nil
}

var verificationCodeRe = regexp.MustCompile(`Verification code: ([A-Za-z0-9]+)`)

// RecordingMailer keeps every message instead of delivering it.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// LastCode returns the verification code of the latest message sent to email.
func (m *RecordingMailer) LastCode(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To != email {
			continue
		}
		if match := verificationCodeRe.FindStringSubmatch(m.sent[i].Body); len(match) == 2 {
			return match[1], true
		}
	}
	return "", false
}
