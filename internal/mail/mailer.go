// Package mail sends outbound transactional email.
package mail

import (
	"context"

	"go.uber.org/zap"
)

// Message is a plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them (dev mode).
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not delivered (log transport)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
