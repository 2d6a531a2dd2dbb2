package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

const implicitTLSPort = 465

// SMTPMailer delivers messages over SMTP, dialing one connection per message.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates an SMTP transport. Authentication is used when username is set.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers msg
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	em, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(m.host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(msg Message) (*gomail.Msg, error) {
	em := gomail.NewMsg()
	if err := em.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := em.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return em, nil
}

func (m *SMTPMailer) clientOptions() []gomail.Option {
	opts := []gomail.Option{gomail.WithPort(m.port)}
	if m.port == implicitTLSPort {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if m.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.username),
			gomail.WithPassword(m.password),
		)
	}
	return opts
}
