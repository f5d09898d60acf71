// Package mail delivers portal notifications by email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/pkg/config"
)

// ErrNoRecipients is returned when a message has nobody to deliver to.
var ErrNoRecipients = errors.New("message has no recipients")

// Address is a display name plus email address.
type Address struct {
	Name  string
	Email string
}

// Message is one outbound email. Every recipient gets an individual copy.
type Message struct {
	To      []Address
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns a SendGrid sender when an API key is configured and a
// logging sender otherwise.
func NewSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendgridAPIKey == "" {
		return &LogSender{logger: logger, prefix: cfg.SubjectPrefix}
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.SendgridAPIKey),
		from:   Address{Name: cfg.FromName, Email: cfg.FromAddress},
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}
}

// SendgridSender delivers through the SendGrid v3 API.
type SendgridSender struct {
	client *sendgrid.Client
	from   Address
	prefix string
	logger *zap.Logger
}

// Send implements Sender.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	payload, err := s.build(msg)
	if err != nil {
		return err
	}
	resp, err := s.client.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	s.logger.Debug("email sent", zap.Int("recipients", len(msg.To)), zap.String("subject", msg.Subject))
	return nil
}

func (s *SendgridSender) build(msg Message) (*sgmail.SGMailV3, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.from.Name, s.from.Email))
	m.Subject = s.prefix + msg.Subject
	for _, to := range msg.To {
		p := sgmail.NewPersonalization()
		p.AddTos(sgmail.NewEmail(to.Name, to.Email))
		m.AddPersonalizations(p)
	}
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	if len(m.Content) == 0 {
		return nil, fmt.Errorf("message %q has no content", msg.Subject)
	}
	return m, nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
	prefix string
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	emails := make([]string, len(msg.To))
	for i, to := range msg.To {
		emails[i] = to.Email
	}
	s.logger.Info("email (not delivered)",
		zap.Strings("to", emails),
		zap.String("subject", s.prefix+msg.Subject),
		zap.Int("text_len", len(msg.Text)),
	)
	return nil
}
