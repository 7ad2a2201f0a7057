// Package mailer sends transactional email through Resend, or logs it when
// no provider is configured.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned for messages without an address.
var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Message is a plain-text email to a single recipient.
type Message struct {
	To      string
	Subject string
	Text    string
	Tag     string
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures the transport.
type Config struct {
	APIKey    string
	FromEmail string
	DevMode   bool
}

// New returns a ResendMailer when an API key is configured outside dev mode,
// otherwise a LogMailer.
func New(cfg Config, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" || cfg.DevMode {
		logger.Info("email delivery disabled, messages will be logged", zap.Bool("dev_mode", cfg.DevMode))
		return NewLogMailer(logger)
	}
	return NewResendMailer(resend.NewClient(cfg.APIKey), cfg.FromEmail, logger)
}

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendMailer wraps a Resend client.
func NewResendMailer(client *resend.Client, from string, logger *zap.Logger) *ResendMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendMailer{client: client, from: from, logger: logger}
}

// Send implements Mailer.
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
	}
	if msg.Tag != "" {
		params.Tags = []resend.Tag{{Name: "type", Value: msg.Tag}}
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	m.logger.Debug("email sent", zap.String("type", msg.Tag), zap.String("to", msg.To), zap.String("id", sent.Id))
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	m.logger.Info("email sent (dev mode)",
		zap.String("type", msg.Tag),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
