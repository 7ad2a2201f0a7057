package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFallsBackToLogMailer(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(Config{}, nil))
	assert.IsType(t, &LogMailer{}, New(Config{APIKey: "re_123", DevMode: true}, nil))
	assert.IsType(t, &ResendMailer{}, New(Config{APIKey: "re_123", FromEmail: "board@campus.edu"}, nil))
}

func TestLogMailerRecordsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	err := m.Send(context.Background(), Message{To: "a@campus.edu", Subject: "New Notice: Exams", Tag: "notice_published"})
	require.NoError(t, err)

	entries := logs.FilterMessage("email sent (dev mode)").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@campus.edu", entries[0].ContextMap()["to"])
}

func TestMailersRejectEmptyRecipient(t *testing.T) {
	assert.ErrorIs(t, NewLogMailer(nil).Send(context.Background(), Message{}), ErrNoRecipient)
	assert.ErrorIs(t, NewResendMailer(nil, "x@y.z", nil).Send(context.Background(), Message{}), ErrNoRecipient)
}
