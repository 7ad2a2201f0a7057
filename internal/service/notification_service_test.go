package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/pkg/jobs"
	"github.com/noah-isme/noticeboard-api/pkg/mailer"
)

type recipientRepoStub struct {
	emails []string
	err    error
	roles  []models.UserRole
}

func (r *recipientRepoStub) ListEmailsByRoles(ctx context.Context, roles []models.UserRole) ([]string, error) {
	r.roles = roles
	return r.emails, r.err
}

type recordingMailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	failTo map[string]bool
	notify chan struct{}
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	if m.notify != nil {
		m.notify <- struct{}{}
	}
	return nil
}

func (m *recordingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

func TestDeliverNoticePublishedContinuesPastFailures(t *testing.T) {
	repo := &recipientRepoStub{emails: []string{"a@campus.edu", "b@campus.edu", "c@campus.edu"}}
	m := &recordingMailer{failTo: map[string]bool{"b@campus.edu": true}}
	metrics := NewMetricsService()
	svc := NewNotificationService(repo, m, metrics, nil, NotificationConfig{Enabled: true, ClientOrigin: "http://board.local"})

	long := strings.Repeat("x", 250)
	err := svc.handle(context.Background(), jobs.Job{Type: jobNoticePublished, Payload: noticePublishedPayload{NoticeID: 1, Title: "Exams", Content: long, AuthorName: "Admin"}})
	require.NoError(t, err)

	assert.Equal(t, []models.UserRole{models.RoleStudent, models.RoleTeacher}, repo.roles)
	sent := m.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "New Notice: Exams", sent[0].Subject)
	assert.Contains(t, sent[0].Text, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, sent[0].Text, strings.Repeat("x", 201))
	assert.Contains(t, sent[0].Text, "http://board.local")

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.NotificationsSent)
	assert.Equal(t, uint64(1), snap.NotificationsFailed)
}

func TestDeliverNoticePublishedRetriesRecipientLookup(t *testing.T) {
	repo := &recipientRepoStub{err: errors.New("db down")}
	svc := NewNotificationService(repo, &recordingMailer{}, nil, nil, NotificationConfig{Enabled: true})

	err := svc.handle(context.Background(), jobs.Job{Type: jobNoticePublished, Payload: noticePublishedPayload{NoticeID: 1}})
	assert.Error(t, err)
}

func TestNotifyNoticePublishedDeliversInBackground(t *testing.T) {
	repo := &recipientRepoStub{emails: []string{"s@campus.edu"}}
	m := &recordingMailer{notify: make(chan struct{}, 1)}
	svc := NewNotificationService(repo, m, nil, nil, NotificationConfig{Enabled: true, Workers: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyNoticePublished(models.Notice{ID: 4, Title: "Holiday", Content: "Closed Friday"}, "Dean")

	select {
	case <-m.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
	assert.Equal(t, "s@campus.edu", m.messages()[0].To)
}

func TestNotifyNoticePublishedDisabled(t *testing.T) {
	repo := &recipientRepoStub{emails: []string{"s@campus.edu"}}
	svc := NewNotificationService(repo, &recordingMailer{}, nil, nil, NotificationConfig{Enabled: false})

	svc.NotifyNoticePublished(models.Notice{ID: 4}, "Dean")
	assert.Nil(t, repo.roles)
}

func TestNotifyWithoutRunningQueueIsDropped(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(&recipientRepoStub{}, &recordingMailer{}, metrics, nil, NotificationConfig{Enabled: true})

	svc.NotifyNoticePublished(models.Notice{ID: 9}, "Dean")
	assert.Equal(t, uint64(1), metrics.Snapshot().NotificationsDropped)
}

func TestDeliverPasswordResetBuildsLink(t *testing.T) {
	m := &recordingMailer{}
	svc := NewNotificationService(&recipientRepoStub{}, m, nil, nil, NotificationConfig{ClientOrigin: "http://board.local/"})

	err := svc.handle(context.Background(), jobs.Job{Type: jobPasswordReset, Payload: passwordResetPayload{Email: "u@campus.edu", Name: "U", Token: "abc"}})
	require.NoError(t, err)
	sent := m.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "http://board.local/reset-password?token=abc")
}
