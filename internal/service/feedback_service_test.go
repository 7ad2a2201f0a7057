package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type memoryFeedbackRepo struct {
	nextID    int64
	entries   []models.Feedback
	deleted   []int64
	createErr error
}

func (r *memoryFeedbackRepo) add(entry models.Feedback) models.Feedback {
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, entry)
	return entry
}

func (r *memoryFeedbackRepo) ListByNotice(ctx context.Context, noticeID int64) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, e := range r.entries {
		if e.NoticeID == noticeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryFeedbackRepo) GetByID(ctx context.Context, id int64) (*models.Feedback, error) {
	for _, e := range r.entries {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memoryFeedbackRepo) Create(ctx context.Context, entry *models.Feedback) (*models.Feedback, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	entry.UserName = "Student S"
	entry.UserRole = models.RoleStudent
	created := r.add(*entry)
	return &created, nil
}

func (r *memoryFeedbackRepo) Delete(ctx context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func newFeedbackFixture(t *testing.T) (*FeedbackService, *memoryFeedbackRepo, *memoryNoticeRepo) {
	t.Helper()
	notices := newMemoryNoticeRepo()
	repo := &memoryFeedbackRepo{}
	return NewFeedbackService(repo, notices, nil, nil), repo, notices
}

func TestFeedbackListGroupsReplies(t *testing.T) {
	svc, repo, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 1, Department: models.DepartmentAll, Status: models.NoticeStatusApproved, CommentEnabled: true})
	base := time.Now()
	first := repo.add(models.Feedback{NoticeID: notice.ID, UserID: 3, Message: "first", CreatedAt: base})
	second := repo.add(models.Feedback{NoticeID: notice.ID, UserID: 2, Message: "second", CreatedAt: base.Add(time.Minute)})
	repo.add(models.Feedback{NoticeID: notice.ID, UserID: 1, Message: "reply", ReplyTo: &first.ID, CreatedAt: base.Add(2 * time.Minute)})
	repo.add(models.Feedback{NoticeID: notice.ID + 1, UserID: 1, Message: "elsewhere"})

	threads, err := svc.List(context.Background(), studentViewer, notice.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, first.ID, threads[0].ID)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "reply", threads[0].Replies[0].Message)
	assert.Equal(t, second.ID, threads[1].ID)
	assert.NotNil(t, threads[1].Replies)
	assert.Empty(t, threads[1].Replies)
}

func TestFeedbackListUnknownNotice(t *testing.T) {
	svc, _, _ := newFeedbackFixture(t)

	_, err := svc.List(context.Background(), studentViewer, 77)
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestFeedbackPostTrimsAndCreates(t *testing.T) {
	svc, _, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 1, Department: "physics", Status: models.NoticeStatusApproved, CommentEnabled: true})

	created, err := svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "  see you there  "})
	require.NoError(t, err)
	assert.Equal(t, "see you there", created.Message)
	assert.Equal(t, studentViewer.ID, created.UserID)
	assert.Equal(t, models.RoleStudent, created.UserRole)
}

func TestFeedbackPostRejectedWhenCommentsDisabled(t *testing.T) {
	for _, viewer := range []models.Viewer{adminViewer, teacherViewer, studentViewer} {
		svc, repo, notices := newFeedbackFixture(t)
		notice := notices.seed(models.Notice{AuthorID: 1, Department: models.DepartmentAll, Status: models.NoticeStatusApproved, CommentEnabled: false})

		_, err := svc.Post(context.Background(), viewer, notice.ID, dto.CreateFeedbackRequest{Message: "hello"})
		assertAppError(t, err, appErrors.ErrForbidden)
		assert.Empty(t, repo.entries)
	}
}

func TestFeedbackPostValidatesMessage(t *testing.T) {
	svc, _, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 1, Department: models.DepartmentAll, Status: models.NoticeStatusApproved, CommentEnabled: true})

	_, err := svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "   "})
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: strings.Repeat("a", 2001)})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestFeedbackReplyRules(t *testing.T) {
	svc, repo, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 1, Department: models.DepartmentAll, Status: models.NoticeStatusApproved, CommentEnabled: true})
	other := notices.seed(models.Notice{AuthorID: 1, Department: models.DepartmentAll, Status: models.NoticeStatusApproved, CommentEnabled: true})
	top := repo.add(models.Feedback{NoticeID: notice.ID, UserID: 2, Message: "top"})
	reply := repo.add(models.Feedback{NoticeID: notice.ID, UserID: 3, Message: "reply", ReplyTo: &top.ID})
	foreign := repo.add(models.Feedback{NoticeID: other.ID, UserID: 3, Message: "foreign"})
	missing := int64(999)

	created, err := svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "ok", ReplyTo: &top.ID})
	require.NoError(t, err)
	assert.Equal(t, top.ID, *created.ReplyTo)

	_, err = svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "nested", ReplyTo: &reply.ID})
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "cross", ReplyTo: &foreign.ID})
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "ghost", ReplyTo: &missing})
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestFeedbackPostHiddenNotice(t *testing.T) {
	svc, _, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 2, Department: "physics", Status: models.NoticeStatusPending, CommentEnabled: true})

	_, err := svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "early"})
	assertAppError(t, err, appErrors.ErrForbidden)
}

func TestFeedbackOpenToOtherDepartments(t *testing.T) {
	svc, _, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 4, Department: "history", Status: models.NoticeStatusApproved, CommentEnabled: true})

	created, err := svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "physics says hi"})
	require.NoError(t, err)
	assert.Equal(t, notice.ID, created.NoticeID)

	threads, err := svc.List(context.Background(), studentViewer, notice.ID)
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestFeedbackPostAuthorOfPendingNotice(t *testing.T) {
	svc, _, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: teacherViewer.ID, Department: "physics", Status: models.NoticeStatusPending, CommentEnabled: true})

	_, err := svc.Post(context.Background(), teacherViewer, notice.ID, dto.CreateFeedbackRequest{Message: "draft note"})
	require.NoError(t, err)
}

func TestFeedbackPostNoticeRemovedConcurrently(t *testing.T) {
	svc, repo, notices := newFeedbackFixture(t)
	notice := notices.seed(models.Notice{AuthorID: 1, Department: models.DepartmentAll, Status: models.NoticeStatusApproved, CommentEnabled: true})
	repo.createErr = &pq.Error{Code: "23503"}

	_, err := svc.Post(context.Background(), studentViewer, notice.ID, dto.CreateFeedbackRequest{Message: "too late"})
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestFeedbackDeleteAuthorization(t *testing.T) {
	svc, repo, _ := newFeedbackFixture(t)
	own := repo.add(models.Feedback{NoticeID: 1, UserID: studentViewer.ID, Message: "mine"})
	others := repo.add(models.Feedback{NoticeID: 1, UserID: 99, Message: "theirs"})

	require.NoError(t, svc.Delete(context.Background(), studentViewer, own.ID))

	err := svc.Delete(context.Background(), studentViewer, others.ID)
	assertAppError(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), teacherViewer, others.ID))
	assert.Equal(t, []int64{own.ID, others.ID}, repo.deleted)

	err = svc.Delete(context.Background(), adminViewer, 12345)
	assertAppError(t, err, appErrors.ErrNotFound)
}
