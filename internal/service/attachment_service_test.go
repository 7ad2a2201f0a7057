package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noticeboard-api/internal/models"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
	"github.com/noah-isme/noticeboard-api/pkg/storage"
)

type attachmentLookupStub map[string]models.AttachmentAccess

func (s attachmentLookupStub) FindAttachmentByFilename(ctx context.Context, filename string) (*models.AttachmentAccess, error) {
	access, ok := s[filename]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &access, nil
}

func newAttachmentFixture(t *testing.T, status models.NoticeStatus, department string) (*AttachmentService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.SaveStream("stored.pdf", bytes.NewBufferString("%PDF-1.4 body"))
	require.NoError(t, err)

	lookup := attachmentLookupStub{
		"stored.pdf": {
			Attachment:       models.Attachment{ID: 1, NoticeID: 10, Filename: "stored.pdf", OriginalFilename: "Timetable.pdf", FileType: "application/pdf"},
			NoticeAuthorID:   2,
			NoticeStatus:     status,
			NoticeDepartment: department,
		},
		"gone.txt": {
			Attachment:       models.Attachment{ID: 2, NoticeID: 10, Filename: "gone.txt", FileType: "text/plain"},
			NoticeAuthorID:   2,
			NoticeStatus:     models.NoticeStatusApproved,
			NoticeDepartment: models.DepartmentAll,
		},
	}
	return NewAttachmentService(lookup, store, nil), store
}

func TestAttachmentOpenForStudentOfDepartment(t *testing.T) {
	svc, _ := newAttachmentFixture(t, models.NoticeStatusApproved, "physics")

	file, err := svc.Open(context.Background(), studentViewer, "stored.pdf")
	require.NoError(t, err)
	defer file.Content.Close()

	body, err := io.ReadAll(file.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(body))
	assert.Equal(t, int64(len(body)), file.Size)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "Timetable.pdf", file.OriginalFilename)
}

func TestAttachmentOpenAccessMatrix(t *testing.T) {
	cases := []struct {
		name       string
		viewer     models.Viewer
		status     models.NoticeStatus
		department string
		allowed    bool
	}{
		{"student pending", studentViewer, models.NoticeStatusPending, "physics", false},
		{"student rejected", studentViewer, models.NoticeStatusRejected, models.DepartmentAll, false},
		{"student other department", studentViewer, models.NoticeStatusApproved, "history", false},
		{"student all departments", studentViewer, models.NoticeStatusApproved, models.DepartmentAll, true},
		{"teacher pending", teacher2Viewer, models.NoticeStatusPending, "physics", true},
		{"admin rejected", adminViewer, models.NoticeStatusRejected, "history", true},
		{"anonymous", models.Viewer{}, models.NoticeStatusApproved, models.DepartmentAll, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newAttachmentFixture(t, tc.status, tc.department)

			file, err := svc.Open(context.Background(), tc.viewer, "stored.pdf")
			if tc.allowed {
				require.NoError(t, err)
				file.Content.Close()
				return
			}
			assertAppError(t, err, appErrors.ErrForbidden)
		})
	}
}

func TestAttachmentOpenNotFound(t *testing.T) {
	svc, _ := newAttachmentFixture(t, models.NoticeStatusApproved, models.DepartmentAll)

	for _, name := range []string{"unknown.pdf", "../stored.pdf", "dir/stored.pdf", "", ".env", "gone.txt"} {
		_, err := svc.Open(context.Background(), adminViewer, name)
		assertAppError(t, err, appErrors.ErrNotFound)
	}
}
