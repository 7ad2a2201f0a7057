package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noticeboard-api/pkg/database"
)

func TestReactionDeleteReportsRemoval(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReactionRepository(db)

	stmt := regexp.QuoteMeta("DELETE FROM reactions WHERE notice_id = $1 AND user_id = $2")
	mock.ExpectExec(stmt).WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionInsertSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReactionRepository(db)

	mock.ExpectExec("INSERT INTO reactions").
		WithArgs(int64(1), int64(2), "like", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Insert(context.Background(), 1, 2, time.Now())
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
