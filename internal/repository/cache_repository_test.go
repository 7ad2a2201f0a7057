package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "notice:pdf:1:1")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "notice:pdf:1:1", []byte("%PDF"), time.Minute))
	require.NoError(t, repo.Set(ctx, "notice:pdf:1:1", nil, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "notice:pdf:1:*"))
}
