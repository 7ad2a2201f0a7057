package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noticeboard-api/internal/models"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type memoryReactionRepo struct {
	mu      sync.Mutex
	notices map[int64]bool
	likes   map[[2]int64]bool
	// raceInsert simulates another request inserting between our delete and insert.
	raceInsert bool
}

func newMemoryReactionRepo(noticeIDs ...int64) *memoryReactionRepo {
	repo := &memoryReactionRepo{notices: map[int64]bool{}, likes: map[[2]int64]bool{}}
	for _, id := range noticeIDs {
		repo.notices[id] = true
	}
	return repo
}

func (r *memoryReactionRepo) Delete(ctx context.Context, noticeID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{noticeID, userID}
	if !r.likes[key] {
		return false, nil
	}
	delete(r.likes, key)
	return true, nil
}

func (r *memoryReactionRepo) Insert(ctx context.Context, noticeID, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.notices[noticeID] {
		return fmt.Errorf("insert reaction: %w", &pq.Error{Code: "23503"})
	}
	key := [2]int64{noticeID, userID}
	if r.raceInsert {
		r.likes[key] = true
	}
	if r.likes[key] {
		return fmt.Errorf("insert reaction: %w", &pq.Error{Code: "23505"})
	}
	r.likes[key] = true
	return nil
}

func (r *memoryReactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.likes)
}

func newReactionService(repo reactionRepository) *ReactionService {
	return NewReactionService(repo, nil)
}

func TestToggleLikeIsItsOwnInverse(t *testing.T) {
	repo := newMemoryReactionRepo(5)
	svc := newReactionService(repo)

	first, err := svc.ToggleLike(context.Background(), studentViewer, 5)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, repo.count())

	second, err := svc.ToggleLike(context.Background(), studentViewer, 5)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Zero(t, repo.count())
}

func TestToggleLikeTreatsDuplicateInsertAsLiked(t *testing.T) {
	repo := newMemoryReactionRepo(5)
	repo.raceInsert = true
	svc := newReactionService(repo)

	res, err := svc.ToggleLike(context.Background(), studentViewer, 5)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, repo.count())
}

func TestToggleLikeUnknownNotice(t *testing.T) {
	svc := newReactionService(newMemoryReactionRepo())

	_, err := svc.ToggleLike(context.Background(), studentViewer, 404)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestToggleLikeRequiresIdentity(t *testing.T) {
	svc := newReactionService(newMemoryReactionRepo(5))

	_, err := svc.ToggleLike(context.Background(), models.Viewer{}, 5)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestToggleLikeStoreFailure(t *testing.T) {
	svc := newReactionService(failingReactionRepo{err: errors.New("db down")})

	_, err := svc.ToggleLike(context.Background(), studentViewer, 5)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestConcurrentTogglesNeverDuplicateRows(t *testing.T) {
	repo := newMemoryReactionRepo(5)
	svc := newReactionService(repo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleLike(context.Background(), studentViewer, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, repo.count(), 1)
}

type failingReactionRepo struct {
	err error
}

func (f failingReactionRepo) Delete(ctx context.Context, noticeID, userID int64) (bool, error) {
	return false, f.err
}

func (f failingReactionRepo) Insert(ctx context.Context, noticeID, userID int64, at time.Time) error {
	return f.err
}
