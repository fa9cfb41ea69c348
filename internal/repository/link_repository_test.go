package repository_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
	"github.com/linkgate/urlshortener/internal/repository"
	"github.com/linkgate/urlshortener/internal/testutil"
)

func newLink(code string) *models.Link {
	return &models.Link{
		ShortCode:   code,
		OriginalURL: "https://example.com/" + code,
		IsActive:    true,
	}
}

func strPtr(s string) *string { return &s }

func TestLinkRepository_CreateLink_AssignsID(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, repo.CreateLink(ctx, link))

	assert.NotEqual(t, uuid.Nil, link.ID)
	assert.Equal(t, int64(0), link.Clicks)
}

func TestLinkRepository_CreateLink_DuplicateFailsWithoutOverwrite(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateLink(ctx, newLink("abc123")))

	dup := newLink("abc123")
	dup.OriginalURL = "https://different.com"
	err := repo.CreateLink(ctx, dup)
	assert.ErrorIs(t, err, customerrors.ErrShortCodeTaken)
	assert.ErrorIs(t, err, customerrors.ErrConflict)

	stored, err := repo.GetLinkByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/abc123", stored.OriginalURL)
}

func TestLinkRepository_CreateLink_ConcurrentSameCode(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	const numGoroutines = 20
	var successes, conflicts int32
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			err := repo.CreateLink(ctx, newLink("samecode"))
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case assert.ErrorIs(t, err, customerrors.ErrShortCodeTaken):
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(numGoroutines-1), conflicts)
}

func TestLinkRepository_GetLinkByShortCode_NotFound(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))

	_, err := repo.GetLinkByShortCode(context.Background(), "nope")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
}

func TestLinkRepository_GetLinkByID_NotFound(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))

	_, err := repo.GetLinkByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)
}

func TestLinkRepository_UpdateLink_OnlyMutableFields(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, repo.CreateLink(ctx, link))

	inactive := false
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err := repo.UpdateLink(ctx, link.ID, models.LinkUpdate{
		Title:     strPtr("Docs"),
		ExpiresAt: &expiry,
		IsActive:  &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "Docs", *updated.Title)
	assert.False(t, updated.IsActive)
	require.NotNil(t, updated.ExpiresAt)
	assert.True(t, expiry.Equal(*updated.ExpiresAt))
	assert.Equal(t, "abc123", updated.ShortCode)
	assert.Equal(t, link.OriginalURL, updated.OriginalURL)
}

func TestLinkRepository_UpdateLink_ClearExpiry(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).UTC()
	link := newLink("abc123")
	link.ExpiresAt = &expiry
	require.NoError(t, repo.CreateLink(ctx, link))

	updated, err := repo.UpdateLink(ctx, link.ID, models.LinkUpdate{ClearExpiry: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ExpiresAt)
}

func TestLinkRepository_UpdateLink_NotFound(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))

	_, err := repo.UpdateLink(context.Background(), uuid.New(), models.LinkUpdate{Title: strPtr("x")})
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)
}

func TestLinkRepository_IncrementClicks_Concurrent(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, repo.CreateLink(ctx, link))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementClicks(ctx, link.ID))
		}()
	}
	wg.Wait()

	stored, err := repo.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stored.Clicks)
}

func TestLinkRepository_IncrementClicks_NotFound(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))

	err := repo.IncrementClicks(context.Background(), uuid.New())
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)
}

func TestLinkRepository_DeleteLink_CascadesClicks(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, links.CreateLink(ctx, link))
	for i := 0; i < 3; i++ {
		require.NoError(t, clicks.RecordClick(ctx, newClick(link.ID, "FR")))
	}

	require.NoError(t, links.DeleteLink(ctx, link.ID))

	_, err := links.GetLinkByID(ctx, link.ID)
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)

	count, err := clicks.CountClicksByLinkID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, links.DeleteLink(ctx, link.ID), customerrors.ErrLinkNotFound)
}

func TestLinkRepository_ListActiveLinks(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	active := newLink("active")
	expired := newLink("expired")
	expired.ExpiresAt = &past
	later := newLink("later")
	later.ExpiresAt = &future
	off := newLink("offline")
	off.IsActive = false

	for _, l := range []*models.Link{active, expired, later, off} {
		require.NoError(t, repo.CreateLink(ctx, l))
	}

	got, err := repo.ListActiveLinks(ctx, now)
	require.NoError(t, err)

	codes := make([]string, 0, len(got))
	for _, l := range got {
		codes = append(codes, l.ShortCode)
	}
	assert.ElementsMatch(t, []string{"active", "later"}, codes)
}

func TestLinkRepository_ListExpiredAnonymousLinks(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	longAgo := now.Add(-48 * time.Hour)

	anon := newLink("anon")
	anon.ExpiresAt = &longAgo
	owned := newLink("owned")
	owned.ExpiresAt = &longAgo
	owned.OwnerID = strPtr("user-1")
	fresh := newLink("fresh")

	for _, l := range []*models.Link{anon, owned, fresh} {
		require.NoError(t, repo.CreateLink(ctx, l))
	}

	got, err := repo.ListExpiredAnonymousLinks(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "anon", got[0].ShortCode)
}

func TestLinkRepository_ListLinksByOwner(t *testing.T) {
	repo := repository.NewLinkRepository(testutil.NewDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l := newLink(fmt.Sprintf("mine%d", i))
		l.OwnerID = strPtr("user-1")
		require.NoError(t, repo.CreateLink(ctx, l))
	}
	other := newLink("theirs")
	other.OwnerID = strPtr("user-2")
	require.NoError(t, repo.CreateLink(ctx, other))

	got, err := repo.ListLinksByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestLinkRepository_CountAndSum(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewLinkRepository(db)
	ctx := context.Background()

	total, err := repo.SumClicks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	a, b := newLink("aaa"), newLink("bbb")
	require.NoError(t, repo.CreateLink(ctx, a))
	require.NoError(t, repo.CreateLink(ctx, b))
	require.NoError(t, repo.IncrementClicks(ctx, a.ID))
	require.NoError(t, repo.IncrementClicks(ctx, a.ID))
	require.NoError(t, repo.IncrementClicks(ctx, b.ID))

	count, err := repo.CountLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	total, err = repo.SumClicks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
