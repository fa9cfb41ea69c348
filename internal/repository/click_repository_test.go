package repository_test

import (
	"context"
	"sync"
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

func newClick(linkID uuid.UUID, country string) *models.Click {
	return &models.Click{
		LinkID:    linkID,
		ClickedAt: time.Now().UTC(),
		Country:   country,
		City:      models.UnknownValue,
		Device:    models.DefaultDevice,
		Browser:   "Chrome",
		OS:        "Windows",
		IPAddress: "unknown",
	}
}

func TestClickRepository_RecordClick_IncrementsCounter(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, links.CreateLink(ctx, link))

	require.NoError(t, clicks.RecordClick(ctx, newClick(link.ID, "FR")))

	stored, err := links.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)

	count, err := clicks.CountClicksByLinkID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClickRepository_RecordClick_UnknownLinkWritesNothing(t *testing.T) {
	db := testutil.NewDB(t)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	missing := uuid.New()
	err := clicks.RecordClick(ctx, newClick(missing, "FR"))
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)

	count, err := clicks.CountClicksByLinkID(ctx, missing)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestClickRepository_RecordClick_FailedInsertRollsBackCounter(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, links.CreateLink(ctx, link))

	first := newClick(link.ID, "FR")
	require.NoError(t, clicks.RecordClick(ctx, first))

	// Reusing the primary key makes the insert fail after the increment ran.
	dup := newClick(link.ID, "DE")
	dup.ID = first.ID
	assert.Error(t, clicks.RecordClick(ctx, dup))

	stored, err := links.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)

	count, err := clicks.CountClicksByLinkID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClickRepository_RecordClick_ConcurrentKeepsCountsEqual(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, links.CreateLink(ctx, link))

	const n = 40
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, clicks.RecordClick(ctx, newClick(link.ID, "FR")))
		}()
	}
	wg.Wait()

	stored, err := links.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	count, err := clicks.CountClicksByLinkID(ctx, link.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(n), stored.Clicks)
	assert.Equal(t, int64(n), count)
}

func TestClickRepository_CountClicksGroupedBy(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, links.CreateLink(ctx, link))
	for _, country := range []string{"FR", "FR", "US", models.UnknownValue} {
		require.NoError(t, clicks.RecordClick(ctx, newClick(link.ID, country)))
	}

	stats, err := clicks.CountClicksGroupedBy(ctx, link.ID, repository.DimensionCountry)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"FR": 2, "US": 1, "Unknown": 1}, stats)

	_, err = clicks.CountClicksGroupedBy(ctx, link.ID, repository.Dimension("ip_address; DROP TABLE links"))
	assert.Error(t, err)
}

func TestClickRepository_ListClicksByLinkID_NewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()

	link := newLink("abc123")
	require.NoError(t, links.CreateLink(ctx, link))

	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c := newClick(link.ID, "FR")
		c.ClickedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, clicks.RecordClick(ctx, c))
	}

	got, err := clicks.ListClicksByLinkID(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].ClickedAt.After(got[2].ClickedAt))
}
