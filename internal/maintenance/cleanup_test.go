package maintenance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkgate/urlshortener/internal/clock"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/maintenance"
	"github.com/linkgate/urlshortener/internal/models"
	"github.com/linkgate/urlshortener/internal/repository"
	"github.com/linkgate/urlshortener/internal/testutil"
)

var epoch = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func createLink(t *testing.T, repo *repository.GormLinkRepository, code string, expiresAt *time.Time, owner *string) *models.Link {
	t.Helper()
	link := &models.Link{
		ShortCode:   code,
		OriginalURL: "https://example.com/" + code,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		OwnerID:     owner,
	}
	require.NoError(t, repo.CreateLink(context.Background(), link))
	return link
}

func at(t time.Time) *time.Time { return &t }

func TestScheduler_RunOnce_PurgesOnlyOldAnonymousLinks(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	clicks := repository.NewClickRepository(db)
	ctx := context.Background()
	owner := "alice"

	stale := createLink(t, links, "stale", at(epoch.Add(-10*24*time.Hour)), nil)
	recent := createLink(t, links, "recent", at(epoch.Add(-time.Hour)), nil)
	owned := createLink(t, links, "owned", at(epoch.Add(-10*24*time.Hour)), &owner)
	forever := createLink(t, links, "forever", nil, nil)

	require.NoError(t, clicks.RecordClick(ctx, &models.Click{LinkID: stale.ID, ClickedAt: epoch, Country: "FR", City: "Paris", Device: "Desktop", Browser: "Chrome", OS: "Windows"}))

	s := maintenance.NewScheduler(nil, links, clock.NewMock(epoch), "", 24*time.Hour)
	deleted, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = links.GetLinkByID(ctx, stale.ID)
	assert.ErrorIs(t, err, customerrors.ErrLinkNotFound)
	count, err := clicks.CountClicksByLinkID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	for _, kept := range []*models.Link{recent, owned, forever} {
		_, err := links.GetLinkByID(ctx, kept.ID)
		assert.NoError(t, err, kept.ShortCode)
	}
}

func TestScheduler_Start(t *testing.T) {
	db := testutil.NewDB(t)
	links := repository.NewLinkRepository(db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disabled := maintenance.NewScheduler(nil, links, nil, "not a schedule", 0)
	assert.NoError(t, disabled.Start(ctx))

	invalid := maintenance.NewScheduler(nil, links, nil, "not a schedule", time.Hour)
	assert.Error(t, invalid.Start(ctx))

	valid := maintenance.NewScheduler(nil, links, nil, maintenance.DefaultSchedule, time.Hour)
	assert.NoError(t, valid.Start(ctx))
}
