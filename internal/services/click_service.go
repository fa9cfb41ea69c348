package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/analytics"
	"github.com/linkgate/urlshortener/internal/clock"
	"github.com/linkgate/urlshortener/internal/events"
	"github.com/linkgate/urlshortener/internal/models"
	"github.com/linkgate/urlshortener/internal/repository"
)

// LinkAnalytics is a link together with its click summary.
type LinkAnalytics struct {
	Link      *models.Link      `json:"link"`
	Analytics analytics.Summary `json:"analytics"`
}

// GlobalStats are the service-wide totals.
type GlobalStats struct {
	TotalLinks    int64   `json:"total_links"`
	TotalClicks   int64   `json:"total_clicks"`
	AverageClicks float64 `json:"average_clicks"`
}

// ClickService records visits and serves the read-only analytics queries.
type ClickService struct {
	clickRepo    repository.ClickRepository
	linkRepo     repository.LinkRepository
	publisher    events.ClickPublisher
	clock        clock.Clock
	log          *zap.Logger
	timelineDays int
}

// NewClickService creates a ClickService. A nil publisher disables publication.
func NewClickService(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	publisher events.ClickPublisher,
	clk clock.Clock,
	log *zap.Logger,
	timelineDays int,
) *ClickService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ClickService{
		clickRepo:    clickRepo,
		linkRepo:     linkRepo,
		publisher:    publisher,
		clock:        clk,
		log:          log,
		timelineDays: timelineDays,
	}
}

// RecordClick stores one click for link and increments its counter in the same
// transaction. The committed click is then handed to the publisher; publication
// failures are logged and never returned.
func (s *ClickService) RecordClick(ctx context.Context, link *models.Link, attrs analytics.Attributes) (*models.Click, error) {
	click := &models.Click{
		LinkID:    link.ID,
		ClickedAt: s.clock.Now().UTC(),
		Country:   attrs.Country,
		City:      attrs.City,
		Device:    attrs.Device,
		Browser:   attrs.Browser,
		OS:        attrs.OS,
		Referer:   attrs.Referer,
		IPAddress: attrs.IPAddress,
		UserAgent: attrs.UserAgent,
	}
	if err := s.clickRepo.RecordClick(ctx, click); err != nil {
		return nil, err
	}

	event := models.ClickEvent{
		ClickID:   click.ID,
		LinkID:    link.ID,
		ShortCode: link.ShortCode,
		ClickedAt: click.ClickedAt,
		Country:   click.Country,
		City:      click.City,
		Device:    click.Device,
		Browser:   click.Browser,
		OS:        click.OS,
	}
	if click.Referer != nil {
		event.Referer = *click.Referer
	}
	if err := s.publisher.PublishClick(ctx, event); err != nil {
		s.log.Warn("Failed to publish click event", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
	return click, nil
}

// GetLinkAnalytics summarises the clicks of a link. Owned links are visible only
// to their owner.
func (s *ClickService) GetLinkAnalytics(ctx context.Context, id uuid.UUID, actor string) (*LinkAnalytics, error) {
	link, err := s.linkRepo.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(link, actor); err != nil {
		return nil, err
	}

	clicks, err := s.clickRepo.ListClicksByLinkID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &LinkAnalytics{
		Link:      link,
		Analytics: analytics.Summarize(clicks, s.clock.Now(), s.timelineDays),
	}, nil
}

// GetGlobalStats returns totals across all links.
func (s *ClickService) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	links, err := s.linkRepo.CountLinks(ctx)
	if err != nil {
		return nil, err
	}
	clicks, err := s.linkRepo.SumClicks(ctx)
	if err != nil {
		return nil, err
	}

	stats := &GlobalStats{TotalLinks: links, TotalClicks: clicks}
	if links > 0 {
		stats.AverageClicks = float64(clicks) / float64(links)
	}
	return stats, nil
}
