// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/access"
	"github.com/linkgate/urlshortener/internal/analytics"
	"github.com/linkgate/urlshortener/internal/clock"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
	"github.com/linkgate/urlshortener/internal/repository"
	"github.com/linkgate/urlshortener/internal/shortcode"
)

// DefaultMaxRetries bounds insert attempts for generated codes.
const DefaultMaxRetries = 5

// CreateLinkInput holds a link submission as received from the API or the CLI.
// Empty strings mean "not provided".
type CreateLinkInput struct {
	OriginalURL         string
	CustomCode          string
	Title               string
	Description         string
	ExpiresAt           *time.Time
	Password            string
	IsPasswordProtected bool
	OwnerID             string
}

// LinkStats is the per-code breakdown served by the stats endpoint and CLI.
type LinkStats struct {
	Link        *models.Link       `json:"link"`
	TotalClicks int64              `json:"total_clicks"`
	Countries   []analytics.Bucket `json:"countries"`
	Devices     []analytics.Bucket `json:"devices"`
	Browsers    []analytics.Bucket `json:"browsers"`
}

// LinkService provides business logic methods for managing shortened links.
// It acts as an intermediary between the HTTP handlers and the data repository.
type LinkService struct {
	linkRepo   repository.LinkRepository  // Repository interface for link persistence
	clickRepo  repository.ClickRepository // Used for the per-code stats breakdown
	generator  shortcode.Generator        // Source of candidate short codes
	clock      clock.Clock
	log        *zap.Logger
	maxRetries int
	bcryptCost int
	reserved   map[string]bool
}

// LinkServiceOptions tunes code generation and password hashing.
type LinkServiceOptions struct {
	MaxRetries    int
	BcryptCost    int
	ReservedCodes []string // Root path segments owned by other routes
}

// NewLinkService creates and returns a new instance of LinkService.
// Zero-valued options fall back to their defaults.
func NewLinkService(
	linkRepo repository.LinkRepository,
	clickRepo repository.ClickRepository,
	generator shortcode.Generator,
	clk clock.Clock,
	log *zap.Logger,
	opts LinkServiceOptions,
) *LinkService {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if generator == nil {
		generator = shortcode.NewGenerator(shortcode.DefaultLength)
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	reserved := make(map[string]bool, len(opts.ReservedCodes))
	for _, code := range opts.ReservedCodes {
		reserved[code] = true
	}
	return &LinkService{
		linkRepo:   linkRepo,
		clickRepo:  clickRepo,
		generator:  generator,
		clock:      clk,
		log:        log,
		maxRetries: opts.MaxRetries,
		bcryptCost: opts.BcryptCost,
		reserved:   reserved,
	}
}

// CreateLink validates a submission and stores the new link.
//
// Validation happens before any store interaction:
//   - the URL gets https:// when it has no scheme and must then have a host
//   - a custom code must match the short code alphabet and be 3-20 characters
//   - the password flag and the password must agree
//
// A custom code is pre-checked and rejected with a Conflict when taken; the
// store's unique index still decides concurrent submissions. Generated codes
// are retried on collision up to the configured limit.
func (s *LinkService) CreateLink(ctx context.Context, in CreateLinkInput) (*models.Link, error) {
	originalURL, err := NormalizeURL(in.OriginalURL)
	if err != nil {
		return nil, err
	}

	customCode := strings.TrimSpace(in.CustomCode)
	if customCode != "" {
		if err := shortcode.ValidateCustomCode(customCode); err != nil {
			return nil, err
		}
		if s.reserved[customCode] {
			return nil, customerrors.ErrReservedShortCode
		}
	}

	if in.IsPasswordProtected && in.Password == "" {
		return nil, customerrors.NewValidationError("password", "Password is required for password-protected links")
	}
	if !in.IsPasswordProtected && in.Password != "" {
		return nil, customerrors.NewValidationError("password", "Cannot set password without enabling password protection")
	}

	if customCode != "" {
		// Pre-check only; the unique index is the final authority.
		_, err := s.linkRepo.GetLinkByShortCode(ctx, customCode)
		switch {
		case err == nil:
			return nil, customerrors.ErrShortCodeTaken
		case !errors.Is(err, customerrors.ErrShortCodeNotFound):
			return nil, fmt.Errorf("database error checking custom code: %w", err)
		}
	}

	link := &models.Link{
		OriginalURL:         originalURL,
		Title:               optional(in.Title),
		Description:         optional(in.Description),
		IsActive:            true,
		IsPasswordProtected: in.IsPasswordProtected,
		OwnerID:             optional(in.OwnerID),
		CreatedAt:           s.clock.Now(),
		UpdatedAt:           s.clock.Now(),
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC()
		link.ExpiresAt = &exp
	}
	if in.IsPasswordProtected {
		hash, err := access.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		link.Password = &hash
	}

	if customCode != "" {
		link.ShortCode = customCode
		link.CustomCode = &customCode
		if err := s.linkRepo.CreateLink(ctx, link); err != nil {
			return nil, err
		}
		s.log.Info("Link created", zap.String("short_code", link.ShortCode), zap.Bool("custom", true))
		return link, nil
	}

	// Retry loop to handle short code collisions
	for i := 0; i < s.maxRetries; i++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		if s.reserved[code] {
			continue
		}

		link.ID = uuid.Nil
		link.ShortCode = code
		err = s.linkRepo.CreateLink(ctx, link)
		if err == nil {
			s.log.Info("Link created", zap.String("short_code", link.ShortCode), zap.Bool("custom", false))
			return link, nil
		}
		if !errors.Is(err, customerrors.ErrShortCodeTaken) {
			return nil, err
		}
		s.log.Warn("Short code already exists, retrying generation",
			zap.String("short_code", code), zap.Int("attempt", i+1), zap.Int("max_retries", s.maxRetries))
	}

	return nil, customerrors.ErrShortCodeGenerationFailed
}

// GetLinkByShortCode retrieves a link using its short code.
func (s *LinkService) GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	return s.linkRepo.GetLinkByShortCode(ctx, shortCode)
}

// GetLinkByID retrieves a link using its identifier.
func (s *LinkService) GetLinkByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	return s.linkRepo.GetLinkByID(ctx, id)
}

// ListLinksByOwner returns the links created by an account, newest first.
func (s *LinkService) ListLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, customerrors.NewValidationError("owner", "An account is required to list links")
	}
	return s.linkRepo.ListLinksByOwner(ctx, ownerID)
}

// UpdateLink applies an owner-mutable change.
// Parameters:
//   - id: the link identifier
//   - actor: the requesting account, empty for anonymous callers
//   - update: the fields to change
//
// Returns:
//   - *models.Link: the link after the update
//   - error: ValidationError for an empty update, NotFound, or ErrNotOwner
func (s *LinkService) UpdateLink(ctx context.Context, id uuid.UUID, actor string, update models.LinkUpdate) (*models.Link, error) {
	if update.Empty() {
		return nil, customerrors.NewValidationError("", "No fields to update")
	}
	link, err := s.linkRepo.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(link, actor); err != nil {
		return nil, err
	}

	updated, err := s.linkRepo.UpdateLink(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.log.Info("Link updated", zap.String("short_code", updated.ShortCode), zap.Bool("active", updated.IsActive))
	return updated, nil
}

// DeleteLink removes a link and its clicks.
func (s *LinkService) DeleteLink(ctx context.Context, id uuid.UUID, actor string) error {
	link, err := s.linkRepo.GetLinkByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkOwner(link, actor); err != nil {
		return err
	}
	if err := s.linkRepo.DeleteLink(ctx, id); err != nil {
		return err
	}
	s.log.Info("Link deleted", zap.String("short_code", link.ShortCode))
	return nil
}

// GetLinkStats retrieves statistics for a given short code.
// This includes the link details, the total number of clicks recorded and the
// country, device and browser breakdowns.
func (s *LinkService) GetLinkStats(ctx context.Context, shortCode string) (*LinkStats, error) {
	link, err := s.linkRepo.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	total, err := s.clickRepo.CountClicksByLinkID(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	stats := &LinkStats{Link: link, TotalClicks: total}
	for _, b := range []struct {
		dim repository.Dimension
		dst *[]analytics.Bucket
	}{
		{repository.DimensionCountry, &stats.Countries},
		{repository.DimensionDevice, &stats.Devices},
		{repository.DimensionBrowser, &stats.Browsers},
	} {
		counts, err := s.clickRepo.CountClicksGroupedBy(ctx, link.ID, b.dim)
		if err != nil {
			return nil, err
		}
		*b.dst = analytics.Rank(counts)
	}
	return stats, nil
}

// NormalizeURL defaults the scheme to https and checks the result is an
// absolute http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", customerrors.NewValidationError("original_url", "URL is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return "", customerrors.ErrInvalidURL
	}
	return raw, nil
}

// checkOwner lets anyone holding the id change an anonymous link; owned links
// only by their owner.
func checkOwner(link *models.Link, actor string) error {
	if link.IsAnonymous() {
		return nil
	}
	if *link.OwnerID != actor {
		return customerrors.ErrNotOwner
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
