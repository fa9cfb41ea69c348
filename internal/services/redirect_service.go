package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/access"
	"github.com/linkgate/urlshortener/internal/analytics"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/repository"
)

// Outcome is the destination class of a visit.
type Outcome int

const (
	// OutcomeDestination redirects to the link's original URL.
	OutcomeDestination Outcome = iota
	// OutcomeFallback redirects to the generic fallback.
	OutcomeFallback
	// OutcomePasswordRequired redirects to the password-entry route of the code.
	OutcomePasswordRequired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDestination:
		return "destination"
	case OutcomePasswordRequired:
		return "password_required"
	default:
		return "fallback"
	}
}

// VisitRequest is the request metadata a visit needs.
type VisitRequest struct {
	GrantToken   string
	UserAgent    string
	ForwardedFor string
	RealIP       string
	Referer      string
}

// VisitResult is where a visit ends up. Err is the reason for any outcome other
// than OutcomeDestination and is for logging only.
type VisitResult struct {
	Outcome  Outcome
	Location string
	Err      error
}

// RedirectOptions are the two non-destination locations.
type RedirectOptions struct {
	FallbackURL   string
	PasswordRoute func(shortCode string) string
}

// RedirectService runs the visit pipeline: resolve, gate, derive, record.
type RedirectService struct {
	linkRepo repository.LinkRepository
	gate     *access.Gate
	deriver  *analytics.Deriver
	clicks   *ClickService
	opts     RedirectOptions
	log      *zap.Logger
}

// NewRedirectService creates a RedirectService.
func NewRedirectService(
	linkRepo repository.LinkRepository,
	gate *access.Gate,
	deriver *analytics.Deriver,
	clicks *ClickService,
	opts RedirectOptions,
	log *zap.Logger,
) *RedirectService {
	if opts.FallbackURL == "" {
		opts.FallbackURL = "/"
	}
	if opts.PasswordRoute == nil {
		opts.PasswordRoute = func(code string) string { return "/protected/" + code }
	}
	if deriver == nil {
		deriver = analytics.NewDeriver(nil, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedirectService{
		linkRepo: linkRepo,
		gate:     gate,
		deriver:  deriver,
		clicks:   clicks,
		opts:     opts,
		log:      log,
	}
}

// Visit resolves shortCode and decides where the visitor goes. It never fails:
// every error maps to the fallback except a missing password grant, which maps
// to the password route. A click is recorded only for OutcomeDestination.
func (s *RedirectService) Visit(ctx context.Context, shortCode string, req VisitRequest) (result VisitResult) {
	defer func() {
		if r := recover(); r != nil {
			result = s.fallback(shortCode, fmt.Errorf("%w: visit panicked: %v", customerrors.ErrInternal, r))
		}
	}()

	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return s.fallback(shortCode, customerrors.ErrShortCodeNotFound)
	}

	link, err := s.linkRepo.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		return s.fallback(shortCode, err)
	}

	if err := s.gate.Authorize(link, req.GrantToken); err != nil {
		if errors.Is(err, customerrors.ErrPasswordRequired) {
			return VisitResult{
				Outcome:  OutcomePasswordRequired,
				Location: s.opts.PasswordRoute(link.ShortCode),
				Err:      err,
			}
		}
		return s.fallback(shortCode, err)
	}

	var referer *string
	if ref := strings.TrimSpace(req.Referer); ref != "" {
		referer = &ref
	}
	attrs := s.deriver.Derive(req.UserAgent, analytics.ClientIP(req.ForwardedFor, req.RealIP), referer)

	if _, err := s.clicks.RecordClick(ctx, link, attrs); err != nil {
		return s.fallback(shortCode, err)
	}

	return VisitResult{Outcome: OutcomeDestination, Location: link.OriginalURL}
}

func (s *RedirectService) fallback(shortCode string, err error) VisitResult {
	switch customerrors.KindOf(err) {
	case customerrors.KindNotFound, customerrors.KindForbidden:
		s.log.Debug("Visit refused", zap.String("short_code", shortCode), zap.Error(err))
	default:
		s.log.Error("Visit failed", zap.String("short_code", shortCode), zap.Error(err))
	}
	return VisitResult{Outcome: OutcomeFallback, Location: s.opts.FallbackURL, Err: err}
}
