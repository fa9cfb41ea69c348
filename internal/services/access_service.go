package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/access"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/repository"
)

// Status is the public availability of a short code.
type Status struct {
	ShortCode           string `json:"short_code"`
	IsPasswordProtected bool   `json:"is_password_protected"`
	IsActive            bool   `json:"is_active"`
}

// AccessService answers availability questions and exchanges passwords for grants.
type AccessService struct {
	linkRepo repository.LinkRepository
	gate     *access.Gate
	grants   *access.GrantIssuer
	log      *zap.Logger
}

// NewAccessService creates an AccessService.
func NewAccessService(linkRepo repository.LinkRepository, gate *access.Gate, grants *access.GrantIssuer, log *zap.Logger) *AccessService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccessService{linkRepo: linkRepo, gate: gate, grants: grants, log: log}
}

// CheckStatus reports whether a short code can currently be visited.
// Unknown codes fail with NotFound; inactive or expired links with Forbidden.
func (s *AccessService) CheckStatus(ctx context.Context, shortCode string) (Status, error) {
	link, err := s.linkRepo.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		return Status{}, err
	}
	if err := s.gate.CheckAvailable(link); err != nil {
		return Status{}, err
	}
	return Status{
		ShortCode:           link.ShortCode,
		IsPasswordProtected: link.IsPasswordProtected,
		IsActive:            link.IsActive,
	}, nil
}

// VerifyPassword exchanges the correct password of a protected link for a
// grant. The link must exist and be available before any comparison happens.
func (s *AccessService) VerifyPassword(ctx context.Context, shortCode, plaintext string) (access.Grant, error) {
	if plaintext == "" {
		return access.Grant{}, customerrors.NewValidationError("password", "Password is required")
	}

	link, err := s.linkRepo.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		return access.Grant{}, err
	}
	if err := s.gate.CheckAvailable(link); err != nil {
		return access.Grant{}, err
	}
	if !link.IsPasswordProtected || link.Password == nil {
		return access.Grant{}, customerrors.ErrNotPasswordProtected
	}

	if err := access.ComparePassword(*link.Password, plaintext); err != nil {
		if errors.Is(err, customerrors.ErrInvalidPassword) {
			s.log.Info("Rejected link password", zap.String("short_code", shortCode))
		}
		return access.Grant{}, err
	}

	grant, err := s.grants.Issue(link)
	if err != nil {
		return access.Grant{}, err
	}
	return grant, nil
}
