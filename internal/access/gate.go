// Package access decides whether a visitor may be redirected through a link and
// issues the password grants that open protected links.
package access

import (
	"github.com/linkgate/urlshortener/internal/clock"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
)

// Gate evaluates redirect eligibility. The decision depends only on the link's
// active flag, expiry, protection flag, the current time and the presented grant.
type Gate struct {
	clock  clock.Clock
	grants *GrantIssuer
}

// NewGate creates a Gate.
func NewGate(clk clock.Clock, grants *GrantIssuer) *Gate {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Gate{clock: clk, grants: grants}
}

// CheckAvailable runs the checks that refuse a link outright, in order:
// inactive first, then expired.
func (g *Gate) CheckAvailable(link *models.Link) error {
	if !link.IsActive {
		return customerrors.ErrLinkInactive
	}
	if link.IsExpired(g.clock.Now()) {
		return customerrors.ErrLinkExpired
	}
	return nil
}

// Authorize runs CheckAvailable and then the password check. A protected link
// without a valid grant fails with ErrPasswordRequired.
func (g *Gate) Authorize(link *models.Link, grantToken string) error {
	if err := g.CheckAvailable(link); err != nil {
		return err
	}
	if !link.IsPasswordProtected {
		return nil
	}
	if err := g.grants.Verify(grantToken, link); err != nil {
		return customerrors.ErrPasswordRequired
	}
	return nil
}
