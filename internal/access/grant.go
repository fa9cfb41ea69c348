package access

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linkgate/urlshortener/internal/clock"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
)

// DefaultGrantTTL is how long a verified password keeps a link open.
const DefaultGrantTTL = time.Hour

const grantAudience = "link-access"

// Grant is a time-bounded proof that a visitor supplied the correct password
// for one short code.
type Grant struct {
	ShortCode string
	Token     string
	ExpiresAt time.Time
}

// GrantClaims are the signed contents of a grant token.
type GrantClaims struct {
	// PasswordTag fingerprints the password hash the grant was issued against.
	PasswordTag string `json:"ptag"`
	jwt.RegisteredClaims
}

// GrantIssuer signs and verifies grants with an HMAC key. No server-side
// session state is kept.
type GrantIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewGrantIssuer creates an issuer. An empty secret is replaced by a random
// per-process key, which invalidates outstanding grants on restart.
func NewGrantIssuer(secret string, ttl time.Duration, clk clock.Clock) (*GrantIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate grant secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &GrantIssuer{secret: key, ttl: ttl, clock: clk}, nil
}

// TTL returns the validity window of issued grants.
func (g *GrantIssuer) TTL() time.Duration {
	return g.ttl
}

// Issue signs a grant for the link. Issuing again for the same link yields an
// equivalent grant.
func (g *GrantIssuer) Issue(link *models.Link) (Grant, error) {
	now := g.clock.Now()
	expiresAt := now.Add(g.ttl)

	claims := GrantClaims{
		PasswordTag: passwordTag(link),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   link.ShortCode,
			Audience:  jwt.ClaimStrings{grantAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return Grant{}, fmt.Errorf("failed to sign access grant: %w", err)
	}
	return Grant{ShortCode: link.ShortCode, Token: token, ExpiresAt: expiresAt}, nil
}

// Verify checks that token is a valid, unexpired grant for this link and for
// its current password hash.
func (g *GrantIssuer) Verify(token string, link *models.Link) error {
	if token == "" {
		return customerrors.ErrInvalidGrant
	}

	claims := &GrantClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return g.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(grantAudience),
		jwt.WithSubject(link.ShortCode),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", customerrors.ErrInvalidGrant, errOrInvalid(err))
	}
	if claims.PasswordTag != passwordTag(link) {
		return fmt.Errorf("%w: password changed since grant was issued", customerrors.ErrInvalidGrant)
	}
	return nil
}

func errOrInvalid(err error) error {
	if err != nil {
		return err
	}
	return errors.New("token is not valid")
}

// passwordTag binds grants to the stored hash so a password change revokes them.
func passwordTag(link *models.Link) string {
	if link.Password == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(*link.Password))
	return hex.EncodeToString(sum[:8])
}
