package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

// Claims is the JWT payload shared by the API and its clients.
type Claims struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	StateID    string `json:"state_id,omitempty"`
	DistrictID string `json:"district_id,omitempty"`
	AssemblyID string `json:"assembly_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the dashboard's view of the caller.
func (c Claims) Identity() models.Identity {
	return models.Identity{
		ID:       c.Subject,
		Username: c.Username,
		Role:     models.ParseRole(c.Role),
		Locale:   models.LocaleHint{StateID: c.StateID, DistrictID: c.DistrictID, AssemblyID: c.AssemblyID},
	}
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate issues a signed JWT string for the provided account.
func (t *TokenManager) Generate(account models.Account) (string, error) {
	now := t.now()
	claims := Claims{
		Username:   account.Username,
		Role:       string(models.ParseRole(account.Role)),
		StateID:    account.StateID,
		DistrictID: account.DistrictID,
		AssemblyID: account.AssemblyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks the signature, issuer and lifetime of raw and returns its claims.
func (t *TokenManager) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("verify token: missing subject")
	}
	return claims, nil
}

// IdentityFromToken reads the caller's identity from a token without
// verifying its signature. Clients use it on tokens the API just issued;
// the API still verifies every request.
func IdentityFromToken(raw string) (models.Identity, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), &claims); err != nil {
		return models.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return models.Identity{}, errors.New("parse token: missing subject")
	}
	id := claims.Identity()
	id.Token = strings.TrimSpace(raw)
	return id, nil
}
