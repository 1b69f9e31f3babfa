package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-meetings/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier turns a raw ID token from the login provider into an identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (models.Identity, error)
}

// ErrUnverifiedEmail rejects tokens whose provider has not confirmed the
// email address.
var ErrUnverifiedEmail = errors.New("email address is not verified")

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Sub           string `json:"sub"`
	Name          string `json:"name"`
}

// identityFromClaims keys the identity by email, falling back to subject.
// An email the provider marks unverified is refused.
func identityFromClaims(c idClaims) (models.Identity, error) {
	email := strings.TrimSpace(c.Email)
	if email != "" && c.EmailVerified != nil && !*c.EmailVerified {
		return models.Identity{}, fmt.Errorf("%w: %s", ErrUnverifiedEmail, email)
	}
	if email == "" {
		email = strings.TrimSpace(c.Sub)
	}
	if email == "" {
		return models.Identity{}, errors.New("token carries neither email nor subject")
	}
	return models.Identity{Email: email, Name: strings.TrimSpace(c.Name)}, nil
}

// OIDCVerifier checks ID tokens against an OpenID Connect issuer.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's keys. An empty clientID skips the
// audience check.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          clientID,
			SkipClientIDCheck: clientID == "",
		}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (models.Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse claims: %w", err)
	}

	return identityFromClaims(claims)
}
