package security

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

type OIDCConfig struct {
	IssuerURL string
	Audience  string
}

// OIDCVerifier accepts ID tokens issued for the configured audience. The stored
// secret is not consulted.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier runs provider discovery against config.IssuerURL.
func NewOIDCVerifier(ctx context.Context, config OIDCConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: config.Audience}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, presented string) error {
	if presented == "" {
		return ErrInvalidCredential
	}
	if _, err := v.verifier.Verify(ctx, presented); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return nil
}
