package security

import (
	"context"
	"fmt"
)

// Verifier checks one presented credential.
type Verifier interface {
	Verify(ctx context.Context, presented string) error
}

// NewVerifier builds the verifier for scheme. oidcConfig is only read for SchemeOIDC.
func NewVerifier(ctx context.Context, scheme string, store SecretStore, oidcConfig OIDCConfig) (Verifier, error) {
	switch scheme {
	case "", SchemeStatic:
		return NewStaticVerifier(store), nil
	case SchemeBcrypt:
		return NewBcryptVerifier(store), nil
	case SchemeJWT:
		return NewJWTVerifier(store), nil
	case SchemeOIDC:
		v, err := NewOIDCVerifier(ctx, oidcConfig)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown auth scheme %q", scheme)
	}
}
