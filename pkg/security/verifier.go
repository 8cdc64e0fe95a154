package security

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"urlstore/pkg/storage"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoSecret          = errors.New("no secret configured")
)

// Scheme names accepted by NewVerifier.
const (
	SchemeStatic = "static"
	SchemeBcrypt = "bcrypt"
	SchemeJWT    = "jwt"
	SchemeOIDC   = "oidc"
)

// SecretStore is the part of the link store holding the secret.
type SecretStore interface {
	Get(ctx context.Context, code string) (*storage.ShortLink, error)
}

func loadSecret(ctx context.Context, store SecretStore) (string, error) {
	link, err := store.Get(ctx, storage.SecretKey)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	if link == nil || link.Destination == "" {
		return "", ErrNoSecret
	}
	return link.Destination, nil
}

// StaticVerifier accepts the stored secret itself, compared in constant time.
type StaticVerifier struct {
	store SecretStore
}

func NewStaticVerifier(store SecretStore) *StaticVerifier {
	return &StaticVerifier{store: store}
}

func (v *StaticVerifier) Verify(ctx context.Context, presented string) error {
	if presented == "" {
		return ErrInvalidCredential
	}
	secret, err := loadSecret(ctx, v.store)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(presented)) != 1 {
		return ErrInvalidCredential
	}
	return nil
}

// BcryptVerifier expects the stored secret to be a bcrypt hash of the credential.
type BcryptVerifier struct {
	store SecretStore
}

func NewBcryptVerifier(store SecretStore) *BcryptVerifier {
	return &BcryptVerifier{store: store}
}

func (v *BcryptVerifier) Verify(ctx context.Context, presented string) error {
	if presented == "" {
		return ErrInvalidCredential
	}
	hash, err := loadSecret(ctx, v.store)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)); err != nil {
		return ErrInvalidCredential
	}
	return nil
}

// HashSecret produces the value to store for the bcrypt scheme.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// JWTVerifier accepts HS256 tokens signed with the stored secret. Tokens must carry an expiry.
type JWTVerifier struct {
	store  SecretStore
	leeway time.Duration
}

func NewJWTVerifier(store SecretStore) *JWTVerifier {
	return &JWTVerifier{store: store, leeway: 30 * time.Second}
}

func (v *JWTVerifier) Verify(ctx context.Context, presented string) error {
	if presented == "" {
		return ErrInvalidCredential
	}
	secret, err := loadSecret(ctx, v.store)
	if err != nil {
		return err
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(presented, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil || !token.Valid {
		return ErrInvalidCredential
	}
	return nil
}

// IssueToken signs a JWT accepted by JWTVerifier.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
