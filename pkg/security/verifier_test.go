package security

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"urlstore/pkg/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*storage.ShortLink, error) {
	return nil, errors.New("store down")
}

func storeWithSecret(t *testing.T, secret string) *storage.MemoryLinkStore {
	t.Helper()
	store := storage.NewMemoryLinkStore()
	require.NoError(t, store.Put(context.Background(), &storage.ShortLink{Code: storage.SecretKey, Destination: secret}))
	return store
}

func TestStaticVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewStaticVerifier(storeWithSecret(t, "s3cr3t"))

	assert.NoError(t, v.Verify(ctx, "s3cr3t"))
	assert.ErrorIs(t, v.Verify(ctx, "s3cr3"), ErrInvalidCredential)
	assert.ErrorIs(t, v.Verify(ctx, "s3cr3t "), ErrInvalidCredential)
	assert.ErrorIs(t, v.Verify(ctx, ""), ErrInvalidCredential)
}

func TestStaticVerifier_ReadsSecretEveryTime(t *testing.T) {
	ctx := context.Background()
	store := storeWithSecret(t, "first")
	v := NewStaticVerifier(store)
	require.NoError(t, v.Verify(ctx, "first"))

	require.NoError(t, store.Put(ctx, &storage.ShortLink{Code: storage.SecretKey, Destination: "second"}))
	assert.ErrorIs(t, v.Verify(ctx, "first"), ErrInvalidCredential)
	assert.NoError(t, v.Verify(ctx, "second"))
}

func TestStaticVerifier_NoSecret(t *testing.T) {
	v := NewStaticVerifier(storage.NewMemoryLinkStore())
	assert.ErrorIs(t, v.Verify(context.Background(), "anything"), ErrNoSecret)
}

func TestStaticVerifier_StoreError(t *testing.T) {
	v := NewStaticVerifier(failingStore{})
	err := v.Verify(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestBcryptVerifier(t *testing.T) {
	ctx := context.Background()
	hash, err := HashSecret("s3cr3t")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cr3t", hash)

	v := NewBcryptVerifier(storeWithSecret(t, hash))
	assert.NoError(t, v.Verify(ctx, "s3cr3t"))
	assert.ErrorIs(t, v.Verify(ctx, "wrong"), ErrInvalidCredential)
	// the hash itself is not a credential
	assert.ErrorIs(t, v.Verify(ctx, hash), ErrInvalidCredential)
}

func TestJWTVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewJWTVerifier(storeWithSecret(t, "signing-secret"))

	token, err := IssueToken("signing-secret", "admin", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, v.Verify(ctx, token))

	t.Run("wrong key", func(t *testing.T) {
		token, err := IssueToken("other-secret", "admin", time.Minute)
		require.NoError(t, err)
		assert.ErrorIs(t, v.Verify(ctx, token), ErrInvalidCredential)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := IssueToken("signing-secret", "admin", -time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, v.Verify(ctx, token), ErrInvalidCredential)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "admin"}).
			SignedString([]byte("signing-secret"))
		require.NoError(t, err)
		assert.ErrorIs(t, v.Verify(ctx, token), ErrInvalidCredential)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("signing-secret"))
		require.NoError(t, err)
		assert.ErrorIs(t, v.Verify(ctx, token), ErrInvalidCredential)
	})

	t.Run("raw secret", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(ctx, "signing-secret"), ErrInvalidCredential)
	})
}

func TestNewVerifier(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryLinkStore()

	tests := []struct {
		scheme string
		want   any
	}{
		{"", &StaticVerifier{}},
		{SchemeStatic, &StaticVerifier{}},
		{SchemeBcrypt, &BcryptVerifier{}},
		{SchemeJWT, &JWTVerifier{}},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			v, err := NewVerifier(ctx, tt.scheme, store, OIDCConfig{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, v)
		})
	}

	_, err := NewVerifier(ctx, "basic", store, OIDCConfig{})
	assert.Error(t, err)
}

// newDiscoveryServer serves an OpenID discovery document for its own URL.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                server.URL,
			"authorization_endpoint":                server.URL + "/auth",
			"token_endpoint":                        server.URL + "/token",
			"jwks_uri":                              server.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOIDCVerifier(t *testing.T) {
	ctx := context.Background()
	server := newDiscoveryServer(t)

	v, err := NewOIDCVerifier(ctx, OIDCConfig{IssuerURL: server.URL, Audience: "urlstore"})
	require.NoError(t, err)

	assert.ErrorIs(t, v.Verify(ctx, ""), ErrInvalidCredential)
	assert.ErrorIs(t, v.Verify(ctx, "not-a-token"), ErrInvalidCredential)

	// an HS256 token is never accepted as an ID token
	token, err := IssueToken("signing-secret", "admin", time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Verify(ctx, token), ErrInvalidCredential)

	factoryVerifier, err := NewVerifier(ctx, SchemeOIDC, storage.NewMemoryLinkStore(), OIDCConfig{IssuerURL: server.URL})
	require.NoError(t, err)
	assert.IsType(t, &OIDCVerifier{}, factoryVerifier)
}

func TestOIDCVerifier_DiscoveryFails(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewOIDCVerifier(context.Background(), OIDCConfig{IssuerURL: server.URL, Audience: "urlstore"})
	assert.Error(t, err)

	_, err = NewVerifier(context.Background(), SchemeOIDC, storage.NewMemoryLinkStore(), OIDCConfig{IssuerURL: server.URL})
	assert.Error(t, err)
}
