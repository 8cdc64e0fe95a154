package service

import (
	"context"
	"fmt"

	"urlstore/pkg/storage"
)

// Kind is the outcome class of a key resolution.
type Kind int

const (
	KindEmpty Kind = iota
	KindReservedText
	KindForbiddenSelf
	KindReservedRedirect
	KindUserCode
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindReservedText:
		return "reserved_text"
	case KindForbiddenSelf:
		return "forbidden_self"
	case KindReservedRedirect:
		return "reserved_redirect"
	case KindUserCode:
		return "user_code"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Resolution struct {
	Kind      Kind
	Key       string
	Text      string // KindReservedText
	Target    string // KindReservedRedirect
	Permanent bool
}

// Resolver classifies an incoming path key. It never looks up user codes itself.
type Resolver struct {
	reserved *Reserved
	store    storage.LinkStore
}

func NewResolver(reserved *Reserved, store storage.LinkStore) *Resolver {
	return &Resolver{reserved: reserved, store: store}
}

// Resolve applies, first match wins: empty, fixed key, the secret (or its storage key),
// fixed link, user code. The secret is read from the store on every call.
func (r *Resolver) Resolve(ctx context.Context, key string) (Resolution, error) {
	if key == "" {
		return Resolution{Kind: KindEmpty}, nil
	}

	if text, ok := r.reserved.Text(key); ok {
		return Resolution{Kind: KindReservedText, Key: key, Text: text}, nil
	}

	if key == storage.SecretKey {
		return Resolution{Kind: KindForbiddenSelf, Key: key}, nil
	}
	secret, err := r.store.Get(ctx, storage.SecretKey)
	if err != nil {
		return Resolution{}, fmt.Errorf("reading secret: %w", err)
	}
	if secret != nil && secret.Destination != "" && key == secret.Destination {
		return Resolution{Kind: KindForbiddenSelf, Key: key}, nil
	}

	if target, ok := r.reserved.Link(key); ok {
		return Resolution{Kind: KindReservedRedirect, Key: key, Target: target, Permanent: true}, nil
	}

	return Resolution{Kind: KindUserCode, Key: key}, nil
}
