package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ConnectTimeout bounds how long startup waits for a backing store.
var ConnectTimeout = 30 * time.Second

func retryConnect(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	return backoff.Retry(func() error {
		return ping(ctx)
	}, backoff.WithContext(b, ctx))
}
