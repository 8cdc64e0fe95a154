package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func skipWithoutContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}
	if os.Getenv("SKIP_CONTAINER_TESTS") == "true" {
		t.Skip("Container tests skipped")
	}
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisLinkStore_Container(t *testing.T) {
	skipWithoutContainers(t)
	ctx := context.Background()

	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	})

	store, err := OpenRedisLinkStore(ctx, "redis://"+endpoint, "urlstore:")
	require.NoError(t, err)
	defer store.Close()

	link, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, link)

	stored, err := store.PutIfAbsent(ctx, &ShortLink{Code: "abc1234", Destination: "example.com/page"})
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = store.PutIfAbsent(ctx, &ShortLink{Code: "abc1234", Destination: "evil.com"})
	require.NoError(t, err)
	assert.False(t, stored)

	require.NoError(t, store.Put(ctx, &ShortLink{Code: "auth", Destination: "s3cr3t"}))

	link, err = store.Get(ctx, "abc1234")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "example.com/page", link.Destination)

	codes, err := store.List(ctx)
	require.NoError(t, err)
	sort.Strings(codes)
	assert.Equal(t, []string{"abc1234", "auth"}, codes)

	require.NoError(t, store.Delete(ctx, "abc1234"))
	require.NoError(t, store.Delete(ctx, "abc1234"))
	link, err = store.Get(ctx, "abc1234")
	require.NoError(t, err)
	assert.Nil(t, link)
}

func TestPostgresViewLedgers_Container(t *testing.T) {
	skipWithoutContainers(t)
	ctx := context.Background()

	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "urlstore",
			"POSTGRES_PASSWORD": "urlstore",
			"POSTGRES_DB":       "urlstore",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})
	dsn := fmt.Sprintf("postgres://urlstore:urlstore@%s/urlstore?sslmode=disable", endpoint)

	t.Run("pgx", func(t *testing.T) {
		ledger, err := OpenPostgresViewLedger(ctx, dsn)
		require.NoError(t, err)
		defer ledger.Close()
		require.NoError(t, ledger.Migrate(ctx))
		_, err = ledger.pool.Exec(ctx, `TRUNCATE views`)
		require.NoError(t, err)

		testViewLedger(t, ledger)
	})

	t.Run("lib/pq", func(t *testing.T) {
		ledger, err := OpenSQLViewLedger(ctx, "postgres", dsn)
		require.NoError(t, err)
		defer ledger.Close()
		require.NoError(t, ledger.Migrate(ctx))
		_, err = ledger.db.ExecContext(ctx, `TRUNCATE views`)
		require.NoError(t, err)

		testViewLedger(t, ledger)
	})
}
