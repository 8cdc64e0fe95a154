package storage

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLinkStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLinkStore()

	link, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, link)

	require.NoError(t, store.Put(ctx, &ShortLink{Code: "abc", Destination: "example.com"}))
	link, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "example.com", link.Destination)

	stored, err := store.PutIfAbsent(ctx, &ShortLink{Code: "abc", Destination: "other.com"})
	require.NoError(t, err)
	assert.False(t, stored)

	link, _ = store.Get(ctx, "abc")
	assert.Equal(t, "example.com", link.Destination, "PutIfAbsent must not overwrite")

	stored, err = store.PutIfAbsent(ctx, &ShortLink{Code: "def", Destination: "other.com"})
	require.NoError(t, err)
	assert.True(t, stored)

	codes, err := store.List(ctx)
	require.NoError(t, err)
	sort.Strings(codes)
	assert.Equal(t, []string{"abc", "def"}, codes)
}

func TestMemoryLinkStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLinkStore()
	require.NoError(t, store.Put(ctx, &ShortLink{Code: "keep", Destination: "example.com"}))

	require.NoError(t, store.Delete(ctx, "nope"))
	require.NoError(t, store.Delete(ctx, "nope"))

	assert.Equal(t, 1, store.Len())
	link, err := store.Get(ctx, "keep")
	require.NoError(t, err)
	require.NotNil(t, link)
}

func TestMemoryViewLedger(t *testing.T) {
	testViewLedger(t, NewMemoryViewLedger())
}

// testViewLedger runs the ledger contract against any implementation.
func testViewLedger(t *testing.T, ledger ViewLedger) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ledger.Migrate(ctx))

	t.Run("absent record", func(t *testing.T) {
		rec, err := ledger.Get(ctx, "none")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("sequential increments", func(t *testing.T) {
		base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		for i := 0; i < 5; i++ {
			require.NoError(t, ledger.Increment(ctx, "seq", base.Add(time.Duration(i)*time.Minute)))
		}

		rec, err := ledger.Get(ctx, "seq")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "seq", rec.LinkID)
		assert.Equal(t, int64(5), rec.Count)
		assert.True(t, rec.UpdatedAt.Equal(base.Add(4*time.Minute)), "updated_at = %s", rec.UpdatedAt)
	})

	t.Run("out of order increments keep the latest time", func(t *testing.T) {
		later := time.Date(2026, 1, 2, 3, 4, 5, 500_000_000, time.UTC)
		earlier := later.Add(-500 * time.Millisecond)
		require.NoError(t, ledger.Increment(ctx, "late", later))
		require.NoError(t, ledger.Increment(ctx, "late", earlier))

		rec, err := ledger.Get(ctx, "late")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, int64(2), rec.Count)
		assert.True(t, rec.UpdatedAt.Equal(later), "updated_at = %s", rec.UpdatedAt)
	})

	t.Run("times are stored in UTC", func(t *testing.T) {
		zone := time.FixedZone("UTC+5", 5*60*60)
		at := time.Date(2026, 1, 2, 8, 0, 0, 0, zone)
		require.NoError(t, ledger.Increment(ctx, "zoned", at))

		rec, err := ledger.Get(ctx, "zoned")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.UpdatedAt.Equal(at))
		_, offset := rec.UpdatedAt.Zone()
		assert.Zero(t, offset)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		const n = 25
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, ledger.Increment(ctx, "race", time.Now()))
			}()
		}
		wg.Wait()

		rec, err := ledger.Get(ctx, "race")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, int64(n), rec.Count)
	})

	t.Run("total and delete", func(t *testing.T) {
		total, err := ledger.TotalViews(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(33), total)

		require.NoError(t, ledger.Delete(ctx, "race"))
		rec, err := ledger.Get(ctx, "race")
		require.NoError(t, err)
		assert.Nil(t, rec)

		total, err = ledger.TotalViews(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), total)
	})
}
