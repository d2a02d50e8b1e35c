package tracking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/kaistream/internal/models"
)

// stores returns a fresh instance of every Store implementation
func stores(t *testing.T) map[string]Store {
	t.Helper()

	out := map[string]Store{"memory": NewMemoryStore()}

	local, err := NewLocalStore(filepath.Join(t.TempDir(), "data", "users.db"))
	if errors.Is(err, ErrCgoDisabled) {
		t.Log("sqlite store skipped: built without cgo")
		return out
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := local.Close(); err != nil {
			t.Logf("Error closing store: %v", err)
		}
	})
	out["sqlite"] = local
	return out
}

func TestNewLocalStoreCreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "kaistream.db")

	store, err := NewLocalStore(dbPath)
	if errors.Is(err, ErrCgoDisabled) {
		t.Skip("built without cgo")
	}
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "DB file was not created")
	assert.NoError(t, store.Close())
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Preferences(ctx, "nobody")
			require.NoError(t, err)
			assert.Equal(t, models.DefaultPreferences(), got)

			require.NoError(t, store.SetPreferences(ctx, "alice", models.Preferences{PreferredLanguage: "dub", PreferredQuality: "1080p", Theme: "light"}))
			got, err = store.Preferences(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, models.Preferences{PreferredLanguage: "dub", PreferredQuality: "1080p", Theme: "light"}, got)

			// missing fields take their defaults
			require.NoError(t, store.SetPreferences(ctx, "bob", models.Preferences{PreferredQuality: "480p"}))
			got, err = store.Preferences(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, models.Preferences{PreferredLanguage: "sub", PreferredQuality: "480p", Theme: "dark"}, got)

			err = store.SetPreferences(ctx, "alice", models.Preferences{PreferredQuality: "4k"})
			assert.True(t, errors.Is(err, ErrInvalidPreferences))
			got, err = store.Preferences(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "1080p", got.PreferredQuality, "rejected update must not be stored")
		})
	}
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := store.Favorites(ctx, "alice")
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			for _, id := range []string{"naruto", "bleach", "naruto", "frieren"} {
				require.NoError(t, store.AddFavorite(ctx, "alice", id))
			}
			favs, err := store.Favorites(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, []string{"naruto", "bleach", "frieren"}, favs)

			require.NoError(t, store.RemoveFavorite(ctx, "alice", "bleach"))
			require.NoError(t, store.RemoveFavorite(ctx, "alice", "not-there"))
			favs, err = store.Favorites(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, []string{"naruto", "frieren"}, favs)

			other, err := store.Favorites(ctx, "bob")
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestRecentlyViewedOrderAndCap(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 25; i++ {
				require.NoError(t, store.AddRecentlyViewed(ctx, "alice", fmt.Sprintf("anime-%d", i)))
			}
			// viewing again moves it to the front without duplicating it
			require.NoError(t, store.AddRecentlyViewed(ctx, "alice", "anime-10"))

			recent, err := store.RecentlyViewed(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, recent, MaxRecentlyViewed)
			assert.Equal(t, "anime-10", recent[0])
			assert.Equal(t, "anime-25", recent[1])
			assert.Equal(t, "anime-6", recent[MaxRecentlyViewed-1])
			assert.NotContains(t, recent, "anime-5")

			seen := map[string]bool{}
			for _, id := range recent {
				assert.False(t, seen[id], "duplicate %s", id)
				seen[id] = true
			}
		})
	}
}

func TestRecentlyViewedConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, 40)
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- store.AddRecentlyViewed(ctx, "carol", fmt.Sprintf("anime-%d", i%30))
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			recent, err := store.RecentlyViewed(ctx, "carol")
			require.NoError(t, err)
			assert.LessOrEqual(t, len(recent), MaxRecentlyViewed)
		})
	}
}

func TestWatchProgress(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := store.Progress(ctx, "alice", "naruto")
			require.NoError(t, err)
			assert.Nil(t, p)

			require.NoError(t, store.UpdateProgress(ctx, "alice", "naruto", "naruto$ep=3$token=t", 120.5))
			require.NoError(t, store.UpdateProgress(ctx, "alice", "naruto", "naruto$ep=4$token=t", 30))

			p, err = store.Progress(ctx, "alice", "naruto")
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "naruto$ep=4$token=t", p.EpisodeID)
			assert.InDelta(t, 30, p.Progress, 0.001)
			assert.False(t, p.UpdatedAt.IsZero())

			err = store.UpdateProgress(ctx, "alice", "naruto", "", 10)
			assert.True(t, errors.Is(err, ErrInvalidProgress))
			err = store.UpdateProgress(ctx, "alice", "naruto", "naruto$ep=1$token=t", -1)
			assert.True(t, errors.Is(err, ErrInvalidProgress))
		})
	}
}

func TestOpenWithoutPathUsesMemory(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
	assert.NoError(t, store.Close())
}

func TestNilLocalStore(t *testing.T) {
	var store *LocalStore
	_, err := store.Favorites(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStoreNotInited)
	assert.NoError(t, store.Close())
}
