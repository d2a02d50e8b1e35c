package kaistream_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/kaistream/pkg/kaistream"
)

const searchPage = `<html><body>
<div class="aitem"><a href="/watch/frieren-xv2k"><img src="https://img.test/f.jpg"></a><a class="title" href="/watch/frieren-xv2k">Frieren</a></div>
<div class="aitem"><a href="/watch/frieren-s2-q9w1"><img src="https://img.test/f2.jpg"></a><a class="title" href="/watch/frieren-s2-q9w1">Frieren Season 2</a></div>
</body></html>`

func newClient(t *testing.T) (*kaistream.Client, *atomic.Int64) {
	t.Helper()

	var searches atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/browser", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		_, _ = fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/watch/frieren-xv2k", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><h1 class="anime-title">Frieren</h1></body></html>`)
	})
	origin := httptest.NewServer(mux)
	t.Cleanup(origin.Close)

	client, err := kaistream.NewClientWithOptions(kaistream.Options{
		BaseURL: origin.URL,
		Timeout: 5 * time.Second,
		UserID:  "tester",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, &searches
}

func TestNewClientDefaults(t *testing.T) {
	client := kaistream.NewClient()
	require.NotNil(t, client)
	assert.Equal(t, "https://animekai.to", client.BaseURL())
	assert.NoError(t, client.Close())
}

func TestSearchAnimeIsCached(t *testing.T) {
	client, searches := newClient(t)
	ctx := context.Background()

	page, err := client.SearchAnime(ctx, "frieren", 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "frieren-xv2k", page.Results[0].ID)
	assert.Equal(t, "Frieren Season 2", page.Results[1].Title)

	_, err = client.SearchAnime(ctx, "Frieren", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), searches.Load())
}

func TestSearchAnimeRejectsEmptyQuery(t *testing.T) {
	client, searches := newClient(t)

	_, err := client.SearchAnime(context.Background(), "   ", 1)
	require.Error(t, err)
	assert.True(t, kaistream.IsInvalidInput(err))
	assert.Zero(t, searches.Load())
}

func TestGetAnimeRecordsHistory(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	detail, err := client.GetAnime(ctx, "frieren-xv2k")
	require.NoError(t, err)
	assert.Equal(t, "Frieren", detail.Title)
	// the stub serves no episode list
	assert.Empty(t, detail.Episodes)
	assert.Zero(t, detail.TotalEpisodes)

	recent, err := client.RecentlyViewed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"frieren-xv2k"}, recent)
}

func TestUserRecords(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	require.NoError(t, client.AddFavorite(ctx, "frieren-xv2k"))
	favs, err := client.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"frieren-xv2k"}, favs)

	prefs, err := client.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sub", prefs.PreferredLanguage)

	require.NoError(t, client.UpdateProgress(ctx, "frieren-xv2k", "frieren-xv2k$ep=1$token=t", 42))
	progress, err := client.Progress(ctx, "frieren-xv2k")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.InDelta(t, 42, progress.Progress, 0.001)
}

func TestGetEpisodeSourcesRejectsMalformedID(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.GetEpisodeSources(context.Background(), "not-an-episode", "", kaistream.Sub)
	require.Error(t, err)
	assert.True(t, kaistream.IsInvalidInput(err))
}
