package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sub  int
		dub  int
		want SubOrDub
	}{
		{name: "sub only", sub: 5, dub: 0, want: Sub},
		{name: "dub only", sub: 0, dub: 3, want: Dub},
		{name: "both", sub: 4, dub: 2, want: Both},
		{name: "neither", sub: 0, dub: 0, want: SubOrDubUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvailabilityFor(tt.sub, tt.dub))
		})
	}
}

func TestSetCountsDerivesFlags(t *testing.T) {
	t.Parallel()

	var detail AnimeDetail
	detail.SetCounts(12, 0)

	assert.True(t, detail.HasSub)
	assert.False(t, detail.HasDub)
	assert.Equal(t, Sub, detail.SubOrDub)
	assert.Equal(t, 12, detail.SubCount)
}

func TestSortEpisodesAscending(t *testing.T) {
	t.Parallel()

	episodes := []Episode{{Number: 3}, {Number: 1}, {Number: 2}}
	SortEpisodes(episodes)

	got := make([]int, 0, len(episodes))
	for _, ep := range episodes {
		got = append(got, ep.Number)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestEpisodeRefRoundTrip(t *testing.T) {
	t.Parallel()

	ref := EpisodeRef{AnimeID: "one-piece-dk6r", Number: 1071, Token: "Ldbs8KXZ"}
	encoded := ref.String()
	assert.Equal(t, "one-piece-dk6r$ep=1071$token=Ldbs8KXZ", encoded)

	decoded, err := ParseEpisodeRef(encoded)
	require.NoError(t, err)
	assert.Equal(t, ref, decoded)
}

func TestParseEpisodeRefAllowsEmptyToken(t *testing.T) {
	t.Parallel()

	ref, err := ParseEpisodeRef("frieren-x1$ep=4$token=")
	require.NoError(t, err)
	assert.Equal(t, "frieren-x1", ref.AnimeID)
	assert.Equal(t, 4, ref.Number)
	assert.Empty(t, ref.Token)
}

func TestParseEpisodeRefRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"",
		"naruto",
		"$ep=1$token=abc",
		"naruto$ep=abc$token=x",
		"naruto$ep=0$token=x",
		"naruto$ep=-2$token=x",
	} {
		_, err := ParseEpisodeRef(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrInvalidEpisodeRef), input)
	}
}

func TestAnimeDetailCloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := &AnimeDetail{
		CatalogEntry:    CatalogEntry{ID: "a", Genres: []string{"action"}},
		Episodes:        []Episode{{ID: "a$ep=1$token=t", Number: 1}},
		Recommendations: []CatalogEntry{{ID: "b", Genres: []string{"drama"}}},
		Relations:       []Relation{{CatalogEntry: CatalogEntry{ID: "c"}, Kind: "Sequel"}},
	}

	clone := original.Clone()
	clone.Genres[0] = "changed"
	clone.Episodes[0].Number = 99
	clone.Recommendations[0].Genres[0] = "changed"

	assert.Equal(t, "action", original.Genres[0])
	assert.Equal(t, 1, original.Episodes[0].Number)
	assert.Equal(t, "drama", original.Recommendations[0].Genres[0])
	assert.Equal(t, "Sequel", clone.Relations[0].Kind)
}

func TestSearchPageCloneIsIndependent(t *testing.T) {
	t.Parallel()

	page := &SearchPage{CurrentPage: 2, HasNextPage: true, Results: []CatalogEntry{{ID: "x", Title: "X"}}}
	clone := page.Clone()
	clone.Results[0].Title = "Y"

	assert.Equal(t, "X", page.Results[0].Title)
	assert.Equal(t, 2, clone.CurrentPage)
	assert.True(t, clone.HasNextPage)
}

func TestCatalogEntryDisplay(t *testing.T) {
	t.Parallel()

	entry := CatalogEntry{
		Title:         "Frieren",
		JapaneseTitle: "Sousou no Frieren",
		Format:        FormatTV,
		Genres:        []string{"Adventure", "Drama", "Fantasy", "Shounen"},
	}

	assert.Equal(t, "Frieren / Sousou no Frieren [TV]", entry.GetDisplayName())
	assert.Equal(t, "Adventure, Drama, Fantasy", entry.GetGenresDisplay())
}

func TestSkipValid(t *testing.T) {
	assert.True(t, Skip{Start: 0, End: 90}.Valid())
	assert.False(t, Skip{Start: 90, End: 90}.Valid())
	assert.False(t, Skip{Start: -1, End: 10}.Valid())
}
