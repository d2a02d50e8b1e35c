// Example: resolve the streams of the first episode of a search result
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/alvarorichard/kaistream/pkg/kaistream"
)

func main() {
	query := "Frieren"
	if len(os.Args) > 1 {
		query = os.Args[1]
	}

	client := kaistream.NewClient()
	defer client.Close()
	ctx := context.Background()

	page, err := client.SearchAnime(ctx, query, 1)
	if err != nil {
		log.Fatal(err)
	}
	if len(page.Results) == 0 {
		log.Fatalf("no results for %q", query)
	}

	anime, err := client.GetAnime(ctx, page.Results[0].ID)
	if err != nil {
		log.Fatal(err)
	}
	if len(anime.Episodes) == 0 {
		log.Fatalf("%s has no episodes", anime.Title)
	}

	episode := anime.Episodes[0]
	source, err := client.GetEpisodeSources(ctx, episode.ID, "", kaistream.Sub)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s - Episode %d\n", anime.Title, episode.Number)
	for _, s := range source.Streams {
		fmt.Printf("  %s (m3u8: %v)\n", s.URL, s.IsM3U8)
	}
	for _, sub := range source.Subtitles {
		fmt.Printf("  subtitle [%s] %s\n", sub.Lang, sub.URL)
	}
	for k, v := range source.Headers {
		fmt.Printf("  header %s: %s\n", k, v)
	}
}
