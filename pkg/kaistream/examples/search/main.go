// Example: keyword search using the kaistream library
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/alvarorichard/kaistream/pkg/kaistream"
)

func main() {
	client := kaistream.NewClient()
	defer client.Close()

	fmt.Println("Searching for 'One Piece'...")
	page, err := client.SearchAnime(context.Background(), "One Piece", 1)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\nFound %d results (page %d, more: %v):\n\n", len(page.Results), page.CurrentPage, page.HasNextPage)
	for i, anime := range page.Results {
		fmt.Printf("%d. %s\n", i+1, anime.GetDisplayName())
		fmt.Printf("   ID: %s\n", anime.ID)
		fmt.Printf("   URL: %s\n", anime.URL)
		if anime.Image != "" {
			fmt.Printf("   Image: %s\n", anime.Image)
		}
		fmt.Println()
	}
}
