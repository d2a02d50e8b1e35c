package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"

	"github.com/alvarorichard/kaistream/internal/config"
	"github.com/alvarorichard/kaistream/internal/util"
	"github.com/alvarorichard/kaistream/internal/version"
	"github.com/alvarorichard/kaistream/pkg/kaistream"
)

const minQueryLength = 2

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	debugFlag := flag.Bool("debug", false, "enable debug mode")
	dubFlag := flag.Bool("dub", false, "prefer dubbed servers")
	serverFlag := flag.String("server", "", "server name to extract from; prompts when empty")
	flag.Parse()

	if *versionFlag || version.HasVersionArg() {
		version.ShowVersion(os.Stdout, "kaistream")
		return
	}

	util.SetDebugMode(*debugFlag)
	util.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		util.Fatal("Failed to load configuration", "error", err)
	}

	client, err := kaistream.NewClientWithOptions(kaistream.Options{
		BaseURL:      cfg.BaseURL,
		UserAgent:    cfg.UserAgent,
		TokenKey:     cfg.TokenKey,
		Timeout:      cfg.RequestTimeout,
		CacheTTL:     cfg.CacheTTL,
		DatabasePath: cfg.StorePath(),
	})
	if err != nil {
		util.Fatal("Failed to create client", "error", err)
	}
	defer client.Close()

	track := kaistream.Sub
	if *dubFlag {
		track = kaistream.Dub
	}

	query := strings.Join(flag.Args(), " ")
	if err := run(context.Background(), client, query, *serverFlag, track); err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, fuzzyfinder.ErrAbort) {
			return
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, client *kaistream.Client, query, server string, track kaistream.SubOrDub) error {
	if strings.TrimSpace(query) == "" {
		var err error
		if query, err = askQuery(); err != nil {
			return err
		}
	}

	var page *kaistream.SearchPage
	var err error
	withSpinner("Searching AnimeKai...", func() {
		page, err = client.SearchAnime(ctx, query, 1)
	})
	if err != nil {
		return err
	}
	if len(page.Results) == 0 {
		return errors.Errorf("no anime found for %q", query)
	}

	entry, err := selectAnime(page.Results)
	if err != nil {
		return err
	}

	var anime *kaistream.AnimeDetail
	withSpinner("Fetching episodes...", func() {
		anime, err = client.GetAnime(ctx, entry.ID)
	})
	if err != nil {
		return err
	}
	if len(anime.Episodes) == 0 {
		return errors.Errorf("%s has no episodes", anime.Title)
	}

	episode, err := selectEpisode(anime)
	if err != nil {
		return err
	}

	if server == "" {
		var servers []kaistream.EpisodeServer
		withSpinner("Listing servers...", func() {
			servers, err = client.GetEpisodeServers(ctx, episode.ID, track)
		})
		if err != nil {
			return err
		}
		if server, err = selectServer(servers); err != nil {
			return err
		}
	}

	var source *kaistream.Source
	withSpinner("Loading video stream...", func() {
		source, err = client.GetEpisodeSources(ctx, episode.ID, server, track)
	})
	if err != nil {
		return err
	}

	if err := client.UpdateProgress(ctx, anime.ID, episode.ID, 0); err != nil {
		util.Debug("Failed to record watch progress", "error", err)
	}
	fmt.Println(renderSource(anime, episode, source))
	return nil
}

func askQuery() (string, error) {
	prompt := promptui.Prompt{
		Label: "Search anime",
		Validate: func(input string) error {
			if len(strings.TrimSpace(input)) < minQueryLength {
				return errors.Errorf("enter at least %d characters", minQueryLength)
			}
			return nil
		},
	}
	return prompt.Run()
}

func selectAnime(results []kaistream.CatalogEntry) (kaistream.CatalogEntry, error) {
	if len(results) == 1 {
		return results[0], nil
	}

	idx, err := fuzzyfinder.Find(
		results,
		func(i int) string {
			return results[i].GetDisplayName()
		},
		fuzzyfinder.WithPromptString("Select anime: "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 || i >= len(results) {
				return ""
			}
			e := results[i]
			return fmt.Sprintf("%s\n\nGenres: %s\nSub: %d  Dub: %d\nURL: %s", e.Title, e.GetGenresDisplay(), e.SubCount, e.DubCount, e.URL)
		}),
	)
	if err != nil {
		return kaistream.CatalogEntry{}, err
	}
	return results[idx], nil
}

func selectEpisode(anime *kaistream.AnimeDetail) (kaistream.Episode, error) {
	episodes := anime.Episodes
	if len(episodes) == 1 {
		return episodes[0], nil
	}

	idx, err := fuzzyfinder.Find(
		episodes,
		func(i int) string {
			label := fmt.Sprintf("%d. %s", episodes[i].Number, episodes[i].Title)
			if episodes[i].IsFiller {
				label += " (filler)"
			}
			return label
		},
		fuzzyfinder.WithPromptString(anime.Title+" > "),
	)
	if err != nil {
		return kaistream.Episode{}, err
	}
	return episodes[idx], nil
}

func selectServer(servers []kaistream.EpisodeServer) (string, error) {
	if len(servers) == 0 {
		return "", errors.New("no servers available for this episode")
	}

	prompt := promptui.Select{
		Label: "Select server",
		Items: servers,
		Templates: &promptui.SelectTemplates{
			Active:   "▸ {{ .Name | cyan }}",
			Inactive: "  {{ .Name }}",
			Selected: "Server: {{ .Name | green }}",
		},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return servers[idx].Name, nil
}

func withSpinner(title string, action func()) {
	_ = spinner.New().
		Title(title).
		Type(spinner.Dots).
		Action(action).
		Run()
}
