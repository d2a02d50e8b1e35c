package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/kaistream/internal/config"
	"github.com/alvarorichard/kaistream/internal/extractor"
	"github.com/alvarorichard/kaistream/internal/fetch"
	"github.com/alvarorichard/kaistream/internal/httpapi"
	"github.com/alvarorichard/kaistream/internal/scraper"
	"github.com/alvarorichard/kaistream/internal/service"
	"github.com/alvarorichard/kaistream/internal/tracking"
	"github.com/alvarorichard/kaistream/internal/util"
	"github.com/alvarorichard/kaistream/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	debugFlag := flag.Bool("debug", false, "enable debug mode")
	addrFlag := flag.String("addr", "", "listen address, overrides PORT")
	flag.Parse()

	if *versionFlag || version.HasVersionArg() {
		version.ShowVersion(os.Stdout, "kaistream-server")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		util.InitLogger()
		util.Fatal("Failed to load configuration", "error", err)
	}

	util.SetDebugMode(*debugFlag || cfg.Debug)
	util.InitLogger()

	addr := cfg.Addr()
	if *addrFlag != "" {
		addr = *addrFlag
	}

	fetcher := fetch.New(fetch.Config{
		Client:            util.NewOriginClient(cfg.RequestTimeout),
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.OriginRPS,
		Burst:             cfg.OriginBurst,
	})
	engine := scraper.NewAnimeKaiClient(cfg.BaseURL, fetcher,
		scraper.WithTokenDeriver(extractor.NewTokenDeriver(cfg.TokenKey)))

	store, err := tracking.Open(cfg.StorePath())
	if err != nil {
		util.Fatal("Failed to open user store", "path", cfg.StorePath(), "error", err)
	}

	svc := service.New(engine, store, cfg.CacheTTL)
	defer func() {
		if err := svc.Close(); err != nil {
			util.Warn("Failed to close user store", "error", err)
		}
	}()

	srv := httpapi.NewServer(addr, svc)
	util.Info("Starting KaiStream",
		"version", version.Version,
		"origin", engine.BaseURL(),
		"cache_ttl", cfg.CacheTTL,
		"sqlite", tracking.SQLiteAvailable() && cfg.StorePath() != "",
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		util.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			util.Error("Server stopped", "error", err)
		}
	}

	if err := srv.Shutdown(shutdownTimeout); err != nil {
		util.Error("Graceful shutdown failed", "error", err)
	}
}
