package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/config"
	"github.com/tanq16/rominator/internal/downloads"
	"github.com/tanq16/rominator/internal/output"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/sources/catalog"
	"github.com/tanq16/rominator/internal/transport"
	"github.com/tanq16/rominator/internal/utils"
)

const defaultStallTimeout = 2 * time.Minute

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg        *config.Config
	client     *utils.RomHTTPClient
	catalog    *catalog.Catalog
	registry   *sources.Registry
	aggregator *sources.Aggregator
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.Load(path, catalog.KnownIDs)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := utils.NewRomHTTPClient(httpConfig())
	cat := catalog.Build(ctx, cfg, client)
	registry := cat.Registry(cfg.EnabledSources)
	aggregator := sources.NewAggregator(registry)
	aggregator.SourceTimeout = cfg.SourceTimeout
	aggregator.OnSourceDone = func(id string, err error) {
		if err != nil {
			output.PrintWarning(fmt.Sprintf("  %s %s: %v", output.StyleSymbols["warning"], id, err))
		}
	}
	return &app{cfg: cfg, client: client, catalog: cat, registry: registry, aggregator: aggregator}, nil
}

// search streams results through a ResultSet, printing each new result
// unless quiet is set.
func (a *app) search(ctx context.Context, query string, platforms, tags []string, quiet bool) ([]sources.SearchResult, error) {
	set := sources.NewResultSet()
	err := a.aggregator.Search(ctx, query, platforms, tags, func(batch []sources.SearchResult) {
		offset := set.Len()
		added := set.Add(batch)
		if !quiet {
			output.PrintResults(added, offset)
		}
	})
	return set.All(), err
}

func (a *app) maxRunning() int {
	if maxRunning > 0 {
		return maxRunning
	}
	return a.cfg.MaxRunning
}

func (a *app) newTransport() *transport.Mux {
	mux := transport.NewMux()
	mux.Handle(transport.NewHTTPFetcher(a.client.WithTimeout(0)), "http", "https")
	if a.catalog.S3 != nil {
		mux.Handle(transport.NewS3Fetcher(a.catalog.S3), "s3")
	}
	return mux
}

// download queues every result, shows live progress and waits until each
// job finished. It fails when any job failed.
func (a *app) download(ctx context.Context, results []sources.SearchResult, stall time.Duration) error {
	if len(results) == 0 {
		return fmt.Errorf("nothing selected")
	}
	mux := a.newTransport()
	defer mux.Close()
	manager := downloads.NewManager(mux, downloads.Options{
		MaxRunning:   a.maxRunning(),
		StallTimeout: stall,
		DownloadsDir: a.cfg.DownloadsRoot(),
	})
	for _, r := range results {
		src, ok := a.registry.Get(r.SourceID)
		if !ok {
			log.Warn().Str("op", "cmd/app").Msgf("unknown source %q for %s", r.SourceID, r.ID)
			continue
		}
		manager.AddJob(ctx, r, src)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go manager.Run(runCtx)
	display := output.NewDisplay(manager, output.IsTerminal() && !debug)
	display.Start()
	waitErr := manager.Wait(ctx)
	display.Stop()
	if waitErr != nil {
		return waitErr
	}
	if failed := manager.Counts()[downloads.StatusError]; failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}
