// Package app assembles the stores, sources and servers the commands run.
package app

import (
	"context"
	"fmt"
	"log"

	"figmagen/internal/artifact"
	"figmagen/internal/assets"
	"figmagen/internal/config"
	"figmagen/internal/figma"
	"figmagen/internal/pipeline"
	"figmagen/internal/server"
)

// NewSource returns the local document reader when a doc path is set and the
// REST client otherwise.
func NewSource(cfg *config.Config) (figma.DocumentSource, func() error, error) {
	if cfg.DocPath != "" {
		src, err := figma.NewFileSource(cfg.DocPath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("document source: file %s", cfg.DocPath)
		return src, func() error { return nil }, nil
	}
	client, err := figma.NewClient(cfg.FileKey, cfg.Token, figma.Options{
		BaseURL: cfg.APIBaseURL,
		RPS:     cfg.RPS,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("document source: api file=%s", client.FileKey())
	return client, client.Close, nil
}

// NewRunner builds the pipeline runner. A configured asset cache directory
// that cannot be opened is an error.
func NewRunner(cfg *config.Config, src figma.DocumentSource, store artifact.Store) (*pipeline.Runner, error) {
	opts := assets.Options{Concurrency: cfg.Concurrency}
	if cfg.AssetCache != "" {
		disk, err := assets.OpenDiskCache(assets.DiskCacheConfig{Dir: cfg.AssetCache})
		if err != nil {
			return nil, fmt.Errorf("open asset cache: %w", err)
		}
		log.Printf("asset cache: %s (%d entries)", cfg.AssetCache, disk.Len())
		opts.Disk = disk
	}
	return pipeline.New(src, store, assets.NewFetcher(opts), pipeline.Options{
		RenderVectors: cfg.RenderVectors,
		RenderFormat:  cfg.RenderFormat,
		OnMalformed:   cfg.OnMalformed,
		DumpNodes:     cfg.DumpNodes,
	}), nil
}

// App is the preview server with its store.
type App struct {
	server     *server.Server
	closeStore func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mux := server.NewMux(server.NewRunsHandler(store))
	return &App{
		server:     server.New(cfg.Port, mux),
		closeStore: closeStore,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.closeStore(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
