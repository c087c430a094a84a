package app

import (
	"context"
	"fmt"
	"log"

	"figmagen/internal/artifact"
	"figmagen/internal/config"
)

// OpenStore builds the artifact store the config selects. Remote origins are
// fronted by a CachedStore unless ARTIFACT_CACHE is off. The returned close
// func is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (artifact.Store, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("config is nil")
	}

	switch cfg.Backend {
	case config.BackendMemory:
		log.Printf("artifact store: in-memory")
		return artifact.NewMemoryStore(), noop, nil

	case config.BackendS3:
		s3Cfg := artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
			Prefix:    cfg.Artifact.Prefix,
		}
		s3Store, err := artifact.NewS3Store(s3Cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		log.Printf("artifact store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return withCache(cfg, s3Store), noop, nil

	case config.BackendPostgres:
		pg, err := artifact.OpenPostgres(ctx, cfg.Artifact.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open artifact postgres store: %w", err)
		}
		log.Printf("artifact store: postgres")
		return withCache(cfg, pg), pg.Close, nil

	case config.BackendDisk, "":
		layout := "flat"
		if !cfg.Flat {
			layout = "per-run"
		}
		log.Printf("artifact store: disk root=%s layout=%s", cfg.OutDir, layout)
		return artifact.NewDiskStore(cfg.OutDir, cfg.Flat), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown artifact store %q", cfg.Backend)
}

func withCache(cfg *config.Config, origin artifact.Store) artifact.Store {
	if !cfg.Artifact.Cache {
		return origin
	}
	return artifact.NewCachedStore(origin, artifact.DefaultCacheConfig())
}
