package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FIGMA_FILE_KEY", "FILE_KEY", "FIGMA_TOKEN", "DEV_TOKEN", "FIGMA_DOC_PATH", "FIGMA_API_URL",
		"FIGMA_RPS", "ARTIFACT_STORE", "PREVIEW_PORT", "PORT", "ARTIFACT_S3_ENDPOINT",
		"ARTIFACT_S3_ACCESS_KEY", "ARTIFACT_S3_SECRET_KEY", "MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
		"ARTIFACT_S3_BUCKET", "ARTIFACT_S3_USE_SSL", "ARTIFACT_PG_DSN", "ARTIFACT_CACHE", "FIGMAGEN_SCHEDULE",
		"FIGMAGEN_ASSET_CACHE", "ARTIFACT_S3_PREFIX",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadPositionalFallback(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("figmagen", []string{"KEY123", "tok"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FileKey != "KEY123" || cfg.Token != "tok" {
		t.Fatalf("positional: got key=%q token=%q", cfg.FileKey, cfg.Token)
	}
	if cfg.Backend != BackendDisk || !cfg.Flat || !cfg.RenderVectors || cfg.RenderFormat != "svg" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("FILE_KEY", "env-key")
	t.Setenv("DEV_TOKEN", "env-tok")
	cfg, err := Load("figmagen", []string{"-file", "flag-key", "pos-key"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FileKey != "flag-key" {
		t.Fatalf("flag should win: %q", cfg.FileKey)
	}
	if cfg.Token != "env-tok" {
		t.Fatalf("env should beat positional: %q", cfg.Token)
	}
}

func TestLoadScheduleFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIGMAGEN_SCHEDULE", "@every 15m")
	cfg, err := Load("figmagen", []string{"KEY", "tok"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Schedule != "@every 15m" {
		t.Fatalf("schedule: %q", cfg.Schedule)
	}
}

func TestLoadAssetCache(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIGMAGEN_ASSET_CACHE", "/tmp/env-cache")
	cfg, err := Load("figmagen", []string{"-asset-cache", "/tmp/flag-cache", "KEY", "tok"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AssetCache != "/tmp/flag-cache" {
		t.Fatalf("flag should win: %q", cfg.AssetCache)
	}
}

func TestLoadPortFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	cfg, err := Load("figmaserve", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != ":9000" {
		t.Fatalf("port: %q", cfg.Port)
	}
	cfg, err = Load("figmaserve", []string{"-port", ":7000"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != ":7000" {
		t.Fatalf("explicit port should win: %q", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cases := []struct {
		name string
		args []string
		want error
		ok   bool
	}{
		{name: "missing key", args: nil, want: ErrMissingFileKey},
		{name: "missing token", args: []string{"KEY"}, want: ErrMissingToken},
		{name: "doc only", args: []string{"-doc", "doc.json"}, ok: true},
		{name: "watch without doc", args: []string{"-watch", "KEY", "tok"}},
		{name: "bad store", args: []string{"-store", "ftp", "KEY", "tok"}},
		{name: "s3 incomplete", args: []string{"-store", "s3", "KEY", "tok"}},
		{name: "postgres without dsn", args: []string{"-store", "postgres", "KEY", "tok"}},
		{name: "bad policy", args: []string{"-on-malformed", "ignore", "KEY", "tok"}},
		{name: "bad format", args: []string{"-format", "gif", "KEY", "tok"}},
		{name: "memory", args: []string{"-store", "memory", "KEY", "tok"}, ok: true},
	}
	for _, tc := range cases {
		cfg, err := Load("figmagen", tc.args)
		if err != nil {
			t.Fatalf("%s: load: %v", tc.name, err)
		}
		err = cfg.Validate()
		switch {
		case tc.ok && err != nil:
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		case !tc.ok && err == nil:
			t.Fatalf("%s: expected error", tc.name)
		case tc.want != nil && !errors.Is(err, tc.want):
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestArtifactConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARTIFACT_S3_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ROOT_USER", "user")
	t.Setenv("MINIO_ROOT_PASSWORD", "pass")
	t.Setenv("ARTIFACT_S3_USE_SSL", "false")
	cfg, err := Load("figmagen", []string{"-store", "s3", "-debounce", "2s", "KEY", "tok"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Artifact.CanUseS3() || cfg.Artifact.UseSSL || cfg.Artifact.Bucket != "figmagen-artifacts" {
		t.Fatalf("artifact config: %+v", cfg.Artifact)
	}
	if cfg.Debounce != 2*time.Second {
		t.Fatalf("debounce: %s", cfg.Debounce)
	}
	if cfg.Schedule != "" {
		t.Fatalf("schedule should default to empty: %q", cfg.Schedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
