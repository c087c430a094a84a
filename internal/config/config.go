package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Artifact store backends.
const (
	BackendDisk     = "disk"
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

// Policies for a page whose subtree fails preprocessing.
const (
	OnMalformedAbort = "abort"
	OnMalformedSkip  = "skip"
)

var (
	ErrMissingFileKey = errors.New("config: file key is required (flag -file, FIGMA_FILE_KEY or first argument)")
	ErrMissingToken   = errors.New("config: access token is required (flag -token, FIGMA_TOKEN or second argument)")
)

type Config struct {
	FileKey    string
	Token      string
	DocPath    string
	APIBaseURL string
	RPS        float64

	OutDir        string
	Backend       string
	Flat          bool
	RenderVectors bool
	RenderFormat  string
	Concurrency   int
	AssetCache    string
	OnMalformed   string
	DumpNodes     bool
	Watch         bool
	Debounce      time.Duration
	Schedule      string

	Port     string
	Artifact ArtifactConfig
}

type ArtifactConfig struct {
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	Prefix      string
	PostgresDSN string
	Cache       bool
}

// CanUseS3 reports whether every field the S3 store needs is set.
func (a ArtifactConfig) CanUseS3() bool {
	return a.Endpoint != "" && a.AccessKey != "" && a.SecretKey != "" && a.Bucket != ""
}

// Load reads .env (if present), parses args and applies environment
// fallbacks. A flag given explicitly wins over the environment; positional
// arguments <file-key> [token] are the last resort.
func Load(name string, args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fileKey := fs.String("file", "", "Figma file key")
	token := fs.String("token", "", "Figma personal access token")
	docPath := fs.String("doc", "", "read the document from a saved JSON file instead of the API")
	apiBase := fs.String("api", "", "Figma API base URL")
	rps := fs.Float64("rps", 0, "max API requests per second (0 = unlimited)")
	outDir := fs.String("out", ".", "output directory for the disk store")
	backend := fs.String("store", "", "artifact store: disk, memory, s3, postgres")
	perRun := fs.Bool("per-run", false, "nest disk output under a run id directory")
	noRender := fs.Bool("no-render", false, "skip rendering vector leaves to images")
	format := fs.String("format", "svg", "render format for vector leaves: svg, png, jpg, pdf")
	concurrency := fs.Int("concurrency", 8, "parallel asset downloads")
	assetCache := fs.String("asset-cache", "", "directory for a persistent asset download cache")
	onMalformed := fs.String("on-malformed", OnMalformedAbort, "malformed page policy: abort or skip")
	dumpNodes := fs.Bool("dump-nodes", false, "save each page's node payload as <Name>_nodes.json")
	watch := fs.Bool("watch", false, "rebuild when the -doc file changes")
	debounce := fs.Duration("debounce", 500*time.Millisecond, "watch debounce interval")
	schedule := fs.String("schedule", "", "cron spec for periodic rebuilds, e.g. \"@every 15m\"")
	port := fs.String("port", ":8090", "preview server address")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	pos := fs.Args()
	positional := func(i int) string {
		if i < len(pos) {
			return strings.TrimSpace(pos[i])
		}
		return ""
	}

	cfg := &Config{
		FileKey:       firstNonEmpty(strings.TrimSpace(*fileKey), env("FIGMA_FILE_KEY"), env("FILE_KEY"), positional(0)),
		Token:         firstNonEmpty(strings.TrimSpace(*token), env("FIGMA_TOKEN"), env("DEV_TOKEN"), positional(1)),
		DocPath:       firstNonEmpty(strings.TrimSpace(*docPath), env("FIGMA_DOC_PATH")),
		APIBaseURL:    firstNonEmpty(strings.TrimSpace(*apiBase), env("FIGMA_API_URL")),
		RPS:           *rps,
		OutDir:        firstNonEmpty(strings.TrimSpace(*outDir), "."),
		Backend:       strings.ToLower(firstNonEmpty(strings.TrimSpace(*backend), env("ARTIFACT_STORE"), BackendDisk)),
		Flat:          !*perRun,
		RenderVectors: !*noRender,
		RenderFormat:  strings.ToLower(strings.TrimSpace(*format)),
		Concurrency:   *concurrency,
		AssetCache:    firstNonEmpty(strings.TrimSpace(*assetCache), env("FIGMAGEN_ASSET_CACHE")),
		OnMalformed:   strings.ToLower(strings.TrimSpace(*onMalformed)),
		DumpNodes:     *dumpNodes,
		Watch:         *watch,
		Debounce:      *debounce,
		Schedule:      firstNonEmpty(strings.TrimSpace(*schedule), env("FIGMAGEN_SCHEDULE")),
		Port:          *port,
		Artifact:      loadArtifactConfig(),
	}
	if !set["rps"] {
		if v, err := strconv.ParseFloat(env("FIGMA_RPS"), 64); err == nil {
			cfg.RPS = v
		}
	}
	if !set["port"] {
		if envPort := firstNonEmpty(env("PREVIEW_PORT"), env("PORT")); envPort != "" {
			if strings.HasPrefix(envPort, ":") {
				cfg.Port = envPort
			} else {
				cfg.Port = ":" + envPort
			}
		}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// Validate checks the settings a generation run needs.
func (c *Config) Validate() error {
	if c.DocPath == "" {
		if c.FileKey == "" {
			return ErrMissingFileKey
		}
		if c.Token == "" {
			return ErrMissingToken
		}
	}
	if c.Watch && c.DocPath == "" {
		return fmt.Errorf("config: -watch requires -doc")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	switch c.OnMalformed {
	case OnMalformedAbort, OnMalformedSkip:
	default:
		return fmt.Errorf("config: unknown -on-malformed policy %q", c.OnMalformed)
	}
	switch c.RenderFormat {
	case "svg", "png", "jpg", "pdf":
	default:
		return fmt.Errorf("config: unsupported render format %q", c.RenderFormat)
	}
	return nil
}

// ValidateStore checks only the artifact store settings, which is all the
// preview server needs.
func (c *Config) ValidateStore() error {
	switch c.Backend {
	case BackendDisk, BackendMemory:
	case BackendS3:
		if !c.Artifact.CanUseS3() {
			return fmt.Errorf("config: s3 store needs ARTIFACT_S3_ENDPOINT, ARTIFACT_S3_ACCESS_KEY, ARTIFACT_S3_SECRET_KEY and ARTIFACT_S3_BUCKET")
		}
	case BackendPostgres:
		if c.Artifact.PostgresDSN == "" {
			return fmt.Errorf("config: postgres store needs ARTIFACT_PG_DSN")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Backend)
	}
	return nil
}

func loadArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Endpoint:    env("ARTIFACT_S3_ENDPOINT"),
		Region:      firstNonEmpty(env("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey:   firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
		SecretKey:   firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
		Bucket:      firstNonEmpty(env("ARTIFACT_S3_BUCKET"), "figmagen-artifacts"),
		UseSSL:      parseBool(env("ARTIFACT_S3_USE_SSL"), true),
		Prefix:      env("ARTIFACT_S3_PREFIX"),
		PostgresDSN: env("ARTIFACT_PG_DSN"),
		Cache:       parseBool(env("ARTIFACT_CACHE"), true),
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
