package artifact

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS figmagen_files (
    run_id     TEXT NOT NULL,
    path       TEXT NOT NULL,
    kind       TEXT NOT NULL,
    content    BYTEA NOT NULL,
    sha256     TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, path)
);
CREATE INDEX IF NOT EXISTS figmagen_files_kind ON figmagen_files (run_id, kind);
`

// Rows whose hash is unchanged are left alone, so a watch rebuild that
// regenerates identical files does not bump updated_at.
const postgresUpsert = `
INSERT INTO figmagen_files (run_id, path, kind, content, sha256)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (run_id, path) DO UPDATE
SET content = EXCLUDED.content, kind = EXCLUDED.kind, sha256 = EXCLUDED.sha256, updated_at = NOW()
WHERE figmagen_files.sha256 <> EXCLUDED.sha256
`

// PostgresStore keeps run files in one table keyed by (run_id, path).
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgres connects through the pgx stdlib driver and pings the server.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Put(ctx context.Context, runID, p string, content []byte) error {
	runID, p, err := normalize(runID, p)
	if err != nil {
		return err
	}
	if err := s.migrate(ctx); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	sum := sha256.Sum256(content)
	if _, err := s.db.ExecContext(ctx, postgresUpsert, runID, p, FileKind(p), content, hex.EncodeToString(sum[:])); err != nil {
		return fmt.Errorf("postgres put %s/%s: %w", runID, p, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, runID, p string) ([]byte, error) {
	runID, p, err := normalize(runID, p)
	if err != nil {
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM figmagen_files WHERE run_id = $1 AND path = $2`, runID, p).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) List(ctx context.Context, runID string) ([]string, error) {
	return s.query(ctx, `SELECT path FROM figmagen_files WHERE run_id = $1 ORDER BY path`, runID)
}

// ListKind returns the paths of one kind of file ("page", "asset", ...).
func (s *PostgresStore) ListKind(ctx context.Context, runID, kind string) ([]string, error) {
	return s.query(ctx, `SELECT path FROM figmagen_files WHERE run_id = $1 AND kind = $2 ORDER BY path`, runID, kind)
}

// GetURL is unsupported; bodies live in the table.
func (s *PostgresStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *PostgresStore) query(ctx context.Context, q string, runID string, args ...any) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, append([]any{runID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
			s.schemaErr = fmt.Errorf("create figmagen_files: %w", err)
		}
	})
	return s.schemaErr
}

// FileKind classifies a run file by where it lives in the output tree.
func FileKind(p string) string {
	p = path.Clean(strings.TrimLeft(p, "/"))
	switch {
	case strings.HasPrefix(p, "src/assets/"):
		return "asset"
	case strings.HasPrefix(p, "src/pages/"):
		return "page"
	case strings.HasPrefix(p, "src/components/"):
		return "component"
	case p == "src/figmaComponents.js":
		return "registry"
	case p == "manifest.json":
		return "manifest"
	case strings.HasSuffix(p, ".json"):
		return "dump"
	}
	return "other"
}
