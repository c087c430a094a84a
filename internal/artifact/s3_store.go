package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix namespaces every object key, e.g. "figmagen/".
	Prefix string
	// URLExpiry bounds presigned asset URLs; defaults to one hour.
	URLExpiry time.Duration
}

// S3Store keeps run output in an S3-compatible bucket under
// [prefix]<runID>/<path>. Downloaded assets are stored as immutable; page and
// component sources are revalidated since a rebuild overwrites them in place.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
	prefix string
	expiry time.Duration

	bucketOnce sync.Once
	bucketErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	switch {
	case cfg.Endpoint == "":
		return nil, fmt.Errorf("s3 endpoint is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, fmt.Errorf("s3 access key and secret key are required")
	case cfg.Bucket == "":
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region = strings.TrimSpace(cfg.Region); cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: prefix,
		expiry: cfg.URLExpiry,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, runID, p string, content []byte) error {
	key, err := s.key(runID, p)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  ContentType(p),
		CacheControl: cacheControl(p),
		UserMetadata: map[string]string{"run-id": strings.TrimSpace(runID)},
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, runID, p string) ([]byte, error) {
	key, err := s.key(runID, p)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFoundOr(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return data, nil
}

func (s *S3Store) List(ctx context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	prefix := s.prefix + runID + "/"
	var paths []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if rel := strings.TrimPrefix(obj.Key, prefix); rel != "" {
			paths = append(paths, rel)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// GetURL presigns a download URL, so the preview can hand large assets to the
// browser without proxying them.
func (s *S3Store) GetURL(ctx context.Context, runID, p string) (string, error) {
	key, err := s.key(runID, p)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *S3Store) key(runID, p string) (string, error) {
	runID, p, err := normalize(runID, p)
	if err != nil {
		return "", err
	}
	return s.prefix + objectKey(runID, p), nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err == nil && !exists {
			err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		}
		if err != nil {
			s.bucketErr = fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
		}
	})
	return s.bucketErr
}

func cacheControl(p string) string {
	if strings.HasPrefix(path.Clean(p), "src/assets/") {
		return "public, max-age=31536000, immutable"
	}
	return "no-cache"
}

func notFoundOr(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	}
	return err
}
