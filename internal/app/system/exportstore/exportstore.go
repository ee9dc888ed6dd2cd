// Package exportstore keeps copies of generated report files in a local
// directory or an S3 bucket.
package exportstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// ErrNoBucket is returned when the S3 backend is selected without a bucket.
var ErrNoBucket = errors.New("s3 storage requires a bucket")

// Config selects and configures the backend.
type Config struct {
	Type      string
	LocalPath string
	S3Region  string
	S3Bucket  string
	S3Prefix  string
}

// Object describes a stored file.
type Object struct {
	Key      string
	Location string
	Size     int64
}

// Store saves report files.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (Object, error)
}

// New builds the backend named by cfg.Type. An empty type means local.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeLocal:
		root := cfg.LocalPath
		if root == "" {
			root = "exports"
		}
		return NewLocal(root), nil
	case TypeS3:
		return NewS3(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Key builds an object key such as
// "reports/<org>/consumption_2024-10-01_2024-10-31_<uuid>.csv".
func Key(scope, report string, from, to time.Time, ext string) string {
	if scope == "" {
		scope = "all"
	}
	name := fmt.Sprintf("%s_%s_%s_%s.%s", report, from.Format("2006-01-02"), to.Format("2006-01-02"), uuid.NewString(), ext)
	return path.Join("reports", scope, name)
}

// Local writes files under a root directory.
type Local struct {
	Root string
}

// NewLocal returns a Local backend rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{Root: dir}
}

// Put writes body to Root/key, creating directories as needed.
func (l *Local) Put(_ context.Context, key string, body io.Reader, _ string) (Object, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return Object{}, fmt.Errorf("invalid object key %q", key)
	}
	dst := filepath.Join(l.Root, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return Object{}, fmt.Errorf("create export file: %w", err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return Object{}, fmt.Errorf("write export file: %w", err)
	}
	return Object{Key: key, Location: dst, Size: n}, nil
}

// S3 uploads files to a bucket, under an optional key prefix.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3 builds an S3 backend using the default AWS credential chain.
func NewS3(ctx context.Context, cfg Config, logger *zap.Logger) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, ErrNoBucket
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: strings.Trim(cfg.S3Prefix, "/"),
		logger: logger,
	}, nil
}

// Put uploads body to the bucket.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) (Object, error) {
	full := key
	if s.prefix != "" {
		full = s.prefix + "/" + strings.TrimLeft(key, "/")
	}
	var size int64
	if l, ok := body.(interface{ Len() int }); ok {
		size = int64(l.Len())
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(full),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("s3 upload failed", zap.String("bucket", s.bucket), zap.String("key", full), zap.Error(err))
		return Object{}, fmt.Errorf("upload %s: %w", full, err)
	}
	return Object{Key: full, Location: "s3://" + s.bucket + "/" + full, Size: size}, nil
}
