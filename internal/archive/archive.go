// Package archive uploads generated reports and exports to S3-compatible
// object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/logging"
)

var log = logging.Component("archive")

// Config configures the object storage client.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// Validate checks that every required field is set.
func (c Config) Validate() error {
	errs := errors.NewValidationErrors()
	if c.Endpoint == "" {
		errs.AddMissing("archive.endpoint")
	}
	if c.AccessKey == "" {
		errs.AddMissing("archive.access_key")
	}
	if c.SecretKey == "" {
		errs.AddMissing("archive.secret_key")
	}
	if c.Bucket == "" {
		errs.AddMissing("archive.bucket")
	}
	return errs.Err()
}

// Client uploads objects into one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// Object describes an uploaded object.
type Object struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// New creates a client. It does not contact the server.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create object storage client")
	}

	return &Client{mc: mc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// CheckBucket verifies that the bucket exists.
func (c *Client) CheckBucket(ctx context.Context) error {
	found, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(errors.Join(errors.ErrTransport, err), "check bucket")
	}
	if !found {
		return fmt.Errorf("bucket %q does not exist: %w", c.bucket, errors.ErrInvalidConfig)
	}
	return nil
}

// Key returns the object key for name under the configured prefix.
func (c *Client) Key(name string) string {
	return path.Join(c.prefix, strings.TrimPrefix(name, "/"))
}

// Upload stores data under name.
func (c *Client) Upload(ctx context.Context, name string, data []byte, contentType string) (Object, error) {
	key := c.Key(name)
	info, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, errors.Wrapf(errors.Join(errors.ErrTransport, err), "upload %s", key)
	}

	log.Info("object uploaded", "bucket", c.bucket, "key", key, "size", info.Size)
	return Object{Bucket: c.bucket, Key: key, Size: info.Size, ETag: info.ETag}, nil
}

// ObjectName builds a dated object name such as
// "report/2024/03/01/report-143000.pdf".
func ObjectName(kind string, now time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/%s-%s%s", kind, now.Format("2006/01/02"), kind, now.Format("150405"), ext)
}
