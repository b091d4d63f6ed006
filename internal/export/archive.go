package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ContentType is the media type of archived exports.
const ContentType = "application/geo+json"

// ErrArchiveDisabled is returned when no bucket is configured.
var ErrArchiveDisabled = errors.New("export archive is not configured")

// ArchiverConfig configures an Archiver for an S3-compatible store.
type ArchiverConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Logger    zerolog.Logger
}

// objectStore is the subset of *minio.Client the archiver uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Object describes an archived export.
type Object struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	ETag      string    `json:"etag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Archiver stores trip exports in a bucket.
type Archiver struct {
	store  objectStore
	bucket string
	region string
	logger zerolog.Logger
	now    func() time.Time
}

// NewArchiver connects to the object store.
func NewArchiver(cfg ArchiverConfig) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrArchiveDisabled
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}
	return newArchiver(client, cfg), nil
}

func newArchiver(store objectStore, cfg ArchiverConfig) *Archiver {
	return &Archiver{
		store:  store,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", a.bucket, err)
	}
	a.logger.Info().Str("bucket", a.bucket).Msg("created export bucket")
	return nil
}

// Archive uploads data under trips/<tripID>/<timestamp>.geojson.
func (a *Archiver) Archive(ctx context.Context, tripID string, data []byte) (*Object, error) {
	now := a.now().UTC()
	key := fmt.Sprintf("trips/%s/%s.geojson", tripID, now.Format("20060102T150405.000Z"))

	info, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: ContentType,
		UserMetadata: map[string]string{
			"trip-id": tripID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}

	a.logger.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int64("size", info.Size).
		Msg("archived trip export")

	return &Object{
		Bucket:    a.bucket,
		Key:       key,
		Size:      info.Size,
		ETag:      info.ETag,
		CreatedAt: now,
	}, nil
}
