package store

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/errors"
)

// S3Config configures the S3 snapshot backend.
type S3Config struct {
	Bucket string

	// Prefix is prepended to all object keys (e.g., "bpmnctx/")
	Prefix string

	Region string

	// Endpoint overrides the default S3 endpoint (MinIO, LocalStack)
	Endpoint string

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle forces path-style addressing
	UsePathStyle bool

	// Timeout for S3 operations
	Timeout time.Duration
}

// S3ConfigFrom builds an S3Config from the store config section.
func S3ConfigFrom(cfg config.S3StoreConfig) S3Config {
	return S3Config{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		UsePathStyle:    cfg.UsePathStyle,
		Timeout:         30 * time.Second,
	}
}

// S3Backend stores one JSON object per record.
type S3Backend struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Backend creates a new S3 snapshot backend.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.CodeStoreFailed, "s3 store needs a bucket")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storeFailed(err, "s3", "load AWS config", "")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Backend{
		cfg:    cfg,
		client: client,
	}, nil
}

func (b *S3Backend) key(id string) string {
	return b.cfg.Prefix + id + recordExt
}

// Save uploads the record.
func (b *S3Backend) Save(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return storeFailed(err, b.Name(), "marshal record", rec.ID)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(b.key(rec.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return storeFailed(err, b.Name(), "save record", rec.ID)
	}
	return nil
}

// Load downloads a record.
func (b *S3Backend) Load(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	return b.load(ctx, id)
}

func (b *S3Backend) load(ctx context.Context, id string) (*Record, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if stderrors.As(err, &missing) {
			return nil, errors.SnapshotNotFound(b.Name(), id)
		}
		return nil, storeFailed(err, b.Name(), "load record", id)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, storeFailed(err, b.Name(), "read record", id)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storeFailed(err, b.Name(), "decode record", id)
	}
	return &rec, nil
}

// Delete removes a record. S3 deletes are idempotent, so a missing record is not reported.
func (b *S3Backend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		return storeFailed(err, b.Name(), "delete record", id)
	}
	return nil
}

// List loads every record under the prefix.
func (b *S3Backend) List(ctx context.Context) ([]*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	var records []*Record
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.cfg.Bucket),
		Prefix: aws.String(b.cfg.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeFailed(err, b.Name(), "list records", "")
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, recordExt) {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(key, b.cfg.Prefix), recordExt)
			rec, err := b.load(ctx, id)
			if err != nil {
				continue
			}
			records = append(records, rec)
		}
	}

	sortRecords(records)
	return records, nil
}

// Name returns "s3".
func (b *S3Backend) Name() string {
	return "s3"
}

// Close is a no-op.
func (b *S3Backend) Close() error {
	return nil
}
