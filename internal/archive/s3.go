// Package archive writes run reports to S3.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/datagate/datagate/internal/ingestion"
)

const keyTimeFormat = "20060102T150405Z"

// Config holds S3 archive configuration. Empty fields fall back to the
// standard AWS configuration chain.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	UsePathStyle bool
}

// ObjectPutter is the subset of *s3.Client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores each RunResult as a JSON object.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Archiver loads AWS configuration and builds an archiver.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3ArchiverWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ArchiverWithClient wraps an existing client.
func NewS3ArchiverWithClient(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a run:
// <prefix>/<adapter>/<started_at>-<run_id>.json.
func (a *S3Archiver) Key(res ingestion.RunResult) string {
	name := fmt.Sprintf("%s-%s.json", res.StartedAt.UTC().Format(keyTimeFormat), res.RunID)
	return path.Join(a.prefix, res.Adapter, name)
}

// ArchiveRun uploads res as JSON.
func (a *S3Archiver) ArchiveRun(ctx context.Context, res ingestion.RunResult) error {
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", res.RunID, err)
	}
	key := a.Key(res)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive run to s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
