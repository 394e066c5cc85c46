//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

const defaultRegion = "us-east-1"

// s3Source reads snapshot objects from S3 or an S3-compatible store such
// as MinIO. Credentials come from the default AWS chain.
type s3Source struct {
	// Set in tests to serve objects from a fake transport.
	httpClient  *http.Client
	credentials aws.CredentialsProvider
}

func (s *s3Source) Name() string { return config.SourceS3 }

func (s *s3Source) client(ctx context.Context, f *config.FeedConfig) (*s3.Client, error) {
	region := f.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if s.credentials != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(s.credentials))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if f.PathStyle {
			o.UsePathStyle = true
		}
		if f.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.Endpoint)
		}
		if s.httpClient != nil {
			o.HTTPClient = s.httpClient
		}
	}), nil
}

func (s *s3Source) Read(ctx context.Context, f *config.FeedConfig, e *catalog.Entity) ([]record.Record, error) {
	client, err := s.client(ctx, f)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &f.Bucket, Key: &f.Key})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", f.Bucket, f.Key, err)
	}
	defer out.Body.Close()

	logging.Debug().
		Str("bucket", f.Bucket).
		Str("key", f.Key).
		Str("size", datagen.FormatSize(aws.ToInt64(out.ContentLength))).
		Msg("Fetched snapshot object")

	return decode(objectFormat(f.Key), out.Body, f, e)
}

// objectFormat picks the snapshot format from the object key.
func objectFormat(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".json") {
		return config.SourceJSON
	}
	return config.SourceCSV
}
