package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SpacesService stores uploaded import files in an S3 compatible bucket.
type SpacesService struct {
	client *s3.Client
	bucket string
	region string
	root   string
}

// NewSpacesService builds the client. An empty endpoint targets DigitalOcean Spaces in region.
func NewSpacesService(ctx context.Context, key, secret, region, bucket, endpoint, root string) (*SpacesService, error) {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", region)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &SpacesService{
		client: client,
		bucket: bucket,
		region: region,
		root:   strings.Trim(root, "/"),
	}, nil
}

// ArchiveKey is the object key for an uploaded file of one import batch.
func (s *SpacesService) ArchiveKey(batchID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return path.Join(s.root, "imports", at.UTC().Format("2006/01/02"), batchID+"_"+name)
}

// ArchiveImport uploads the raw file of an import batch and returns its key.
func (s *SpacesService) ArchiveImport(ctx context.Context, batchID, filename string, data []byte) (string, error) {
	key := s.ArchiveKey(batchID, filename, time.Now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(filename)),
		Metadata: map[string]string{
			"batch-id": batchID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}

	slog.Info("Import file archived",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)))
	return key, nil
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}

func contentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}
