package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/waygrid/wayfinder/pkg/config"
)

// S3Mirror copies graph files to a shared bucket so a fleet of instances can
// reuse each other's Overpass fetches.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Mirror builds a mirror from the ambient AWS credential chain. Returns
// nil without error when the mirror is disabled.
func NewS3Mirror(ctx context.Context, cfg config.S3Config) (*S3Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 mirror enabled but no bucket configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads a graph file under the configured prefix.
func (m *S3Mirror) Put(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &m.bucket,
		Key:    m.objectKey(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload graph to s3: %w", err)
	}
	return nil
}

// Get downloads a graph file, returning an error when the object is absent.
func (m *S3Mirror) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &m.bucket,
		Key:    m.objectKey(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotInStore, key)
		}
		return nil, fmt.Errorf("failed to download graph from s3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph body from s3: %w", err)
	}
	return data, nil
}

func (m *S3Mirror) objectKey(key string) *string {
	full := m.prefix + key
	return &full
}
