package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name (placeholder writes, default probe bucket)
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	ProbeTimeout    time.Duration // per-probe timeout (default: 4s)
}

// Backend probes s3:// URIs with HeadObject and persists generated
// placeholder thumbnails with PutObject. It implements both
// mediaresolve.Prober and mediaresolve.PlaceholderStore.
type Backend struct {
	client       *s3.Client
	bucket       string
	probeTimeout time.Duration
}

// New creates a new S3-compatible backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 4 * time.Second
	}

	// Set up AWS config
	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		// Use provided credentials
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		// Use default credential chain
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoint for S3-compatible services (MinIO, etc.)
	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	return &Backend{
		client:       s3.NewFromConfig(awsCfg, s3Options...),
		bucket:       config.Bucket,
		probeTimeout: config.ProbeTimeout,
	}, nil
}

// Probe checks object existence with HeadObject, never fetching content.
// NotFound responses are distinguished from timeouts so callers can apply
// different retry policies.
func (b *Backend) Probe(ctx context.Context, uri string) (*mediaresolve.ProbeResult, error) {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	if bucket == "" {
		bucket = b.bucket
	}

	ctx, cancel := context.WithTimeout(ctx, b.probeTimeout)
	defer cancel()

	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyError(err), nil
	}

	res := &mediaresolve.ProbeResult{
		Reachable: true,
		// S3 serves arbitrary byte ranges.
		SupportsRangeRequests: true,
	}
	if out.ContentLength != nil {
		res.SizeBytes = *out.ContentLength
	}
	if out.ContentType != nil {
		res.ContentType = *out.ContentType
	}
	return res, nil
}

// PutPlaceholder stores a generated placeholder image under the
// conventional thumbnails/ prefix and returns its s3:// URI.
func (b *Backend) PutPlaceholder(ctx context.Context, assetID uuid.UUID, png []byte) (string, error) {
	key := fmt.Sprintf("thumbnails/%s.png", assetID)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("put placeholder: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", b.bucket, key), nil
}

func classifyError(err error) *mediaresolve.ProbeResult {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonNotFound}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonNotFound}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonTimeout}
	}
	return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonError}
}

// parseURI splits s3://bucket/key. An empty bucket falls back to the
// backend's configured bucket.
func parseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("unsupported scheme %q for s3 prober", u.Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 uri %q has no object key", uri)
	}
	return u.Host, key, nil
}
