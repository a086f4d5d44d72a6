package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve/probe"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve/processor"
	memoryrepo "github.com/lumenlms/mediaresolve/pkg/mediaresolve/repo/memory"
	repopg "github.com/lumenlms/mediaresolve/pkg/mediaresolve/repo/postgres"
	memorystorage "github.com/lumenlms/mediaresolve/pkg/mediaresolve/storage/memory"
	s3storage "github.com/lumenlms/mediaresolve/pkg/mediaresolve/storage/s3"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve/thumbjob"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		ProbeTimeout: probe.DefaultTimeout,
		VerifyTTL:    mediaresolve.DefaultVerifyTTL,
	}
}

// ServerConfig represents server configuration for the mediaresolve service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Catalog configuration (naming-convention bases)
	ObjectStoreBaseURI string
	CDNBaseURL         string
	OriginRelayBaseURL string

	// S3 backend for object-store probing and placeholder storage
	S3 *S3Config

	// External services
	ProcessorBaseURL string
	ProcessorToken   string
	ThumbJobBaseURL  string

	// Resolution tuning
	ProbeTimeout  time.Duration
	VerifyTTL     time.Duration
	PlaybackOrder []mediaresolve.BackendType
}

// S3Config configures the s3 storage backend
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.S3 != nil && c.S3.Bucket == "" {
		return errors.New("s3 bucket is required when s3 is configured")
	}

	for _, bt := range c.PlaybackOrder {
		switch bt {
		case mediaresolve.BackendObjectStore, mediaresolve.BackendCDN,
			mediaresolve.BackendProcessorStream, mediaresolve.BackendOriginRelay:
		default:
			return fmt.Errorf("unknown backend type %q in playback order", bt)
		}
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (mediaresolve.Service, error) {
	var options []mediaresolve.Option

	// Repository
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		options = append(options, mediaresolve.WithRepository(repopg.NewWithPool(pool)))
	default:
		options = append(options, mediaresolve.WithRepository(memoryrepo.New()))
	}

	// Catalog
	options = append(options, mediaresolve.WithCatalog(mediaresolve.NewCatalog(mediaresolve.CatalogConfig{
		ObjectStoreBaseURI: c.ObjectStoreBaseURI,
		CDNBaseURL:         c.CDNBaseURL,
		OriginRelayBaseURL: c.OriginRelayBaseURL,
	})))

	// Probers
	httpProber := probe.NewHTTP(probe.HTTPConfig{Timeout: c.ProbeTimeout})
	options = append(options,
		mediaresolve.WithProber("http", httpProber),
		mediaresolve.WithProber("https", httpProber),
	)

	// S3 backend doubles as the s3:// prober and the placeholder store
	if c.S3 != nil {
		backend, err := s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			ProbeTimeout:    c.ProbeTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 backend: %w", err)
		}
		options = append(options,
			mediaresolve.WithProber("s3", backend),
			mediaresolve.WithPlaceholderStore(backend),
		)
	} else {
		options = append(options, mediaresolve.WithPlaceholderStore(memorystorage.New()))
	}

	// External services
	if c.ProcessorBaseURL != "" {
		client, err := processor.New(processor.Config{
			BaseURL: c.ProcessorBaseURL,
			Token:   c.ProcessorToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize processor client: %w", err)
		}
		options = append(options, mediaresolve.WithMediaProcessor(client))
	}
	if c.ThumbJobBaseURL != "" {
		client, err := thumbjob.New(thumbjob.Config{BaseURL: c.ThumbJobBaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize transcode client: %w", err)
		}
		options = append(options, mediaresolve.WithThumbnailJobClient(client))
	}

	if c.VerifyTTL > 0 {
		options = append(options, mediaresolve.WithVerifyTTL(c.VerifyTTL))
	}
	if len(c.PlaybackOrder) > 0 {
		options = append(options, mediaresolve.WithPlaybackOrder(c.PlaybackOrder))
	}

	return mediaresolve.New(options...)
}
