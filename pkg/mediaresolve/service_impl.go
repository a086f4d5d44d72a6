package mediaresolve

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by New when no option overrides them.
const (
	DefaultVerifyTTL     = 5 * time.Minute
	DefaultRegisterRetry = 3
)

// DefaultPlaybackOrder is the fallback ordering used when no
// WithPlaybackOrder option is supplied: processor stream first (lowest
// latency, adaptive bitrate), CDN second, origin relay last (slowest but
// most universally reachable).
var DefaultPlaybackOrder = []BackendType{
	BackendProcessorStream,
	BackendCDN,
	BackendObjectStore,
	BackendOriginRelay,
}

// service implements the Service interface
type service struct {
	repository    Repository
	catalog       *Catalog
	probers       map[string]Prober // keyed by URI scheme
	processor     MediaProcessor
	thumbJobs     ThumbnailJobClient
	placeholders  PlaceholderStore
	playbackOrder []BackendType
	verifyTTL     time.Duration
	registerRetry int
	clock         Clock
	logger        *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithCatalog sets the storage location catalog
func WithCatalog(c *Catalog) Option {
	return func(s *service) {
		s.catalog = c
	}
}

// WithProber registers a prober for a URI scheme (e.g. "https", "s3")
func WithProber(scheme string, p Prober) Option {
	return func(s *service) {
		if s.probers == nil {
			s.probers = make(map[string]Prober)
		}
		s.probers[scheme] = p
	}
}

// WithMediaProcessor sets the external media processor client
func WithMediaProcessor(p MediaProcessor) Option {
	return func(s *service) {
		s.processor = p
	}
}

// WithThumbnailJobClient sets the secondary transcoding service client
func WithThumbnailJobClient(c ThumbnailJobClient) Option {
	return func(s *service) {
		s.thumbJobs = c
	}
}

// WithPlaceholderStore sets the store for generated placeholder images
func WithPlaceholderStore(ps PlaceholderStore) Option {
	return func(s *service) {
		s.placeholders = ps
	}
}

// WithPlaybackOrder injects the playback fallback ordering. The list is
// consumed as configuration; it is never mutated by the resolver.
func WithPlaybackOrder(order []BackendType) Option {
	return func(s *service) {
		s.playbackOrder = order
	}
}

// WithVerifyTTL sets how long a successful probe keeps a storage
// reference trusted before reads re-probe it.
func WithVerifyTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.verifyTTL = ttl
	}
}

// WithClock substitutes the time source (tests)
func WithClock(c Clock) Option {
	return func(s *service) {
		s.clock = c
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		s.logger = l
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		probers:       make(map[string]Prober),
		playbackOrder: DefaultPlaybackOrder,
		verifyTTL:     DefaultVerifyTTL,
		registerRetry: DefaultRegisterRetry,
		clock:         RealClock{},
		logger:        slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.catalog == nil {
		s.catalog = NewCatalog(CatalogConfig{})
	}

	return s, nil
}

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*VideoAsset, error) {
	return s.repository.GetAsset(ctx, id)
}

func (s *service) GetAssetByExternalID(ctx context.Context, externalID string) (*VideoAsset, error) {
	return s.repository.GetAssetByExternalID(ctx, externalID)
}

// proberFor selects the registered prober for a candidate URI by scheme.
func (s *service) proberFor(uri string) (Prober, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("unparseable candidate uri %q: %w", uri, err)
	}
	p, ok := s.probers[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("no prober registered for scheme %q", u.Scheme)
	}
	return p, nil
}
