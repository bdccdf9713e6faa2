package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/serroba/linkshort/internal/metrics"
	"github.com/serroba/linkshort/internal/telemetry"
)

const (
	// DefaultValidity applies when the caller does not ask for a validity window.
	DefaultValidity = 30 * time.Minute
	// DefaultMaxAttempts bounds code regeneration after collisions.
	DefaultMaxAttempts = 10
)

// Emitter reports telemetry events. Implementations must not block.
type Emitter interface {
	Emit(level telemetry.Level, pkg, message string)
}

// Config tunes the service. Zero values take the defaults above.
type Config struct {
	// BaseURL is the service's own address, e.g. "http://localhost:3000".
	BaseURL         string
	DefaultValidity time.Duration
	MaxAttempts     int
	// Now is the clock used for creation and expiry checks.
	Now func() time.Time
}

func (c *Config) setDefaults() {
	if c.DefaultValidity <= 0 {
		c.DefaultValidity = DefaultValidity
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// CreateInput is a request to shorten a URL.
type CreateInput struct {
	URL string
	// ValidityMinutes is the validity window; zero selects the default.
	ValidityMinutes int
	// Shortcode is an optional caller-chosen code.
	Shortcode string
}

// Service creates and resolves short links.
type Service struct {
	repo         Repository
	generateCode CodeGenerator
	emitter      Emitter
	metrics      *metrics.Metrics
	cfg          Config
}

// NewService creates a link service.
func NewService(
	repo Repository,
	generator CodeGenerator,
	emitter Emitter,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	cfg.setDefaults()

	return &Service{
		repo:         repo,
		generateCode: generator,
		emitter:      emitter,
		metrics:      m,
		cfg:          cfg,
	}
}

// Create validates the input, claims a code and stores the link.
//
// A caller-chosen code that is already stored, expired or not, fails with
// ErrCollision. Generated codes are retried up to MaxAttempts times.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Link, error) {
	if in.URL == "" {
		s.emit(telemetry.LevelError, "Validation failed: URL is required.")

		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}

	if in.ValidityMinutes < 0 {
		s.emit(telemetry.LevelError, "Validation failed: validity must be a positive number of minutes.")

		return nil, fmt.Errorf("%w: validity must be a positive number of minutes", ErrValidation)
	}

	validity := s.cfg.DefaultValidity
	if in.ValidityMinutes > 0 {
		validity = time.Duration(in.ValidityMinutes) * time.Minute
	}

	now := s.cfg.Now()
	link := &Link{
		OriginalURL: in.URL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(validity),
	}

	var err error
	if in.Shortcode != "" {
		err = s.claimRequested(ctx, link, Code(in.Shortcode))
	} else {
		err = s.claimGenerated(ctx, link)
	}

	if err != nil {
		return nil, err
	}

	s.metrics.LinkCreated()
	s.emit(telemetry.LevelInfo, "Short URL created: "+link.ShortLink)

	return link, nil
}

func (s *Service) claimRequested(ctx context.Context, link *Link, code Code) error {
	s.assignCode(link, code)

	err := s.repo.Insert(ctx, link)
	if errors.Is(err, ErrCodeTaken) {
		s.emit(telemetry.LevelError, fmt.Sprintf("Shortcode collision detected: %s", code))

		return fmt.Errorf("%w: %s", ErrCollision, code)
	}

	if err != nil {
		return fmt.Errorf("store link %s: %w", code, err)
	}

	return nil
}

func (s *Service) claimGenerated(ctx context.Context, link *Link) error {
	for range s.cfg.MaxAttempts {
		s.assignCode(link, Code(s.generateCode()))

		err := s.repo.Insert(ctx, link)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrCodeTaken) {
			return fmt.Errorf("store link %s: %w", link.Code, err)
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, s.cfg.MaxAttempts)
}

func (s *Service) assignCode(link *Link, code Code) {
	link.Code = code
	link.ShortLink = s.cfg.BaseURL + "/shorturls/" + url.PathEscape(string(code))
}

// Resolve returns the link for a code if it exists and has not expired.
// Expired links stay stored.
func (s *Service) Resolve(ctx context.Context, code Code) (*Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		s.metrics.LinkResolved(metrics.ResolutionNotFound)
		s.emit(telemetry.LevelError, fmt.Sprintf("Shortcode not found: %s", code))

		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}

	if err != nil {
		return nil, fmt.Errorf("get link %s: %w", code, err)
	}

	if link.Expired(s.cfg.Now()) {
		s.metrics.LinkResolved(metrics.ResolutionExpired)
		s.emit(telemetry.LevelWarn, fmt.Sprintf("Expired shortcode accessed: %s", code))

		return nil, fmt.Errorf("%w: %s", ErrExpired, code)
	}

	s.metrics.LinkResolved(metrics.ResolutionRedirect)
	s.emit(telemetry.LevelInfo, fmt.Sprintf("Redirecting shortcode %s to %s", code, link.OriginalURL))

	return link, nil
}

func (s *Service) emit(level telemetry.Level, message string) {
	s.emitter.Emit(level, telemetry.PackageService, message)
}
