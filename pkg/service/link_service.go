package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"urlstore/pkg/logging"
	"urlstore/pkg/storage"

	"golang.org/x/sync/errgroup"
)

// CredentialVerifier checks a credential presented with a protected request.
type CredentialVerifier interface {
	Verify(ctx context.Context, presented string) error
}

type Config struct {
	BaseURL     string // prefix for short_url; empty means build it from the request
	ViewMode    ViewMode
	ViewTimeout time.Duration
}

type LinkService struct {
	links    storage.LinkStore
	views    storage.ViewLedger
	reserved *Reserved
	resolver *Resolver
	verifier CredentialVerifier
	recorder *ViewRecorder
	logger   *logging.Logger
	config   Config
	generate func(length int) string
}

func NewLinkService(links storage.LinkStore, views storage.ViewLedger, reserved *Reserved, verifier CredentialVerifier, logger *logging.Logger, config Config) *LinkService {
	if config.ViewMode == "" {
		config.ViewMode = ViewModeAsync
	}
	return &LinkService{
		links:    links,
		views:    views,
		reserved: reserved,
		resolver: NewResolver(reserved, links),
		verifier: verifier,
		recorder: NewViewRecorder(views, logger, config.ViewMode, config.ViewTimeout),
		logger:   logger,
		config:   config,
		generate: GenerateCode,
	}
}

// Authorize verifies the shared-secret credential for a protected operation.
func (s *LinkService) Authorize(ctx context.Context, operation, credential string) error {
	if credential == "" {
		s.logger.LogAuthEvent(ctx, operation, credential, false)
		return ErrInvalidAuth
	}
	if err := s.verifier.Verify(ctx, credential); err != nil {
		s.logger.LogAuthEvent(ctx, operation, credential, false)
		s.logger.Debug(ctx, "credential rejected", "operation", operation, "error", err)
		return ErrInvalidAuth
	}
	s.logger.LogAuthEvent(ctx, operation, credential, true)
	return nil
}

// CreateLink stores destination under requestedCode, or under a fresh generated code
// when requestedCode is empty.
func (s *LinkService) CreateLink(ctx context.Context, destination, requestedCode string) (*storage.ShortLink, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}

	if requestedCode != "" {
		return s.createWithCode(ctx, destination, requestedCode)
	}

	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		code := s.generate(CodeLength)
		if s.reserved.IsReserved(code) || code == storage.SecretKey {
			continue
		}

		existing, err := s.links.Get(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("checking code: %w", err)
		}
		if existing != nil {
			continue
		}

		link := &storage.ShortLink{Code: code, Destination: destination}
		stored, err := s.links.PutIfAbsent(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("saving link: %w", err)
		}
		if !stored {
			// lost a race for the same code
			continue
		}

		s.logger.LogLinkOperation(ctx, "create", code, true)
		return link, nil
	}

	s.logger.LogLinkOperation(ctx, "create", "", false)
	return nil, ErrGenerationExhausted
}

func (s *LinkService) createWithCode(ctx context.Context, destination, code string) (*storage.ShortLink, error) {
	if !ValidateCode(code) {
		return nil, ErrInvalidCode
	}
	if code == storage.SecretKey || s.reserved.IsReserved(code) || slices.Contains(RouteKeys, code) {
		return nil, ErrReservedCode
	}

	secret, err := s.links.Get(ctx, storage.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	if secret != nil && secret.Destination == code {
		return nil, ErrReservedCode
	}

	link := &storage.ShortLink{Code: code, Destination: destination}
	stored, err := s.links.PutIfAbsent(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("saving link: %w", err)
	}
	if !stored {
		s.logger.LogLinkOperation(ctx, "create", code, false)
		return nil, ErrCodeConflict
	}

	s.logger.LogLinkOperation(ctx, "create", code, true)
	return link, nil
}

// Visit is what a GET on a key answers with: literal text or a redirect.
type Visit struct {
	Kind      Kind
	Text      string
	Location  string
	Permanent bool
}

// Visit resolves key and, for a stored user code, counts the view before returning.
func (s *LinkService) Visit(ctx context.Context, key string) (*Visit, error) {
	return s.visit(ctx, key, true)
}

// Lookup answers like Visit without counting a view.
func (s *LinkService) Lookup(ctx context.Context, key string) (*Visit, error) {
	return s.visit(ctx, key, false)
}

func (s *LinkService) visit(ctx context.Context, key string, count bool) (*Visit, error) {
	res, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	s.logger.LogResolution(ctx, key, res.Kind.String())

	switch res.Kind {
	case KindReservedText:
		return &Visit{Kind: res.Kind, Text: res.Text}, nil
	case KindForbiddenSelf:
		return nil, ErrForbiddenSelf
	case KindReservedRedirect:
		return &Visit{Kind: res.Kind, Location: NormalizeDestination(res.Target), Permanent: true}, nil
	case KindUserCode:
		link, err := s.links.Get(ctx, res.Key)
		if err != nil {
			return nil, fmt.Errorf("getting link: %w", err)
		}
		if link == nil || link.Destination == "" {
			return nil, ErrNotFound
		}
		if count {
			if err := s.RecordView(ctx, link.Code); err != nil {
				s.logger.Error(ctx, "failed to record view", "code", link.Code, "error", err)
			}
		}
		return &Visit{Kind: res.Kind, Location: NormalizeDestination(link.Destination), Permanent: true}, nil
	default:
		return nil, ErrNotFound
	}
}

// RecordView counts one view of code through the view recorder, so it is
// asynchronous unless the service runs in sync view mode.
func (s *LinkService) RecordView(ctx context.Context, code string) error {
	return s.recorder.Record(ctx, code)
}

// DeleteLink removes code without checking it exists. View records are kept.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	if code == storage.SecretKey {
		return ErrReservedCode
	}
	if err := s.links.Delete(ctx, code); err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	s.logger.LogLinkOperation(ctx, "delete", code, true)
	return nil
}

// PurgeViews drops the view record of code; the link itself is untouched.
func (s *LinkService) PurgeViews(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	if err := s.views.Delete(ctx, code); err != nil {
		return fmt.Errorf("purging views: %w", err)
	}
	s.logger.LogLinkOperation(ctx, "purge_views", code, true)
	return nil
}

type Stats struct {
	TotalKeys  int   `json:"total_keys"`
	TotalViews int64 `json:"total_views"`
}

// Stats counts stored codes (the secret excluded) and sums all view records.
func (s *LinkService) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		codes, err := s.links.List(gctx)
		if err != nil {
			return fmt.Errorf("listing links: %w", err)
		}
		for _, code := range codes {
			if code != storage.SecretKey {
				stats.TotalKeys++
			}
		}
		return nil
	})
	g.Go(func() error {
		total, err := s.views.TotalViews(gctx)
		if err != nil {
			return fmt.Errorf("summing views: %w", err)
		}
		stats.TotalViews = total
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListKeys returns the raw store listing, sorted.
func (s *LinkService) ListKeys(ctx context.Context) ([]string, error) {
	codes, err := s.links.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	slices.Sort(codes)
	return codes, nil
}

type ViewDetail struct {
	Results *storage.ViewRecord `json:"results"`
	Value   string              `json:"value"`
}

// ViewDetail returns the view record (nil if never visited) and destination of code.
func (s *LinkService) ViewDetail(ctx context.Context, code string) (*ViewDetail, error) {
	if code == storage.SecretKey {
		return nil, ErrInvalidKey
	}
	link, err := s.links.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("getting link: %w", err)
	}
	if link == nil {
		return nil, ErrInvalidKey
	}

	rec, err := s.views.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("getting views: %w", err)
	}
	return &ViewDetail{Results: rec, Value: link.Destination}, nil
}

// BootstrapSecret stores secret unless one already exists.
func (s *LinkService) BootstrapSecret(ctx context.Context, secret string) (bool, error) {
	if secret == "" {
		return false, fmt.Errorf("%w: empty secret", ErrInvalidRequest)
	}
	return s.links.PutIfAbsent(ctx, &storage.ShortLink{Code: storage.SecretKey, Destination: secret})
}

// SetSecret replaces the stored secret.
func (s *LinkService) SetSecret(ctx context.Context, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: empty secret", ErrInvalidRequest)
	}
	return s.links.Put(ctx, &storage.ShortLink{Code: storage.SecretKey, Destination: secret})
}

// Export dumps every stored link except the secret.
func (s *LinkService) Export(ctx context.Context) ([]storage.ShortLink, error) {
	codes, err := s.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	links := make([]storage.ShortLink, 0, len(codes))
	for _, code := range codes {
		if code == storage.SecretKey {
			continue
		}
		link, err := s.links.Get(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("getting link %s: %w", code, err)
		}
		if link != nil {
			links = append(links, *link)
		}
	}
	return links, nil
}

// Import stores links with the same checks as caller-supplied codes; a link without
// a code gets a generated one. Existing codes are skipped. It returns how many links
// were stored.
func (s *LinkService) Import(ctx context.Context, links []storage.ShortLink) (int, error) {
	imported := 0
	for _, link := range links {
		_, err := s.CreateLink(ctx, link.Destination, link.Code)
		switch {
		case err == nil:
			imported++
		case errors.Is(err, ErrCodeConflict):
			s.logger.Warn(ctx, "skipping existing code", "code", link.Code)
		default:
			return imported, fmt.Errorf("importing %s: %w", link.Code, err)
		}
	}
	return imported, nil
}

// ShortURL builds the public URL of code. fallbackBase is used when no base URL is configured.
func (s *LinkService) ShortURL(code, fallbackBase string) string {
	base := s.config.BaseURL
	if base == "" {
		base = fallbackBase
	}
	return strings.TrimRight(base, "/") + "/" + code
}

// Wait drains pending view writes.
func (s *LinkService) Wait(ctx context.Context) error {
	return s.recorder.Wait(ctx)
}

var schemeRegex = regexp.MustCompile(`(?i)^https?://`)

// NormalizeDestination makes a stored destination redirectable: http(s) URLs are kept,
// scheme-relative ones get https:, anything else is prefixed with https://.
func NormalizeDestination(dest string) string {
	switch {
	case schemeRegex.MatchString(dest):
		return dest
	case strings.HasPrefix(dest, "//"):
		return "https:" + dest
	default:
		return "https://" + dest
	}
}
