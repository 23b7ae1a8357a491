package fetcher

import (
	"context"
	"sort"
	"strings"
	"time"

	"storyfetch/pkg/backend"
	"storyfetch/pkg/cache"
	"storyfetch/pkg/classifier"
	"storyfetch/pkg/config"
	"storyfetch/pkg/errors"
	"storyfetch/pkg/logger"
	"storyfetch/pkg/models"
)

// Version is reported by ConnectivityReport.
const Version = "2.0.0"

// DefaultTTLHours is the cache freshness window used by GetData and by any
// caller passing a non-positive TTL.
const DefaultTTLHours = 12

// Service coordinates backends and the on-disk cache. It is the only
// component that decides between serving a cached result and scraping live.
type Service struct {
	cache         *cache.Store
	backends      map[string]backend.Backend
	defaultChoice string
	logger        logger.Logger
}

// New wires a Service with the real browser and HTTP probe backends.
func New(cfg *config.Config) *Service {
	log := logger.GetLogger()
	return NewWithBackends(
		cache.New(cfg.Cache.Directory, log),
		cfg.Fetch.DefaultBackend,
		log,
		backend.NewBrowser(cfg.Browser, log),
		backend.NewHTTPProbe(cfg.Probe, log),
	)
}

// NewWithBackends builds a Service around explicit collaborators. Tests
// inject stub backends here. An unknown default choice falls back to the
// browser backend, or to the first registered backend when there is none.
func NewWithBackends(store *cache.Store, defaultChoice string, log logger.Logger, backends ...backend.Backend) *Service {
	if log == nil {
		log = logger.GetLogger()
	}

	registry := make(map[string]backend.Backend, len(backends))
	for _, b := range backends {
		registry[b.Name()] = b
	}

	choice := strings.ToLower(strings.TrimSpace(defaultChoice))
	if _, ok := registry[choice]; !ok {
		if _, ok := registry[backend.ChoiceBrowser]; ok {
			choice = backend.ChoiceBrowser
		} else {
			for name := range registry {
				choice = name
				break
			}
		}
	}

	return &Service{
		cache:         store,
		backends:      registry,
		defaultChoice: choice,
		logger:        log,
	}
}

// Handle represents an in-flight background fetch.
type Handle struct {
	username string
	done     chan struct{}
	result   models.ScrapeResult
	err      error
}

// Join blocks until the background fetch completes, then yields its result
// or the backend's failure.
func (h *Handle) Join() (models.ScrapeResult, error) {
	<-h.done
	return h.result, h.err
}

// FetchAsync validates the username, then starts a background fetch with
// the chosen backend and returns a joinable handle. Backend failures are
// held on the handle and surface at Join; a successful result that passes
// classification is written to the cache best-effort before the handle
// completes, so a Join followed by a cache read observes the write.
func (s *Service) FetchAsync(username, backendChoice string) (*Handle, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.InvalidArgument("username must not be empty")
	}

	b := s.pickBackend(backendChoice)

	h := &Handle{
		username: username,
		done:     make(chan struct{}),
	}

	s.logger.DebugWithFields("starting background fetch", map[string]interface{}{
		"username": username,
		"backend":  b.Name(),
	})

	go func() {
		defer close(h.done)

		start := time.Now()
		result, err := b.Scrape(context.Background(), username)
		if err != nil {
			h.err = err
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"username": username,
				"backend":  b.Name(),
			}).Error("backend fetch failed")
			return
		}
		h.result = result

		if !classifier.IsValid(result) {
			s.logger.DebugWithFields("result failed classification, not caching", map[string]interface{}{
				"username": username,
				"backend":  b.Name(),
			})
			return
		}

		// Cache writes are best-effort; a failure here must never turn a
		// successful fetch into a failed one.
		if werr := s.cache.Write(username, result); werr != nil {
			s.logger.WithError(werr).WithField("username", username).Warn("cache write failed, serving result anyway")
		}

		s.logger.InfoWithFields("fetch completed", map[string]interface{}{
			"username": username,
			"backend":  b.Name(),
			"duration": time.Since(start),
		})
	}()

	return h, nil
}

// GetFromCacheOrFetch serves a fresh cache entry when one exists, and
// otherwise blocks on a live fetch with the chosen backend. Cached results
// carry cached=true; live results never do.
func (s *Service) GetFromCacheOrFetch(username string, ttlHours int, backendChoice string) (models.ScrapeResult, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.InvalidArgument("username must not be empty")
	}

	if ttlHours <= 0 {
		ttlHours = DefaultTTLHours
	}
	maxAge := time.Duration(ttlHours) * time.Hour

	if hit, ok := s.cache.Read(username, maxAge); ok {
		s.logger.InfoWithFields("serving cached result", map[string]interface{}{
			"username": username,
		})
		return hit, nil
	}

	handle, err := s.FetchAsync(username, backendChoice)
	if err != nil {
		return nil, err
	}
	return handle.Join()
}

// LoadFromCacheOnly performs the cache lookup without ever triggering a
// fetch. An absent or stale entry returns (nil, nil).
func (s *Service) LoadFromCacheOnly(username string, ttlHours int) (models.ScrapeResult, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.InvalidArgument("username must not be empty")
	}

	if ttlHours <= 0 {
		ttlHours = DefaultTTLHours
	}

	hit, ok := s.cache.Read(username, time.Duration(ttlHours)*time.Hour)
	if !ok {
		return nil, nil
	}
	return hit, nil
}

// GetData is the convenience entry point: default backend, 12 hour TTL.
func (s *Service) GetData(username string) (models.ScrapeResult, error) {
	return s.GetFromCacheOrFetch(username, DefaultTTLHours, "")
}

// ConnectivityReport returns a static capability descriptor. No I/O.
func (s *Service) ConnectivityReport() models.ScrapeResult {
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	sort.Strings(names)

	return models.ScrapeResult{
		"tool":            "storyfetch",
		"version":         Version,
		"backends":        names,
		"default_backend": s.defaultChoice,
		"cache_dir":       s.cache.Dir(),
		"default_ttl_hrs": DefaultTTLHours,
	}
}

// pickBackend maps a caller's backend choice to a registered backend.
// Empty or unrecognized choices fall back to the default.
func (s *Service) pickBackend(choice string) backend.Backend {
	name := strings.ToLower(strings.TrimSpace(choice))
	if b, ok := s.backends[name]; ok {
		return b
	}
	if name != "" {
		s.logger.WarnWithFields("unknown backend choice, using default", map[string]interface{}{
			"choice":  choice,
			"default": s.defaultChoice,
		})
	}
	return s.backends[s.defaultChoice]
}
