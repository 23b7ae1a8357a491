package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyfetch/pkg/classifier"
	"storyfetch/pkg/errors"
	"storyfetch/pkg/logger"
	"storyfetch/pkg/models"
)

// Store persists one JSON document per username under a base directory.
// It exclusively owns the on-disk layout; freshness is evaluated lazily at
// read time and stale files are left in place until overwritten.
type Store struct {
	dir    string
	logger logger.Logger
}

// New creates a Store rooted at dir. The directory is created on first
// write, not here, so a read-only probe never touches the filesystem.
func New(dir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		dir:    dir,
		logger: log,
	}
}

// Dir returns the base directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// SanitizeUsername maps a username onto the safe filename alphabet.
// Usernames differing only in disallowed characters collide onto the same
// key; callers accept that.
func SanitizeUsername(username string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, username)
}

// ResolvePath returns the cache file path for a username. Pure, no I/O.
func (s *Store) ResolvePath(username string) string {
	return filepath.Join(s.dir, SanitizeUsername(username)+".json")
}

// Read returns the cached result for a username if a file exists, is no
// older than maxAge, parses as JSON and still passes classification.
// Every failure mode reads as a plain miss; corruption never surfaces to
// the caller. On a hit the returned record carries cached=true, which is
// an overlay applied here and never part of the stored payload.
func (s *Store) Read(username string, maxAge time.Duration) (models.ScrapeResult, bool) {
	path := s.ResolvePath(username)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	age := time.Since(info.ModTime())
	if age > maxAge {
		s.logger.DebugWithFields("cache entry expired", map[string]interface{}{
			"username": username,
			"age":      age,
			"max_age":  maxAge,
		})
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("failed to read cache file")
		return nil, false
	}

	var result models.ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("cache file is not valid JSON, treating as miss")
		return nil, false
	}

	if !classifier.IsValid(result) {
		s.logger.DebugWithFields("cached result fails classification, treating as miss", map[string]interface{}{
			"username": username,
			"method":   result.Method(),
		})
		return nil, false
	}

	hit := result.Clone()
	hit["cached"] = true

	s.logger.DebugWithFields("cache hit", map[string]interface{}{
		"username": username,
		"age":      age,
	})

	return hit, true
}

// Write persists a result for a username, creating the base directory if
// needed. The cached overlay key is stripped before serialization. The
// file is written to a temp path and renamed so a concurrent reader never
// observes partial JSON.
func (s *Store) Write(username string, result models.ScrapeResult) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrorTypeCache, "failed to create cache directory", err)
	}

	payload := result.Clone()
	delete(payload, "cached")

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrorTypeCache, "failed to encode result", err)
	}

	path := s.ResolvePath(username)
	tempPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())

	file, err := os.Create(tempPath)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeCache, "failed to create temporary cache file", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.Wrap(errors.ErrorTypeCache, "failed to write cache file", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.Wrap(errors.ErrorTypeCache, "failed to sync cache file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(errors.ErrorTypeCache, "failed to close cache file", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(errors.ErrorTypeCache, "failed to replace cache file", err)
	}

	s.logger.DebugWithFields("cache entry written", map[string]interface{}{
		"username": username,
		"path":     path,
		"bytes":    len(data),
	})

	return nil
}
