package models

import "time"

// Method tags identifying which backend produced a result. The values are
// kept from the earlier scraper generation so existing cache files still
// classify correctly.
const (
	MethodBrowser = "selenium_storiesig"
	MethodHTTP    = "simple_http_curl"
)

// ScrapeResult is the loose record produced by scrape backends and persisted
// in the cache. Backends are free to add keys; the core only recognizes the
// ones exposed through the accessors below.
type ScrapeResult map[string]interface{}

// MediaItem describes a single media entry collected by the browser backend.
type MediaItem struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// New returns a result pre-populated with the subject username, the
// producing method tag and a scrape timestamp.
func New(username, method string) ScrapeResult {
	return ScrapeResult{
		"username":   username,
		"method":     method,
		"scraped_at": time.Now().Format(time.RFC3339),
	}
}

// Username returns the subject of the fetch, or "" when absent.
func (r ScrapeResult) Username() string {
	return r.String("username")
}

// Method returns the backend tag, or "" when absent.
func (r ScrapeResult) Method() string {
	return r.String("method")
}

// Cached reports whether the result was served from the cache.
func (r ScrapeResult) Cached() bool {
	return r.Bool("cached")
}

// String returns the value under key coerced to a string.
// Missing or non-string values coerce to "".
func (r ScrapeResult) String(key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// Bool returns the value under key coerced to a bool.
// Missing or non-bool values coerce to false.
func (r ScrapeResult) Bool(key string) bool {
	if r == nil {
		return false
	}
	b, _ := r[key].(bool)
	return b
}

// Int returns the value under key coerced to an int. JSON round-trips turn
// integers into float64, so both numeric representations are accepted;
// anything else coerces to 0.
func (r ScrapeResult) Int(key string) int {
	if r == nil {
		return 0
	}
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// List returns the value under key coerced to a slice. Missing or
// non-slice values coerce to nil.
func (r ScrapeResult) List(key string) []interface{} {
	if r == nil {
		return nil
	}
	switch v := r[key].(type) {
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []MediaItem:
		out := make([]interface{}, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

// Clone returns a shallow copy. Nested values are shared; callers only use
// this to overlay top-level keys without mutating the original.
func (r ScrapeResult) Clone() ScrapeResult {
	if r == nil {
		return nil
	}
	out := make(ScrapeResult, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
