package backend

import (
	"context"

	"storyfetch/pkg/models"
)

// Backend choice names accepted by the fetch orchestrator.
const (
	ChoiceBrowser = "browser"
	ChoiceHTTP    = "http"
)

// Backend is a single scraping strategy. Implementations produce a
// ScrapeResult for a username or fail with a typed error; they never touch
// the cache.
type Backend interface {
	// Name returns the choice name this backend registers under.
	Name() string

	// Scrape fetches media metadata for the given username.
	Scrape(ctx context.Context, username string) (models.ScrapeResult, error)
}
