package backend

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"storyfetch/pkg/config"
	"storyfetch/pkg/errors"
	"storyfetch/pkg/logger"
	"storyfetch/pkg/models"
)

// Selectors on the mirror site. The search form is the only stable anchor;
// result media is matched loosely because the mirror reshuffles its result
// markup between deploys.
const (
	searchInputSelector  = `input[type="text"], input[type="search"]`
	searchButtonSelector = `button[type="submit"], form button`
	resultImageSelector  = `main img, .profile img, .media img, .stories img`
	resultVideoSelector  = `video source, video[src]`
)

// renderDelay is how long the result area gets to populate after the search
// is submitted. The mirror renders results client-side with no reliable
// completion marker.
const renderDelay = 3 * time.Second

// Browser scrapes the mirror site with a headless Chrome session: open the
// page, type the username into the search form, submit, and harvest media
// sources from the rendered results.
type Browser struct {
	cfg    config.BrowserConfig
	logger logger.Logger
}

// NewBrowser creates a browser-automation backend.
func NewBrowser(cfg config.BrowserConfig, log logger.Logger) *Browser {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Browser{
		cfg:    cfg,
		logger: log,
	}
}

// Name returns the orchestrator choice name.
func (b *Browser) Name() string {
	return ChoiceBrowser
}

// Scrape drives a fresh headless browser session for one username. Every
// automation failure, including the page-load timeout, comes back as a
// scrape error.
func (b *Browser) Scrape(ctx context.Context, username string) (models.ScrapeResult, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.cfg.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, b.cfg.PageLoadTimeout)
	defer cancelTimeout()

	b.logger.DebugWithFields("starting browser scrape", map[string]interface{}{
		"username":   username,
		"mirror_url": b.cfg.MirrorURL,
		"timeout":    b.cfg.PageLoadTimeout,
	})

	start := time.Now()

	var imageNodes, videoNodes []*cdp.Node
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(b.cfg.MirrorURL),
		chromedp.WaitVisible(searchInputSelector, chromedp.ByQuery),
		chromedp.SendKeys(searchInputSelector, username, chromedp.ByQuery),
		chromedp.Click(searchButtonSelector, chromedp.ByQuery),
		chromedp.Sleep(renderDelay),
		chromedp.Nodes(resultImageSelector, &imageNodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
		chromedp.Nodes(resultVideoSelector, &videoNodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		b.logger.WithError(err).WithField("username", username).Error("browser automation failed")
		return nil, errors.Wrap(errors.ErrorTypeScrape, "browser automation failed", err)
	}

	items := collectMediaItems(imageNodes, videoNodes)

	b.logger.InfoWithFields("browser scrape completed", map[string]interface{}{
		"username":    username,
		"media_items": len(items),
		"duration":    time.Since(start),
	})

	result := models.New(username, models.MethodBrowser)
	result["media_items"] = items
	result["media_items_found"] = len(items)
	result["source_url"] = b.cfg.MirrorURL
	return result, nil
}

// collectMediaItems turns DOM nodes into media entries, dropping inline
// data URIs and nodes without a usable source.
func collectMediaItems(images, videos []*cdp.Node) []models.MediaItem {
	items := make([]models.MediaItem, 0, len(images)+len(videos))

	for _, node := range images {
		src := node.AttributeValue("src")
		if !usableMediaURL(src) {
			continue
		}
		items = append(items, models.MediaItem{Type: "image", URL: src})
	}

	for _, node := range videos {
		src := node.AttributeValue("src")
		if !usableMediaURL(src) {
			continue
		}
		items = append(items, models.MediaItem{Type: "video", URL: src})
	}

	return items
}

func usableMediaURL(src string) bool {
	return src != "" && !strings.HasPrefix(src, "data:")
}
