package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"storyfetch/pkg/config"
	"storyfetch/pkg/errors"
	"storyfetch/pkg/logger"
	"storyfetch/pkg/models"
	"storyfetch/pkg/ratelimit"
	"storyfetch/pkg/retry"
)

// HTTPProbe is the lightweight unauthenticated backend: fetch the mirror's
// landing page over plain HTTP and inspect its markup. It cannot see the
// client-rendered media a browser session would, so its signal is whether
// the page is serving a usable search surface at all.
type HTTPProbe struct {
	cfg     config.ProbeConfig
	client  *http.Client
	headers map[string]string
	limiter ratelimit.Limiter
	logger  logger.Logger
}

type probeResponse struct {
	body       []byte
	statusCode int
}

// NewHTTPProbe creates an HTTP probe backend.
func NewHTTPProbe(cfg config.ProbeConfig, log logger.Logger) *HTTPProbe {
	if log == nil {
		log = logger.GetLogger()
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &HTTPProbe{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		limiter: ratelimit.NewTokenBucket(rpm, time.Minute),
		logger:  log,
	}
}

// Name returns the orchestrator choice name.
func (p *HTTPProbe) Name() string {
	return ChoiceHTTP
}

// Scrape probes the mirror page for the given username. Empty usernames
// fail immediately; network failures are retried with backoff and an empty
// response body counts as a scrape failure.
func (p *HTTPProbe) Scrape(ctx context.Context, username string) (models.ScrapeResult, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.InvalidArgument("username is required")
	}

	if !p.limiter.Allow() {
		p.logger.DebugWithFields("probe rate limited, waiting", map[string]interface{}{
			"username": username,
		})
		p.limiter.Wait()
	}

	resp, err := retry.DoWithResult(func() (probeResponse, error) {
		return p.fetch(ctx)
	}, &retry.Config{
		MaxAttempts: p.cfg.MaxRetries,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      p.logger,
	})
	if err != nil {
		p.logger.WithError(err).WithField("username", username).Error("HTTP probe failed")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeScrape, "failed to parse probe markup", err)
	}

	formsFound := doc.Find("form").Length()
	inputsFound := doc.Find("input").Length()

	limit := p.cfg.SampleImageLimit
	if limit <= 0 {
		limit = 5
	}
	sampleImages := make([]string, 0, limit)
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if ok && src != "" && !strings.HasPrefix(src, "data:") {
			sampleImages = append(sampleImages, src)
		}
		return len(sampleImages) < limit
	})

	p.logger.InfoWithFields("HTTP probe completed", map[string]interface{}{
		"username":      username,
		"status":        resp.statusCode,
		"forms_found":   formsFound,
		"inputs_found":  inputsFound,
		"sample_images": len(sampleImages),
	})

	result := models.New(username, models.MethodHTTP)
	result["forms_found"] = formsFound
	result["inputs_found"] = inputsFound
	result["sample_images"] = sampleImages
	result["status_code"] = resp.statusCode
	result["probe_url"] = p.cfg.URL
	return result, nil
}

// fetch performs one GET against the probe URL. Transport failures and
// retryable status codes come back as network errors so the retry layer
// takes another pass; everything else is terminal.
func (p *HTTPProbe) fetch(ctx context.Context) (probeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return probeResponse{}, errors.Wrap(errors.ErrorTypeScrape, "failed to build probe request", err)
	}
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return probeResponse{}, errors.Wrap(errors.ErrorTypeNetwork, "probe request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("probe returned status %d", resp.StatusCode)
		if errors.IsRetryableStatusCode(resp.StatusCode) {
			return probeResponse{}, errors.New(errors.ErrorTypeNetwork, msg)
		}
		return probeResponse{}, errors.New(errors.ErrorTypeScrape, msg)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return probeResponse{}, errors.Wrap(errors.ErrorTypeNetwork, "failed to read probe response", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return probeResponse{}, errors.New(errors.ErrorTypeScrape, "probe returned empty content")
	}

	return probeResponse{body: body, statusCode: resp.StatusCode}, nil
}
