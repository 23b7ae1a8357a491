package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyfetch/pkg/config"
	"storyfetch/pkg/errors"
	"storyfetch/pkg/models"
)

const probePage = `<!DOCTYPE html>
<html><body>
<form action="/search"><input type="text" name="username"><button type="submit">Go</button></form>
<input type="hidden" name="csrf" value="abc">
<img src="https://cdn.example.com/one.jpg">
<img src="data:image/png;base64,AAAA">
<img src="https://cdn.example.com/two.jpg">
</body></html>`

func probeConfig(url string) config.ProbeConfig {
	return config.ProbeConfig{
		URL:               url,
		Timeout:           2 * time.Second,
		MaxRetries:        3,
		RequestsPerMinute: 600,
		SampleImageLimit:  5,
	}
}

func TestProbeCountsPageElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(probePage))
	}))
	defer server.Close()

	probe := NewHTTPProbe(probeConfig(server.URL), nil)

	result, err := probe.Scrape(context.Background(), "someuser")
	require.NoError(t, err)

	assert.Equal(t, "someuser", result.Username())
	assert.Equal(t, models.MethodHTTP, result.Method())
	assert.Equal(t, 1, result.Int("forms_found"))
	assert.Equal(t, 2, result.Int("inputs_found"))
	assert.Equal(t, http.StatusOK, result.Int("status_code"))

	// data: URIs are skipped
	images := result.List("sample_images")
	require.Len(t, images, 2)
	assert.Equal(t, "https://cdn.example.com/one.jpg", images[0])
}

func TestProbeSampleImageLimit(t *testing.T) {
	page := `<html><body>
<img src="/a.jpg"><img src="/b.jpg"><img src="/c.jpg"><img src="/d.jpg">
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	cfg := probeConfig(server.URL)
	cfg.SampleImageLimit = 2
	probe := NewHTTPProbe(cfg, nil)

	result, err := probe.Scrape(context.Background(), "someuser")
	require.NoError(t, err)
	assert.Len(t, result.List("sample_images"), 2)
}

func TestProbeEmptyUsername(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(probePage))
	}))
	defer server.Close()

	probe := NewHTTPProbe(probeConfig(server.URL), nil)

	_, err := probe.Scrape(context.Background(), "   ")
	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeInvalidArgument, typed.Type)
	assert.Zero(t, atomic.LoadInt32(&hits), "validation must happen before any network activity")
}

func TestProbeEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewHTTPProbe(probeConfig(server.URL), nil)

	_, err := probe.Scrape(context.Background(), "someuser")
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeScrape, typed.Type)
}

func TestProbeRetriesTransientFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(probePage))
	}))
	defer server.Close()

	probe := NewHTTPProbe(probeConfig(server.URL), nil)

	result, err := probe.Scrape(context.Background(), "someuser")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, result.Int("forms_found"))
}

func TestProbeDoesNotRetryNotFound(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	probe := NewHTTPProbe(probeConfig(server.URL), nil)

	_, err := probe.Scrape(context.Background(), "someuser")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "4xx responses must not be retried")
}
