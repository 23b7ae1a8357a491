package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"storyfetch/pkg/config"
	"storyfetch/pkg/fetcher"
	"storyfetch/pkg/logger"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	backendName = flag.String("backend", "", "Scrape backend: browser or http")
	ttlHours    = flag.Int("ttl", 0, "Cache TTL in hours (default 12)")
	cacheDir    = flag.String("cache-dir", "", "Override cache directory")
	cacheOnly   = flag.Bool("cache-only", false, "Only read from cache, never fetch")
	report      = flag.Bool("report", false, "Print the connectivity report and exit")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	// Build command line flags map
	flags := make(map[string]interface{})
	if *backendName != "" {
		flags["backend"] = *backendName
	}
	if *ttlHours > 0 {
		flags["ttl"] = *ttlHours
	}
	if *cacheDir != "" {
		flags["cache-dir"] = *cacheDir
	}
	if *logLevel != "" {
		flags["log-level"] = *logLevel
	}

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	service := fetcher.New(cfg)

	if *report {
		printJSON(service.ConnectivityReport())
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: storyfetch [flags] <username>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	username := strings.TrimSpace(args[0])

	log := logger.GetLogger().WithField("username", username)

	if *cacheOnly {
		result, err := service.LoadFromCacheOnly(username, cfg.Cache.TTLHours)
		if err != nil {
			log.WithError(err).Error("cache lookup failed")
			os.Exit(1)
		}
		if result == nil {
			log.Warn("no fresh cache entry")
			os.Exit(2)
		}
		printJSON(result)
		return
	}

	result, err := service.GetFromCacheOrFetch(username, cfg.Cache.TTLHours, cfg.Fetch.DefaultBackend)
	if err != nil {
		log.WithError(err).Error("fetch failed")
		os.Exit(1)
	}

	printJSON(result)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
