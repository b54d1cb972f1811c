package wiki

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Version identifies the bridge in the outbound User-Agent header
const Version = "1.0.0"

// Config holds bridge settings. All fields are immutable after startup and
// shared across concurrent requests.
type Config struct {
	// AllowedSuffixes is the egress allowlist, in candidate-probing order
	AllowedSuffixes []string

	// Timeout applies per outbound request, not per resolution
	Timeout time.Duration

	// UserAgent identifies the bridge to upstream wikis
	UserAgent string

	// MaxRetries for transient upstream failures (429, 5xx, connection)
	MaxRetries int

	// SearchLimit is the default result cap for wiki_search
	SearchLimit int

	// MetricsAddr, when set, serves Prometheus metrics and a liveness
	// endpoint on this address (e.g. ":9090")
	MetricsAddr string
}

// DefaultSuffixes is the default egress allowlist, fandom.com first
var DefaultSuffixes = []string{"fandom.com", "wiki.gg"}

// LoadConfig loads configuration from environment variables.
// Every variable is optional; no credentials are accepted anywhere.
func LoadConfig() (*Config, error) {
	timeout := 30 * time.Second
	if t := os.Getenv("WIKI_BRIDGE_TIMEOUT"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil || d <= 0 {
			return nil, &InvalidInputError{Field: "WIKI_BRIDGE_TIMEOUT", Message: "must be a positive duration such as 30s"}
		}
		timeout = d
	}

	userAgent := os.Getenv("WIKI_BRIDGE_USER_AGENT")
	if userAgent == "" {
		userAgent = "WikiBridgeMCPServer/" + Version + " (https://github.com/olgasafonova/wiki-bridge-mcp-server)"
	}

	suffixes := DefaultSuffixes
	if s := os.Getenv("WIKI_BRIDGE_ALLOWED_SUFFIXES"); s != "" {
		suffixes = nil
		for _, part := range strings.Split(s, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				suffixes = append(suffixes, part)
			}
		}
		if len(suffixes) == 0 {
			return nil, &InvalidInputError{Field: "WIKI_BRIDGE_ALLOWED_SUFFIXES", Message: "must contain at least one domain suffix"}
		}
	}

	maxRetries := 2
	if r := os.Getenv("WIKI_BRIDGE_MAX_RETRIES"); r != "" {
		if n, err := strconv.Atoi(r); err == nil && n >= 0 {
			maxRetries = n
		}
	}

	searchLimit := DefaultSearchLimit
	if l := os.Getenv("WIKI_BRIDGE_SEARCH_LIMIT"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= MaxSearchLimit {
			searchLimit = n
		}
	}

	return &Config{
		AllowedSuffixes: suffixes,
		Timeout:         timeout,
		UserAgent:       userAgent,
		MaxRetries:      maxRetries,
		SearchLimit:     searchLimit,
		MetricsAddr:     os.Getenv("WIKI_BRIDGE_METRICS_ADDR"),
	}, nil
}
