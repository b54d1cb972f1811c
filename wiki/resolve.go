package wiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/olgasafonova/wiki-bridge-mcp-server/metrics"
)

// Resolve turns a free-text topic into a validated wiki base URL.
//
// Candidates are probed strictly in order and one at a time; the first host
// that answers a siteinfo query as a MediaWiki installation wins and no
// further candidates are tried. When every candidate fails, the returned
// ResolutionError carries one ProbeResult per candidate so the caller can see
// why each guess was rejected.
func (c *Client) Resolve(ctx context.Context, args ResolveArgs) (ResolveResult, error) {
	topic := strings.TrimSpace(args.Topic)
	if topic == "" {
		return ResolveResult{}, &InvalidInputError{Field: "topic", Message: "must not be empty"}
	}

	candidates := generateCandidates(topic, c.config.AllowedSuffixes)
	if len(candidates) == 0 {
		return ResolveResult{}, &InvalidInputError{Field: "topic", Message: "contains no usable characters"}
	}

	tried := make([]ProbeResult, 0, len(candidates))
	for _, cand := range candidates {
		siteName, err := c.probe(ctx, cand.BaseURL)
		if err == nil {
			metrics.RecordProbe(suffixOf(cand.Host, c.config.AllowedSuffixes), "hit")
			c.logger.Info("Topic resolved",
				"topic", topic,
				"wiki", cand.BaseURL,
				"rule", cand.Rule,
				"probes", len(tried)+1)
			return ResolveResult{
				Wiki:     cand.BaseURL,
				SiteName: siteName,
				Probes:   len(tried) + 1,
			}, nil
		}

		metrics.RecordProbe(suffixOf(cand.Host, c.config.AllowedSuffixes), "miss")
		tried = append(tried, ProbeResult{
			Candidate: cand.BaseURL,
			Rule:      cand.Rule,
			Reason:    err.Error(),
		})

		// A cancelled caller should not burn through the remaining candidates
		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Info("Resolution exhausted", "topic", topic, "candidates", len(tried))
	return ResolveResult{}, &ResolutionError{Topic: topic, Tried: tried}
}

// probe checks whether a candidate base URL answers as a MediaWiki
// installation and returns its site name
func (c *Client) probe(ctx context.Context, baseURL string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "siteinfo")
	params.Set("siprop", "general")

	resp, err := c.apiGet(ctx, baseURL, params)
	if err != nil {
		return "", err
	}

	general := getMap(getMap(resp["query"])["general"])
	if len(general) == 0 {
		return "", &ShapeError{URL: baseURL, Detail: "missing query.general in siteinfo response"}
	}

	return getString(general["sitename"]), nil
}

// suffixOf returns the allowlist suffix a host belongs to, for metric labels
func suffixOf(host string, suffixes []string) string {
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return s
		}
	}
	return "other"
}
