package wiki

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/olgasafonova/wiki-bridge-mcp-server/metrics"
)

// htmlTagRegex is used to strip HTML markup from search snippets
var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// stripHTMLTags removes HTML tags and decodes entities from a snippet
func stripHTMLTags(s string) string {
	s = html.UnescapeString(s)
	s = htmlTagRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Search queries an already-resolved wiki for pages matching the query.
// Results keep the upstream relevance order and are capped at the configured
// limit. The base URL is re-validated against the egress guard at call time;
// resolution and search are independent calls.
func (c *Client) Search(ctx context.Context, args SearchArgs) (SearchResult, error) {
	if strings.TrimSpace(args.Wiki) == "" {
		return SearchResult{}, &InvalidInputError{Field: "wiki", Message: "must be a resolved wiki base URL"}
	}

	// The guard runs before the empty-query short-circuit: a disallowed base
	// URL is rejected even when no network call would follow
	if err := c.guard.Check(args.Wiki); err != nil {
		metrics.EgressBlocked.Inc()
		c.logger.Warn("Egress blocked", "url", args.Wiki)
		return SearchResult{}, err
	}

	// Empty query is an empty result, not an error, and costs no network call
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return SearchResult{Wiki: args.Wiki, Results: []SearchHit{}}, nil
	}

	limit := normalizeLimit(args.Limit, c.config.SearchLimit, MaxSearchLimit)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")

	resp, err := c.apiGet(ctx, args.Wiki, params)
	if err != nil {
		return SearchResult{}, err
	}

	queryObj := getMap(resp["query"])
	if queryObj == nil {
		return SearchResult{}, &ShapeError{URL: args.Wiki, Detail: "missing query in search response"}
	}

	totalHits := getInt(getMap(queryObj["searchinfo"])["totalhits"])
	searchResults := getSlice(queryObj["search"])
	results := make([]SearchHit, 0, len(searchResults))
	for _, sr := range searchResults {
		item := getMap(sr)
		if item == nil {
			continue
		}
		results = append(results, SearchHit{
			Title:   getString(item["title"]),
			Snippet: stripHTMLTags(getString(item["snippet"])),
		})
	}

	c.logger.Info("Search completed",
		"wiki", args.Wiki,
		"query", query,
		"results_count", len(results),
		"total_hits", totalHits)

	return SearchResult{
		Wiki:    args.Wiki,
		Query:   query,
		Results: results,
	}, nil
}

// normalizeLimit ensures limit is within bounds
func normalizeLimit(limit, defaultVal, maxVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > maxVal {
		return maxVal
	}
	return limit
}
