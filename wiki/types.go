package wiki

// Constants for response limits
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// ========== Resolve Types ==========

type ResolveArgs struct {
	Topic string `json:"topic" jsonschema:"required,description=Free-text franchise or topic name (e.g. 'Devil May Cry 5')"`
}

type ResolveResult struct {
	Wiki     string `json:"wiki"`
	SiteName string `json:"site_name,omitempty"`
	Probes   int    `json:"probes"`
}

// Candidate is one generated base-URL hypothesis for a topic, tagged with
// the slug rule that produced it. Candidates only live for one resolution.
type Candidate struct {
	BaseURL string `json:"candidate"`
	Host    string `json:"-"`
	Rule    string `json:"rule"`
}

// ProbeResult records why a single candidate probe failed. The ordered list
// of these is returned verbatim when every candidate fails.
type ProbeResult struct {
	Candidate string `json:"candidate"`
	Rule      string `json:"rule"`
	Reason    string `json:"reason"`
}

// ========== Search Types ==========

type SearchArgs struct {
	Wiki  string `json:"wiki" jsonschema:"required,description=Resolved wiki base URL from wiki_resolve (e.g. https://devilmaycry.fandom.com)"`
	Query string `json:"query" jsonschema:"description=Search query text; empty query returns an empty result list"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum results to return (default 10, max 50)"`
}

type SearchResult struct {
	Wiki    string      `json:"wiki"`
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

type SearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ========== Page Types ==========

type GetPageArgs struct {
	Wiki  string `json:"wiki" jsonschema:"required,description=Resolved wiki base URL from wiki_resolve"`
	Title string `json:"title" jsonschema:"required,description=Exact page title (use wiki_search to find one)"`
}

// PageExtract is a citeable plain-text extract. URL is the canonical article
// URL under the resolved host, never a guessed one.
type PageExtract struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	URL     string `json:"url"`
}

// ========== Health Types ==========

type HealthArgs struct{}

type HealthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ========== JSON response helpers ==========

// The MediaWiki API is parsed as loosely typed JSON; these helpers keep the
// type assertions in one place and make missing fields non-fatal.

func getMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func getSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func getString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func getInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
