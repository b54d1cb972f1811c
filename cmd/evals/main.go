// Command evals runs a live round-trip evaluation against real wikis:
// resolve a topic, search the resolved wiki, then fetch a page extract and
// print its citation URL.
//
// Usage:
//
//	go run ./cmd/evals -topic "Devil May Cry 5" -query Vergil -title Vergil
//
// Exits non-zero if any step fails. This hits live fandom.com/wiki.gg hosts
// and is not part of the unit test suite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/olgasafonova/wiki-bridge-mcp-server/wiki"
)

func main() {
	topic := flag.String("topic", "Devil May Cry 5", "Topic to resolve")
	query := flag.String("query", "Vergil", "Search query to run on the resolved wiki")
	title := flag.String("title", "Vergil", "Page title to fetch an extract for")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline for the round trip")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	config, err := wiki.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	client := wiki.NewClient(config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Resolving topic %q...\n", *topic)
	resolved, err := client.Resolve(ctx, wiki.ResolveArgs{Topic: *topic})
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve failed:\n%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  wiki:      %s\n", resolved.Wiki)
	fmt.Printf("  site name: %s\n", resolved.SiteName)
	fmt.Printf("  probes:    %d\n\n", resolved.Probes)

	fmt.Printf("Searching for %q...\n", *query)
	search, err := client.Search(ctx, wiki.SearchArgs{Wiki: resolved.Wiki, Query: *query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
		os.Exit(1)
	}
	for i, hit := range search.Results {
		fmt.Printf("  %2d. %s\n", i+1, hit.Title)
	}
	fmt.Println()

	fmt.Printf("Fetching page %q...\n", *title)
	page, err := client.GetPage(ctx, wiki.GetPageArgs{Wiki: resolved.Wiki, Title: *title})
	if err != nil {
		fmt.Fprintf(os.Stderr, "get page failed: %v\n", err)
		os.Exit(1)
	}

	extract := page.Extract
	if len(extract) > 400 {
		extract = extract[:400] + "..."
	}
	fmt.Printf("  title:   %s\n", page.Title)
	fmt.Printf("  url:     %s\n", page.URL)
	fmt.Printf("  extract: %s\n", extract)
}
