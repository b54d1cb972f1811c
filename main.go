// Wiki Bridge MCP Server - a read-only Model Context Protocol server that
// resolves free-text franchise topics to allowlisted MediaWiki wikis
// (fandom.com, wiki.gg) and answers search and page-extract queries against
// them with citeable URLs.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olgasafonova/wiki-bridge-mcp-server/metrics"
	"github.com/olgasafonova/wiki-bridge-mcp-server/tracing"
	"github.com/olgasafonova/wiki-bridge-mcp-server/wiki"
)

const (
	ServerName    = "wiki-bridge-mcp-server"
	ServerVersion = wiki.Version
)

func main() {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load configuration from environment
	config, err := wiki.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize tracing (no-op unless OTEL_ENABLED or an OTLP endpoint is set)
	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig(ServerVersion))
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	// Optional Prometheus exposition + liveness endpoint
	if config.MetricsAddr != "" {
		go serveMetrics(config.MetricsAddr, logger)
	}

	// Create the shared MediaWiki client (one instance for all requests)
	client := wiki.NewClient(config, logger)

	// Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger: logger,
		Instructions: `Wiki Bridge MCP Server resolves franchise topics to fan wikis and fetches citeable content.

Available tools:
- wiki_resolve: Turn a topic like "Devil May Cry 5" into a validated wiki base URL
- wiki_search: Search a resolved wiki for page titles matching a query
- wiki_get_page: Get the plain-text extract and citation URL for an exact page title
- wiki_health: Liveness probe, no dependencies

Typical flow: wiki_resolve once per topic, then pass the returned base URL
into wiki_search and wiki_get_page. Outbound requests are restricted to
allowlisted domains (default: fandom.com, wiki.gg); the bridge is read-only
and keeps no state between calls.

Configure via environment variables:
- WIKI_BRIDGE_TIMEOUT: Per-request timeout (default 30s)
- WIKI_BRIDGE_USER_AGENT: Outbound User-Agent (default embeds the version)
- WIKI_BRIDGE_ALLOWED_SUFFIXES: Comma-separated egress allowlist
- WIKI_BRIDGE_METRICS_ADDR: Serve Prometheus metrics on this address`,
	})

	registerTools(server, client, logger)

	logger.Info("Starting Wiki Bridge MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"allowed_suffixes", config.AllowedSuffixes,
		"timeout", config.Timeout,
	)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func registerTools(server *mcp.Server, client *wiki.Client, logger *slog.Logger) {
	// Resolve a topic to a wiki base URL
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_resolve",
		Description: "Resolve a free-text franchise or game topic to a validated wiki base URL. Probes candidate hosts under allowed domains in order and returns the first working MediaWiki installation. On failure, the error lists every candidate tried with its failure reason.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Resolve Topic to Wiki",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, instrumented(logger, "wiki_resolve", func(ctx context.Context, args wiki.ResolveArgs) (wiki.ResolveResult, error) {
		result, err := client.Resolve(ctx, args)
		if err != nil {
			return wiki.ResolveResult{}, fmt.Errorf("resolve failed: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "wiki_resolve",
			"topic", args.Topic,
			"wiki", result.Wiki,
			"probes", result.Probes,
		)
		return result, nil
	}))

	// Search within a resolved wiki
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_search",
		Description: "Full-text search within an already-resolved wiki. Returns titles and snippets in upstream relevance order. Requires a base URL from wiki_resolve; an empty query returns an empty list.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Search Wiki",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, instrumented(logger, "wiki_search", func(ctx context.Context, args wiki.SearchArgs) (wiki.SearchResult, error) {
		result, err := client.Search(ctx, args)
		if err != nil {
			return wiki.SearchResult{}, fmt.Errorf("search failed: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "wiki_search",
			"wiki", args.Wiki,
			"query", args.Query,
			"results_count", len(result.Results),
		)
		return result, nil
	}))

	// Get a page extract with its citation URL
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_get_page",
		Description: "Get the plain-text extract of an exact page title on a resolved wiki, plus the canonical URL to cite. Use wiki_search first to find the exact title; a missing page is an error, not an empty extract.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Get Page Extract",
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(true),
		},
	}, instrumented(logger, "wiki_get_page", func(ctx context.Context, args wiki.GetPageArgs) (wiki.PageExtract, error) {
		result, err := client.GetPage(ctx, args)
		if err != nil {
			return wiki.PageExtract{}, fmt.Errorf("failed to get page: %w", err)
		}
		logger.Info("Tool executed",
			"tool", "wiki_get_page",
			"wiki", args.Wiki,
			"title", args.Title,
			"extract_chars", len(result.Extract),
			"approx_tokens", len(result.Extract)/4,
		)
		return result, nil
	}))

	// Liveness probe
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wiki_health",
		Description: "Liveness probe. Returns ok without touching any upstream wiki.",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Health Check",
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	}, instrumented(logger, "wiki_health", func(ctx context.Context, args wiki.HealthArgs) (wiki.HealthResult, error) {
		return wiki.HealthResult{Status: "ok", Version: ServerVersion}, nil
	}))
}

// instrumented wraps a tool implementation with panic recovery, a tracing
// span, and request metrics. A recovered panic becomes an error result
// instead of crashing the server.
func instrumented[A, R any](logger *slog.Logger, tool string, fn func(context.Context, A) (R, error)) func(context.Context, *mcp.CallToolRequest, A) (*mcp.CallToolResult, R, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args A) (res *mcp.CallToolResult, out R, err error) {
		ctx, span := tracing.StartToolSpan(ctx, tool)
		defer span.End()

		metrics.RequestsInFlight.WithLabelValues(tool).Inc()
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				metrics.PanicsRecovered.WithLabelValues(tool).Inc()
				logger.Error("Panic recovered",
					"tool", tool,
					"panic", r,
					"stack", string(debug.Stack()))
				err = fmt.Errorf("internal error in %s", tool)
			}
			metrics.RequestsInFlight.WithLabelValues(tool).Dec()
			metrics.RecordRequest(tool, time.Since(start).Seconds(), err == nil)
			tracing.RecordError(span, err)
		}()

		out, err = fn(ctx, args)
		return nil, out, err
	}
}

// serveMetrics exposes Prometheus metrics and a liveness endpoint
func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, ServerVersion)
	})

	logger.Info("Metrics listener started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics listener failed", "error", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
