package wiki

import (
	"fmt"
	"strings"
)

// ErrorCode classifies failures for programmatic handling
type ErrorCode string

const (
	// Input validation
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Egress guard
	CodeForbidden ErrorCode = "EGRESS_FORBIDDEN"

	// Transport failures, classified by cause
	CodeTimeout    ErrorCode = "TRANSPORT_TIMEOUT"
	CodeCanceled   ErrorCode = "TRANSPORT_CANCELED"
	CodeConnection ErrorCode = "TRANSPORT_CONNECTION"
	CodeHTTPStatus ErrorCode = "TRANSPORT_HTTP_STATUS"

	// Upstream answered but the payload is not a MediaWiki response
	CodeShapeMismatch ErrorCode = "UPSTREAM_SHAPE_MISMATCH"

	// Page-level and resolution-level outcomes
	CodePageNotFound        ErrorCode = "NOT_FOUND_PAGE"
	CodeResolutionExhausted ErrorCode = "RESOLUTION_EXHAUSTED"
)

// InvalidInputError reports a rejected argument before any network I/O
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("[%s] invalid %s: %s", CodeInvalidInput, e.Field, e.Message)
}

// ForbiddenError is returned when a target host falls outside the allowlist.
// It is produced by the egress guard before any connection is attempted.
type ForbiddenError struct {
	URL  string
	Host string
}

func (e *ForbiddenError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] host not in allowlist", CodeForbidden))
	if e.Host != "" {
		sb.WriteString(fmt.Sprintf(": %q", e.Host))
	} else {
		sb.WriteString(fmt.Sprintf(": malformed URL %q", e.URL))
	}
	sb.WriteString("\n\nOutbound requests are restricted to allowlisted wiki domains.")
	sb.WriteString("\nUse wiki_resolve to obtain a valid base URL.")
	return sb.String()
}

// TransportError wraps a failed outbound call with its classified cause.
// The adapter converts every timeout, connection error and non-2xx status
// into one of these; nothing escapes the boundary as a raw error.
type TransportError struct {
	Code   ErrorCode
	URL    string
	Status int // HTTP status, set only for CodeHTTPStatus
	Err    error
}

func (e *TransportError) Error() string {
	switch e.Code {
	case CodeTimeout:
		return fmt.Sprintf("[%s] request to %s timed out", e.Code, e.URL)
	case CodeCanceled:
		return fmt.Sprintf("[%s] request to %s canceled by caller", e.Code, e.URL)
	case CodeHTTPStatus:
		return fmt.Sprintf("[%s] %s returned status %d", e.Code, e.URL, e.Status)
	default:
		return fmt.Sprintf("[%s] request to %s failed: %v", e.Code, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ShapeError indicates a 2xx response that does not look like a MediaWiki
// API payload (e.g. a parked domain serving HTML).
type ShapeError struct {
	URL    string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("[%s] %s did not return a MediaWiki payload: %s", CodeShapeMismatch, e.URL, e.Detail)
}

// PageNotFoundError distinguishes a missing page from an existing page with
// an empty extract; only the former is a failure.
type PageNotFoundError struct {
	Title string
	Wiki  string
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf(`[%s] page %q does not exist on %s

To find the correct title:
1. Use wiki_search to search this wiki for the topic
2. Check capitalization; MediaWiki titles are case-sensitive after the first letter`,
		CodePageNotFound, e.Title, e.Wiki)
}

// ResolutionError is returned when every candidate probe failed. Tried holds
// one entry per candidate, in probing order, so the caller can see why each
// guess was rejected and adjust the topic or add a domain suffix.
type ResolutionError struct {
	Topic string
	Tried []ProbeResult
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] no wiki found for topic %q (%d candidates tried)", CodeResolutionExhausted, e.Topic, len(e.Tried)))
	for _, p := range e.Tried {
		sb.WriteString(fmt.Sprintf("\n  %s (%s): %s", p.Candidate, p.Rule, p.Reason))
	}
	return sb.String()
}
