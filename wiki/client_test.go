package wiki

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

// roundTripFunc lets tests substitute canned transport behavior without a
// listener, so egress and call-count properties can be asserted offline
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testConfig() *Config {
	return &Config{
		AllowedSuffixes: DefaultSuffixes,
		Timeout:         5 * time.Second,
		UserAgent:       "WikiBridgeTest/1.0",
		MaxRetries:      0,
		SearchLimit:     DefaultSearchLimit,
	}
}

// newTestClient creates a client whose outbound calls hit rt instead of the
// network. The counter reports how many requests reached the transport,
// which is how no-I/O properties are asserted.
func newTestClient(t *testing.T, rt roundTripFunc) (*Client, *int) {
	t.Helper()
	calls := 0
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewClient(testConfig(), logger)
	client.httpClient.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return rt(r)
	})
	return client, &calls
}

const siteinfoBody = `{"query":{"general":{"sitename":"Devil May Cry Wiki","generator":"MediaWiki 1.39"}}}`

func TestAPIGetForbiddenHostNoNetworkIO(t *testing.T) {
	client, calls := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, siteinfoBody), nil
	})

	_, err := client.apiGet(context.Background(), "https://example.com", url.Values{})
	if err == nil {
		t.Fatal("expected error for disallowed host")
	}
	var ferr *ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %T, want *ForbiddenError", err)
	}
	if *calls != 0 {
		t.Errorf("transport saw %d requests, want 0", *calls)
	}
}

func TestAPIGetSetsUserAgentAndFormat(t *testing.T) {
	var gotUA, gotFormat, gotMethod string
	client, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		gotUA = r.Header.Get("User-Agent")
		gotFormat = r.URL.Query().Get("format")
		gotMethod = r.Method
		return jsonResponse(http.StatusOK, siteinfoBody), nil
	})

	params := url.Values{}
	params.Set("action", "query")
	if _, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", params); err != nil {
		t.Fatalf("apiGet failed: %v", err)
	}

	if gotUA != "WikiBridgeTest/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "WikiBridgeTest/1.0")
	}
	if gotFormat != "json" {
		t.Errorf("format param = %q, want json", gotFormat)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
}

func TestAPIGetClassifiesTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if terr.Code != CodeTimeout {
		t.Errorf("code = %s, want %s", terr.Code, CodeTimeout)
	}
}

func TestAPIGetClassifiesCancellation(t *testing.T) {
	client, calls := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, context.Canceled
	})
	client.config.MaxRetries = 2

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if terr.Code != CodeCanceled {
		t.Errorf("code = %s, want %s", terr.Code, CodeCanceled)
	}
	// A gone caller is not retried
	if *calls != 1 {
		t.Errorf("transport saw %d requests, want 1", *calls)
	}
}

func TestAPIGetClassifiesConnectionError(t *testing.T) {
	client, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if terr.Code != CodeConnection {
		t.Errorf("code = %s, want %s", terr.Code, CodeConnection)
	}
}

func TestAPIGetClassifiesHTTPStatus(t *testing.T) {
	client, calls := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if terr.Code != CodeHTTPStatus || terr.Status != http.StatusNotFound {
		t.Errorf("got code=%s status=%d, want %s/404", terr.Code, terr.Status, CodeHTTPStatus)
	}
	// 4xx is not retried
	if *calls != 1 {
		t.Errorf("transport saw %d requests, want 1", *calls)
	}
}

func TestAPIGetRetriesServerErrors(t *testing.T) {
	client, calls := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, ``), nil
	})
	client.config.MaxRetries = 2

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if *calls != 3 {
		t.Errorf("transport saw %d requests, want 3 (1 + 2 retries)", *calls)
	}
}

func TestAPIGetHonorsRetryAfterOn429(t *testing.T) {
	client, calls := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		resp := jsonResponse(http.StatusTooManyRequests, ``)
		resp.Header.Set("Retry-After", "1")
		return resp, nil
	})
	client.config.MaxRetries = 1

	start := time.Now()
	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	elapsed := time.Since(start)

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if terr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", terr.Status)
	}
	if *calls != 2 {
		t.Errorf("transport saw %d requests, want 2", *calls)
	}
	if elapsed < time.Second {
		t.Errorf("waited %v before the retry, want at least the advertised 1s", elapsed)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "empty", value: "", want: 0},
		{name: "seconds", value: "2", want: 2 * time.Second},
		{name: "zero seconds", value: "0", want: 0},
		{name: "negative", value: "-3", want: 0},
		{name: "capped", value: "86400", want: 30 * time.Second},
		{name: "garbage", value: "soon", want: 0},
		{name: "past date", value: "Mon, 02 Jan 2006 15:04:05 GMT", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	// An HTTP date in the near future yields roughly the remaining delay
	future := time.Now().Add(5 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 5*time.Second {
		t.Errorf("parseRetryAfter(%q) = %v, want a positive delay within 5s", future, got)
	}
}

func TestAPIGetNonJSONPayload(t *testing.T) {
	client, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `<html>parked domain</html>`), nil
	})

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var serr *ShapeError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %T, want *ShapeError", err)
	}
}

func TestAPIGetUpstreamAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"error":{"code":"badvalue","info":"Unrecognized value"}}`), nil
	})

	_, err := client.apiGet(context.Background(), "https://devilmaycry.fandom.com", url.Values{})
	var serr *ShapeError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %T, want *ShapeError", err)
	}
	if !strings.Contains(serr.Detail, "badvalue") {
		t.Errorf("detail %q should carry the upstream error code", serr.Detail)
	}
}

// End-to-end over a real listener: the allowlist can be pointed at the test
// server's loopback host, exercising the full GET path
func TestAPIGetAgainstHTTPServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api.php" {
			t.Errorf("path = %q, want /api.php", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(siteinfoBody))
	}))
	defer server.Close()

	config := testConfig()
	config.AllowedSuffixes = []string{"127.0.0.1"}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewClient(config, logger)

	params := url.Values{}
	params.Set("action", "query")
	resp, err := client.apiGet(context.Background(), server.URL, params)
	if err != nil {
		t.Fatalf("apiGet failed: %v", err)
	}
	general := getMap(getMap(resp["query"])["general"])
	if getString(general["sitename"]) != "Devil May Cry Wiki" {
		t.Errorf("unexpected siteinfo payload: %v", resp)
	}
}
