package wiki

import (
	"context"
	"net/url"
	"strings"
)

// GetPage retrieves a plain-text extract for the exact title supplied. No
// internal search or disambiguation happens here; callers are expected to
// obtain an exact title from Search first. A missing page is a
// PageNotFoundError, never a PageExtract with empty fields: an empty extract
// on an existing stub page is valid data, a missing page is not.
func (c *Client) GetPage(ctx context.Context, args GetPageArgs) (PageExtract, error) {
	if strings.TrimSpace(args.Wiki) == "" {
		return PageExtract{}, &InvalidInputError{Field: "wiki", Message: "must be a resolved wiki base URL"}
	}
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return PageExtract{}, &InvalidInputError{Field: "title", Message: "must not be empty"}
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", title)
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")

	resp, err := c.apiGet(ctx, args.Wiki, params)
	if err != nil {
		return PageExtract{}, err
	}

	pages := getMap(getMap(resp["query"])["pages"])
	if pages == nil {
		return PageExtract{}, &ShapeError{URL: args.Wiki, Detail: "missing query.pages in extract response"}
	}

	for _, pageData := range pages {
		page := getMap(pageData)
		if page == nil {
			continue
		}

		if _, missing := page["missing"]; missing {
			return PageExtract{}, &PageNotFoundError{Title: title, Wiki: args.Wiki}
		}

		pageTitle := getString(page["title"])
		if pageTitle == "" {
			pageTitle = title
		}

		result := PageExtract{
			Title:   pageTitle,
			Extract: getString(page["extract"]),
			URL:     canonicalPageURL(args.Wiki, pageTitle),
		}

		c.logger.Info("Page fetched",
			"wiki", args.Wiki,
			"title", pageTitle,
			"extract_chars", len(result.Extract))

		return result, nil
	}

	return PageExtract{}, &ShapeError{URL: args.Wiki, Detail: "empty query.pages in extract response"}
}

// articlePathEscaper escapes only the characters that would change the URL's
// meaning. MediaWiki keeps parentheses, apostrophes and commas literal in
// article paths, so full path escaping would break the canonical form.
var articlePathEscaper = strings.NewReplacer(
	"%", "%25",
	"?", "%3F",
	"#", "%23",
)

// canonicalPageURL builds the citeable article URL: the resolved base plus
// the standard /wiki/ article path and the title with spaces as underscores.
// Both fandom.com and wiki.gg use /wiki/$1, so no extra siteinfo round trip
// is needed.
func canonicalPageURL(baseURL, title string) string {
	titlePath := strings.ReplaceAll(title, " ", "_")

	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "/wiki/" + titlePath
	}
	u.Path = "/wiki/" + titlePath
	u.RawPath = "/wiki/" + articlePathEscaper.Replace(titlePath)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
