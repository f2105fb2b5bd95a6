package search

import (
	"net/url"
	"strconv"
)

// Params are the search inputs accepted from a query string.
type Params struct {
	Query    string
	Page     int
	PageSize int
}

// ParseParams reads query, page and page_size from values.
//
// Missing or unparseable page numbers fall back to DefaultPage and
// DefaultPageSize. Parsed values are passed through as-is; Engine.Search
// normalizes non-positive ones.
func ParseParams(values url.Values) Params {
	params := Params{
		Query:    values.Get("query"),
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if s := values.Get("page"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			params.Page = parsed
		}
	}

	if s := values.Get("page_size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			params.PageSize = parsed
		}
	}

	return params
}

// ParseRawQuery parses a URL-encoded query string such as the rawQueryString
// of an API Gateway event. Malformed pairs are skipped.
func ParseRawQuery(raw string) Params {
	// ParseQuery keeps every well-formed pair even when it reports an error.
	values, _ := url.ParseQuery(raw)
	return ParseParams(values)
}
