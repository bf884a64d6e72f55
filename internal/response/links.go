package response

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// PageLinker returns the absolute URL of a page. A nil PageLinker produces
// no links.
type PageLinker func(page int) string

// QueryLinker links pages of a GET request by rewriting its page parameter.
// Every other query parameter is kept as sent, in order.
func QueryLinker(r *http.Request) PageLinker {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	base := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
	rawQuery := r.URL.RawQuery

	return func(page int) string {
		u := base
		u.RawQuery = withPage(rawQuery, page)
		return u.String()
	}
}

// withPage replaces every page=... pair with one page=n, appending it when
// the query had none.
func withPage(rawQuery string, page int) string {
	value := "page=" + strconv.Itoa(page)
	if rawQuery == "" {
		return value
	}

	parts := strings.Split(rawQuery, "&")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, p := range parts {
		key := p
		if i := strings.IndexByte(p, '='); i >= 0 {
			key = p[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil && k == "page" {
			if !replaced {
				out = append(out, value)
				replaced = true
			}
			continue
		}
		if p != "" {
			out = append(out, p)
		}
	}
	if !replaced {
		out = append(out, value)
	}
	return strings.Join(out, "&")
}

func (l PageLinker) link(page int) *string {
	if l == nil {
		return nil
	}
	s := l(page)
	return &s
}
