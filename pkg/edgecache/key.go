package edgecache

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// CanonicalKey builds the cache key for a request: the canonical request URL
// (scheme + host + path + sorted query). Scheme and host are lowercased and
// query parameters are sorted so that equivalent requests share one key.
// Request headers never participate; requests that must not share cache are
// excluded up front by a bypass policy instead.
func CanonicalKey(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return canonical(scheme, r.Host, r.URL.Path, r.URL.Query())
}

// CanonicalURL canonicalizes a raw URL string into a cache key. Unparseable
// input is returned as-is; a stable wrong key only costs a cache miss.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return canonical(scheme, u.Host, u.Path, u.Query())
}

func canonical(scheme, host, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(host))
	if path == "" {
		path = "/"
	}
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(normalizeQuery(query))
	}
	return b.String()
}

// normalizeQuery sorts query keys and values for a deterministic key.
func normalizeQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
