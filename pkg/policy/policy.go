// Package policy maps request paths to caching directives. Classification is
// a pure function over a fixed-priority rule table so that every path, known
// or not, gets a deterministic policy.
package policy

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Visibility controls how a response may be cached.
type Visibility string

const (
	// Public responses may be stored by the edge and any shared cache.
	Public Visibility = "public"

	// Private responses may only be stored by the browser.
	Private Visibility = "private"

	// Bypass responses must never be cached at any tier.
	Bypass Visibility = "bypass"
)

// Policy is an immutable caching directive for a path class.
type Policy struct {
	// Name identifies the path class for logging and cache diagnostics.
	Name string

	MaxAge               time.Duration
	StaleWhileRevalidate time.Duration
	Visibility           Visibility
}

// Cacheable reports whether the edge cache may store responses under this
// policy.
func (p Policy) Cacheable() bool {
	return p.Visibility == Public && p.MaxAge > 0
}

// HeaderValue renders the Cache-Control header for this policy.
func (p Policy) HeaderValue() string {
	switch p.Visibility {
	case Bypass:
		return "no-store"
	case Private:
		return fmt.Sprintf("private, max-age=%d", int(p.MaxAge.Seconds()))
	default:
		v := fmt.Sprintf("public, max-age=%d", int(p.MaxAge.Seconds()))
		if p.StaleWhileRevalidate > 0 {
			v += fmt.Sprintf(", stale-while-revalidate=%d", int(p.StaleWhileRevalidate.Seconds()))
		}
		return v
	}
}

// Named policies. Listings and the home page mutate often, so they get a
// short max-age with a wide stale-while-revalidate window; marketing pages
// barely change and cache for tens of minutes.
var (
	bypassPolicy = Policy{Name: "bypass", Visibility: Bypass}

	listingPolicy = Policy{
		Name:                 "listing",
		MaxAge:               60 * time.Second,
		StaleWhileRevalidate: 10 * time.Minute,
		Visibility:           Public,
	}

	staticPagePolicy = Policy{
		Name:                 "static-page",
		MaxAge:               30 * time.Minute,
		StaleWhileRevalidate: time.Hour,
		Visibility:           Public,
	}

	documentProxyPolicy = Policy{
		Name:                 "document-proxy",
		MaxAge:               5 * time.Minute,
		StaleWhileRevalidate: 10 * time.Minute,
		Visibility:           Public,
	}

	defaultPolicy = Policy{
		Name:                 "default",
		MaxAge:               60 * time.Second,
		StaleWhileRevalidate: 60 * time.Second,
		Visibility:           Public,
	}
)

// rule matches a normalized path by exact value or prefix.
type rule struct {
	pattern string
	exact   bool
	policy  Policy
}

// rules are evaluated top to bottom; the first match wins. Administrative
// and mutation surfaces come first so nothing below can shadow them.
var rules = []rule{
	{pattern: "/admin", policy: bypassPolicy},
	{pattern: "/cache", policy: bypassPolicy},
	{pattern: "/api", policy: bypassPolicy},
	{pattern: "/metrics", policy: bypassPolicy},
	{pattern: "/healthz", exact: true, policy: bypassPolicy},

	{pattern: "/documents", policy: documentProxyPolicy},
	{pattern: "/rates", exact: true, policy: documentProxyPolicy},

	{pattern: "/", exact: true, policy: listingPolicy},
	{pattern: "/cars", policy: listingPolicy},

	{pattern: "/about", exact: true, policy: staticPagePolicy},
	{pattern: "/contact", exact: true, policy: staticPagePolicy},
	{pattern: "/financing", exact: true, policy: staticPagePolicy},
	{pattern: "/warranty", exact: true, policy: staticPagePolicy},
	{pattern: "/static", policy: staticPagePolicy},
}

// Classify returns the caching policy for a request path. It is total:
// unmatched paths fall through to a conservative short-lived default.
func Classify(requestPath string) Policy {
	p := normalize(requestPath)
	for _, r := range rules {
		if r.exact {
			if p == r.pattern {
				return r.policy
			}
			continue
		}
		if p == r.pattern || strings.HasPrefix(p, r.pattern+"/") {
			return r.policy
		}
	}
	return defaultPolicy
}

// normalize cleans the path so that "/cars/", "cars" and "/cars/../cars"
// classify identically.
func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	return p
}
