package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig describes which cross-origin callers the API accepts.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to make cross-origin requests.
	// Entries may contain one wildcard, as in "https://*.example.com".
	// An empty list denies every cross-origin caller.
	AllowedOrigins []string

	// AllowedMethods are the methods advertised on preflight.
	AllowedMethods []string

	// AllowedHeaders are the request headers advertised on preflight.
	AllowedHeaders []string

	// ExposedHeaders are response headers scripts may read.
	ExposedHeaders []string

	// AllowCredentials permits cookies and auth headers. Never combine
	// with a wildcard origin.
	AllowCredentials bool

	// MaxAge is how long browsers may cache the preflight result, in seconds.
	MaxAge int
}

// DefaultCORSConfig returns the defaults used by the API: no origins until
// configuration supplies them, and the headers the recipe endpoints
// actually read and emit.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Request-ID",
			"Accept",
			"Accept-Language",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
			"Retry-After",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: false,
		MaxAge:           86400,
	}
}

// originMatcher answers whether an Origin value is allowed. Exact entries
// are matched via a set; a wildcard entry like "https://*.example.com" is
// split at the star and matched by prefix and suffix.
type originMatcher struct {
	exact     map[string]struct{}
	wildcards []wildcardOrigin
}

type wildcardOrigin struct {
	prefix, suffix string
}

func (p wildcardOrigin) match(origin string) bool {
	if len(origin) <= len(p.prefix)+len(p.suffix) {
		return false
	}
	if !strings.HasPrefix(origin, p.prefix) || !strings.HasSuffix(origin, p.suffix) {
		return false
	}
	// The part the star stands for must be a host label, not a path or
	// a second origin.
	middle := origin[len(p.prefix) : len(origin)-len(p.suffix)]
	return !strings.ContainsAny(middle, "/:")
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(o)
		if prefix, suffix, ok := strings.Cut(o, "*"); ok {
			m.wildcards = append(m.wildcards, wildcardOrigin{prefix: prefix, suffix: suffix})
			continue
		}
		m.exact[o] = struct{}{}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	origin = strings.ToLower(origin)
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, w := range m.wildcards {
		if w.match(origin) {
			return true
		}
	}
	return false
}

// CORS handles cross-origin requests, including preflight. Disallowed
// origins get no CORS headers at all; a disallowed preflight is answered
// with 403 so the failure is visible rather than silently blocked.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	matcher := newOriginMatcher(cfg.AllowedOrigins)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	reqHeaders := strings.Join(cfg.AllowedHeaders, ", ")
	expHeaders := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin request.
				next.ServeHTTP(w, r)
				return
			}

			if !matcher.allows(origin) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if expHeaders != "" {
				h.Set("Access-Control-Expose-Headers", expHeaders)
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", reqHeaders)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
