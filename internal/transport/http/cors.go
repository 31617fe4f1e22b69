package http

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
	corsMaxAge       = 10 * 60
)

// corsPolicy is the parsed origin allow-list. "*" admits any origin.
type corsPolicy struct {
	wildcard bool
	origins  map[string]struct{}
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.wildcard {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// CORS answers preflight requests for allowed dashboard origins and tags
// their responses. Preflights from other origins get 403; their simple
// requests pass through untagged so the browser blocks them.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
			next.ServeHTTP(w, r)
			return
		case !policy.allows(origin):
			if isPreflight(r) {
				writeError(w, http.StatusForbidden, codeForbidden, "origin not allowed")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if policy.wildcard {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}

		if isPreflight(r) {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
