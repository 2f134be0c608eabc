package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pemilihan-be/pkg/logger"
)

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "Accept, Authorization, Content-Type, If-None-Match, X-Request-ID"
	corsExposeHeaders = "ETag, Retry-After, X-Request-ID"
)

// CORSOptions lists the browser origins allowed to call the API. An empty
// list or "*" admits any origin.
type CORSOptions struct {
	AllowedOrigins []string
	MaxAge         time.Duration
}

type originPolicy struct {
	any     bool
	origins map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{any: len(origins) == 0, origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.any = true
			continue
		}
		if o != "" {
			p.origins[o] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORS echoes allowed origins with credentials and answers preflights.
// Requests from other origins still reach next but carry no CORS headers, so
// the browser blocks the response. Preflights from them get 403.
func CORS(opts CORSOptions, log *logger.Logger) func(http.Handler) http.Handler {
	policy := newOriginPolicy(opts.AllowedOrigins)
	maxAge := ""
	if opts.MaxAge > 0 {
		maxAge = strconv.Itoa(int(opts.MaxAge / time.Second))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !policy.allows(origin) {
				log.WithFields(map[string]interface{}{
					"origin": origin,
					"path":   r.URL.Path,
				}).Debug("Origin not allowed")

				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")

			if preflight {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			next.ServeHTTP(w, r)
		})
	}
}
