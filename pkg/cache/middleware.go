package cache

import (
	"bytes"
	"net/http"
)

// responseRecorder wraps http.ResponseWriter to capture the body and
// status code for caching.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.statusCode = http.StatusOK
		w.written = true
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware returns HTTP middleware caching GET responses in c.
//
// Listing responses differ per caller (yours vs company partitioning), so
// the cache key combines the request URI with the caller identity header.
// Only 200 responses to GETs are cached. Any non-GET request passing
// through invalidates the whole cache, keeping mutations promptly visible.
func Middleware(c *TTLCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				c.Invalidate()
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-User-Id") + "\x00" + r.URL.RequestURI()

			if cached, ok := c.Get(key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(cached)
				return
			}

			rec := &responseRecorder{ResponseWriter: w}
			rec.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)

			if rec.statusCode == http.StatusOK {
				c.Set(key, rec.body.Bytes())
			}
		})
	}
}
