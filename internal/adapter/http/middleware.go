package http

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

type loggerKey struct{}

// loggerFrom returns the request-scoped logger stored by requestLogging.
func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestLogging assigns a request ID, stores a request-scoped logger in the
// context and logs one line per request.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			reqLogger := logger.With("request_id", id)
			r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, reqLogger))

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			reqLogger.Info("http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Int("bytes", wrapped.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/1e6),
				slog.String("user_agent", r.Header.Get("User-Agent")),
			)
		})
	}
}

// securityHeaders adds the standard hardening headers. The CSP allows the
// page's own chart images and inline styles only.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// compression gzips responses of 1 KiB or more.
func compression(next http.Handler) http.Handler {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(1024),
		gzhttp.CompressionLevel(6),
	)
	if err != nil {
		return gzhttp.GzipHandler(next)
	}
	return wrapper(next)
}

// Idle limiters are dropped by a sweep that runs at most once per
// limiterSweepInterval, on the request path.
const (
	limiterIdleTTL       = 3 * time.Minute
	limiterSweepInterval = time.Minute
)

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	clock     clockwork.Clock
	lastSweep atomic.Int64 // unix nanos
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

func newRateLimiter(rps float64, clock clockwork.Clock) *rateLimiter {
	rl := &rateLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    int(math.Max(1, math.Ceil(rps))),
		clock:    clock,
	}
	rl.lastSweep.Store(clock.Now().UnixNano())
	return rl
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	now := rl.clock.Now()
	if now.UnixNano()-rl.lastSweep.Load() >= int64(limiterSweepInterval) {
		rl.sweep(now)
	}

	rl.mu.RLock()
	v, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		v.lastSeen.Store(now.UnixNano())
		return v.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	// Double-check after acquiring the write lock.
	if v, ok := rl.limiters[key]; ok {
		v.lastSeen.Store(now.UnixNano())
		return v.limiter
	}
	v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	v.lastSeen.Store(now.UnixNano())
	rl.limiters[key] = v
	return v.limiter
}

// sweep removes limiters idle for longer than limiterIdleTTL.
func (rl *rateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.UnixNano()-rl.lastSweep.Load() < int64(limiterSweepInterval) {
		return
	}
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	for key, v := range rl.limiters {
		if v.lastSeen.Load() < cutoff {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep.Store(now.UnixNano())
}

func (rl *rateLimiter) size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			sharedobs.WriteJSON(w, http.StatusTooManyRequests, errorBody{
				Code: http.StatusTooManyRequests,
				Text: "rate limit exceeded, please try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
