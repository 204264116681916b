package groupshandlers

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/jwt"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key and prunes idle keys inline.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		r:       r,
		b:       b,
	}
}

// Limiter returns the bucket of key, pruning idle entries once the map grows
// past cleanupThreshold.
func (l *RateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.buckets) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.buckets {
			if e.lastSeen.Before(cutoff) {
				delete(l.buckets, k)
			}
		}
	}

	e, exists := l.buckets[key]
	if !exists {
		e = &bucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.buckets[key] = e
	}
	e.lastSeen = now

	return e.limiter
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// ClientAddress keys requests by remote IP.
func ClientAddress(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// CompetitionCaller keys requests by competition and caller. The caller is
// the token subject when authenticated, the remote IP otherwise.
func CompetitionCaller(r *http.Request) string {
	caller := "ip:" + ClientAddress(r)
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		caller = "sub:" + claims.Subject
	}
	return chi.URLParam(r, "competitionID") + "|" + caller
}

// RateLimitMiddleware answers 429 with a Retry-After header once the bucket
// of the request is empty.
func RateLimitMiddleware(limiter *RateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := limiter.Limiter(key(r))
			if !l.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(l)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds is the wait until the next token, at least one second.
func retryAfterSeconds(l *rate.Limiter) int {
	res := l.Reserve()
	defer res.Cancel()
	if !res.OK() {
		return int(maxIdleAge / time.Second)
	}
	return max(1, int(math.Ceil(res.Delay().Seconds())))
}

// CORSMiddleware sets CORS headers for the configured origins. With no
// origins it only answers preflight requests.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := origins[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.Header().Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type claimsKey struct{}

// ClaimsFromContext returns the bearer claims stored by BearerAuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok
}

// BearerAuthMiddleware rejects requests without a valid bearer token.
func BearerAuthMiddleware(tokens jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// CompetitionAccessMiddleware checks the claims against the competitionID
// route parameter. Reads need access, everything else also needs a writing
// role. Requests without claims pass, which is how the API runs without auth.
func CompetitionAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if !claims.CanAccess(chi.URLParam(r, "competitionID")) {
			writeError(w, http.StatusForbidden, "competition not covered by token")
			return
		}
		if r.Method != http.MethodGet && !claims.CanWrite() {
			writeError(w, http.StatusForbidden, "token is read-only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
