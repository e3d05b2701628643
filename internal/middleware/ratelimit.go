package middleware

import (
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
	"github.com/R3E-Network/paneladmin/internal/httputil"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

const (
	defaultMaxClients = 10000
	limiterIdleTTL    = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides per-client rate limiting
type RateLimiter struct {
	limiters   map[string]*clientLimiter
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	maxClients int
	now        func() time.Time
	logger     *logger.Logger
}

// NewRateLimiter creates a new rate limiter. A burst below one defaults to
// the per-second rate.
func NewRateLimiter(requestsPerSecond float64, burst int, log *logger.Logger) *RateLimiter {
	if burst < 1 {
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rate:       rate.Limit(requestsPerSecond),
		burst:      burst,
		maxClients: defaultMaxClients,
		now:        time.Now,
		logger:     log,
	}
}

func (rl *RateLimiter) Name() string { return "ratelimit" }

// getLimiter returns the limiter for key, evicting idle clients when the
// table is full.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if cl, ok := rl.limiters[key]; ok {
		cl.lastSeen = now
		return cl.limiter
	}

	if len(rl.limiters) >= rl.maxClients {
		rl.evictLocked(now)
	}
	cl := &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst), lastSeen: now}
	rl.limiters[key] = cl
	return cl.limiter
}

// evictLocked drops idle clients, then the least recently seen ones until
// there is room again. Active clients keep their limiter state.
func (rl *RateLimiter) evictLocked(now time.Time) {
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
	if len(rl.limiters) < rl.maxClients {
		return
	}

	keys := make([]string, 0, len(rl.limiters))
	for key := range rl.limiters {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return rl.limiters[keys[i]].lastSeen.Before(rl.limiters[keys[j]].lastSeen)
	})

	// free a tenth of the table at once so a full table is not sorted per request
	drop := len(keys) - rl.maxClients + max(1, rl.maxClients/10)
	for _, key := range keys[:min(drop, len(keys))] {
		delete(rl.limiters, key)
	}
}

// Middleware returns the rate limiting middleware handler
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.getLimiter(key).Allow() {
			rl.logger.WithTrace(r.Context()).WithField("key", key).
				WithField("path", r.URL.Path).
				Warn("rate limit exceeded")

			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, svcerrors.RateLimitExceeded(int(rl.rate), "1s").
				WithDetail("burst", strconv.Itoa(rl.burst)))
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
