// Package ratelimit applies a per-client token bucket to the REST surface.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/response"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	idleTimeout     = 15 * time.Minute

	scopeIP = "ip"
)

// Recorder counts rejected requests.
type Recorder interface {
	RecordRateLimitHit(scope string)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client. Clients idle for longer than
// idleTimeout are forgotten.
type Limiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	recorder Recorder
	cancel   context.CancelFunc
}

// New starts a limiter allowing rps requests per second with the given
// burst. The cleanup goroutine stops when ctx is done or Stop is called.
func New(ctx context.Context, rps float64, burst int, recorder Recorder) *Limiter {
	ctx, cancel := context.WithCancel(ctx)
	l := &Limiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		recorder: recorder,
		cancel:   cancel,
	}
	go l.cleanup(ctx)
	return l
}

func (l *Limiter) Stop() { l.cancel() }

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (l *Limiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for key, v := range l.visitors {
				if time.Since(v.lastSeen) > idleTimeout {
					delete(l.visitors, key)
				}
			}
			l.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// retryAfter is the whole number of seconds until the next token.
func (l *Limiter) retryAfter() int {
	if l.rate <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(l.rate)))
}

// Middleware rejects requests under /api/ once the client's bucket is
// empty. Clients are keyed by address; it runs ahead of authentication so
// requests with missing or bad tokens are counted too.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		if !l.get(hash(clientIP(r))).Allow() {
			if l.recorder != nil {
				l.recorder.RecordRateLimitHit(scopeIP)
			}
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			response.Fail(w, r, e.RateLimited("Too many requests from this client, please try again later"), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// hash keeps raw addresses out of the visitor map.
func hash(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
