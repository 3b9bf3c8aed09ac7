package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/log"
	apierrors "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/errors"
	"golang.org/x/time/rate"
)

// RateLimiter решает, можно ли выполнить ещё одно действие для ключа.
type RateLimiter interface {
	Allow(key string) bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter держит token bucket на каждый ключ (обычно IP) и забывает
// ключи, не встречавшиеся дольше ttl. Очистка идёт не чаще раза в ttl.
type keyedLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewKeyedLimiter разрешает rps событий в секунду на ключ с запасом burst.
func NewKeyedLimiter(rps float64, burst int, ttl time.Duration) RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &keyedLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *keyedLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweep удаляет ключи, простаивающие дольше ttl. Вызывается под l.mu.
func (l *keyedLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

// RateLimit отвечает 429, если лимит для IP клиента исчерпан.
// IP берётся из RemoteAddr; за доверенным прокси роутер ставит перед
// этим мидлваром chi RealIP (Options.TrustProxy).
func RateLimit(l RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.Allow(ip) {
				log.From(r.Context()).Warn("rate_limited",
					slog.String("path", r.URL.Path),
					slog.String("ip", ip),
				)
				w.Header().Set("Retry-After", "1")
				apierrors.WriteError(w, r, apierrors.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
