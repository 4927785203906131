package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const rateWindow = time.Minute

// RateLimiter ограничивает число запросов с одного IP к одному пути
// скользящим окном в одну минуту.
type RateLimiter struct {
	limit  int
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	requests map[string]map[string][]time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewRateLimiter(requestsPerMinute int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limit:    requestsPerMinute,
		now:      time.Now,
		logger:   logger,
		requests: make(map[string]map[string][]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweeper that drops expired timestamps every interval.
// Stop must be called to release it.
func (l *RateLimiter) Start(interval time.Duration) {
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit. Safe to call more than once.
func (l *RateLimiter) Stop() {
	l.once.Do(func() {
		close(l.stop)
		<-l.done
	})
}

// Allow records a request and reports whether it fits into the window.
// Rejected requests are recorded too.
func (l *RateLimiter) Allow(ip, path string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	paths, ok := l.requests[ip]
	if !ok {
		paths = make(map[string][]time.Time)
		l.requests[ip] = paths
	}
	recent := pruneBefore(paths[path], now.Add(-rateWindow))
	recent = append(recent, now)
	paths[path] = recent

	if len(recent) > l.limit {
		return false, recent[0].Add(rateWindow).Sub(now)
	}
	return true, 0
}

func (l *RateLimiter) sweep() {
	cutoff := l.now().Add(-rateWindow)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, paths := range l.requests {
		for path, stamps := range paths {
			if kept := pruneBefore(stamps, cutoff); len(kept) > 0 {
				paths[path] = kept
			} else {
				delete(paths, path)
			}
		}
		if len(paths) == 0 {
			delete(l.requests, ip)
		}
	}
}

// trackedClients returns the number of IPs with requests in the window.
func (l *RateLimiter) trackedClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// Метки отсортированы по времени, поэтому достаточно найти первую свежую
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

// Middleware отвечает 429, если лимит для пары IP+путь исчерпан.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed, retryAfter := l.Allow(ip, r.URL.Path)
		if !allowed {
			l.logger.WarnContext(r.Context(), "Rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
			writeError(w, http.StatusTooManyRequests, fmt.Sprintf("rate limit exceeded: maximum %d requests per minute", l.limit))
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
