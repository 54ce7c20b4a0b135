package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
)

// idleTTL is how long a client's window is remembered after it opened.
const idleTTL = 10 * time.Minute

// Limiter allows a fixed number of requests per client per one-minute
// window. Windows live in a bounded LRU, so a flood of distinct addresses
// evicts the oldest clients instead of growing memory.
type Limiter struct {
	mu      sync.Mutex
	clients *cache.LRUCache[*clientWindow]
	sweeper *cache.Manager
	now     func() time.Time

	requestsPerMinute int
	methods           map[string]bool
}

type clientWindow struct {
	start    time.Time
	requests int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// MaxClients caps how many client windows are tracked at once.
	MaxClients int
	// Methods restricts limiting to these HTTP methods; empty means all.
	Methods []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		MaxClients:        10000,
		Methods:           []string{http.MethodPost, http.MethodDelete},
	}
}

func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxClients <= 0 {
		config.MaxClients = defaults.MaxClients
	}

	rl := &Limiter{
		sweeper:           cache.NewManager(nil),
		now:               time.Now,
		requestsPerMinute: config.RequestsPerMinute,
	}
	rl.clients = cache.NewLRUCacheWithClock[*clientWindow](config.MaxClients, idleTTL,
		func() time.Time { return rl.now() })
	if len(config.Methods) > 0 {
		rl.methods = make(map[string]bool, len(config.Methods))
		for _, m := range config.Methods {
			rl.methods[m] = true
		}
	}
	rl.sweeper.Register(rl.clients)
	rl.sweeper.StartCleanup(config.CleanupInterval)
	return rl
}

// Allow counts one request from clientIP and reports whether it fits in the
// current window.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients.Get(clientIP)
	if !ok || now.Sub(w.start) >= time.Minute {
		rl.clients.Set(clientIP, &clientWindow{start: now, requests: 1})
		return true
	}
	w.requests++
	return w.requests <= rl.requestsPerMinute
}

func (rl *Limiter) applies(method string) bool {
	return rl.methods == nil || rl.methods[method]
}

// cleanupStaleEntries forgets clients whose window opened more than ten
// minutes ago.
func (rl *Limiter) cleanupStaleEntries() int {
	return rl.clients.CleanExpired()
}

func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.sweeper.Stop()
}

// Middleware rejects over-limit requests with onLimit, or a plain 429 when
// onLimit is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.applies(r.Method) && !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", "60")
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
