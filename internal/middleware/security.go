package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"travel-admin-api/internal/config"

	"golang.org/x/time/rate"
)

// Idle client limiters are dropped after limiterIdleTTL, checked at most
// once per limiterSweepInterval.
const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

// Default CORS values
const (
	DefaultCORSMethods = "POST, OPTIONS"
	DefaultCORSHeaders = "Content-Type, Authorization"
	DefaultCORSMaxAge  = time.Hour
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// ClientIPFromContext returns the client address stored by TrustedProxy.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// SecurityMiddleware holds security-related middleware
type SecurityMiddleware struct {
	config *config.SecurityConfig

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time

	corsMethods      map[string]string
	preflightHandled map[string]bool
}

// NewSecurityMiddleware creates a new security middleware with the given config
func NewSecurityMiddleware(cfg *config.SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		config:           cfg,
		clients:          make(map[string]*clientLimiter),
		now:              time.Now,
		corsMethods:      make(map[string]string),
		preflightHandled: make(map[string]bool),
	}
}

// AllowMethods sets the Access-Control-Allow-Methods value advertised for
// paths starting with prefix. Other paths advertise DefaultCORSMethods.
func (sm *SecurityMiddleware) AllowMethods(prefix, methods string) {
	sm.corsMethods[prefix] = methods
}

// PassPreflight lets OPTIONS requests for the exact paths reach the handler
// instead of being answered 204. CORS headers are still set.
func (sm *SecurityMiddleware) PassPreflight(paths ...string) {
	for _, p := range paths {
		sm.preflightHandled[p] = true
	}
}

// RateLimit applies rate limiting per client IP
func (sm *SecurityMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIPFromContext(r.Context())
		if clientIP == "" {
			clientIP = sm.getClientIP(r)
		}

		if !sm.limiter(clientIP).Allow() {
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (sm *SecurityMiddleware) limiter(clientIP string) *rate.Limiter {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if now.Sub(sm.lastSweep) >= limiterSweepInterval {
		for ip, c := range sm.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(sm.clients, ip)
			}
		}
		sm.lastSweep = now
	}

	c, exists := sm.clients[clientIP]
	if !exists {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(sm.config.RateLimitRPS), sm.config.RateLimitBurst)}
		sm.clients[clientIP] = c
	}
	c.lastSeen = now
	return c.limiter
}

// CORS sets the cross-origin headers on every response and answers
// preflight requests with 204 before they reach a handler, except on paths
// registered with PassPreflight.
func (sm *SecurityMiddleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sm.config.EnableCORS {
			next.ServeHTTP(w, r)
			return
		}

		if origin := sm.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", sm.methodsFor(r.URL.Path))
		w.Header().Set("Access-Control-Allow-Headers", DefaultCORSHeaders)
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(int(DefaultCORSMaxAge.Seconds())))

		if r.Method == http.MethodOptions && !sm.preflightHandled[r.URL.Path] {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestTimeout bounds the time a handler may take to write its response.
func (sm *SecurityMiddleware) RequestTimeout(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, sm.config.RequestTimeout, `{"error":"Request timeout"}`)
}

// TrustedProxy stores the real client IP in the request context
func (sm *SecurityMiddleware) TrustedProxy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, sm.getClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecurityHeaders adds common security headers
func (sm *SecurityMiddleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the real client IP from the request
func (sm *SecurityMiddleware) getClientIP(r *http.Request) string {
	remoteAddr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	if sm.isTrustedProxy(remoteAddr) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	return remoteAddr
}

// isTrustedProxy checks if the given IP is in the trusted proxies list
func (sm *SecurityMiddleware) isTrustedProxy(ip string) bool {
	for _, trustedIP := range sm.config.TrustedProxies {
		if ip == trustedIP {
			return true
		}
	}
	return false
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (sm *SecurityMiddleware) allowOrigin(origin string) string {
	for _, allowed := range sm.config.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && allowed == origin {
			return origin
		}
	}
	return ""
}

func (sm *SecurityMiddleware) methodsFor(path string) string {
	best := ""
	for prefix := range sm.corsMethods {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return DefaultCORSMethods
	}
	return sm.corsMethods[best]
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":` + strconv.Quote(message) + "}\n"))
}
