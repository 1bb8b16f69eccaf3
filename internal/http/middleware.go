package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
)

const (
	sessionCookie  = "crown_session"
	currentUserKey = "currentUser"
	joinPath       = "/#join"
)

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "same-origin")

		csp := "default-src 'self';"
		csp += " script-src 'self' 'unsafe-inline' cdn.jsdelivr.net;"
		csp += " style-src 'self' 'unsafe-inline' cdn.jsdelivr.net;"
		csp += " connect-src 'self';"
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}

// RequestLogger logs one record per request. 5xx responses log at error,
// 4xx at warn, everything else at info.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()

		var level logging.Level
		switch {
		case status >= http.StatusInternalServerError:
			level = logging.LevelError
		case status >= http.StatusBadRequest:
			level = logging.LevelWarn
		default:
			level = logging.LevelInfo
		}

		attrs := []any{logging.Group("http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes_sent", c.Writer.Size(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		log.Log(c.Request.Context(), level, "response", attrs...)
	}
}

// SessionResolver is the part of the session manager the middleware needs.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, bool)
}

// SessionMiddleware resolves the session cookie before any handler runs and
// stores the user, if any, on the context.
func SessionMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err == nil && token != "" {
			if user, ok := sessions.Resolve(c.Request.Context(), token); ok {
				c.Set(currentUserKey, user)
			}
		}

		c.Next()
	}
}

// RequireAuthenticated sends anonymous callers to the join prompt.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.Redirect(http.StatusFound, joinPath)
			c.Abort()

			return
		}

		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}

	user, _ := v.(*models.User)

	return user
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter returns a limiter allowing r events per second per IP
// with bursts of b.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      r,
		burst:    b,
	}
}

// NewDefaultRateLimiter returns the limiter guarding signup, login and posting.
func NewDefaultRateLimiter() *IPRateLimiter {
	return NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter
}

// Prune forgets visitors idle for longer than idle.
func (rl *IPRateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	pruned := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			pruned++
		}
	}

	return pruned
}

// Janitor prunes idle visitors every interval until ctx is done.
func (rl *IPRateLimiter) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune(interval)
		}
	}
}

// RateLimitMiddleware rejects callers that exceed their IP's bucket.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.String(http.StatusTooManyRequests, "Too many requests. Please wait.")
			c.Abort()

			return
		}

		c.Next()
	}
}
