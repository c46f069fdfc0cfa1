package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ferremas/backoffice/api/responses"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
)

// WindowLimiter is a fixed-window counter keyed by scope, implemented by pkg/redis.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one client IP on a named surface.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int64
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, limit: int64(ipLimit)}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

// Scope is the limiter scope for ip, e.g. "ip:auth:200.1.1.1".
func (p AuthRateLimitPolicy) Scope(ip string) string {
	return "ip:" + p.name + ":" + ip
}

// AuthRateLimit caps the auth requests one IP may send per window. Limiter outages fail
// open so a redis blip never locks staff out; the per-account lockout in the auth
// service still applies.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter WindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		retryAfter := strconv.Itoa(int(policy.window.Round(time.Second).Seconds()))
		limit := strconv.FormatInt(policy.limit, 10)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			if ip == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, count, err := limiter.FixedWindowAllow(ctx, policy.Scope(ip), policy.limit, policy.window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "auth.rate_limit.unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			remaining := policy.limit - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":   policy.name,
						"ip":       ip,
						"attempts": count,
						"limit":    policy.limit,
					}), "auth.rate_limit.blocked")
				}
				w.Header().Set("Retry-After", retryAfter)
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
