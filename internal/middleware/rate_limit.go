package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pickup-market/internal/auth"
	"pickup-market/internal/logger"
	"pickup-market/internal/services"

	"github.com/sirupsen/logrus"
)

// ClientIP возвращает адрес клиента с учетом прокси
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}

// RateSubject возвращает ключ лимита: субъект токена или IP для анонимных запросов.
// Администраторы получают повышенный лимит.
func RateSubject(r *http.Request) (string, bool) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return p.Role + ":" + p.ID.String(), p.IsAdmin()
	}
	return "ip:" + ClientIP(r), false
}

// RateLimit ограничивает частоту запросов. Должен стоять после Authenticate.
func RateLimit(rateLimiter *services.RateLimiterService, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, elevated := RateSubject(r)

			result, err := rateLimiter.CheckLimit(r.Context(), subject, elevated)
			if err != nil {
				log.WithError(err).WithField("subject", subject).Error("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				response := map[string]interface{}{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests, retry later",
					"limit":       result.Limit,
					"retry_after": result.RetryAfter,
				}
				if !result.BannedUntil.IsZero() {
					response["banned_until"] = result.BannedUntil.Format(time.RFC3339)
				}

				log.WithFields(logrus.Fields{
					"subject":     subject,
					"path":        r.URL.Path,
					"retry_after": result.RetryAfter,
				}).Warn("Request blocked by rate limiter")

				_ = json.NewEncoder(w).Encode(response)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
