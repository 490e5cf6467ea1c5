package middleware

import (
	"net/http"
	"strings"

	"pickup-market/internal/auth"
	"pickup-market/internal/logger"

	"github.com/sirupsen/logrus"
)

// Authenticate разбирает Bearer токен, если он передан, и кладет субъекта в контекст.
// Запрос без заголовка Authorization проходит дальше анонимным.
func Authenticate(jwtService *auth.JWTService, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Проверяем формат "Bearer <token>"
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateToken(parts[1])
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Warn("JWT validation failed")
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			id, err := claims.SubjectID()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{ID: id, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только аутентифицированных субъектов с одной из ролей
func RequireRole(log *logger.Logger, roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next(w, r)
					return
				}
			}

			log.WithFields(logrus.Fields{
				"subject_id": principal.ID,
				"role":       principal.Role,
				"path":       r.URL.Path,
			}).Warn("Insufficient permissions")
			writeError(w, http.StatusForbidden, "Insufficient permissions")
		}
	}
}
