package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"engram/infrastructure/config"
	"engram/pkg/auth"
	"go.uber.org/zap"
)

// Authenticate validates the bearer token on every request and attaches
// the resulting user context. IP rate limiting runs before validation,
// user rate limiting after, so unauthenticated floods never reach the
// validator's key comparison. userLimiter is container-provided so the
// DynamoDB-backed limiter can be shared across Lambda instances; a nil
// limiter falls back to an in-process sliding window.
func Authenticate(cfg *config.Config, userLimiter auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	if userLimiter == nil {
		userLimiter = auth.NewUserRateLimiter(200)
	}

	if cfg.IsLambda {
		// Behind API Gateway the JWT authorizer has already validated
		// the token; the Lambda adapter forwards the claims as headers.
		return authenticateFromGateway(userLimiter, logger)
	}

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{"engram-api"},
	})
	if err != nil {
		logger.Error("jwt validator initialization failed", zap.Error(err))
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respondUnauthorized(w, "authentication unavailable")
			})
		}
	}

	ipLimiter := auth.NewIPRateLimiter(100)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed, _ := ipLimiter.Allow(r.Context(), getClientIP(r)); !allowed {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			token, ok := extractToken(r)
			if !ok {
				respondUnauthorized(w, "missing authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				switch err {
				case auth.ErrExpiredToken:
					respondUnauthorized(w, "token has expired")
				case auth.ErrInvalidSignature:
					respondUnauthorized(w, "invalid token signature")
				default:
					respondUnauthorized(w, "invalid token")
				}
				return
			}

			if allowed, _ := userLimiter.Allow(r.Context(), claims.UserID); !allowed {
				respondError(w, http.StatusTooManyRequests, "user rate limit exceeded")
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticateFromGateway trusts the identity headers the Lambda adapter
// copies out of the API Gateway authorizer context.
func authenticateFromGateway(userLimiter auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				respondUnauthorized(w, "missing user context")
				return
			}

			if allowed, _ := userLimiter.Allow(r.Context(), userID); !allowed {
				respondError(w, http.StatusTooManyRequests, "user rate limit exceeded")
				return
			}

			roles := []string{"authenticated"}
			if raw := r.Header.Get("X-User-Roles"); raw != "" {
				roles = strings.Split(raw, ",")
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Roles:  roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose user context lacks the given role.
// Runs after Authenticate.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				respondUnauthorized(w, "authentication required")
				return
			}
			if !user.HasRole(role) {
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondError(w, http.StatusUnauthorized, message)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
