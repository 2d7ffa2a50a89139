// Package middlewarectx содержит HTTP middleware идентификации и ограничения запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization и кладёт в контекст
// вызывающего (models.Caller). Обработчики достают его через CallerFrom.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/response"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// CallerKey: ключ вызывающего в контексте.
const CallerKey Key = "caller"

// TokenParser проверяет токен и возвращает его claims.
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// WithCaller кладёт вызывающего в контекст.
func WithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// CallerFrom достаёт вызывающего из контекста.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(models.Caller)
	if !ok || caller.UserID == "" {
		return models.Caller{}, false
	}
	return caller, true
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет вызывающего в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), claims.Caller())))
		})
	}
}

// RequireRole пропускает только вызывающих с одной из ролей.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if !slices.Contains(roles, caller.Role) {
				log.Info("role not allowed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("user_id", caller.UserID),
					slog.String("role", string(caller.Role)),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
