// Package middlewarectx содержит HTTP middleware для проверки JWT токенов
// и ограничения частоты запросов.
//
// JWTMiddleware проверяет наличие и валидность токена в заголовке Authorization
// и в случае успеха кладет в контекст subject пользователя. Только этот subject
// используется для отбора объектов в хранилище.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/expense-report/internal/http/response"
	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// Subject ключ для subject проверенного токена в контексте.
const Subject Key = "subject"

// Сообщения ответов при ошибке аутентификации.
const (
	MsgMissingHeader = "Authorization header is missing."
	MsgInvalidToken  = "Invalid token."
)

// Verifier проверяет токен и возвращает его subject.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// UnauthorizedObserver получает уведомление об отклоненном запросе.
type UnauthorizedObserver func()

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
// onReject может быть nil.
func JWTMiddleware(verifier Verifier, log *slog.Logger, onReject UnauthorizedObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				log.Warn("authorization header is missing")
				reject(w, r, onReject, MsgMissingHeader)
				return
			}

			// Принимаем и "Bearer <token>", и голый токен.
			tokenStr := authHeader
			if scheme, rest, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
				tokenStr = strings.TrimSpace(rest)
			}

			subject, err := verifier.Verify(r.Context(), tokenStr)
			if err != nil {
				log.Warn("invalid token", sl.Err(err))
				reject(w, r, onReject, MsgInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), Subject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, onReject UnauthorizedObserver, msg string) {
	if onReject != nil {
		onReject()
	}
	response.Write(w, r, http.StatusUnauthorized, msg)
}

// SubjectFrom возвращает subject, положенный JWTMiddleware.
func SubjectFrom(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(Subject).(string)
	return subject, ok && subject != ""
}
