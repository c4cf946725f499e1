// Package expensereport собирает HTTP-приложение сервиса отчетов о расходах.
package expensereport

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/unrolled/secure"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/expense-report/docs"
	"github.com/magabrotheeeer/expense-report/internal/http/handlers/health"
	"github.com/magabrotheeeer/expense-report/internal/http/handlers/report/process"
	"github.com/magabrotheeeer/expense-report/internal/http/middlewarectx"
	"github.com/magabrotheeeer/expense-report/internal/observability"
)

// Deps зависимости маршрутов.
type Deps struct {
	Verifier middlewarectx.Verifier
	Service  process.Service
	Metrics  *observability.Metrics
	Limiter  *rate.Limiter

	// Development отключает проверки secure, неуместные при локальном запуске.
	Development bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	secureHeaders := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      deps.Development,
	})

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		secureHeaders.Handler,
		deps.Metrics.Middleware,
	)

	r.Get("/", health.New(logger).ServeHTTP)

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(deps.Limiter, logger))
		r.Use(middlewarectx.JWTMiddleware(deps.Verifier, logger, func() {
			deps.Metrics.ReportResult(observability.ResultUnauthorized)
		}))
		r.Post("/process_expense_report", process.New(logger, deps.Service, deps.Metrics).ServeHTTP)
	})

	r.Handle("/metrics", deps.Metrics.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
