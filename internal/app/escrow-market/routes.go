// Package escrowmarket предоставляет сборку и маршруты основного приложения.
package escrowmarket

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/health"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/payment/approve"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/payment/complete"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/payment/payout"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/payment/refund"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/subscription/activate"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/subscription/list"
	usersync "github.com/magabrotheeeer/escrow-marketplace/internal/http/handlers/user/sync"
	"github.com/magabrotheeeer/escrow-marketplace/internal/http/middlewarectx"
	lifecycleservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/lifecycle"
	payoutservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/payout"
	subscriptionservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/subscription"
	usersyncservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/usersync"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	lifecycleService *lifecycleservice.Service,
	payoutService *payoutservice.Service,
	subscriptionService *subscriptionservice.Service,
	usersyncService *usersyncservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.RateLimitMiddleware(logger),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users/sync", usersync.New(logger, usersyncService).ServeHTTP)

		r.Post("/payments/approve", approve.New(logger, lifecycleService).ServeHTTP)
		r.Post("/payments/complete", complete.New(logger, lifecycleService).ServeHTTP)
		r.Post("/payments/refund", refund.New(logger, lifecycleService).ServeHTTP)
		r.Post("/payments/payout", payout.New(logger, payoutService).ServeHTTP)

		r.Post("/subscriptions", create.New(logger, subscriptionService).ServeHTTP)
		r.Post("/subscriptions/activate", activate.New(logger, lifecycleService).ServeHTTP)
		r.Get("/subscriptions/list", list.New(logger, subscriptionService).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
